// Package customization holds the deployment-specific adjustments of the
// product sync: extra preload steps and registry patches applied on top of
// the base product mapping.
package customization

import (
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/internal/preload"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/pkg/errors"
)

type Customization interface {
	Name() string
	// Steps run after the built-in preload steps.
	Steps() []preload.Step
	// Patches are applied to the product registry of a batch in order.
	Patches(snapshot *state.Snapshot) []mapping.Patch
}

// Deps are the collaborators a customization may use.
type Deps struct {
	Target    shopware.Repository
	Languages []mapping.Language
	Logger    ectologger.Logger
}

// New returns the customization called name. An empty name is the plain
// product sync.
func New(name string, deps Deps) (Customization, error) {
	switch name {
	case "":
		return None{}, nil
	case HeximName:
		return NewHexim(deps), nil
	}
	return nil, errors.Errorf("unknown customization '%s'", name)
}

// Apply patches registry with c.
func Apply(c Customization, registry *mapping.Registry, snapshot *state.Snapshot) (*mapping.Registry, error) {
	patched, err := mapping.Apply(registry, c.Patches(snapshot)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to apply customization '%s'", c.Name())
	}
	return patched, nil
}

// None changes nothing.
type None struct{}

func (None) Name() string { return "none" }

func (None) Steps() []preload.Step { return nil }

func (None) Patches(*state.Snapshot) []mapping.Patch { return nil }
