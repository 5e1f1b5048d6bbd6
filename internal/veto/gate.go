// Package veto decides what happens to a record around its mapping: it may
// wait for its parent, be synced, get disabled in shopware or never be created.
package veto

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/product"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/metrics"
	"github.com/Kentzo-Omakse/hexim/pkg/reconcile"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
)

// Sentinel product names of disabled entities.
const (
	MissingParent  = "MISSING_PARENT"
	DeletedProduct = "DELETED_PRODUCT"
)

// Policy rejects a mapped record. The first policy that rejects decides the
// sentinel name of the disabled product.
type Policy struct {
	Sentinel string
	Kind     synerr.Kind
	Rejects  func(record models.SourceRecord) bool
}

// Verdict is the result of the post-mapping check. Payload is nil when the
// product must not be written at all.
type Verdict struct {
	Payload mapping.Payload
	Outcome string
	Policy  *Policy
}

// Synced reports whether the record keeps its mapped payload.
func (v Verdict) Synced() bool {
	return v.Outcome == metrics.OutcomeSynced
}

type Gate struct {
	settings config.Settings
	products *state.Index
	ledger   *state.Ledger
	policies []Policy
	logger   ectologger.Logger
}

// NewGate builds the gate of one batch. products must be the index the
// batch driver assigns new links to.
func NewGate(settings config.Settings, products *state.Index, ledger *state.Ledger, logger ectologger.Logger) *Gate {
	g := &Gate{
		settings: settings,
		products: products,
		ledger:   ledger,
		logger:   logger,
	}
	g.policies = []Policy{
		{Sentinel: MissingParent, Kind: synerr.KindParentUnresolved, Rejects: g.parentMissing},
		{Sentinel: DeletedProduct, Kind: synerr.KindPolicyExcluded, Rejects: g.excluded},
	}
	return g
}

// WithPolicies appends policies checked after the built-in ones.
func (g *Gate) WithPolicies(policies ...Policy) *Gate {
	g.policies = append(g.policies, policies...)
	return g
}

// Defer reports whether record has to wait for a later run because its
// parent has no product yet. The caller counts a deferral as a failed
// attempt; once the error count reaches the defer threshold the record goes
// through Check and is disabled or suppressed.
func (g *Gate) Defer(ctx context.Context, record models.SourceRecord) bool {
	if !g.settings.ClientAllowed(record.ClientIDs(), nil) || !g.settings.MarketAllowed(record.MarketIDs(), nil) {
		return false
	}
	if !record.HasForeignParent() || record.ErrorCount >= g.settings.DeferErrorThreshold {
		return false
	}
	parentID, _ := record.ParentID()
	if _, ok := g.products.Link(parentID); ok {
		return false
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"variation_id": record.VariationID,
		"parent_id":    parentID,
		"error_count":  record.ErrorCount,
	}).Errorf(
		"Skipped variant. Variant \"%d\" is available, but parent is not. Please check parent variation id \"%d\". Please reset the sync after changing the availability of the main variant.",
		record.VariationID, parentID,
	)
	return true
}

// Check runs the policies against a mapped record. A rejected record is
// marked processed and loses its pending link. An existing product is
// disabled, a new one is never created.
func (g *Gate) Check(ctx context.Context, cur product.Current, payload mapping.Payload, sc *scratch.Context) Verdict {
	ctx, span := tracing.StartSpan(ctx, "veto.Gate.Check")
	defer span.End()

	for i := range g.policies {
		policy := &g.policies[i]
		if !policy.Rejects(cur.Record) {
			continue
		}

		g.ledger.MarkProcessed(cur.Record.ID)
		g.ledger.DropPendingLink(cur.Record.VariationID)

		log := g.logger.WithContext(ctx).WithFields(map[string]any{
			"variation_id": cur.Record.VariationID,
			"sw_id":        cur.SwID,
			"reason":       policy.Kind,
			"error_count":  cur.Record.ErrorCount,
		})

		deferred := reconcile.For(sc)
		if cur.Existing == nil {
			deferred.DropOwner(cur.Owner())
			log.Warn("Product not created")
			return Verdict{Outcome: metrics.OutcomeSuppress, Policy: policy}
		}

		if g.settings.DisableRelations == config.DisableRelationsWipe {
			deferred.DropCreates(cur.Owner())
		} else {
			deferred.DropOwner(cur.Owner())
		}
		log.WithFields(map[string]any{"sentinel": policy.Sentinel}).Warn("Product disabled")
		return Verdict{
			Payload: mapping.Payload{
				"id":     cur.SwID,
				"name":   policy.Sentinel,
				"active": false,
			},
			Outcome: metrics.OutcomeDisabled,
			Policy:  policy,
		}
	}

	return Verdict{Payload: payload, Outcome: metrics.OutcomeSynced}
}

func (g *Gate) parentMissing(record models.SourceRecord) bool {
	if !record.IsVariant() {
		return false
	}
	parentID, ok := record.ParentID()
	if !ok {
		return true
	}
	_, linked := g.products.Link(parentID)
	return !linked
}

func (g *Gate) excluded(record models.SourceRecord) bool {
	return !g.settings.MarketAllowed(record.MarketIDs(), nil) ||
		!g.settings.ClientAllowed(record.ClientIDs(), nil) ||
		record.ErrorCount >= g.settings.ErrorCeiling
}
