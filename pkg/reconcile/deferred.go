package reconcile

import (
	"github.com/Gobusters/ectolinq"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
)

type Relation string

const (
	RelationProductMedia         Relation = "product_media"
	RelationProductVisibility    Relation = "product_visibility"
	RelationMainCategory         Relation = "main_category"
	RelationProductCategory      Relation = "product_category"
	RelationProductProperty      Relation = "product_property"
	RelationProductOption        Relation = "product_option"
	RelationProductTag           Relation = "product_tag"
	RelationConfiguratorSettings Relation = "product_configurator_setting"
)

// FlushOrder is the order deferred deletes are sent in.
var FlushOrder = []Relation{
	RelationProductMedia,
	RelationProductVisibility,
	RelationMainCategory,
	RelationProductCategory,
	RelationProductProperty,
	RelationProductOption,
	RelationProductTag,
	RelationConfiguratorSettings,
}

const scratchKey = "reconcile.deferred"

type entry struct {
	owner   string
	payload map[string]any
}

type optionEntry struct {
	owner    string
	optionID string
}

// ConfiguratorCreate lists the option ids to add to one parent product.
type ConfiguratorCreate struct {
	ParentID  string
	OptionIDs []string
}

// Deferred accumulates deletes per relation and configurator creates per
// parent. Every entry remembers the record that contributed it so a failed
// or vetoed record can take its contributions back.
type Deferred struct {
	deletes     map[Relation][]entry
	creates     map[string][]optionEntry
	parentOrder []string
}

func NewDeferred() *Deferred {
	return &Deferred{
		deletes: map[Relation][]entry{},
		creates: map[string][]optionEntry{},
	}
}

// For returns the batch-scoped accumulator stored in sc.
func For(sc *scratch.Context) *Deferred {
	return scratch.BatchOrInit(sc, scratchKey, NewDeferred)
}

func (d *Deferred) Delete(owner string, rel Relation, payload map[string]any) {
	d.deletes[rel] = append(d.deletes[rel], entry{owner: owner, payload: payload})
}

// AddConfigurator records that optionID should be configured on parentID.
func (d *Deferred) AddConfigurator(owner, parentID, optionID string) {
	if _, ok := d.creates[parentID]; !ok {
		d.parentOrder = append(d.parentOrder, parentID)
	}
	d.creates[parentID] = append(d.creates[parentID], optionEntry{owner: owner, optionID: optionID})
}

// DropDeletes removes every delete contributed by owner.
func (d *Deferred) DropDeletes(owner string) {
	for rel, entries := range d.deletes {
		d.deletes[rel] = ectolinq.Filter(entries, func(e entry) bool { return e.owner != owner })
	}
}

// DropCreates removes every configurator create contributed by owner.
func (d *Deferred) DropCreates(owner string) {
	for parentID, options := range d.creates {
		d.creates[parentID] = ectolinq.Filter(options, func(o optionEntry) bool { return o.owner != owner })
	}
}

func (d *Deferred) DropOwner(owner string) {
	d.DropDeletes(owner)
	d.DropCreates(owner)
}

func (d *Deferred) Deletes(rel Relation) []map[string]any {
	return ectolinq.Map(d.deletes[rel], func(e entry) map[string]any { return e.payload })
}

// DeleteCount is the number of pending deletes over all relations.
func (d *Deferred) DeleteCount() int {
	count := 0
	for _, entries := range d.deletes {
		count += len(entries)
	}
	return count
}

// DeletesFor returns the deletes contributed by owner for rel.
func (d *Deferred) DeletesFor(owner string, rel Relation) []map[string]any {
	owned := ectolinq.Filter(d.deletes[rel], func(e entry) bool { return e.owner == owner })
	return ectolinq.Map(owned, func(e entry) map[string]any { return e.payload })
}

// SettingsDeleted reports whether configurator settings of productID are
// being deleted in this batch.
func (d *Deferred) SettingsDeleted(productID string) bool {
	for _, e := range d.deletes[RelationConfiguratorSettings] {
		if id, _ := e.payload["productId"].(string); id == productID {
			return true
		}
	}
	return false
}

// ConfiguratorCreates returns the creates per parent in first-seen order with
// duplicate option ids removed. Parents left without options are skipped.
func (d *Deferred) ConfiguratorCreates() []ConfiguratorCreate {
	var out []ConfiguratorCreate
	for _, parentID := range d.parentOrder {
		seen := map[string]struct{}{}
		var optionIDs []string
		for _, o := range d.creates[parentID] {
			if _, ok := seen[o.optionID]; ok {
				continue
			}
			seen[o.optionID] = struct{}{}
			optionIDs = append(optionIDs, o.optionID)
		}
		if len(optionIDs) == 0 {
			continue
		}
		out = append(out, ConfiguratorCreate{ParentID: parentID, OptionIDs: optionIDs})
	}
	return out
}
