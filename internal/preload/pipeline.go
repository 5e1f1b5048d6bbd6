// Package preload resolves every foreign key a batch needs before any record
// is mapped. Each category is scanned once over the whole batch and looked up
// with a single bulk query.
package preload

import (
	"context"
	"sort"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/pkg/events"
	"github.com/Kentzo-Omakse/hexim/pkg/metrics"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// LinkStore is the id-mapping store.
type LinkStore interface {
	Lookup(ctx context.Context, category models.LinkCategory, plentyIDs []string) (map[string]models.Link, error)
}

// Provisioner discovers dynamic properties and makes sure their custom
// fields exist.
type Provisioner interface {
	Provision(ctx context.Context, records []models.SourceRecord) ([]models.DynamicProperty, error)
}

// Batch is what every step works on.
type Batch struct {
	Records  []models.SourceRecord
	Snapshot *state.Snapshot
}

// Step is one preload stage. Steps run in the order they are registered.
type Step struct {
	Name string
	Run  func(ctx context.Context, batch *Batch) error
}

type Pipeline struct {
	links       LinkStore
	target      shopware.Repository
	dispatcher  *events.Dispatcher
	provisioner Provisioner
	settings    config.Settings
	extra       []Step
	logger      ectologger.Logger
}

func NewPipeline(
	links LinkStore,
	target shopware.Repository,
	dispatcher *events.Dispatcher,
	provisioner Provisioner,
	settings config.Settings,
	logger ectologger.Logger,
) *Pipeline {
	return &Pipeline{
		links:       links,
		target:      target,
		dispatcher:  dispatcher,
		provisioner: provisioner,
		settings:    settings,
		logger:      logger,
	}
}

// WithSteps appends steps that run after the built-in ones.
func (p *Pipeline) WithSteps(steps ...Step) *Pipeline {
	p.extra = append(p.extra, steps...)
	return p
}

// Steps returns the stages in run order.
func (p *Pipeline) Steps() []Step {
	steps := []Step{
		{Name: "product_links", Run: p.loadProductLinks},
		{Name: "tags", Run: p.loadTags},
		{Name: "currencies", Run: p.loadCurrencies},
		{Name: "taxes", Run: p.loadTaxes},
		{Name: "units", Run: p.loadUnits},
		{Name: "availabilities", Run: p.loadAvailabilities},
		{Name: "manufacturers", Run: p.loadManufacturers},
		{Name: "categories", Run: p.loadCategories},
		{Name: "attribute_values", Run: p.loadAttributeValues},
		{Name: "property_values", Run: p.loadPropertyValues},
		{Name: "media", Run: p.loadMedia},
		{Name: "sales_channels", Run: p.loadSalesChannels},
		{Name: "existing_products", Run: p.loadExistingProducts},
		{Name: "dynamic_properties", Run: p.loadDynamicProperties},
	}
	return append(steps, p.extra...)
}

// Run resolves the snapshot for records.
func (p *Pipeline) Run(ctx context.Context, records []models.SourceRecord) (*state.Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "preload.Pipeline.Run", attribute.Int("records", len(records)))
	defer span.End()

	batch := &Batch{Records: records, Snapshot: state.NewSnapshot()}
	for _, step := range p.Steps() {
		if err := step.Run(ctx, batch); err != nil {
			tracing.RecordError(span, err)
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"step": step.Name,
			}).Error("Preload step failed")
			return nil, err
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"records":           len(records),
		"existing_products": batch.Snapshot.Products.ProductCount(),
		"dynamic_props":     len(batch.Snapshot.DynamicProperties),
	}).Debug("Preload finished")
	return batch.Snapshot, nil
}

func (p *Pipeline) lookup(ctx context.Context, category models.LinkCategory, ids []string) (map[string]models.Link, error) {
	if len(ids) == 0 {
		return map[string]models.Link{}, nil
	}
	metrics.RecordLookup(string(category))
	found, err := p.links.Lookup(ctx, category, ids)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up %s links", category)
	}
	return found, nil
}

func (p *Pipeline) lookupMap(ctx context.Context, category models.LinkCategory, ids []string) (state.IDMap, error) {
	found, err := p.lookup(ctx, category, ids)
	if err != nil {
		return nil, err
	}
	return state.IDMapFromLinks(found), nil
}

func (p *Pipeline) loadProductLinks(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		ids.addInt(r.VariationID)
		if parent, ok := r.ParentID(); ok && r.HasForeignParent() {
			ids.addInt(parent)
		}
	}

	found, err := p.lookup(ctx, models.LinkProduct, ids.list())
	if err != nil {
		return err
	}

	links := make(map[int64]string, len(found))
	for plentyID, link := range found {
		id, err := strconv.ParseInt(plentyID, 10, 64)
		if err != nil {
			continue
		}
		links[id] = link.SwID
	}
	batch.Snapshot.Products = state.NewIndex(links)
	return nil
}

func (p *Pipeline) loadTags(ctx context.Context, batch *Batch) error {
	if !p.settings.SyncTags {
		return nil
	}

	ids := newIDSet()
	for _, r := range batch.Records {
		for _, tag := range r.Variation.Get("tags").Items() {
			id, ok := tag.Get("tagId").AsInt()
			if !ok || !p.settings.TagAllowed(int(id)) {
				continue
			}
			ids.addInt(id)
		}
	}

	tags, err := p.lookupMap(ctx, models.LinkTag, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.Tags = tags
	return nil
}

func (p *Pipeline) loadCurrencies(ctx context.Context, batch *Batch) error {
	rows, err := p.target.Search(ctx, shopware.EntityCurrency, shopware.NewCriteria())
	if err != nil {
		return errors.Wrap(err, "failed to load currencies")
	}

	currencies := []models.Currency{{
		ID:          shopware.DefaultCurrencyID,
		PriceID:     p.settings.RetailPriceID,
		ListPriceID: p.settings.SuggestedRetailPriceID,
	}}
	for _, row := range rows {
		fields := models.CustomFields(row)
		priceID := fields.Get(models.CustomFieldCurrencyPriceID)
		if priceID.IsNil() {
			continue
		}
		currency := models.Currency{
			ID:          row.Get("id").Str(),
			PriceID:     int(priceID.IntOr(0)),
			ListPriceID: int(fields.Get(models.CustomFieldCurrencyListPriceID).IntOr(0)),
		}
		if currency.ID == shopware.DefaultCurrencyID {
			currencies[0] = currency
			continue
		}
		currencies = append(currencies, currency)
	}

	batch.Snapshot.Currencies = currencies
	return nil
}

func (p *Pipeline) loadTaxes(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		ids.addValue(r.Variation.Get("base").Get("vatId"))
	}

	found, err := p.lookup(ctx, models.LinkTax, ids.list())
	if err != nil {
		return err
	}
	for plentyID, link := range found {
		batch.Snapshot.Taxes[plentyID] = models.TaxFromLink(link)
	}
	return nil
}

func (p *Pipeline) loadUnits(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		ids.addValue(r.Variation.Get("unit").Get("unitId"))
	}

	units, err := p.lookupMap(ctx, models.LinkUnit, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.Units = units
	return nil
}

func (p *Pipeline) loadAvailabilities(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		ids.addValue(r.Variation.Get("base").Get("availabilityId"))
	}

	availabilities, err := p.lookupMap(ctx, models.LinkAvailability, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.Availabilities = availabilities
	return nil
}

func (p *Pipeline) loadManufacturers(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		id := r.Variation.Get("base").Get("item").Get("manufacturerId")
		if id.IntOr(0) == 0 {
			continue
		}
		ids.addValue(id)
	}

	manufacturers, err := p.lookupMap(ctx, models.LinkManufacturer, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.Manufacturers = manufacturers
	return nil
}

func (p *Pipeline) loadCategories(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		for _, category := range r.Variation.Get("categories").Items() {
			ids.addValue(category.Get("categoryId"))
		}
		// client overrides of the main category
		for _, category := range r.Variation.Get("defaultCategories").Items() {
			ids.addValue(category.Get("branchId"))
		}
	}

	categories, err := p.lookupMap(ctx, models.LinkCategoryTree, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.Categories = categories
	return nil
}

func (p *Pipeline) loadAttributeValues(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		for _, attribute := range r.Variation.Get("attributeValues").Items() {
			ids.addValue(attribute.Get("valueId"))
		}
	}

	values, err := p.lookupMap(ctx, models.LinkAttributeValue, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.AttributeValues = values
	return nil
}

func (p *Pipeline) loadPropertyValues(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		for _, property := range r.Variation.Get("properties").Items() {
			cast := models.PropertyCast(property)
			if cast != models.CastSelection && cast != models.CastMultiSelection {
				continue
			}
			for _, v := range property.Get("values").Items() {
				ids.addValue(v.Get("value"))
			}
		}
	}

	values, err := p.lookupMap(ctx, models.LinkPropertyValue, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.PropertyValues = values
	return nil
}

func (p *Pipeline) loadMedia(ctx context.Context, batch *Batch) error {
	ids := newIDSet()
	for _, r := range batch.Records {
		for _, image := range models.Images(r.Variation) {
			if !p.settings.ImageAllowed(models.ImageMarketIDs(image)) {
				continue
			}
			ids.add(models.ProductMediaPrefix + image.Get("id").Str())
		}

		for _, property := range r.Variation.Get("properties").Items() {
			if models.PropertyCast(property) != models.CastFile {
				continue
			}
			if !p.settings.PropertyAllowed(int(property.Get("propertyId").IntOr(0))) {
				continue
			}
			for _, v := range property.Get("values").Items() {
				ids.add(models.ProductPropertyMediaPrefix + v.Get("id").Str())
			}
		}
	}

	media, err := p.lookupMap(ctx, models.LinkMedia, ids.list())
	if err != nil {
		return err
	}
	batch.Snapshot.Media = media
	return nil
}

func (p *Pipeline) loadSalesChannels(ctx context.Context, batch *Batch) error {
	rows, err := p.target.Search(ctx, shopware.EntitySalesChannel, shopware.NewCriteria())
	if err != nil {
		return errors.Wrap(err, "failed to load sales channels")
	}

	channels := make([]models.SalesChannel, len(rows))
	for i, row := range rows {
		channels[i] = models.SalesChannelFromEntity(row)
	}
	batch.Snapshot.SalesChannels = channels
	return nil
}

// loadExistingProducts must run after the product links: it loads every
// product a record or its parent is linked to.
func (p *Pipeline) loadExistingProducts(ctx context.Context, batch *Batch) error {
	ids := batch.Snapshot.Products.LinkedSwIDs()
	if len(ids) == 0 {
		return nil
	}

	criteria := shopware.NewCriteria(ids...)
	for _, association := range models.ProductAssociations {
		criteria.AddAssociation(association)
	}
	criteria.AddAssociation("configuratorSettings").AddAssociation("option")

	if p.dispatcher != nil {
		p.dispatcher.DispatchCriteria(ctx, &events.CriteriaEvent{
			Name:     events.ExistingProductsCriteria,
			Criteria: criteria,
		})
	}

	rows, err := p.target.Search(ctx, shopware.EntityProduct, criteria)
	if err != nil {
		return errors.Wrap(err, "failed to load existing products")
	}
	for _, row := range rows {
		batch.Snapshot.Products.Put(models.ProductFromEntity(row))
	}
	return nil
}

func (p *Pipeline) loadDynamicProperties(ctx context.Context, batch *Batch) error {
	if p.provisioner == nil {
		return nil
	}
	properties, err := p.provisioner.Provision(ctx, batch.Records)
	if err != nil {
		return err
	}
	batch.Snapshot.DynamicProperties = properties
	return nil
}

// idSet collects distinct ids in a stable order.
type idSet struct {
	seen map[string]struct{}
	ids  []string
}

func newIDSet() *idSet {
	return &idSet{seen: map[string]struct{}{}}
}

func (s *idSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *idSet) addInt(id int64) {
	s.add(strconv.FormatInt(id, 10))
}

// addValue adds a scalar id, skipping null and missing values.
func (s *idSet) addValue(v value.Value) {
	if v.IsNil() {
		return
	}
	s.add(v.Str())
}

func (s *idSet) list() []string {
	out := append([]string(nil), s.ids...)
	sort.Strings(out)
	return out
}
