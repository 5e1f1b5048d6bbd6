// Package batch runs one product sync: it takes pending records off the
// queue, preloads what they reference, maps them in parent-before-variant
// order and flushes all deletes before all upserts.
package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/customization"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/preload"
	"github.com/Kentzo-Omakse/hexim/internal/product"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/internal/veto"
	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/events"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/metrics"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Queue is the pending update queue.
type Queue interface {
	Pending(ctx context.Context, limit int) ([]models.SourceRecord, error)
	MarkProcessed(ctx context.Context, ids []string) error
	IncrementErrors(ctx context.Context, ids []string) error
}

// LinkStore is the id-mapping store. New product links are saved after the
// upsert.
type LinkStore interface {
	preload.LinkStore
	Save(ctx context.Context, links []models.Link) error
}

// Overrides lists the operator mapping overrides.
type Overrides interface {
	ListByType(ctx context.Context, mappingType string) ([]models.MappingFieldOverride, error)
}

// Source fetches a single variation for the diagnostic run.
type Source interface {
	GetVariation(ctx context.Context, id int64) (value.Value, bool, error)
}

type Deps struct {
	Queue         Queue
	Links         LinkStore
	Overrides     Overrides
	Source        Source
	Target        shopware.Repository
	Pipeline      *preload.Pipeline
	Customization customization.Customization
	Dispatcher    *events.Dispatcher
	Logger        ectologger.Logger
}

// Result counts the records of one run by outcome.
type Result struct {
	Records    int `json:"records"`
	Synced     int `json:"synced"`
	Deferred   int `json:"deferred"`
	Disabled   int `json:"disabled"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
	Deleted    int `json:"deleted"`
	Upserted   int `json:"upserted"`
}

type Driver struct {
	deps      Deps
	settings  config.Settings
	batchSize int
	now       func() time.Time
}

func NewDriver(deps Deps, settings config.Settings, batchSize int) *Driver {
	if deps.Customization == nil {
		deps.Customization = customization.None{}
	}
	deps.Pipeline.WithSteps(deps.Customization.Steps()...)
	return &Driver{
		deps:      deps,
		settings:  settings,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// Run syncs one page of pending records.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "batch.Driver.Run")
	defer span.End()

	records, err := d.deps.Queue.Pending(ctx, d.batchSize)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.Wrap(err, "failed to load pending records")
	}
	if len(records) == 0 {
		d.deps.Logger.WithContext(ctx).Debug("No pending records")
		return &Result{}, nil
	}

	return d.process(ctx, records, true)
}

// RunSingle fetches one variation from the source and syncs it without
// touching the queue.
func (d *Driver) RunSingle(ctx context.Context, variationID int64) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "batch.Driver.RunSingle", attribute.Int64("variation_id", variationID))
	defer span.End()

	variation, found, err := d.deps.Source.GetVariation(ctx, variationID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.Wrapf(err, "failed to fetch variation %d", variationID)
	}
	if !found {
		err := synerr.New(synerr.KindSourceFetchEmpty, "VariationID not found.").
			AddForeignID(fmt.Sprint(variationID))
		tracing.RecordError(span, err)
		return nil, err
	}

	record := models.RecordFromVariation(fmt.Sprintf("debug-%d", variationID), variation, 0)
	return d.process(ctx, []models.SourceRecord{record}, false)
}

// run is the state of one batch.
type run struct {
	records  []models.SourceRecord
	snapshot *state.Snapshot
	registry *mapping.Registry
	engine   *mapping.Engine
	gate     *veto.Gate
	ledger   *state.Ledger
	scratch  *scratch.Context
	queued   bool

	upserts []upsert
	result  *Result
}

type upsert struct {
	record  models.SourceRecord
	payload mapping.Payload
}

func (d *Driver) process(ctx context.Context, records []models.SourceRecord, queued bool) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "batch.Driver.process", attribute.Int("records", len(records)))
	defer span.End()

	start := d.now()
	log := d.deps.Logger.WithContext(ctx)

	SortRecords(records)

	snapshot, err := d.deps.Pipeline.Run(ctx, records)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	registry, err := d.registry(ctx, snapshot)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	ledger := state.NewLedger()
	r := &run{
		records:  records,
		snapshot: snapshot,
		registry: registry,
		engine:   d.engine(),
		gate:     veto.NewGate(d.settings, snapshot.Products, ledger, d.deps.Logger),
		ledger:   ledger,
		scratch:  scratch.New(),
		queued:   queued,
		result:   &Result{Records: len(records)},
	}

	log.WithFields(map[string]any{
		"records": len(records),
		"fields":  registry.Len(),
	}).Info("Mapping records")

	for _, record := range records {
		if err := d.mapRecord(ctx, r, record); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
	}

	if err := d.flush(ctx, r); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	elapsed := d.now().Sub(start)
	metrics.RecordBatch(elapsed.Seconds())
	log.WithFields(map[string]any{
		"records":    r.result.Records,
		"synced":     r.result.Synced,
		"deferred":   r.result.Deferred,
		"disabled":   r.result.Disabled,
		"suppressed": r.result.Suppressed,
		"failed":     r.result.Failed,
		"duration":   elapsed.String(),
	}).Info("Batch finished")
	return r.result, nil
}

// registry is the base product registry with the operator overrides, then
// the customization, then the patches of the sync settings.
func (d *Driver) registry(ctx context.Context, snapshot *state.Snapshot) (*mapping.Registry, error) {
	overrides, err := d.deps.Overrides.ListByType(ctx, models.MappingTypeProduct)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load mapping overrides")
	}

	registry := product.NewBuilder(snapshot, d.settings, overrides).WithClock(d.now).Registry()
	registry, err = customization.Apply(d.deps.Customization, registry, snapshot)
	if err != nil {
		return nil, err
	}
	registry, err = mapping.Apply(registry, product.SettingsPatches(d.settings.Patches)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply settings patches")
	}
	return registry, nil
}

func (d *Driver) engine() *mapping.Engine {
	languages := ectolinq.Map(d.settings.Languages, func(l config.Language) mapping.Language {
		return mapping.Language{ID: l.ID, Code: l.Code}
	})
	defaultLanguage := mapping.Language{ID: d.settings.DefaultLanguage, Code: d.settings.DefaultLanguageCode()}
	return mapping.NewEngine(d.deps.Logger, defaultLanguage, languages)
}

// SortRecords orders records by item, main variation first, then by
// variation id. Variants need their parent's product id, which is only known
// once the parent has been mapped.
func SortRecords(records []models.SourceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.IsMain != b.IsMain {
			return a.IsMain
		}
		return a.VariationID < b.VariationID
	})
}
