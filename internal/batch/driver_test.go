package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/customization"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/preload"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/mocks"
	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/events"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	parent = `{"id": 10, "base": {"itemId": 1, "isMain": true, "mainVariationId": 10, "number": "A-10",
		"texts": [{"lang": "de", "name": "Hammer"}]}}`
	variantA = `{"id": 11, "base": {"itemId": 1, "isMain": false, "mainVariationId": 10, "number": "A-11"},
		"attributeValues": [{"valueId": 101}]}`
	variantB = `{"id": 12, "base": {"itemId": 1, "isMain": false, "mainVariationId": 10, "number": "A-12"},
		"attributeValues": [{"valueId": 102}]}`
)

type overrides []models.MappingFieldOverride

func (o overrides) ListByType(context.Context, string) ([]models.MappingFieldOverride, error) {
	return o, nil
}

type source map[int64]string

func (s source) GetVariation(_ context.Context, id int64) (value.Value, bool, error) {
	raw, ok := s[id]
	if !ok {
		return value.Absent(), false, nil
	}
	v, err := value.Parse([]byte(raw))
	return v, true, err
}

type mappingListener struct {
	mapped []string
}

func (l *mappingListener) OnCriteria(context.Context, *events.CriteriaEvent) error { return nil }

func (l *mappingListener) OnMapping(_ context.Context, event *events.MappingEvent) error {
	l.mapped = append(l.mapped, event.ForeignID)
	return nil
}

// failOn fails the mapping of one variation.
type failOn struct {
	customization.None
	variationID int64
}

func (f failOn) Patches(*state.Snapshot) []mapping.Patch {
	return []mapping.Patch{mapping.Append(mapping.NewField("_fail", mapping.KindString, "variation.id").
		WithTransform(func(in mapping.TransformInput) (any, error) {
			if in.Value.IntOr(0) == f.variationID {
				return nil, errors.New("boom")
			}
			return nil, nil
		}).
		OmittingNull())}
}

type fixture struct {
	queue    *mocks.Queue
	links    *mocks.LinkStore
	target   *mocks.Shopware
	listener *mappingListener
	settings config.Settings
	custom   customization.Customization
	source   source
}

func newFixture(records ...models.SourceRecord) *fixture {
	return &fixture{
		queue: mocks.NewQueue(records...),
		links: mocks.NewLinkStore().
			Link(models.LinkAttributeValue, "101", "opt-101").
			Link(models.LinkAttributeValue, "102", "opt-102").
			Link(models.LinkCategoryTree, "7", "cat-7"),
		target:   mocks.NewShopware(),
		listener: &mappingListener{},
		settings: config.DefaultSettings(),
		source:   source{},
	}
}

func (f *fixture) driver() *Driver {
	dispatcher := events.NewDispatcher(mocks.Logger(), f.listener)
	pipeline := preload.NewPipeline(f.links, f.target, dispatcher, nil, f.settings, mocks.Logger())
	return NewDriver(Deps{
		Queue:         f.queue,
		Links:         f.links,
		Overrides:     overrides(nil),
		Source:        f.source,
		Target:        f.target,
		Pipeline:      pipeline,
		Customization: f.custom,
		Dispatcher:    dispatcher,
		Logger:        mocks.Logger(),
	}, f.settings, 50)
}

func productLink(t *testing.T, links *mocks.LinkStore, variationID string) string {
	t.Helper()
	link, ok := links.Links[models.LinkProduct][variationID]
	require.True(t, ok, "no product link for %s", variationID)
	return link.SwID
}

func TestDriver_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("should map parents before their variants", func(t *testing.T) {
		f := newFixture(mocks.Record(variantB), mocks.Record(variantA), mocks.Record(parent))

		result, err := f.driver().Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Synced)

		parentID := productLink(t, f.links, "10")
		written := f.target.Written("upsert", shopware.EntityProduct)
		require.Len(t, written, 3)
		assert.Equal(t, parentID, written[0]["id"])
		assert.Equal(t, parentID, written[1]["parentId"])
		assert.Equal(t, parentID, written[2]["parentId"])
		assert.Equal(t, productLink(t, f.links, "11"), written[1]["id"])

		assert.Equal(t, []map[string]any{{"optionId": "opt-101"}, {"optionId": "opt-102"}}, written[0]["configuratorSettings"])
		assert.Equal(t, []map[string]any{{"id": "opt-101"}}, written[1]["options"])

		assert.ElementsMatch(t, []string{"u-10", "u-11", "u-12"}, f.queue.Processed)
		assert.Empty(t, f.queue.Incremented)
		assert.Equal(t, []string{"10", "11", "12"}, f.listener.mapped)
	})

	t.Run("should flush deletes before upserts", func(t *testing.T) {
		f := newFixture(mocks.Record(`{"id": 10, "base": {"itemId": 1, "isMain": true},
			"categories": [{"categoryId": 7, "position": 0}]}`))
		f.links.Link(models.LinkProduct, "10", "sw-10")
		f.target.Add(shopware.EntityProduct, `{"id": "sw-10", "categories": [{"id": "cat-old"}]}`)

		_, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"delete:" + shopware.EntityProductCategory, "upsert:" + shopware.EntityProduct}, f.target.Calls())
		assert.Equal(t, []map[string]any{{"productId": "sw-10", "categoryId": "cat-old"}},
			f.target.Written("delete", shopware.EntityProductCategory))
		assert.Equal(t, []map[string]any{{"id": "cat-7"}}, f.target.Written("upsert", shopware.EntityProduct)[0]["categories"])
		assert.Empty(t, f.links.Saved)
	})

	t.Run("should defer a variant whose parent is missing", func(t *testing.T) {
		f := newFixture(mocks.Record(variantA))

		result, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Deferred)
		assert.Empty(t, f.target.Calls())
		assert.Empty(t, f.queue.Processed)
		assert.Equal(t, []string{"u-11"}, f.queue.Incremented)
	})

	t.Run("should suppress a new orphan once it ran out of deferrals", func(t *testing.T) {
		f := newFixture(mocks.Record(variantA))
		d := f.driver()

		first, err := d.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, first.Deferred)

		second, err := d.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, second.Deferred)
		assert.Equal(t, 1, second.Suppressed)
		assert.Equal(t, []string{"u-11"}, f.queue.Processed)
		assert.Empty(t, f.target.Written("upsert", shopware.EntityProduct))

		third, err := d.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, third.Records)
	})

	t.Run("should disable an existing orphan after its deferrals", func(t *testing.T) {
		f := newFixture(mocks.Record(variantA))
		f.settings.DeferErrorThreshold = 3
		f.links.Link(models.LinkProduct, "11", "sw-11")
		f.target.Add(shopware.EntityProduct, `{"id": "sw-11"}`)
		d := f.driver()

		for run := 1; run <= 3; run++ {
			result, err := d.Run(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, result.Deferred, "run %d", run)
		}

		result, err := d.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Disabled)
		assert.Equal(t, []map[string]any{{"id": "sw-11", "name": "MISSING_PARENT", "active": false}},
			f.target.Written("upsert", shopware.EntityProduct))
		assert.Equal(t, []string{"u-11"}, f.queue.Processed)
		assert.Equal(t, []string{"u-11", "u-11", "u-11"}, f.queue.Incremented)
	})

	t.Run("should disable an existing orphan at the error ceiling", func(t *testing.T) {
		f := newFixture(mocks.RecordWithErrors(variantA, 100))
		f.links.Link(models.LinkProduct, "11", "sw-11")
		f.target.Add(shopware.EntityProduct, `{"id": "sw-11"}`)

		result, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Disabled)
		assert.Equal(t, []map[string]any{{"id": "sw-11", "name": "MISSING_PARENT", "active": false}},
			f.target.Written("upsert", shopware.EntityProduct))
		assert.Equal(t, []string{"u-11"}, f.queue.Processed)
	})

	t.Run("should not create an orphan that never existed", func(t *testing.T) {
		f := newFixture(mocks.RecordWithErrors(variantA, 5))

		result, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Suppressed)
		assert.Empty(t, f.target.Written("upsert", shopware.EntityProduct))
		assert.Empty(t, f.links.Saved)
		assert.Equal(t, []string{"u-11"}, f.queue.Processed)
	})

	t.Run("should count a failed record and drop what it deferred", func(t *testing.T) {
		f := newFixture(mocks.Record(parent), mocks.Record(variantA), mocks.Record(variantB))
		f.custom = failOn{variationID: 12}

		result, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, []string{"u-12"}, f.queue.Incremented)
		assert.NotContains(t, f.queue.Processed, "u-12")
		assert.NotContains(t, f.links.Links[models.LinkProduct], "12")

		written := f.target.Written("upsert", shopware.EntityProduct)
		require.Len(t, written, 2)
		assert.Equal(t, []map[string]any{{"optionId": "opt-101"}}, written[0]["configuratorSettings"])
	})

	t.Run("should skip options the existing parent already has", func(t *testing.T) {
		f := newFixture(mocks.Record(`{"id": 11, "base": {"itemId": 1, "isMain": false, "mainVariationId": 10},
			"attributeValues": [{"valueId": 101}, {"valueId": 102}]}`))
		f.links.Link(models.LinkProduct, "10", "sw-10")
		f.target.Add(shopware.EntityProduct, `{"id": "sw-10", "configuratorSettings": [{"id": "cs-1", "optionId": "opt-101"}]}`)

		_, err := f.driver().Run(ctx)
		require.NoError(t, err)

		written := f.target.Written("upsert", shopware.EntityProduct)
		require.Len(t, written, 2)
		assert.Equal(t, "sw-10", written[0]["parentId"])
		assert.Equal(t, map[string]any{
			"id":                   "sw-10",
			"configuratorSettings": []map[string]any{{"optionId": "opt-102"}},
		}, written[1])
	})

	t.Run("should do nothing without pending records", func(t *testing.T) {
		f := newFixture()

		result, err := f.driver().Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Records)
		assert.Empty(t, f.target.Searches)
	})
}

func TestDriver_DisableRelations(t *testing.T) {
	ctx := context.Background()
	setup := func(mode string) *fixture {
		f := newFixture(mocks.RecordWithErrors(`{"id": 10, "base": {"itemId": 1, "isMain": true}}`, 100))
		f.settings.DisableRelations = mode
		f.links.Link(models.LinkProduct, "10", "sw-10")
		f.target.Add(shopware.EntityProduct, `{"id": "sw-10", "categories": [{"id": "cat-old"}]}`)
		return f
	}

	t.Run("retain should leave the relations of a disabled product", func(t *testing.T) {
		f := setup(config.DisableRelationsRetain)
		_, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"upsert:" + shopware.EntityProduct}, f.target.Calls())
		assert.Equal(t, "DELETED_PRODUCT", f.target.Written("upsert", shopware.EntityProduct)[0]["name"])
	})

	t.Run("wipe should remove the relations of a disabled product", func(t *testing.T) {
		f := setup(config.DisableRelationsWipe)
		_, err := f.driver().Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"delete:" + shopware.EntityProductCategory, "upsert:" + shopware.EntityProduct}, f.target.Calls())
	})
}

func TestDriver_RunSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("should fail when the variation does not exist", func(t *testing.T) {
		f := newFixture()
		_, err := f.driver().RunSingle(ctx, 99)

		require.Error(t, err)
		assert.Equal(t, synerr.KindSourceFetchEmpty, synerr.KindOf(err))
		assert.True(t, synerr.IsFatal(err))
	})

	t.Run("should sync one variation without the queue", func(t *testing.T) {
		f := newFixture()
		f.source[10] = parent

		result, err := f.driver().RunSingle(ctx, 10)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Synced)
		assert.Len(t, f.target.Written("upsert", shopware.EntityProduct), 1)
		assert.NotEmpty(t, productLink(t, f.links, "10"))
		assert.Empty(t, f.queue.Processed)
	})
}

func TestDriver_UpsertFailure(t *testing.T) {
	f := newFixture(mocks.Record(parent))
	f.target.Fail[shopware.EntityProduct] = errors.New("sync failed")

	_, err := f.driver().Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"u-10"}, f.queue.Incremented)
	assert.Empty(t, f.queue.Processed)
	assert.Empty(t, f.links.Saved)
}

func TestSortRecords(t *testing.T) {
	records := []models.SourceRecord{
		{VariationID: 12, ItemID: 1},
		{VariationID: 30, ItemID: 2, IsMain: true},
		{VariationID: 11, ItemID: 1},
		{VariationID: 10, ItemID: 1, IsMain: true},
	}
	SortRecords(records)

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.VariationID
	}
	assert.Equal(t, []int64{10, 11, 12, 30}, ids)
}
