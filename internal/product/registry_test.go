package product

import (
	"context"
	"testing"
	"time"

	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/mocks"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/reconcile"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var de = mapping.Language{ID: "lang-de", Code: "de"}

func snapshot() *state.Snapshot {
	s := state.NewSnapshot()
	s.Products = state.NewIndex(map[int64]string{10: "sw-10"})
	s.Taxes["1"] = models.TaxMapping{SwID: "tax-1", Rate: 19}
	s.Categories = state.IDMap{"7": "cat-7", "8": "cat-8", "9": "cat-9"}
	s.AttributeValues = state.IDMap{"100": "opt-100", "101": "opt-101"}
	s.Media = state.IDMap{
		models.ProductMediaPrefix + "40": "media-40",
		models.ProductMediaPrefix + "41": "media-41",
	}
	s.Currencies = []models.Currency{
		{ID: shopware.DefaultCurrencyID, PriceID: 1, ListPriceID: 2},
		{ID: "cur-chf", PriceID: 5, ListPriceID: 6},
	}
	s.SalesChannels = []models.SalesChannel{
		{ID: "sc-1", MarketID: "1", PlentyID: "1"},
		{ID: "sc-2", MarketID: "2", PlentyID: "2"},
	}
	return s
}

func run(t *testing.T, b *Builder, cur Current) (mapping.Payload, *reconcile.Deferred) {
	t.Helper()
	sc := scratch.New()
	SetCurrent(sc, cur)
	engine := mapping.NewEngine(mocks.Logger(), de, []mapping.Language{de})
	payload, err := engine.Map(context.Background(), b.Registry(), Tree(cur.Record), sc)
	require.NoError(t, err)
	return payload, reconcile.For(sc)
}

func translated(payload mapping.Payload) map[string]any {
	return payload[mapping.TranslationsKey].(map[string]any)[de.ID].(map[string]any)
}

func TestBuilder_PriceFor(t *testing.T) {
	b := NewBuilder(snapshot(), config.DefaultSettings(), nil)
	defaultCurrency := b.snapshot.Currencies[0]
	chf := b.snapshot.Currencies[1]

	t.Run("should derive net from gross", func(t *testing.T) {
		variation := value.From(map[string]any{
			"base":        map[string]any{"vatId": 1},
			"salesPrices": []any{map[string]any{"salesPriceId": 1, "price": 119.0}},
		})
		price := b.PriceFor(variation, defaultCurrency)
		require.NotNil(t, price)
		assert.Equal(t, 100.0, price["net"])
		assert.Equal(t, 119.0, price["gross"])
		assert.Equal(t, true, price["linked"])
		assert.NotContains(t, price, "listPrice")
	})

	t.Run("should attach the list price", func(t *testing.T) {
		variation := value.From(map[string]any{
			"base": map[string]any{"vatId": 1},
			"salesPrices": []any{
				map[string]any{"salesPriceId": 1, "price": 119.0},
				map[string]any{"salesPriceId": 2, "price": 238.0},
			},
		})
		price := b.PriceFor(variation, defaultCurrency)
		require.NotNil(t, price)
		assert.Equal(t, 200.0, price["listPrice"].(map[string]any)["net"])
	})

	t.Run("should fall back to zero for the default currency only", func(t *testing.T) {
		variation := value.From(map[string]any{
			"base":        map[string]any{"vatId": 1},
			"salesPrices": []any{map[string]any{"salesPriceId": 9, "price": 10.0}},
		})
		assert.Equal(t, map[string]any{
			"currencyId": shopware.DefaultCurrencyID,
			"net":        0.0,
			"gross":      0.0,
			"linked":     true,
		}, b.PriceFor(variation, defaultCurrency))
		assert.Nil(t, b.PriceFor(variation, chf))
	})

	t.Run("should skip records without sales prices", func(t *testing.T) {
		assert.Nil(t, b.PriceFor(value.From(map[string]any{"base": map[string]any{"vatId": 1}}), defaultCurrency))
	})
}

func TestBuilder_Registry(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	t.Run("should map a new main variation", func(t *testing.T) {
		settings := config.DefaultSettings()
		settings.WarehouseIDs = []int{1}
		b := NewBuilder(snapshot(), settings, nil).WithClock(clock)
		record := mocks.Record(`{"id": 10, "markets": [{"marketId": 1}], "clients": [{"plentyId": 1}],
			"base": {"itemId": 1, "isMain": true, "vatId": 1, "number": "A-10", "weightG": 1500,
				"minimumOrderQuantity": 0, "maximumOrderQuantity": 0, "purchasePrice": 10,
				"texts": [{"lang": "de", "name": "Hammer", "metaKeywords": ""}],
				"stock": [
					{"variationId": 10, "warehouseId": 1, "stockPhysical": 10, "reservedStock": 2, "reservedBundle": 1},
					{"variationId": 10, "warehouseId": 2, "stockPhysical": 50, "reservedStock": 0, "reservedBundle": 0},
					{"variationId": 11, "warehouseId": 1, "stockPhysical": 7, "reservedStock": 0, "reservedBundle": 0}
				]},
			"barcodes": [{"barcodeId": 2, "code": "x"}, {"barcodeId": 1, "code": "4006381333931"}],
			"salesPrices": [{"salesPriceId": 1, "price": 119}],
			"categories": [{"categoryId": 7, "position": 1}, {"categoryId": 99, "position": 0}]}`)

		payload, deferred := run(t, b, Current{Record: record, SwID: "sw-new"})

		assert.Nil(t, payload["parentId"])
		assert.Equal(t, "A-10", payload["productNumber"])
		assert.Equal(t, int64(7), payload["stock"])
		assert.Equal(t, 1.5, payload["weight"])
		assert.Equal(t, int64(1), payload["minPurchase"])
		assert.Equal(t, int64(100), payload["maxPurchase"])
		assert.Equal(t, "4006381333931", payload["ean"])
		assert.Equal(t, "tax-1", payload["taxId"])
		assert.Equal(t, int64(1), payload["referenceUnit"])
		assert.Equal(t, []map[string]any{{"id": "cat-7"}}, payload["categories"])
		assert.Equal(t, []map[string]any{}, payload["tags"])
		assert.Equal(t, []map[string]any{{"salesChannelId": "sc-1", "visibility": shopware.VisibilityAll}}, payload["visibilities"])
		assert.NotContains(t, payload, "_delete_configurator_settings_in_product_parent")
		assert.NotContains(t, payload, "_add_configurator_settings_for_all_variants")

		purchase := payload["purchasePrices"].(map[string]any)["c"+shopware.DefaultCurrencyID].(map[string]any)
		assert.Equal(t, 11.9, purchase["gross"])

		texts := translated(payload)
		assert.Equal(t, "Hammer", texts["name"])
		assert.Equal(t, "Hammer", texts["metaTitle"])
		assert.Nil(t, texts["keywords"])
		fields := texts["customFields"].(map[string]any)
		assert.Equal(t, "2026-03-01 12:30:00", fields["lenz_platform_plenty_connector_product_last_updated_at"])
		assert.Equal(t, int64(10), fields["lenz_platform_plenty_connector_product_plenty_variation_id"])

		assert.Zero(t, deferred.DeleteCount())
	})

	t.Run("should keep the stock of an existing product", func(t *testing.T) {
		s := snapshot()
		s.Products.Put(&models.ExistingProduct{ID: "sw-10", Stock: 42})
		b := NewBuilder(s, config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 10, "base": {"isMain": true, "stock": []}}`)

		existing, _ := s.Products.ProductFor(10)
		payload, _ := run(t, b, Current{Record: record, SwID: "sw-10", Existing: existing})
		assert.Equal(t, int64(42), payload["stock"])
	})

	t.Run("should reconcile categories and options", func(t *testing.T) {
		s := snapshot()
		s.Products.Put(&models.ExistingProduct{
			ID:          "sw-10",
			CategoryIDs: []string{"cat-old", "cat-7"},
			OptionIDs:   []string{"opt-100", "opt-gone"},
		})
		b := NewBuilder(s, config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 10, "base": {"isMain": true},
			"categories": [{"categoryId": 7}, {"categoryId": 8}],
			"attributeValues": [{"valueId": 100}, {"valueId": 101}]}`)

		existing, _ := s.Products.ProductFor(10)
		payload, deferred := run(t, b, Current{Record: record, SwID: "sw-10", Existing: existing})

		assert.Equal(t, []map[string]any{{"id": "cat-8"}}, payload["categories"])
		assert.Equal(t, []map[string]any{{"id": "opt-101"}}, payload["options"])
		assert.Equal(t, []map[string]any{{"productId": "sw-10", "categoryId": "cat-old"}},
			deferred.Deletes(reconcile.RelationProductCategory))
		assert.Equal(t, []map[string]any{{"productId": "sw-10", "optionId": "opt-gone"}},
			deferred.Deletes(reconcile.RelationProductOption))
	})

	t.Run("should order media and pick the cover", func(t *testing.T) {
		b := NewBuilder(snapshot(), config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 10, "base": {"isMain": true},
			"images": [{"id": 41, "position": 2}, {"id": 40, "position": 0}, {"id": 42, "position": 1}]}`)

		payload, _ := run(t, b, Current{Record: record, SwID: "sw-10"})

		first := reconcile.MediaRelationID("sw-10", "media-40", 0)
		second := reconcile.MediaRelationID("sw-10", "media-41", 2)
		assert.Equal(t, []map[string]any{
			{"id": first, "media": map[string]any{"id": "media-40"}, "position": 0},
			{"id": second, "media": map[string]any{"id": "media-41"}, "position": 1},
		}, payload["media"])
		assert.Equal(t, first, payload["coverId"])
	})

	t.Run("should fall back to the lowest position as cover", func(t *testing.T) {
		b := NewBuilder(snapshot(), config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 10, "base": {"isMain": true},
			"images": [{"id": 41, "position": 4}, {"id": 40, "position": 3}]}`)

		payload, _ := run(t, b, Current{Record: record, SwID: "sw-10"})
		assert.Equal(t, reconcile.MediaRelationID("sw-10", "media-40", 3), payload["coverId"])
	})

	t.Run("should delete stale media but keep existing relations", func(t *testing.T) {
		s := snapshot()
		kept := reconcile.MediaRelationID("sw-10", "media-40", 0)
		s.Products.Put(&models.ExistingProduct{
			ID:    "sw-10",
			Media: []models.ProductMedia{{ID: kept, MediaID: "media-40"}, {ID: "rel-old", MediaID: "media-old"}},
		})
		b := NewBuilder(s, config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 10, "base": {"isMain": true}, "images": [{"id": 40, "position": 0}]}`)

		existing, _ := s.Products.ProductFor(10)
		payload, deferred := run(t, b, Current{Record: record, SwID: "sw-10", Existing: existing})

		assert.Equal(t, []map[string]any{}, payload["media"])
		assert.Equal(t, kept, payload["coverId"])
		assert.Equal(t, []map[string]any{{"id": "rel-old", "productId": "sw-10", "mediaId": "media-old"}},
			deferred.Deletes(reconcile.RelationProductMedia))
	})

	t.Run("should link a variant to its parent and configure its options", func(t *testing.T) {
		b := NewBuilder(snapshot(), config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 11, "base": {"isMain": false, "mainVariationId": 10},
			"attributeValues": [{"valueId": 100}, {"valueId": 555}]}`)

		payload, deferred := run(t, b, Current{Record: record, SwID: "sw-11"})

		assert.Equal(t, "sw-10", payload["parentId"])
		assert.Equal(t, []reconcile.ConfiguratorCreate{{ParentID: "sw-10", OptionIDs: []string{"opt-100"}}},
			deferred.ConfiguratorCreates())
	})

	t.Run("should drop the configurator settings of an existing parent", func(t *testing.T) {
		s := snapshot()
		s.Products.Put(&models.ExistingProduct{
			ID:                   "sw-10",
			ConfiguratorSettings: []models.ConfiguratorSetting{{ID: "cs-1", OptionID: "opt-100"}},
		})
		b := NewBuilder(s, config.DefaultSettings(), nil)
		record := mocks.Record(`{"id": 10, "base": {"isMain": true}}`)

		existing, _ := s.Products.ProductFor(10)
		_, deferred := run(t, b, Current{Record: record, SwID: "sw-10", Existing: existing})

		assert.Equal(t, []map[string]any{{"id": "cs-1", "productId": "sw-10", "optionId": "opt-100"}},
			deferred.Deletes(reconcile.RelationConfiguratorSettings))
		assert.True(t, deferred.SettingsDeleted("sw-10"))
	})
}

func TestBuilder_Name(t *testing.T) {
	cases := map[string]struct {
		strategy  string
		variation string
		expected  string
	}{
		"default strategy reads the item name": {
			strategy:  config.ProductNameDefault,
			variation: `{"id": 1, "base": {"name": "V", "texts": [{"lang": "de", "name": "Item"}]}}`,
			expected:  "Item",
		},
		"empty name becomes a dash": {
			strategy:  config.ProductNameDefault,
			variation: `{"id": 1, "base": {"texts": [{"lang": "de", "name": ""}]}}`,
			expected:  "-",
		},
		"variation name": {
			strategy:  config.ProductNameVariationName,
			variation: `{"id": 1, "base": {"name": "V"}}`,
			expected:  "V",
		},
		"empty variation name uses the default": {
			strategy:  config.ProductNameVariationName,
			variation: `{"id": 1, "base": {"name": ""}}`,
			expected:  "-",
		},
		"name3": {
			strategy:  config.ProductNameItemName3,
			variation: `{"id": 1, "base": {"texts": [{"lang": "de", "name3": "Third"}]}}`,
			expected:  "Third",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			settings := config.DefaultSettings()
			settings.ProductName = tc.strategy
			b := NewBuilder(snapshot(), settings, nil)

			payload, _ := run(t, b, Current{Record: mocks.Record(tc.variation), SwID: "sw-1"})
			assert.Equal(t, tc.expected, translated(payload)["name"])
		})
	}
}

func TestBuilder_Overrides(t *testing.T) {
	t.Run("should replace fields by name", func(t *testing.T) {
		b := NewBuilder(snapshot(), config.DefaultSettings(), []models.MappingFieldOverride{
			{SwField: "isCloseout", PlentyField: "variation.stockLimitation"},
			{SwField: "productNumber", PlentyField: "variation.base.missing, variation.base.externalId"},
		})
		registry := b.Registry()

		names := registry.Names()
		assert.Equal(t, 1, countOf(names, "productNumber"))
		field, ok := registry.Get("isCloseout")
		require.True(t, ok)
		assert.Equal(t, []string{"variation.base.stockLimitation"}, field.Paths)

		record := mocks.Record(`{"id": 10, "base": {"isMain": true, "stockLimitation": 1, "externalId": "EXT"}}`)
		payload, _ := run(t, b, Current{Record: record, SwID: "sw-10"})
		assert.Equal(t, true, payload["isCloseout"])
		assert.Equal(t, "EXT", payload["productNumber"])
	})

	t.Run("should reconcile main categories per channel", func(t *testing.T) {
		s := snapshot()
		s.Products.Put(&models.ExistingProduct{
			ID:             "sw-10",
			MainCategories: []models.MainCategory{{ID: "mc-1", SalesChannelID: "sc-1", CategoryID: "cat-old"}},
		})
		b := NewBuilder(s, config.DefaultSettings(), []models.MappingFieldOverride{
			{SwField: "mainCategories", PlentyField: "ignored"},
		})
		record := mocks.Record(`{"id": 10, "base": {"isMain": true},
			"categories": [{"categoryId": 7, "position": 2}, {"categoryId": 9, "position": 1}],
			"defaultCategories": [{"plentyId": 2, "branchId": 8}]}`)

		existing, _ := s.Products.ProductFor(10)
		payload, deferred := run(t, b, Current{Record: record, SwID: "sw-10", Existing: existing})

		assert.Equal(t, []map[string]any{
			{"id": "mc-1", "categoryId": "cat-9", "categoryVersionId": shopware.LiveVersionID},
			{"categoryId": "cat-8", "categoryVersionId": shopware.LiveVersionID, "salesChannelId": "sc-2"},
		}, payload["mainCategories"])
		assert.Empty(t, deferred.Deletes(reconcile.RelationMainCategory))
	})

	t.Run("should delete main categories without a category", func(t *testing.T) {
		s := snapshot()
		s.Products.Put(&models.ExistingProduct{
			ID:             "sw-10",
			MainCategories: []models.MainCategory{{ID: "mc-1", SalesChannelID: "sc-1"}},
		})
		b := NewBuilder(s, config.DefaultSettings(), []models.MappingFieldOverride{{SwField: "mainCategories"}})
		record := mocks.Record(`{"id": 10, "base": {"isMain": true}}`)

		existing, _ := s.Products.ProductFor(10)
		payload, deferred := run(t, b, Current{Record: record, SwID: "sw-10", Existing: existing})

		assert.Equal(t, []map[string]any{}, payload["mainCategories"])
		assert.Equal(t, []map[string]any{{"id": "mc-1"}}, deferred.Deletes(reconcile.RelationMainCategory))
	})
}

func TestSettingsPatches(t *testing.T) {
	patches := SettingsPatches([]config.PatchSpec{
		{Op: "remove", Field: "ean"},
		{Op: "append", Field: "customFields.origin", Paths: []string{"variation.base.origin"}, Translatable: true},
	})
	registry, err := mapping.Apply(NewBuilder(snapshot(), config.DefaultSettings(), nil).Registry(), patches...)
	require.NoError(t, err)

	_, ok := registry.Get("ean")
	assert.False(t, ok)
	field, ok := registry.Get("customFields.origin")
	require.True(t, ok)
	assert.True(t, field.Translatable)
	assert.Equal(t, mapping.KindString, field.Kind)
}

func countOf(names []string, name string) int {
	count := 0
	for _, n := range names {
		if n == name {
			count++
		}
	}
	return count
}
