package customization

import (
	"context"
	"testing"

	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/preload"
	"github.com/Kentzo-Omakse/hexim/internal/product"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/mocks"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var languages = []mapping.Language{{ID: "lang-de", Code: "de"}, {ID: "lang-en", Code: "en"}}

const unitVariation = `{"id": 10, "base": {"isMain": true, "itemId": 1, "number": "N-1",
	"texts": [{"lang": "de", "name": "Hammer", "name3": "Titel", "metaKeywords": "a, b"}]},
	"properties": [
		{"propertyId": 45, "selectionValues": [{"selectionId": 7}],
			"property": {"cast": "selection", "selections": [
				{"id": 6, "names": [{"lang": "de", "name": "Stück"}]},
				{"id": 7, "names": [{"lang": "de", "name": "Paar"}, {"lang": "en", "name": "Pair"}]}
			]}},
		{"propertyId": 288, "property": {"cast": "string"}, "values": [{"lang": "de", "value": "yt-1"}]}
	]}`

func TestNew(t *testing.T) {
	c, err := New("", Deps{})
	require.NoError(t, err)
	assert.Equal(t, "none", c.Name())

	c, err = New(HeximName, Deps{Logger: mocks.Logger()})
	require.NoError(t, err)
	assert.Equal(t, HeximName, c.Name())

	_, err = New("other", Deps{})
	assert.Error(t, err)
}

func TestHexim_LoadUnits(t *testing.T) {
	ctx := context.Background()

	t.Run("should create missing units once", func(t *testing.T) {
		target := mocks.NewShopware()
		h := NewHexim(Deps{Target: target, Languages: languages, Logger: mocks.Logger()})
		batch := &preload.Batch{
			Records:  []models.SourceRecord{mocks.Record(unitVariation), mocks.Record(unitVariation)},
			Snapshot: state.NewSnapshot(),
		}

		require.NoError(t, h.Steps()[0].Run(ctx, batch))

		created := target.Written("upsert", shopware.EntityUnit)
		require.Len(t, created, 1)
		assert.Equal(t, "-", created[0]["shortCode"])
		translations := created[0]["translations"].(map[string]any)
		assert.Equal(t, "Paar", translations["lang-de"].(map[string]any)["name"])
		assert.Equal(t, "Pair", translations["lang-en"].(map[string]any)["name"])

		id, ok := batch.Snapshot.ExtraMap(UnitsKey).Get("7")
		require.True(t, ok)
		assert.Equal(t, created[0]["id"], id)
	})

	t.Run("should reuse existing units", func(t *testing.T) {
		target := mocks.NewShopware().Add(shopware.EntityUnit,
			`{"id": "unit-7", "customFields": {"lenz_platform_plenty_connector_unit_property_selection_id": 7}}`)
		h := NewHexim(Deps{Target: target, Languages: languages, Logger: mocks.Logger()})
		batch := &preload.Batch{Records: []models.SourceRecord{mocks.Record(unitVariation)}, Snapshot: state.NewSnapshot()}

		require.NoError(t, h.Steps()[0].Run(ctx, batch))

		assert.Empty(t, target.Written("upsert", shopware.EntityUnit))
		id, _ := batch.Snapshot.ExtraMap(UnitsKey).Get("7")
		assert.Equal(t, "unit-7", id)
	})

	t.Run("should not search without unit selections", func(t *testing.T) {
		target := mocks.NewShopware()
		h := NewHexim(Deps{Target: target, Languages: languages, Logger: mocks.Logger()})
		batch := &preload.Batch{Records: []models.SourceRecord{mocks.Record(`{"id": 1}`)}, Snapshot: state.NewSnapshot()}

		require.NoError(t, h.Steps()[0].Run(ctx, batch))
		assert.Zero(t, target.SearchCount(shopware.EntityUnit))
	})
}

func TestHexim_Patches(t *testing.T) {
	snapshot := state.NewSnapshot()
	snapshot.Products = state.NewIndex(map[int64]string{10: "sw-10"})
	snapshot.ExtraMap(UnitsKey)["7"] = "unit-7"

	h := NewHexim(Deps{Languages: languages, Logger: mocks.Logger()})
	base := product.NewBuilder(snapshot, config.DefaultSettings(), nil).Registry()
	registry, err := Apply(h, base, snapshot)
	require.NoError(t, err)

	field, ok := registry.Get("metaTitle")
	require.True(t, ok)
	assert.False(t, field.Translatable)
	assert.Equal(t, base.Len()+3, registry.Len())

	record := mocks.Record(unitVariation)
	sc := scratch.New()
	product.SetCurrent(sc, product.Current{Record: record, SwID: "sw-10"})
	engine := mapping.NewEngine(mocks.Logger(), languages[0], languages[:1])
	payload, err := engine.Map(context.Background(), registry, product.Tree(record), sc)
	require.NoError(t, err)

	assert.Equal(t, "10", payload["productNumber"])
	assert.Equal(t, "N-1", payload["manufacturerNumber"])
	assert.Equal(t, "Titel", payload["metaTitle"])
	assert.Equal(t, "unit-7", payload["unitId"])
	assert.Equal(t, "1", payload["customFields"].(map[string]any)["product_item_id"])

	texts := payload[mapping.TranslationsKey].(map[string]any)["lang-de"].(map[string]any)
	assert.Equal(t, []string{"a", "b"}, texts["customSearchKeywords"])
	assert.Equal(t, "yt-1", texts["customFields"].(map[string]any)["zenit_gravity_youtube_ids"])
	assert.NotContains(t, texts, "metaTitle")
}

func TestHexim_PatchesOnTrimmedRegistry(t *testing.T) {
	snapshot := state.NewSnapshot()
	h := NewHexim(Deps{Languages: languages, Logger: mocks.Logger()})
	base := product.NewBuilder(snapshot, config.DefaultSettings(), nil).Registry().Remove("metaTitle")

	registry, err := Apply(h, base, snapshot)
	require.NoError(t, err)

	_, ok := registry.Get("metaTitle")
	assert.False(t, ok)
	number, ok := registry.Get("productNumber")
	require.True(t, ok)
	assert.Equal(t, []string{"variation.id"}, number.Paths)
}
