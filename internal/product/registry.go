// Package product declares the product mapping: every shopware product field
// with the source paths and transforms that fill it.
package product

import (
	"strconv"
	"strings"
	"time"

	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/provision"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
)

// EventName is the mapping event dispatched for every product payload.
const EventName = "lenz_platform_plenty_connector.mapping.product"

const timestampLayout = "2006-01-02 15:04:05"

// Builder builds the product registry of one batch. Transforms read the
// batch snapshot, so a registry must not outlive the batch it was built for.
type Builder struct {
	snapshot  *state.Snapshot
	settings  config.Settings
	overrides []models.MappingFieldOverride
	now       func() time.Time
}

func NewBuilder(snapshot *state.Snapshot, settings config.Settings, overrides []models.MappingFieldOverride) *Builder {
	return &Builder{
		snapshot:  snapshot,
		settings:  settings,
		overrides: overrides,
		now:       time.Now,
	}
}

func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Registry returns the base fields, then the operator overrides, then the
// name and one field per dynamic property.
func (b *Builder) Registry() *mapping.Registry {
	registry := mapping.NewRegistry(b.baseFields()...)
	for _, override := range b.overrides {
		registry = registry.Remove(override.SwField).Append(b.overrideField(override))
	}
	return registry.
		Append(b.nameField()).
		Append(provision.Fields(b.snapshot.DynamicProperties, b.snapshot.Media)...)
}

func (b *Builder) baseFields() []mapping.Field {
	fields := []mapping.Field{
		mapping.NewField("parentId", mapping.KindString, "variation").WithTransform(b.parentID),
		mapping.NewField("manufacturerId", mapping.KindString, "variation.base.item.manufacturerId").WithTransform(b.manufacturerID),
		mapping.NewField("description", mapping.KindString, "variation.base.texts.0.description").Translated(),
		mapping.NewField("metaTitle", mapping.KindString, "variation.base.texts.0.name").Translated(),
		mapping.NewField("metaDescription", mapping.KindString, "variation.base.texts.0.metaDescription").
			WithTransform(metaDescription).Translated(),
		mapping.NewField("keywords", mapping.KindString, "variation.base.texts.0.metaKeywords").
			WithTransform(emptyToNull).Translated(),
		mapping.NewField("productNumber", mapping.KindString, "variation.base.number"),
		mapping.NewField("stock", mapping.KindInt, "variation").WithTransform(b.stock).OmittingNull(),
		mapping.NewField("purchasePrices", mapping.KindArray, "variation").WithTransform(b.purchasePrices),
		mapping.NewField("releaseDate", mapping.KindDatetime, "variation.base.releasedAt").WithTransform(emptyToNull),
		mapping.NewField("ean", mapping.KindString, "variation.barcodes").WithTransform(ean),
		mapping.NewField("active", mapping.KindBool, "variation.base.isActive"),
		mapping.NewField("weight", mapping.KindFloat, "variation.base.weightG").WithTransform(weight),
		mapping.NewField("width", mapping.KindFloat, "variation.base.widthMM"),
		mapping.NewField("height", mapping.KindFloat, "variation.base.heightMM"),
		mapping.NewField("length", mapping.KindFloat, "variation.base.lengthMM"),
		mapping.NewField("purchaseUnit", mapping.KindFloat, "variation.unit.content"),
		mapping.NewField("minPurchase", mapping.KindInt, "variation.base.minimumOrderQuantity").WithTransform(atLeastOne(1)),
		mapping.NewField("maxPurchase", mapping.KindInt, "variation.base.maximumOrderQuantity").WithTransform(atLeastOne(100)),
		mapping.NewField("manufacturerNumber", mapping.KindString, "variation.supplier").WithTransform(supplierNumber),
		mapping.NewField(customField("plenty_item_id"), mapping.KindInt, "variation.base.itemId").Translated(),
		mapping.NewField(customField("plenty_variation_id"), mapping.KindInt, "variation.id").Translated(),
	}

	for i := 1; i <= 20; i++ {
		n := strconv.Itoa(i)
		fields = append(fields,
			mapping.NewField(customField("free"+n), mapping.KindString, "variation.base.item.free"+n).Translated())
	}

	return append(fields,
		mapping.NewField(customField("url_path"), mapping.KindString, "variation.base.texts.0.urlPath").Translated(),
		mapping.NewField(customField("technical_data"), mapping.KindString, "variation.base.texts.0.technicalData").Translated(),
		mapping.NewField("deliveryTimeId", mapping.KindString, "variation.base.availabilityId").
			WithTransform(mapped(b.snapshot.Availabilities)),
		mapping.NewField("categories", mapping.KindArray, "variation").WithTransform(b.categories),
		mapping.NewField(customField("last_updated_at"), mapping.KindString).
			Translated().WithDefault(b.now().Format(timestampLayout)),
		mapping.NewField("taxId", mapping.KindString, "variation.base.vatId").WithTransform(b.taxID),
		mapping.NewField("price", mapping.KindArray, "variation").WithTransform(b.prices),
		mapping.NewField("unitId", mapping.KindString, "variation.unit.unitId").WithTransform(mapped(b.snapshot.Units)),
		mapping.NewField("tags", mapping.KindArray, "variation").WithTransform(b.tags),
		mapping.NewField("visibilities", mapping.KindArray, "variation").WithTransform(b.visibilities),
		mapping.NewField("properties", mapping.KindArray, "variation").WithTransform(b.properties),
		mapping.NewField("media", mapping.KindArray, "variation").WithTransform(b.media),
		mapping.NewField("coverId", mapping.KindString, "variation").WithTransform(cover),
		mapping.NewField("options", mapping.KindArray, "variation").WithTransform(b.options),
		mapping.NewField("referenceUnit", mapping.KindInt).WithDefault(int64(1)),
		mapping.NewField("_delete_configurator_settings_in_product_parent", mapping.KindString, "variation").
			WithTransform(b.deleteParentSettings).OmittingNull(),
		mapping.NewField("_add_configurator_settings_for_all_variants", mapping.KindString, "variation").
			WithTransform(b.addVariantSettings).OmittingNull(),
	)
}

func customField(suffix string) string {
	return "customFields.lenz_platform_plenty_connector_product_" + suffix
}

// overrideField turns an operator mapping into a field. Most overrides are
// plain string copies of a comma-separated path list.
func (b *Builder) overrideField(override models.MappingFieldOverride) mapping.Field {
	source := override.PlentyField
	switch source {
	case "variation.stockLimitation":
		source = "variation.base.stockLimitation"
	case "variation.isUnavailableIfNetStockIsNotPositive":
		source = "variation.base.isUnavailableIfNetStockIsNotPositive"
	}

	switch override.SwField {
	case "isCloseout":
		field := mapping.NewField(override.SwField, mapping.KindBool, splitPaths(source)...)
		if source == "variation.base.stockLimitation" {
			field = field.WithTransform(stockLimitation)
		}
		return field
	case "mainCategories":
		return mapping.NewField(override.SwField, mapping.KindArray, "variation").WithTransform(b.mainCategories)
	}
	return mapping.NewField(override.SwField, mapping.KindString, splitPaths(source)...)
}

func splitPaths(source string) []string {
	var paths []string
	for _, path := range strings.Split(source, ",") {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

func (b *Builder) nameField() mapping.Field {
	path := "variation.base.texts.0.name"
	switch b.settings.ProductName {
	case config.ProductNameVariationName:
		path = "variation.base.name"
	case config.ProductNameItemName2:
		path = "variation.base.texts.0.name2"
	case config.ProductNameItemName3:
		path = "variation.base.texts.0.name3"
	}

	return mapping.NewField("name", mapping.KindString, path).
		WithTransform(func(in mapping.TransformInput) (any, error) {
			if in.Value.IsEmpty() {
				if in.Path == "variation.base.name" {
					return nil, mapping.ErrNextPath
				}
				return "-", nil
			}
			return in.Value, nil
		}).
		Translated().
		WithDefault("-")
}

// SettingsPatches converts the patches of the sync settings.
func SettingsPatches(specs []config.PatchSpec) []mapping.Patch {
	patches := make([]mapping.Patch, 0, len(specs))
	for _, spec := range specs {
		kind := mapping.Kind(spec.Kind)
		if kind == "" {
			kind = mapping.KindString
		}
		field := mapping.NewField(spec.Field, kind, spec.Paths...).WithDefault(spec.Default)
		if spec.Translatable {
			field = field.Translated()
		}
		if spec.OmitIfNull {
			field = field.OmittingNull()
		}
		patches = append(patches, mapping.Patch{Op: mapping.PatchOp(spec.Op), Field: field})
	}
	return patches
}
