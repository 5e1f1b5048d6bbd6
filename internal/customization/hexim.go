package customization

import (
	"context"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/preload"
	"github.com/Kentzo-Omakse/hexim/internal/provision"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/pkg/errors"
)

const (
	HeximName = "hexim"

	// UnitsKey is the snapshot lookup from unit selection id to unit id.
	UnitsKey = "hexim.units"

	// Property 45 selects the sales unit, property 14 carries its content.
	unitPropertyID    = 45
	contentPropertyID = 14
	youtubePropertyID = 288
)

// Hexim maps the sales unit from a selection property and reshuffles a few
// text fields.
type Hexim struct {
	target    shopware.Repository
	languages []mapping.Language
	logger    ectologger.Logger
}

func NewHexim(deps Deps) *Hexim {
	return &Hexim{target: deps.Target, languages: deps.Languages, logger: deps.Logger}
}

func (h *Hexim) Name() string { return HeximName }

func (h *Hexim) Steps() []preload.Step {
	return []preload.Step{{Name: "hexim_units", Run: h.loadUnits}}
}

func (h *Hexim) Patches(snapshot *state.Snapshot) []mapping.Patch {
	units := snapshot.ExtraMap(UnitsKey)
	dynamic := func(id int, rest string) string {
		return provision.TreeKey + "." + strconv.Itoa(id) + rest
	}

	return []mapping.Patch{
		mapping.Replace(mapping.NewField("productNumber", mapping.KindString, "variation.id")),
		mapping.Replace(mapping.NewField("manufacturerNumber", mapping.KindString, "variation.base.number")),
		mapping.Replace(mapping.NewField("metaTitle", mapping.KindString, "variation.base.texts.0.name3")),
		mapping.Replace(mapping.NewField("keywords", mapping.KindString, "variation.base.texts.0.metaKeywords")),
		mapping.Remove("purchaseUnit"),
		mapping.Append(mapping.NewField("purchaseUnit", mapping.KindString, dynamic(contentPropertyID, ".value"))),
		mapping.Remove("unitId"),
		mapping.Append(mapping.NewField("unitId", mapping.KindString, dynamic(unitPropertyID, "")).
			WithTransform(func(in mapping.TransformInput) (any, error) {
				if id, ok := units.Get(selectedValue(in.Value)); ok {
					return id, nil
				}
				return nil, nil
			})),
		mapping.Append(mapping.NewField("customFields.product_item_id", mapping.KindString, "variation.base.itemId")),
		mapping.Append(mapping.NewField("customFields.zenit_gravity_youtube_ids", mapping.KindString,
			dynamic(youtubePropertyID, ".values.0.value")).Translated()),
		mapping.Append(mapping.NewField("customSearchKeywords", mapping.KindArray, "variation.base.texts.0.metaKeywords").
			WithTransform(func(in mapping.TransformInput) (any, error) {
				return strings.Split(in.Value.Str(), ", "), nil
			}).
			Translated()),
	}
}

// selectedValue is the first selection id of a selection property entry.
func selectedValue(property value.Value) string {
	return property.Get("selectionValues").Index(0).Get("selectionId").Str()
}

// loadUnits maps the selected sales units to shopware units and creates the
// units that do not exist yet.
func (h *Hexim) loadUnits(ctx context.Context, batch *preload.Batch) error {
	ctx, span := tracing.StartSpan(ctx, "customization.Hexim.loadUnits")
	defer span.End()

	var selections []value.Value
	seen := map[string]struct{}{}
	var selected []string
	for _, r := range batch.Records {
		for _, property := range r.Variation.Get("properties").Items() {
			if property.Get("propertyId").IntOr(0) != unitPropertyID {
				continue
			}
			id := selectedValue(property)
			if id == "" {
				continue
			}
			selections = append(selections, property)
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				selected = append(selected, id)
			}
		}
	}
	if len(selected) == 0 {
		return nil
	}

	field := "customFields." + models.CustomFieldUnitSelectionID
	rows, err := h.target.Search(ctx, shopware.EntityUnit, shopware.NewCriteria().AddFilter(shopware.EqualsAny(field, selected)))
	if err != nil {
		tracing.RecordError(span, err)
		return errors.Wrap(err, "failed to load units")
	}

	units := batch.Snapshot.ExtraMap(UnitsKey)
	for _, row := range rows {
		selection := models.CustomFields(row).Get(models.CustomFieldUnitSelectionID)
		units[strconv.FormatInt(selection.IntOr(0), 10)] = row.Get("id").Str()
	}

	var creates []map[string]any
	for _, property := range selections {
		id := selectedValue(property)
		if _, ok := units.Get(id); ok {
			continue
		}
		for _, selection := range property.Get("property").Get("selections").Items() {
			if selection.Get("id").Str() != id {
				continue
			}
			unit := h.unitPayload(selection, id)
			units[id] = unit["id"].(string)
			creates = append(creates, unit)
		}
	}
	if len(creates) == 0 {
		return nil
	}

	if err := h.target.Upsert(ctx, shopware.EntityUnit, creates); err != nil {
		tracing.RecordError(span, err)
		return errors.Wrap(err, "failed to create units")
	}
	h.logger.WithContext(ctx).WithFields(map[string]any{
		"created": len(creates),
	}).Info("Created units for sales unit selections")
	return nil
}

func (h *Hexim) unitPayload(selection value.Value, selectionID string) map[string]any {
	selectionNumber, _ := strconv.ParseInt(selectionID, 10, 64)
	translations := map[string]any{}
	for _, lang := range h.languages {
		translations[lang.ID] = map[string]any{
			"customFields": map[string]any{models.CustomFieldUnitSelectionID: selectionNumber},
			"name":         value.Lookup(selection, "names.0.name", value.WithLanguage(lang.Code)).Str(),
		}
	}
	return map[string]any{
		"id":           shopware.NewID(),
		"shortCode":    "-",
		"translations": translations,
	}
}
