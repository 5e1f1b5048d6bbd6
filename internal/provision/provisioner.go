// Package provision discovers the plenty properties of a batch that get a
// custom field of their own and creates the missing custom fields before
// any record is mapped.
package provision

import (
	"context"
	"strconv"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/config"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/metrics"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// SupportedCasts lists the property casts that are provisioned. Selections
// are synced as shopware properties instead.
var SupportedCasts = []string{
	"string", "shortText", models.CastEmpty, models.CastFloat, models.CastInt,
	"longText", models.CastFile, "text", "html", "date",
}

type Provisioner struct {
	target   shopware.Repository
	settings config.Settings
	logger   ectologger.Logger
}

func NewProvisioner(target shopware.Repository, settings config.Settings, logger ectologger.Logger) *Provisioner {
	return &Provisioner{target: target, settings: settings, logger: logger}
}

// Discover returns the dynamic properties used by records in first-seen
// order. A property id is taken from its first entry with a supported cast.
func Discover(records []models.SourceRecord, settings config.Settings) []models.DynamicProperty {
	seen := map[int64]struct{}{}
	var out []models.DynamicProperty

	for _, r := range records {
		for _, property := range r.Variation.Get("properties").Items() {
			id, ok := property.Get("propertyId").AsInt()
			if !ok || !settings.PropertyAllowed(int(id)) {
				continue
			}
			if _, done := seen[id]; done {
				continue
			}
			cast := models.PropertyCast(property)
			if !ectolinq.Contains(SupportedCasts, cast) {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, models.DynamicProperty{PropertyID: id, Cast: cast})
		}
	}
	return out
}

// Provision discovers the dynamic properties of records and creates the
// custom fields that are missing. A missing custom field set is fatal for
// the batch.
func (p *Provisioner) Provision(ctx context.Context, records []models.SourceRecord) ([]models.DynamicProperty, error) {
	ctx, span := tracing.StartSpan(ctx, "provision.Provisioner.Provision")
	defer span.End()

	props := Discover(records, p.settings)
	if len(props) == 0 {
		return nil, nil
	}

	setID, err := p.fieldSetID(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	created, err := p.ensure(ctx, setID, props)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("properties", len(props)), attribute.Int("created", created))
	return props, nil
}

func (p *Provisioner) fieldSetID(ctx context.Context) (string, error) {
	criteria := shopware.NewCriteria().AddFilter(shopware.Equals("name", models.CustomFieldSetProduct))
	criteria.Limit = 1

	rows, err := p.target.Search(ctx, shopware.EntityCustomFieldSet, criteria)
	if err != nil {
		return "", errors.Wrap(errors.KindRecordFailed, err)
	}
	if len(rows) == 0 || rows[0].Get("id").Str() == "" {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"set": models.CustomFieldSetProduct,
		}).Error("Could not find custom field set.")
		return "", errors.New(errors.KindSchemaMissing, "Could not find custom field set.")
	}
	return rows[0].Get("id").Str(), nil
}

// ensure creates the fields of props that do not exist yet and returns how
// many were created.
func (p *Provisioner) ensure(ctx context.Context, setID string, props []models.DynamicProperty) (int, error) {
	names := ectolinq.Map(props, func(prop models.DynamicProperty) string { return prop.FieldName() })

	rows, err := p.target.Search(ctx, shopware.EntityCustomField,
		shopware.NewCriteria().AddFilter(shopware.EqualsAny("name", names)))
	if err != nil {
		return 0, errors.Wrap(errors.KindRecordFailed, err)
	}

	existing := map[string]struct{}{}
	for _, row := range rows {
		existing[strings.TrimPrefix(row.Get("name").Str(), models.CustomFieldPropertyPrefix)] = struct{}{}
	}

	var creates []map[string]any
	for _, prop := range props {
		if _, ok := existing[strconv.FormatInt(prop.PropertyID, 10)]; ok {
			continue
		}
		creates = append(creates, fieldPayload(setID, prop))
	}
	if len(creates) == 0 {
		return 0, nil
	}

	if err := p.target.Upsert(ctx, shopware.EntityCustomField, creates); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("failed to create custom fields")
		return 0, errors.Wrap(errors.KindRecordFailed, err)
	}
	metrics.SchemaFieldsCreated.Add(float64(len(creates)))
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"created": len(creates),
	}).Info("Created custom fields for dynamic properties")
	return len(creates), nil
}

func fieldPayload(setID string, prop models.DynamicProperty) map[string]any {
	id := strconv.FormatInt(prop.PropertyID, 10)
	fieldConfig := map[string]any{
		"label": map[string]any{
			"en-GB": "Property " + id,
			"de-DE": "Eigenschaft " + id,
		},
		"customFieldPosition": models.CustomFieldPositionBase + prop.PropertyID,
	}
	if prop.Cast == models.CastFile {
		fieldConfig["customFieldType"] = shopware.CustomFieldTypeMedia
		fieldConfig["componentName"] = "sw-media-field"
	}

	return map[string]any{
		"id":                 shopware.NewID(),
		"name":               prop.FieldName(),
		"type":               FieldType(prop.Cast),
		"config":             fieldConfig,
		"active":             true,
		"customFieldSetId":   setID,
		"allowCustomerWrite": false,
		"allowCartExpose":    false,
	}
}

// FieldType is the custom field type for a property cast. Text-like casts
// fall back to html.
func FieldType(cast string) string {
	switch cast {
	case models.CastFloat:
		return shopware.CustomFieldTypeFloat
	case models.CastInt:
		return shopware.CustomFieldTypeInt
	case models.CastFile:
		return shopware.CustomFieldTypeMedia
	}
	return shopware.CustomFieldTypeHTML
}
