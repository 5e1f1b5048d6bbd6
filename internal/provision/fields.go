package provision

import (
	"strconv"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// TreeKey is the mapping tree key holding the record's properties by id.
const TreeKey = "_dynamicProperties"

// Fields returns one translatable mapping field per dynamic property. File
// properties map to the linked media id.
func Fields(props []models.DynamicProperty, media state.IDMap) []mapping.Field {
	fields := make([]mapping.Field, 0, len(props))
	for _, prop := range props {
		fields = append(fields, field(prop, media))
	}
	return fields
}

func field(prop models.DynamicProperty, media state.IDMap) mapping.Field {
	name := "customFields." + prop.FieldName()
	base := TreeKey + "." + strconv.FormatInt(prop.PropertyID, 10) + ".values"

	if prop.Cast == models.CastFile {
		return mapping.NewField(name, mapping.KindString, base).
			WithTransform(func(in mapping.TransformInput) (any, error) {
				id := in.Value.Index(0).Get("id").Str()
				if swID, ok := media.Get(models.ProductPropertyMediaPrefix + id); ok {
					return swID, nil
				}
				return nil, nil
			}).
			Translated()
	}

	kind := Kind(prop.Cast)
	return mapping.NewField(name, kind, base+".0.value").
		WithTransform(func(in mapping.TransformInput) (any, error) {
			return cast(in.Value, kind), nil
		}).
		Translated()
}

// Kind is the mapping kind for a property cast.
func Kind(cast string) mapping.Kind {
	switch cast {
	case models.CastFloat:
		return mapping.KindFloat
	case models.CastInt:
		return mapping.KindInt
	}
	return mapping.KindString
}

// cast converts loosely: unparsable numbers become zero and booleans become
// "1" or "".
func cast(v value.Value, kind mapping.Kind) any {
	switch kind {
	case mapping.KindFloat:
		return v.FloatOr(0)
	case mapping.KindInt:
		return v.IntOr(0)
	}
	if v.Kind() == value.KindBool {
		if v.BoolOr(false) {
			return "1"
		}
		return ""
	}
	return v.Str()
}
