package product

import (
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/provision"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// Tree is the mapping source of one record: the item, the variation and its
// properties keyed by property id. Properties with the empty cast carry no
// values of their own and are marked as set.
func Tree(record models.SourceRecord) value.Value {
	properties := map[string]value.Value{}
	for _, property := range record.Variation.Get("properties").Items() {
		if models.PropertyCast(property) == models.CastEmpty {
			property = property.With("values", value.Seq(value.Map(map[string]value.Value{
				"value": value.Bool(true),
				"lang":  value.String("de"),
			})))
		}
		properties[property.Get("propertyId").Str()] = property
	}

	return value.Map(map[string]value.Value{
		"item":            record.Item,
		"variation":       record.Variation,
		provision.TreeKey: value.Map(properties),
	})
}
