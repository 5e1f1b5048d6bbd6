package reconcile

import (
	"testing"

	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/stretchr/testify/assert"
)

func TestDeferred_DropOwner(t *testing.T) {
	d := NewDeferred()
	d.Delete("10", RelationProductCategory, map[string]any{"productId": "p10", "categoryId": "c1"})
	d.Delete("11", RelationProductCategory, map[string]any{"productId": "p11", "categoryId": "c1"})
	d.AddConfigurator("11", "p10", "o1")
	d.AddConfigurator("12", "p10", "o2")

	d.DropOwner("11")

	assert.Equal(t, []map[string]any{{"productId": "p10", "categoryId": "c1"}}, d.Deletes(RelationProductCategory))
	assert.Equal(t, []ConfiguratorCreate{{ParentID: "p10", OptionIDs: []string{"o2"}}}, d.ConfiguratorCreates())
}

func TestDeferred_ConfiguratorCreatesAreUnique(t *testing.T) {
	d := NewDeferred()
	d.AddConfigurator("11", "p10", "o1")
	d.AddConfigurator("12", "p10", "o1")
	d.AddConfigurator("12", "p10", "o2")
	d.AddConfigurator("21", "p20", "o3")
	d.DropCreates("21")

	assert.Equal(t, []ConfiguratorCreate{{ParentID: "p10", OptionIDs: []string{"o1", "o2"}}}, d.ConfiguratorCreates())
}

func TestDeferred_SettingsDeleted(t *testing.T) {
	d := NewDeferred()
	d.Delete("10", RelationConfiguratorSettings, map[string]any{"id": "s1", "productId": "p10", "optionId": "o1"})

	assert.True(t, d.SettingsDeleted("p10"))
	assert.False(t, d.SettingsDeleted("p20"))
	assert.Equal(t, 1, d.DeleteCount())
}

func TestFor_SharesAccumulatorAcrossRecords(t *testing.T) {
	sc := scratch.New()
	For(sc).Delete("10", RelationProductTag, map[string]any{"tagId": "t"})

	sc.ResetRecord()

	assert.Len(t, For(sc).Deletes(RelationProductTag), 1)
}
