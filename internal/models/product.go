package models

import (
	"github.com/Gobusters/ectolinq"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

type ProductVisibility struct {
	ID             string
	SalesChannelID string
}

type ProductMedia struct {
	ID      string
	MediaID string
}

type ConfiguratorSetting struct {
	ID       string
	OptionID string
}

type MainCategory struct {
	ID             string
	SalesChannelID string
	CategoryID     string
}

// ExistingProduct is a shopware product with the relations the sync
// reconciles against.
type ExistingProduct struct {
	ID                   string
	ParentID             string
	Stock                int64
	CategoryIDs          []string
	TagIDs               []string
	PropertyIDs          []string
	OptionIDs            []string
	Visibilities         []ProductVisibility
	Media                []ProductMedia
	ConfiguratorSettings []ConfiguratorSetting
	MainCategories       []MainCategory
}

// ProductAssociations are loaded with every existing product.
var ProductAssociations = []string{
	"categories", "properties", "visibilities", "options", "configuratorSettings",
	"media", "mainCategories", "tags",
}

// ProductFromEntity reads a product search row.
func ProductFromEntity(row value.Value) *ExistingProduct {
	return &ExistingProduct{
		ID:          row.Get("id").Str(),
		ParentID:    row.Get("parentId").Str(),
		Stock:       row.Get("stock").IntOr(0),
		CategoryIDs: ids(row.Get("categories")),
		TagIDs:      ids(row.Get("tags")),
		PropertyIDs: ids(row.Get("properties")),
		OptionIDs:   ids(row.Get("options")),
		Visibilities: ectolinq.Map(row.Get("visibilities").Items(), func(v value.Value) ProductVisibility {
			return ProductVisibility{ID: v.Get("id").Str(), SalesChannelID: v.Get("salesChannelId").Str()}
		}),
		Media: ectolinq.Map(row.Get("media").Items(), func(v value.Value) ProductMedia {
			return ProductMedia{ID: v.Get("id").Str(), MediaID: v.Get("mediaId").Str()}
		}),
		ConfiguratorSettings: ectolinq.Map(row.Get("configuratorSettings").Items(), func(v value.Value) ConfiguratorSetting {
			return ConfiguratorSetting{ID: v.Get("id").Str(), OptionID: v.Get("optionId").Str()}
		}),
		MainCategories: ectolinq.Map(row.Get("mainCategories").Items(), func(v value.Value) MainCategory {
			return MainCategory{
				ID:             v.Get("id").Str(),
				SalesChannelID: v.Get("salesChannelId").Str(),
				CategoryID:     v.Get("categoryId").Str(),
			}
		}),
	}
}

func ids(list value.Value) []string {
	return ectolinq.Map(list.Items(), func(v value.Value) string { return v.Get("id").Str() })
}
