package models

import (
	"strconv"

	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// Custom field names the connector reads on shopware entities.
const (
	CustomFieldCurrencyPriceID      = "lenz_platform_plenty_connector_currency_price_id"
	CustomFieldCurrencyListPriceID  = "lenz_platform_plenty_connector_currency_list_price_id"
	CustomFieldSalesChannelMarketID = "lenz_platform_plenty_connector_sales_channel_market_id"
	CustomFieldSalesChannelPlentyID = "lenz_platform_plenty_connector_sales_channel_plenty_id"
	CustomFieldUnitSelectionID      = "lenz_platform_plenty_connector_unit_property_selection_id"

	CustomFieldSetProduct     = "lenz_platform_plenty_connector_product"
	CustomFieldPropertyPrefix = "lenz_platform_plenty_connector_product_property"
	CustomFieldPositionBase   = 10000
)

// Currency is a shopware currency with the plenty price ids used for it.
type Currency struct {
	ID          string
	PriceID     int
	ListPriceID int
}

// SalesChannel is a shopware sales channel with the plenty market and client
// it stands for. An empty or "0" id means the channel is not bound.
type SalesChannel struct {
	ID       string
	MarketID string
	PlentyID string
}

func (c SalesChannel) HasMarket() bool { return bound(c.MarketID) }

func (c SalesChannel) HasPlentyID() bool { return bound(c.PlentyID) }

// the admin stores an unset numeric custom field as "0"
func bound(id string) bool { return id != "" && id != "0" }

// SalesChannelFromEntity reads a sales channel search row.
func SalesChannelFromEntity(row value.Value) SalesChannel {
	fields := CustomFields(row)
	return SalesChannel{
		ID:       row.Get("id").Str(),
		MarketID: fields.Get(CustomFieldSalesChannelMarketID).Str(),
		PlentyID: fields.Get(CustomFieldSalesChannelPlentyID).Str(),
	}
}

// DynamicProperty is a plenty property that gets its own custom field.
type DynamicProperty struct {
	PropertyID int64
	Cast       string
}

// FieldName is the custom field the property is written to.
func (p DynamicProperty) FieldName() string {
	return CustomFieldPropertyPrefix + strconv.FormatInt(p.PropertyID, 10)
}

// MappingFieldOverride is an operator-defined field mapping.
type MappingFieldOverride struct {
	ID          string `json:"id" db:"id"`
	Type        string `json:"type" db:"type"`
	SwField     string `json:"sw_field" db:"sw_field"`
	PlentyField string `json:"plenty_field" db:"plenty_field"`
}

// MappingTypeProduct selects the product overrides.
const MappingTypeProduct = "plenty2sw_product"

// CustomFields returns the custom fields of a search row, preferring the
// translated ones the admin api returns.
func CustomFields(row value.Value) value.Value {
	if translated := row.Get("translated").Get("customFields"); translated.Kind() == value.KindMapping {
		return translated
	}
	return row.Get("customFields")
}
