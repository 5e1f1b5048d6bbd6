package models

import (
	"time"

	"github.com/Kentzo-Omakse/hexim/pkg/database"
)

// LinkCategory names one id-mapping table.
type LinkCategory string

const (
	LinkProduct        LinkCategory = "product"
	LinkTag            LinkCategory = "tag"
	LinkTax            LinkCategory = "tax"
	LinkUnit           LinkCategory = "unit"
	LinkAvailability   LinkCategory = "availability"
	LinkManufacturer   LinkCategory = "manufacturer"
	LinkCategoryTree   LinkCategory = "category"
	LinkAttributeValue LinkCategory = "attribute_value"
	LinkPropertyValue  LinkCategory = "property_value"
	LinkMedia          LinkCategory = "media"
)

// Media link keys are prefixed by where the file came from.
const (
	ProductMediaPrefix         = "product_media_"
	ProductPropertyMediaPrefix = "product_property_media_"
)

// Link maps one plenty id to one shopware id.
type Link struct {
	Category  LinkCategory                   `json:"category" db:"category"`
	PlentyID  string                         `json:"plenty_id" db:"plenty_id"`
	SwID      string                         `json:"sw_id" db:"sw_id"`
	Extra     database.JSONB[map[string]any] `json:"extra" db:"extra"`
	CreatedAt time.Time                      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at" db:"updated_at"`
}

// TaxMapping is the tax link with its rate.
type TaxMapping struct {
	SwID string
	Rate float64
}

// TaxFromLink reads the rate stored with a tax link.
func TaxFromLink(link Link) TaxMapping {
	tax := TaxMapping{SwID: link.SwID}
	switch rate := link.Extra.Data["taxRate"].(type) {
	case float64:
		tax.Rate = rate
	case int:
		tax.Rate = float64(rate)
	case int64:
		tax.Rate = float64(rate)
	}
	return tax
}
