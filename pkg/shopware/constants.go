package shopware

import (
	"strings"

	"github.com/google/uuid"
)

// Ids that are fixed in every Shopware 6 installation.
const (
	DefaultCurrencyID = "b7d2554b0ce847cd82f3ac9bd1c0dfca"
	DefaultLanguageID = "2fbb5fe2e29a4d70aa5854ce7ce3e20b"
	LiveVersionID     = "0fa91ce3e96a4bc2be4bd9ce752c3425"
)

// VisibilityAll makes a product visible in listings, search and by link.
const VisibilityAll = 30

// Entities the sync reads or writes.
const (
	EntityProduct             = "product"
	EntityProductCategory     = "product_category"
	EntityProductVisibility   = "product_visibility"
	EntityProductProperty     = "product_property"
	EntityProductOption       = "product_option"
	EntityProductTag          = "product_tag"
	EntityProductMedia        = "product_media"
	EntityConfiguratorSetting = "product_configurator_setting"
	EntityMainCategory        = "main_category"
	EntityCustomField         = "custom_field"
	EntityCustomFieldSet      = "custom_field_set"
	EntitySalesChannel        = "sales_channel"
	EntityCurrency            = "currency"
	EntityUnit                = "unit"
)

// Custom field types used when provisioning.
const (
	CustomFieldTypeInt   = "int"
	CustomFieldTypeFloat = "float"
	CustomFieldTypeMedia = "media"
	CustomFieldTypeHTML  = "html"
)

// NewID returns a fresh shopware id: a uuid in hex without dashes.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
