package config

import (
	"os"

	"github.com/Gobusters/ectolinq"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ProductNameDefault       = "default"
	ProductNameVariationName = "variation.name"
	ProductNameItemName2     = "item.name2"
	ProductNameItemName3     = "item.name3"

	DisableRelationsRetain = "retain"
	DisableRelationsWipe   = "wipe"
)

type Language struct {
	ID   string `yaml:"id" validate:"required"`
	Code string `yaml:"code" validate:"required"`
}

// PatchSpec is an operator-defined registry patch.
type PatchSpec struct {
	Op           string   `yaml:"op" validate:"required,oneof=remove replace append"`
	Field        string   `yaml:"field" validate:"required"`
	Kind         string   `yaml:"kind" validate:"omitempty,oneof=string int float bool datetime array"`
	Paths        []string `yaml:"paths"`
	Translatable bool     `yaml:"translatable"`
	Default      any      `yaml:"default"`
	OmitIfNull   bool     `yaml:"omit_if_null"`
}

// Settings are the read-only sync options of one deployment.
type Settings struct {
	RetailPriceID          int   `yaml:"retail_price_id" validate:"min=1"`
	SuggestedRetailPriceID int   `yaml:"suggested_retail_price_id" validate:"min=1"`
	PricePrecision         int   `yaml:"price_precision" validate:"min=0,max=12"`
	SyncTags               bool  `yaml:"sync_tags"`
	TagIDs                 []int `yaml:"tag_ids"`
	PropertyIDs            []int `yaml:"property_ids"`

	// Allow-lists of source markets and clients. Empty allows everything.
	Markets      []float64 `yaml:"markets"`
	Clients      []int     `yaml:"clients"`
	ImageMarkets []float64 `yaml:"image_markets"`

	WarehouseIDs      []int `yaml:"warehouse_ids"`
	SalesWarehouseIDs []int `yaml:"sales_warehouse_ids"`

	ProductName     string     `yaml:"product_name" validate:"oneof=default variation.name item.name2 item.name3"`
	Languages       []Language `yaml:"languages" validate:"dive"`
	DefaultLanguage string     `yaml:"default_language" validate:"required"`

	DeferErrorThreshold int    `yaml:"defer_error_threshold" validate:"min=0"`
	ErrorCeiling        int    `yaml:"error_ceiling" validate:"min=1"`
	DisableRelations    string `yaml:"disable_relations" validate:"oneof=retain wipe"`

	Customization string      `yaml:"customization"`
	Patches       []PatchSpec `yaml:"patches" validate:"dive"`
}

func DefaultSettings() Settings {
	return Settings{
		RetailPriceID:          1,
		SuggestedRetailPriceID: 2,
		PricePrecision:         9,
		ProductName:            ProductNameDefault,
		Languages:              []Language{{ID: "2fbb5fe2e29a4d70aa5854ce7ce3e20b", Code: "de"}},
		DefaultLanguage:        "2fbb5fe2e29a4d70aa5854ce7ce3e20b",
		DeferErrorThreshold:    1,
		ErrorCeiling:           100,
		DisableRelations:       DisableRelationsRetain,
	}
}

// LoadSettings reads YAML from path over the defaults. A missing file
// yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, settings.Validate()
	}
	if err != nil {
		return settings, errors.Wrapf(err, "failed to read settings %s", path)
	}

	return ParseSettings(data)
}

func ParseSettings(data []byte) (Settings, error) {
	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, errors.Wrap(err, "failed to parse settings")
	}
	return settings, settings.Validate()
}

func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	if !ectolinq.Contains(ectolinq.Map(s.Languages, func(l Language) string { return l.ID }), s.DefaultLanguage) {
		return errors.Errorf("invalid settings: default_language %s is not one of languages", s.DefaultLanguage)
	}
	return nil
}

// DefaultLanguageCode returns the code of the default language.
func (s Settings) DefaultLanguageCode() string {
	lang := ectolinq.Find(s.Languages, func(l Language) bool { return l.ID == s.DefaultLanguage })
	return lang.Code
}

// MarketAllowed reports whether a variation sold on marketIDs may be synced.
// restrict narrows the check to specific markets (a sales channel's market);
// nil checks against the whole allow-list.
func (s Settings) MarketAllowed(marketIDs []float64, restrict []float64) bool {
	return allowed(marketIDs, restrict, s.Markets)
}

// ClientAllowed is MarketAllowed for source clients.
func (s Settings) ClientAllowed(clientIDs []int, restrict []int) bool {
	return allowed(clientIDs, restrict, s.Clients)
}

// ImageAllowed reports whether an image available on marketIDs may be used.
func (s Settings) ImageAllowed(marketIDs []float64) bool {
	if len(s.ImageMarkets) == 0 {
		return true
	}
	return containsAny(s.ImageMarkets, marketIDs)
}

// TagAllowed reports whether tag id may be synced.
func (s Settings) TagAllowed(id int) bool {
	return s.TagIDs == nil || ectolinq.Contains(s.TagIDs, id)
}

// PropertyAllowed reports whether property id may be synced.
func (s Settings) PropertyAllowed(id int) bool {
	return s.PropertyIDs == nil || ectolinq.Contains(s.PropertyIDs, id)
}

// StockWarehouses returns the warehouses whose stock counts.
func (s Settings) StockWarehouses() []int {
	if len(s.WarehouseIDs) > 0 {
		return s.WarehouseIDs
	}
	return s.SalesWarehouseIDs
}

func allowed[T comparable](ids, restrict, allowList []T) bool {
	candidates := allowList
	if restrict != nil {
		candidates = restrict
		if len(allowList) > 0 {
			candidates = ectolinq.Filter(restrict, func(id T) bool { return ectolinq.Contains(allowList, id) })
		}
	} else if len(allowList) == 0 {
		return true
	}

	return containsAny(candidates, ids)
}

func containsAny[T comparable](set, ids []T) bool {
	return len(ectolinq.Filter(ids, func(id T) bool { return ectolinq.Contains(set, id) })) > 0
}
