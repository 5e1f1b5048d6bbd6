package models

import (
	"strconv"
	"time"

	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// SourceRecord is one pending variation update taken from the queue.
type SourceRecord struct {
	ID          string      `json:"id" db:"id"`
	VariationID int64       `json:"variation_id" db:"variation_id"`
	ItemID      int64       `json:"item_id" db:"item_id"`
	IsMain      bool        `json:"is_main" db:"is_main"`
	Variation   value.Value `json:"variation"`
	Item        value.Value `json:"item"`
	ErrorCount  int         `json:"error_count" db:"error_count"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// ForeignID is the variation id as used in links and logs.
func (r SourceRecord) ForeignID() string {
	return strconv.FormatInt(r.VariationID, 10)
}

// MainFlag returns base.isMain. declared is false unless the payload carries
// a real boolean there.
func (r SourceRecord) MainFlag() (isMain bool, declared bool) {
	flag := r.Variation.Get("base").Get("isMain")
	if flag.Kind() != value.KindBool {
		return false, false
	}
	return flag.BoolOr(false), true
}

// IsVariant reports whether the payload explicitly says it is not the main
// variation.
func (r SourceRecord) IsVariant() bool {
	isMain, declared := r.MainFlag()
	return declared && !isMain
}

// ParentID returns base.mainVariationId, false when it is null.
func (r SourceRecord) ParentID() (int64, bool) {
	parent := r.Variation.Get("base").Get("mainVariationId")
	if parent.IsNil() {
		return 0, false
	}
	return parent.AsInt()
}

// HasForeignParent reports whether the record points at a main variation
// other than itself.
func (r SourceRecord) HasForeignParent() bool {
	parent, ok := r.ParentID()
	return ok && parent != r.VariationID
}

// MarketIDs lists the markets the variation is sold on.
func (r SourceRecord) MarketIDs() []float64 {
	var ids []float64
	for _, market := range r.Variation.Get("markets").Items() {
		if id, ok := market.Get("marketId").AsFloat(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ClientIDs lists the clients (plenty ids) the variation is active for.
func (r SourceRecord) ClientIDs() []int {
	var ids []int
	for _, client := range r.Variation.Get("clients").Items() {
		if id, ok := client.Get("plentyId").AsInt(); ok {
			ids = append(ids, int(id))
		}
	}
	return ids
}

// Images returns the images attached to a variation payload.
func Images(variation value.Value) []value.Value {
	return variation.Get("images").Items()
}

// ImageMarketIDs lists the markets an image is released for.
func ImageMarketIDs(image value.Value) []float64 {
	var ids []float64
	for _, availability := range image.Get("availabilities").Items() {
		if availability.Get("type").Str() != "marketplace" {
			continue
		}
		if id, ok := availability.Get("value").AsFloat(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Property casts.
const (
	CastSelection      = "selection"
	CastMultiSelection = "multiSelection"
	CastFile           = "file"
	CastEmpty          = "empty"
	CastInt            = "int"
	CastFloat          = "float"
)

// PropertyCast returns the declared cast of a variation property entry.
func PropertyCast(property value.Value) string {
	return property.Get("property").Get("cast").Str()
}

// RecordFromVariation builds a record from a variation payload as the source
// API returns it.
func RecordFromVariation(id string, variation value.Value, errorCount int) SourceRecord {
	base := variation.Get("base")
	return SourceRecord{
		ID:          id,
		VariationID: variation.Get("id").IntOr(0),
		ItemID:      base.Get("itemId").IntOr(0),
		IsMain:      base.Get("isMain").BoolOr(false),
		Variation:   variation,
		Item:        base.Get("item"),
		ErrorCount:  errorCount,
	}
}
