package product

import (
	"unicode/utf8"

	"github.com/Gobusters/ectolinq"
	"github.com/Kentzo-Omakse/hexim/internal/state"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

const metaDescriptionLimit = 255

func (b *Builder) parentID(in mapping.TransformInput) (any, error) {
	record := CurrentFrom(in.Scratch).Record
	if !record.IsVariant() {
		return nil, nil
	}
	parent, ok := record.ParentID()
	if !ok {
		return nil, nil
	}
	if swID, linked := b.snapshot.Products.Link(parent); linked {
		return swID, nil
	}
	return nil, nil
}

func (b *Builder) manufacturerID(in mapping.TransformInput) (any, error) {
	if in.Value.IntOr(0) == 0 {
		return nil, nil
	}
	return mapped(b.snapshot.Manufacturers)(in)
}

func (b *Builder) taxID(in mapping.TransformInput) (any, error) {
	tax, ok := b.snapshot.Taxes[in.Value.Str()]
	if !ok {
		return nil, nil
	}
	return tax.SwID, nil
}

// stock is only computed for new products. Existing products keep the
// stock shopware already has.
func (b *Builder) stock(in mapping.TransformInput) (any, error) {
	if existing := CurrentFrom(in.Scratch).Existing; existing != nil {
		return existing.Stock, nil
	}

	id := in.Value.Get("id").IntOr(0)
	warehouses := b.settings.StockWarehouses()
	var stock float64
	for _, row := range in.Value.Get("base").Get("stock").Items() {
		if row.Get("variationId").IntOr(0) != id {
			continue
		}
		if !ectolinq.Contains(warehouses, int(row.Get("warehouseId").IntOr(0))) {
			continue
		}
		stock += row.Get("stockPhysical").FloatOr(0) -
			row.Get("reservedStock").FloatOr(0) -
			row.Get("reservedBundle").FloatOr(0)
	}
	return int64(stock), nil
}

// mapped resolves a scalar through an id mapping. Unmapped ids are null.
func mapped(ids state.IDMap) mapping.Transform {
	return func(in mapping.TransformInput) (any, error) {
		if id, ok := ids.Get(in.Value.Str()); ok {
			return id, nil
		}
		return nil, nil
	}
}

func emptyToNull(in mapping.TransformInput) (any, error) {
	if in.Value.Kind() == value.KindString && in.Value.Str() == "" {
		return nil, nil
	}
	return in.Value, nil
}

// metaDescription caps the text at 255 bytes without splitting a rune.
func metaDescription(in mapping.TransformInput) (any, error) {
	s := in.Value.Str()
	if len(s) <= metaDescriptionLimit {
		return in.Value, nil
	}
	cut := metaDescriptionLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], nil
}

func ean(in mapping.TransformInput) (any, error) {
	for _, barcode := range in.Value.Items() {
		if barcode.Get("barcodeId").IntOr(0) == 1 {
			return barcode.Get("code"), nil
		}
	}
	return nil, nil
}

func weight(in mapping.TransformInput) (any, error) {
	grams, ok := in.Value.AsFloat()
	if !ok {
		return nil, nil
	}
	return grams / 1000, nil
}

// atLeastOne replaces quantities below one with fallback.
func atLeastOne(fallback int64) mapping.Transform {
	return func(in mapping.TransformInput) (any, error) {
		quantity, ok := in.Value.AsInt()
		if !ok || quantity < 1 {
			return fallback, nil
		}
		return quantity, nil
	}
}

func supplierNumber(in mapping.TransformInput) (any, error) {
	for _, supplier := range in.Value.Items() {
		if number := supplier.Get("itemNumber"); !number.IsEmpty() {
			return number, nil
		}
	}
	return nil, nil
}

func stockLimitation(in mapping.TransformInput) (any, error) {
	if in.Value.Kind() == value.KindBool {
		return in.Value.BoolOr(false), nil
	}
	return in.Value.IntOr(0) == 1, nil
}
