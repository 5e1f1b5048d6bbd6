package product

import (
	"math"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

const purchasePricePrecision = 9

func (b *Builder) prices(in mapping.TransformInput) (any, error) {
	prices := []map[string]any{}
	for _, currency := range b.snapshot.Currencies {
		if price := b.PriceFor(in.Value, currency); price != nil {
			prices = append(prices, price)
		}
	}
	return prices, nil
}

// PriceFor builds the price entry of variation for one currency. The default
// currency always gets an entry, falling back to a zero price. Other
// currencies without a matching sales price get none.
func (b *Builder) PriceFor(variation value.Value, currency models.Currency) map[string]any {
	salesPrices := variation.Get("salesPrices")
	if !salesPrices.Exists() {
		return nil
	}

	rate := b.taxRate(variation)
	var price, listPrice map[string]any
	for _, salesPrice := range salesPrices.Items() {
		id := int(salesPrice.Get("salesPriceId").IntOr(0))
		gross := salesPrice.Get("price").FloatOr(0)
		if id == currency.PriceID {
			price = b.priceEntry(currency.ID, gross, rate)
		} else if id == currency.ListPriceID {
			listPrice = b.priceEntry(currency.ID, gross, rate)
		}
	}

	if price != nil {
		if listPrice != nil {
			price["listPrice"] = listPrice
		}
		return price
	}

	if currency.ID == shopware.DefaultCurrencyID {
		return map[string]any{
			"currencyId": currency.ID,
			"net":        0.0,
			"gross":      0.0,
			"linked":     true,
		}
	}
	return nil
}

func (b *Builder) priceEntry(currencyID string, gross, rate float64) map[string]any {
	return map[string]any{
		"currencyId": currencyID,
		"net":        round(gross/(rate/100+1), b.settings.PricePrecision),
		"gross":      gross,
		"linked":     true,
	}
}

func (b *Builder) purchasePrices(in mapping.TransformInput) (any, error) {
	purchase := in.Value.Get("base").Get("purchasePrice")
	if purchase.IsEmpty() {
		return nil, nil
	}

	net := purchase.FloatOr(0)
	rate := b.taxRate(in.Value)
	return map[string]any{
		"c" + shopware.DefaultCurrencyID: map[string]any{
			"currencyId": shopware.DefaultCurrencyID,
			"net":        round(net, purchasePricePrecision),
			"linked":     true,
			"gross":      round(net*(1+rate/100), purchasePricePrecision),
		},
	}, nil
}

func (b *Builder) taxRate(variation value.Value) float64 {
	return b.snapshot.Taxes[variation.Get("base").Get("vatId").Str()].Rate
}

func round(v float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	return math.Round(v*pow) / pow
}
