package state

import (
	"github.com/Kentzo-Omakse/hexim/internal/models"
)

// Snapshot is everything the preload pipeline resolved for one batch.
type Snapshot struct {
	Products *Index

	Tags            IDMap
	Units           IDMap
	Availabilities  IDMap
	Manufacturers   IDMap
	Categories      IDMap
	AttributeValues IDMap
	PropertyValues  IDMap
	Media           IDMap
	Taxes           map[string]models.TaxMapping

	Currencies    []models.Currency
	SalesChannels []models.SalesChannel

	DynamicProperties []models.DynamicProperty

	// Extra carries lookups added by a customization, keyed by its name.
	Extra map[string]IDMap
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Products:        NewIndex(nil),
		Tags:            IDMap{},
		Units:           IDMap{},
		Availabilities:  IDMap{},
		Manufacturers:   IDMap{},
		Categories:      IDMap{},
		AttributeValues: IDMap{},
		PropertyValues:  IDMap{},
		Media:           IDMap{},
		Taxes:           map[string]models.TaxMapping{},
		Extra:           map[string]IDMap{},
	}
}

// SalesChannelsWithMarket returns the channels bound to a plenty market.
func (s *Snapshot) SalesChannelsWithMarket() []models.SalesChannel {
	var out []models.SalesChannel
	for _, c := range s.SalesChannels {
		if c.HasMarket() {
			out = append(out, c)
		}
	}
	return out
}

// SalesChannelsWithPlentyID returns the channels bound to a plenty client.
func (s *Snapshot) SalesChannelsWithPlentyID() []models.SalesChannel {
	var out []models.SalesChannel
	for _, c := range s.SalesChannels {
		if c.HasPlentyID() {
			out = append(out, c)
		}
	}
	return out
}

// ExtraMap returns the customization lookup called name, creating it.
func (s *Snapshot) ExtraMap(name string) IDMap {
	m, ok := s.Extra[name]
	if !ok {
		m = IDMap{}
		s.Extra[name] = m
	}
	return m
}
