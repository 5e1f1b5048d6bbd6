// Package state holds what a batch knows about shopware before it writes
// anything: the id mappings per relation and the existing products with
// their current relations.
package state

import (
	"sort"

	"github.com/Kentzo-Omakse/hexim/internal/models"
)

// IDMap maps plenty ids to shopware ids for one link category.
type IDMap map[string]string

func (m IDMap) Get(plentyID string) (string, bool) {
	id, ok := m[plentyID]
	return id, ok
}

// IDMapFromLinks drops everything but the shopware id.
func IDMapFromLinks(links map[string]models.Link) IDMap {
	m := make(IDMap, len(links))
	for plentyID, link := range links {
		m[plentyID] = link.SwID
	}
	return m
}

// Index is the existing-state snapshot of products. Links are keyed by
// variation id and grow during the batch as parents get their ids.
type Index struct {
	links    map[int64]string
	products map[string]*models.ExistingProduct
}

func NewIndex(links map[int64]string) *Index {
	idx := &Index{
		links:    make(map[int64]string, len(links)),
		products: map[string]*models.ExistingProduct{},
	}
	for variationID, swID := range links {
		idx.links[variationID] = swID
	}
	return idx
}

func (i *Index) Link(variationID int64) (string, bool) {
	id, ok := i.links[variationID]
	return id, ok
}

// AssignLink links variationID to swID unless it already has a link. It
// reports whether the link is new.
func (i *Index) AssignLink(variationID int64, swID string) bool {
	if _, ok := i.links[variationID]; ok {
		return false
	}
	i.links[variationID] = swID
	return true
}

// LinkedSwIDs returns every distinct linked shopware id, sorted.
func (i *Index) LinkedSwIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, id := range i.links {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (i *Index) Put(products ...*models.ExistingProduct) {
	for _, p := range products {
		i.products[p.ID] = p
	}
}

func (i *Index) Product(swID string) (*models.ExistingProduct, bool) {
	p, ok := i.products[swID]
	return p, ok
}

func (i *Index) Exists(swID string) bool {
	_, ok := i.products[swID]
	return ok
}

// ProductFor returns the existing product linked to variationID.
func (i *Index) ProductFor(variationID int64) (*models.ExistingProduct, bool) {
	swID, ok := i.links[variationID]
	if !ok {
		return nil, false
	}
	return i.Product(swID)
}

func (i *Index) ProductCount() int { return len(i.products) }
