package mocks

import (
	"context"
	"sync"

	"github.com/Kentzo-Omakse/hexim/internal/models"
)

// LinkStore keeps links in memory and counts lookups per category.
type LinkStore struct {
	mu      sync.Mutex
	Links   map[models.LinkCategory]map[string]models.Link
	Lookups map[models.LinkCategory]int
	Saved   []models.Link
}

func NewLinkStore() *LinkStore {
	return &LinkStore{
		Links:   map[models.LinkCategory]map[string]models.Link{},
		Lookups: map[models.LinkCategory]int{},
	}
}

// Link adds plentyID -> swID to category.
func (s *LinkStore) Link(category models.LinkCategory, plentyID, swID string) *LinkStore {
	return s.LinkWith(models.Link{Category: category, PlentyID: plentyID, SwID: swID})
}

func (s *LinkStore) LinkWith(link models.Link) *LinkStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Links[link.Category] == nil {
		s.Links[link.Category] = map[string]models.Link{}
	}
	s.Links[link.Category][link.PlentyID] = link
	return s
}

func (s *LinkStore) Lookup(_ context.Context, category models.LinkCategory, plentyIDs []string) (map[string]models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Lookups[category]++
	found := map[string]models.Link{}
	for _, id := range plentyIDs {
		if link, ok := s.Links[category][id]; ok {
			found[id] = link
		}
	}
	return found, nil
}

func (s *LinkStore) Save(_ context.Context, links []models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saved = append(s.Saved, links...)
	for _, link := range links {
		if s.Links[link.Category] == nil {
			s.Links[link.Category] = map[string]models.Link{}
		}
		s.Links[link.Category][link.PlentyID] = link
	}
	return nil
}
