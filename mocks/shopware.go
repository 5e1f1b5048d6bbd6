// Package mocks holds in-memory fakes of the sync collaborators for tests.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// Logger discards everything.
func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// SearchCall is one recorded Search.
type SearchCall struct {
	Entity   string
	Criteria *shopware.Criteria
}

// WriteCall is one recorded Upsert or Delete.
type WriteCall struct {
	Action  string
	Entity  string
	Payload []map[string]any
}

// Shopware is a shopware.Repository over in-memory rows. Search honours ids
// and equals / equalsAny filters; upserts of new ids are added to the rows.
type Shopware struct {
	mu sync.Mutex

	Rows     map[string][]value.Value
	Searches []SearchCall
	Writes   []WriteCall

	// Fail makes every call on the named entity fail.
	Fail map[string]error
}

var _ shopware.Repository = (*Shopware)(nil)

func NewShopware() *Shopware {
	return &Shopware{Rows: map[string][]value.Value{}, Fail: map[string]error{}}
}

// Add stores rows for entity. Each row is parsed from JSON.
func (s *Shopware) Add(entity string, rows ...string) *Shopware {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range rows {
		row, err := value.Parse([]byte(raw))
		if err != nil {
			panic(fmt.Sprintf("mocks: bad row for %s: %v", entity, err))
		}
		s.Rows[entity] = append(s.Rows[entity], row)
	}
	return s
}

func (s *Shopware) Search(_ context.Context, entity string, criteria *shopware.Criteria) ([]value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Searches = append(s.Searches, SearchCall{Entity: entity, Criteria: criteria})
	if err := s.Fail[entity]; err != nil {
		return nil, err
	}

	rows := s.Rows[entity]
	if criteria == nil {
		return rows, nil
	}
	out := ectolinq.Filter(rows, func(row value.Value) bool { return matches(row, criteria) })
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (s *Shopware) Upsert(_ context.Context, entity string, payloads []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Writes = append(s.Writes, WriteCall{Action: "upsert", Entity: entity, Payload: payloads})
	if err := s.Fail[entity]; err != nil {
		return err
	}
	for _, payload := range payloads {
		id, _ := payload["id"].(string)
		if id != "" && s.indexOf(entity, id) >= 0 {
			continue
		}
		s.Rows[entity] = append(s.Rows[entity], value.From(payload))
	}
	return nil
}

func (s *Shopware) Delete(_ context.Context, entity string, keys []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Writes = append(s.Writes, WriteCall{Action: "delete", Entity: entity, Payload: keys})
	return s.Fail[entity]
}

// Calls returns "action:entity" for every write in order.
func (s *Shopware) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ectolinq.Map(s.Writes, func(w WriteCall) string { return w.Action + ":" + w.Entity })
}

// Written returns the payloads of every write of action on entity.
func (s *Shopware) Written(action, entity string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, w := range s.Writes {
		if w.Action == action && w.Entity == entity {
			out = append(out, w.Payload...)
		}
	}
	return out
}

// SearchCount counts searches on entity.
func (s *Shopware) SearchCount(entity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(ectolinq.Filter(s.Searches, func(c SearchCall) bool { return c.Entity == entity }))
}

func (s *Shopware) indexOf(entity, id string) int {
	for i, row := range s.Rows[entity] {
		if row.Get("id").Str() == id {
			return i
		}
	}
	return -1
}

func matches(row value.Value, criteria *shopware.Criteria) bool {
	if len(criteria.IDs) > 0 && !ectolinq.Contains(criteria.IDs, row.Get("id").Str()) {
		return false
	}
	for _, filter := range criteria.Filters {
		field := value.Lookup(row, filter.Field).Str()
		switch filter.Type {
		case "equals":
			if field != fmt.Sprint(filter.Value) {
				return false
			}
		case "equalsAny":
			values, _ := filter.Value.([]string)
			if !ectolinq.Contains(values, field) {
				return false
			}
		}
	}
	return true
}
