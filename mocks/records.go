package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// Record builds a queue entry from a variation payload. The update id is
// "u-<variation id>".
func Record(variation string) models.SourceRecord {
	return RecordWithErrors(variation, 0)
}

func RecordWithErrors(variation string, errorCount int) models.SourceRecord {
	v, err := value.Parse([]byte(variation))
	if err != nil {
		panic(fmt.Sprintf("mocks: bad variation: %v", err))
	}
	return models.RecordFromVariation(fmt.Sprintf("u-%d", v.Get("id").IntOr(0)), v, errorCount)
}

// Queue is an in-memory update queue.
type Queue struct {
	mu          sync.Mutex
	Records     []models.SourceRecord
	Processed   []string
	Incremented []string
}

func NewQueue(records ...models.SourceRecord) *Queue {
	return &Queue{Records: records}
}

func (q *Queue) Pending(_ context.Context, limit int) ([]models.SourceRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	done := map[string]bool{}
	for _, id := range q.Processed {
		done[id] = true
	}
	var out []models.SourceRecord
	for _, r := range q.Records {
		if !done[r.ID] {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		if out[i].IsMain != out[j].IsMain {
			return out[i].IsMain
		}
		return out[i].VariationID < out[j].VariationID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *Queue) MarkProcessed(_ context.Context, ids []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Processed = append(q.Processed, ids...)
	return nil
}

func (q *Queue) IncrementErrors(_ context.Context, ids []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Incremented = append(q.Incremented, ids...)
	for _, id := range ids {
		for i := range q.Records {
			if q.Records[i].ID == id {
				q.Records[i].ErrorCount++
			}
		}
	}
	return nil
}
