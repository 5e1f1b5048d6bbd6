package state

import (
	"sort"
	"strconv"

	"github.com/Kentzo-Omakse/hexim/internal/models"
)

// Ledger tracks which queue entries are done and which product links still
// have to be written. Veto checks and the batch driver share one Ledger so a
// suppressed record never gets a link.
type Ledger struct {
	processed    map[string]struct{}
	order        []string
	pendingLinks map[int64]string
	failed       map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		processed:    map[string]struct{}{},
		pendingLinks: map[int64]string{},
		failed:       map[string]struct{}{},
	}
}

func (l *Ledger) MarkProcessed(updateID string) {
	if _, ok := l.processed[updateID]; ok {
		return
	}
	l.processed[updateID] = struct{}{}
	l.order = append(l.order, updateID)
}

func (l *Ledger) IsProcessed(updateID string) bool {
	_, ok := l.processed[updateID]
	return ok
}

// Processed returns the processed update ids in the order they were marked.
func (l *Ledger) Processed() []string {
	return append([]string(nil), l.order...)
}

func (l *Ledger) MarkFailed(updateID string) {
	l.failed[updateID] = struct{}{}
}

// Failed returns the failed update ids, sorted.
func (l *Ledger) Failed() []string {
	ids := make([]string, 0, len(l.failed))
	for id := range l.failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Ledger) AddPendingLink(variationID int64, swID string) {
	l.pendingLinks[variationID] = swID
}

func (l *Ledger) DropPendingLink(variationID int64) {
	delete(l.pendingLinks, variationID)
}

func (l *Ledger) HasPendingLink(variationID int64) bool {
	_, ok := l.pendingLinks[variationID]
	return ok
}

// PendingLinks returns the product links to write, ordered by variation id.
func (l *Ledger) PendingLinks() []models.Link {
	ids := make([]int64, 0, len(l.pendingLinks))
	for id := range l.pendingLinks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	links := make([]models.Link, len(ids))
	for i, id := range ids {
		links[i] = models.Link{
			Category: models.LinkProduct,
			PlentyID: strconv.FormatInt(id, 10),
			SwID:     l.pendingLinks[id],
		}
	}
	return links
}
