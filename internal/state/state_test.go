package state

import (
	"testing"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	idx := NewIndex(map[int64]string{10: "sw-10", 11: "sw-11", 12: "sw-10"})
	idx.Put(&models.ExistingProduct{ID: "sw-10"})

	t.Run("should find products through their variation", func(t *testing.T) {
		p, ok := idx.ProductFor(10)
		assert.True(t, ok)
		assert.Equal(t, "sw-10", p.ID)

		_, ok = idx.ProductFor(11)
		assert.False(t, ok)
	})

	t.Run("should not overwrite an existing link", func(t *testing.T) {
		assert.False(t, idx.AssignLink(10, "other"))
		assert.True(t, idx.AssignLink(13, "sw-13"))
		id, _ := idx.Link(10)
		assert.Equal(t, "sw-10", id)
	})

	t.Run("should list distinct linked ids", func(t *testing.T) {
		assert.Equal(t, []string{"sw-10", "sw-11", "sw-13"}, idx.LinkedSwIDs())
	})
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	l.MarkProcessed("b")
	l.MarkProcessed("a")
	l.MarkProcessed("b")
	assert.Equal(t, []string{"b", "a"}, l.Processed())

	l.AddPendingLink(12, "sw-12")
	l.AddPendingLink(10, "sw-10")
	l.DropPendingLink(12)
	assert.Equal(t, []models.Link{{Category: models.LinkProduct, PlentyID: "10", SwID: "sw-10"}}, l.PendingLinks())
}

func TestSnapshot_SalesChannels(t *testing.T) {
	s := NewSnapshot()
	s.SalesChannels = []models.SalesChannel{
		{ID: "sc-1", MarketID: "5", PlentyID: "1"},
		{ID: "sc-2", MarketID: "0", PlentyID: "0"},
		{ID: "sc-3"},
		{ID: "sc-4", MarketID: "7"},
	}

	ids := func(channels []models.SalesChannel) []string {
		var out []string
		for _, c := range channels {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []string{"sc-1", "sc-4"}, ids(s.SalesChannelsWithMarket()))
	assert.Equal(t, []string{"sc-1"}, ids(s.SalesChannelsWithPlentyID()))
}
