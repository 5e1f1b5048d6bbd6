package product

import (
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/reconcile"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// mainCategories sets one main category per sales channel. A client can pin
// its own category through defaultCategories; every other channel gets the
// mapped category with the lowest position. Existing rows are updated in
// place, rows of channels without a category are deleted.
func (b *Builder) mainCategories(in mapping.TransformInput) (any, error) {
	cur := CurrentFrom(in.Scratch)

	lowest := b.lowestCategory(in.Value)
	byClient := map[string]string{}
	for _, pinned := range in.Value.Get("defaultCategories").Items() {
		categoryID, ok := b.snapshot.Categories.Get(pinned.Get("branchId").Str())
		if !ok {
			categoryID = lowest
		}
		byClient[pinned.Get("plentyId").Str()] = categoryID
	}

	byChannel := make(map[string]string, len(b.snapshot.SalesChannels))
	for _, channel := range b.snapshot.SalesChannels {
		categoryID := lowest
		if pinned, ok := byClient[channel.PlentyID]; ok && channel.HasPlentyID() {
			categoryID = pinned
		}
		byChannel[channel.ID] = categoryID
	}

	out := []map[string]any{}
	if cur.Existing != nil {
		deferred := reconcile.For(in.Scratch)
		for _, main := range cur.Existing.MainCategories {
			categoryID := byChannel[main.SalesChannelID]
			delete(byChannel, main.SalesChannelID)
			if categoryID == "" {
				deferred.Delete(cur.Owner(), reconcile.RelationMainCategory, map[string]any{"id": main.ID})
				continue
			}
			out = append(out, map[string]any{
				"id":                main.ID,
				"categoryId":        categoryID,
				"categoryVersionId": shopware.LiveVersionID,
			})
		}
	}

	for _, channel := range b.snapshot.SalesChannels {
		categoryID, ok := byChannel[channel.ID]
		if !ok || categoryID == "" {
			continue
		}
		out = append(out, map[string]any{
			"categoryId":        categoryID,
			"categoryVersionId": shopware.LiveVersionID,
			"salesChannelId":    channel.ID,
		})
	}
	return out, nil
}

func (b *Builder) lowestCategory(variation value.Value) string {
	var (
		lowest   string
		position float64
	)
	for _, category := range variation.Get("categories").Items() {
		id, ok := b.snapshot.Categories.Get(category.Get("categoryId").Str())
		if !ok {
			continue
		}
		pos := category.Get("position").FloatOr(0)
		if lowest == "" || pos < position {
			lowest = id
			position = pos
		}
	}
	return lowest
}
