package product

import (
	"sort"
	"strconv"

	"github.com/Gobusters/ectolinq"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/mapping"
	"github.com/Kentzo-Omakse/hexim/pkg/reconcile"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// Relation transforms return the assignments to create and queue deletes of
// stale assignments on the batch's deferred accumulator.

func (b *Builder) categories(in mapping.TransformInput) (any, error) {
	var desired []string
	for _, category := range in.Value.Get("categories").Items() {
		if id, ok := b.snapshot.Categories.Get(category.Get("categoryId").Str()); ok {
			desired = append(desired, id)
		}
	}

	cur := CurrentFrom(in.Scratch)
	return reconcileIDs(in.Scratch, cur, desired, existingIDs(cur, func(p *models.ExistingProduct) []string { return p.CategoryIDs }),
		reconcile.RelationProductCategory, "categoryId"), nil
}

func (b *Builder) tags(in mapping.TransformInput) (any, error) {
	if !b.settings.SyncTags {
		return []map[string]any{}, nil
	}

	var desired []string
	for _, tag := range in.Value.Get("tags").Items() {
		if id, ok := b.snapshot.Tags.Get(tag.Get("tagId").Str()); ok {
			desired = append(desired, id)
		}
	}

	cur := CurrentFrom(in.Scratch)
	return reconcileIDs(in.Scratch, cur, desired, existingIDs(cur, func(p *models.ExistingProduct) []string { return p.TagIDs }),
		reconcile.RelationProductTag, "tagId"), nil
}

func (b *Builder) properties(in mapping.TransformInput) (any, error) {
	desired := b.attributeOptions(in.Value)
	for _, property := range in.Value.Get("properties").Items() {
		cast := models.PropertyCast(property)
		if cast != models.CastSelection && cast != models.CastMultiSelection {
			continue
		}
		for _, v := range property.Get("values").Items() {
			if id, ok := b.snapshot.PropertyValues.Get(v.Get("value").Str()); ok {
				desired = append(desired, id)
			}
		}
	}

	cur := CurrentFrom(in.Scratch)
	return reconcileIDs(in.Scratch, cur, desired, existingIDs(cur, func(p *models.ExistingProduct) []string { return p.PropertyIDs }),
		reconcile.RelationProductProperty, "optionId"), nil
}

func (b *Builder) options(in mapping.TransformInput) (any, error) {
	cur := CurrentFrom(in.Scratch)
	return reconcileIDs(in.Scratch, cur, b.attributeOptions(in.Value), existingIDs(cur, func(p *models.ExistingProduct) []string { return p.OptionIDs }),
		reconcile.RelationProductOption, "optionId"), nil
}

// attributeOptions maps the variation's attribute values to option ids.
func (b *Builder) attributeOptions(variation value.Value) []string {
	var ids []string
	for _, attribute := range variation.Get("attributeValues").Items() {
		if id, ok := b.snapshot.AttributeValues.Get(attribute.Get("valueId").Str()); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func existingIDs(cur Current, ids func(*models.ExistingProduct) []string) []string {
	if cur.Existing == nil {
		return nil
	}
	return ids(cur.Existing)
}

// reconcileIDs queues {productId, <key>} deletes for existing ids that are
// no longer desired and returns [{id}] for the desired ids that are new.
func reconcileIDs(sc *scratch.Context, cur Current, desired, existing []string, rel reconcile.Relation, key string) []map[string]any {
	toCreate, toDelete := reconcile.DiffIDs(desired, existing)

	deferred := reconcile.For(sc)
	for _, id := range toDelete {
		deferred.Delete(cur.Owner(), rel, map[string]any{
			"productId": cur.Existing.ID,
			key:         id,
		})
	}
	return idRefs(toCreate)
}

func idRefs(ids []string) []map[string]any {
	refs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, map[string]any{"id": id})
	}
	return refs
}

func (b *Builder) visibilities(in mapping.TransformInput) (any, error) {
	cur := CurrentFrom(in.Scratch)

	var desired []models.ProductVisibility
	for _, channelID := range b.visibleChannels(cur.Record) {
		desired = append(desired, models.ProductVisibility{SalesChannelID: channelID})
	}
	var existing []models.ProductVisibility
	if cur.Existing != nil {
		existing = cur.Existing.Visibilities
	}

	toCreate, toDelete := reconcile.Diff(desired, existing, func(v models.ProductVisibility) string { return v.SalesChannelID })

	deferred := reconcile.For(in.Scratch)
	for _, visibility := range toDelete {
		deferred.Delete(cur.Owner(), reconcile.RelationProductVisibility, map[string]any{
			"id":             visibility.ID,
			"productId":      cur.Existing.ID,
			"salesChannelId": visibility.SalesChannelID,
		})
	}

	out := make([]map[string]any, 0, len(toCreate))
	for _, visibility := range toCreate {
		out = append(out, map[string]any{
			"salesChannelId": visibility.SalesChannelID,
			"visibility":     shopware.VisibilityAll,
		})
	}
	return out, nil
}

// visibleChannels returns every channel when no channel is bound to a plenty
// market or client. Otherwise a channel is visible when both its market and
// its client are allowed for the record.
func (b *Builder) visibleChannels(record models.SourceRecord) []string {
	if len(b.snapshot.SalesChannelsWithMarket()) == 0 && len(b.snapshot.SalesChannelsWithPlentyID()) == 0 {
		return ectolinq.Map(b.snapshot.SalesChannels, func(c models.SalesChannel) string { return c.ID })
	}

	var ids []string
	for _, channel := range b.snapshot.SalesChannelsWithMarket() {
		if !channel.HasPlentyID() {
			continue
		}
		market, err := strconv.ParseFloat(channel.MarketID, 64)
		if err != nil {
			continue
		}
		client, err := strconv.Atoi(channel.PlentyID)
		if err != nil {
			continue
		}
		if b.settings.MarketAllowed(record.MarketIDs(), []float64{market}) &&
			b.settings.ClientAllowed(record.ClientIDs(), []int{client}) {
			ids = append(ids, channel.ID)
		}
	}
	return ids
}

type mediaAssignment struct {
	relationID string
	mediaID    string
	position   int
}

// media assigns the allowed, uploaded images in source position order and
// leaves the cover for the coverId field. The cover is the image at source
// position 0, else the one with the lowest position.
func (b *Builder) media(in mapping.TransformInput) (any, error) {
	cur := CurrentFrom(in.Scratch)

	images := models.Images(in.Value)
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Get("position").IntOr(0) < images[j].Get("position").IntOr(0)
	})

	var (
		desired       []mediaAssignment
		coverID       string
		fallbackID    string
		fallbackIndex int64
	)
	for _, image := range images {
		if !b.settings.ImageAllowed(models.ImageMarketIDs(image)) {
			continue
		}
		mediaID, ok := b.snapshot.Media.Get(models.ProductMediaPrefix + image.Get("id").Str())
		if !ok {
			continue
		}

		source := image.Get("position").IntOr(0)
		relationID := reconcile.MediaRelationID(cur.SwID, mediaID, int(source))
		desired = append(desired, mediaAssignment{relationID: relationID, mediaID: mediaID, position: len(desired)})

		if fallbackID == "" || source < fallbackIndex {
			fallbackID = relationID
			fallbackIndex = source
		}
		if source == 0 {
			coverID = relationID
		}
	}
	if coverID == "" {
		coverID = fallbackID
	}
	in.Scratch.SetRecord(coverKey, coverID)

	var existing []mediaAssignment
	if cur.Existing != nil {
		for _, m := range cur.Existing.Media {
			existing = append(existing, mediaAssignment{relationID: m.ID, mediaID: m.MediaID})
		}
	}

	toCreate, toDelete := reconcile.Diff(desired, existing, func(m mediaAssignment) string { return m.relationID })

	deferred := reconcile.For(in.Scratch)
	for _, m := range toDelete {
		deferred.Delete(cur.Owner(), reconcile.RelationProductMedia, map[string]any{
			"id":        m.relationID,
			"productId": cur.Existing.ID,
			"mediaId":   m.mediaID,
		})
	}

	out := make([]map[string]any, 0, len(toCreate))
	for _, m := range toCreate {
		out = append(out, map[string]any{
			"id":       m.relationID,
			"media":    map[string]any{"id": m.mediaID},
			"position": m.position,
		})
	}
	return out, nil
}

func cover(in mapping.TransformInput) (any, error) {
	if id, ok := scratch.Record[string](in.Scratch, coverKey); ok && id != "" {
		return id, nil
	}
	return nil, nil
}

// deleteParentSettings drops every configurator setting of an existing main
// product. Its variants add the ones still in use back during the flush.
func (b *Builder) deleteParentSettings(in mapping.TransformInput) (any, error) {
	cur := CurrentFrom(in.Scratch)
	isMain, declared := cur.Record.MainFlag()
	if cur.Existing == nil || !declared || !isMain {
		return nil, nil
	}

	deferred := reconcile.For(in.Scratch)
	for _, setting := range cur.Existing.ConfiguratorSettings {
		deferred.Delete(cur.Owner(), reconcile.RelationConfiguratorSettings, map[string]any{
			"id":        setting.ID,
			"productId": cur.Existing.ID,
			"optionId":  setting.OptionID,
		})
	}
	return nil, nil
}

// addVariantSettings registers the variant's options on its parent.
func (b *Builder) addVariantSettings(in mapping.TransformInput) (any, error) {
	cur := CurrentFrom(in.Scratch)
	if !cur.Record.IsVariant() {
		return nil, nil
	}
	parent, ok := cur.Record.ParentID()
	if !ok {
		return nil, nil
	}
	parentSwID, linked := b.snapshot.Products.Link(parent)
	if !linked {
		return nil, nil
	}

	deferred := reconcile.For(in.Scratch)
	for _, optionID := range b.attributeOptions(in.Value) {
		deferred.AddConfigurator(cur.Owner(), parentSwID, optionID)
	}
	return nil, nil
}
