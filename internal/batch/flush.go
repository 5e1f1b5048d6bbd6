package batch

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Kentzo-Omakse/hexim/internal/product"
	"github.com/Kentzo-Omakse/hexim/pkg/events"
	"github.com/Kentzo-Omakse/hexim/pkg/metrics"
	"github.com/Kentzo-Omakse/hexim/pkg/reconcile"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/pkg/errors"
)

// flush writes the run: deferred deletes in relation order, then every
// product payload with the configurator settings merged into their parents,
// then the new links and the queue bookkeeping.
func (d *Driver) flush(ctx context.Context, r *run) error {
	ctx, span := tracing.StartSpan(ctx, "batch.Driver.flush")
	defer span.End()

	log := d.deps.Logger.WithContext(ctx)
	deferred := reconcile.For(r.scratch)

	for _, rel := range reconcile.FlushOrder {
		deletes := deferred.Deletes(rel)
		if len(deletes) == 0 {
			continue
		}
		if err := d.deps.Target.Delete(ctx, string(rel), deletes); err != nil {
			tracing.RecordError(span, err)
			return errors.Wrapf(err, "failed to delete %s", rel)
		}
		metrics.RecordDeletes(string(rel), len(deletes))
		r.result.Deleted += len(deletes)
		log.WithFields(map[string]any{
			"relation": rel,
			"count":    len(deletes),
		}).Debug("Deleted stale relations")
	}

	payloads := d.mergeConfigurators(r, deferred)
	if len(payloads) > 0 {
		for _, p := range r.upserts {
			if d.deps.Dispatcher != nil {
				d.deps.Dispatcher.DispatchMapping(ctx, &events.MappingEvent{
					Name:      product.EventName,
					ForeignID: p.record.ForeignID(),
					Payload:   p.payload,
				})
			}
		}

		if err := d.deps.Target.Upsert(ctx, shopware.EntityProduct, payloads); err != nil {
			tracing.RecordError(span, err)
			if r.queued {
				ids := ectolinq.Map(r.upserts, func(u upsert) string { return u.record.ID })
				if incErr := d.deps.Queue.IncrementErrors(ctx, ids); incErr != nil {
					log.WithError(incErr).Error("Failed to increment error counts")
				}
			}
			return errors.Wrap(err, "failed to upsert products")
		}
		metrics.RecordUpserts(len(payloads))
		r.result.Upserted = len(payloads)
	}

	if links := r.ledger.PendingLinks(); len(links) > 0 {
		if err := d.deps.Links.Save(ctx, links); err != nil {
			tracing.RecordError(span, err)
			return errors.Wrap(err, "failed to save product links")
		}
	}

	if !r.queued {
		return nil
	}
	if processed := r.ledger.Processed(); len(processed) > 0 {
		if err := d.deps.Queue.MarkProcessed(ctx, processed); err != nil {
			tracing.RecordError(span, err)
			return errors.Wrap(err, "failed to mark records processed")
		}
	}
	if failed := r.ledger.Failed(); len(failed) > 0 {
		if err := d.deps.Queue.IncrementErrors(ctx, failed); err != nil {
			tracing.RecordError(span, err)
			return errors.Wrap(err, "failed to increment error counts")
		}
	}
	return nil
}

// mergeConfigurators returns the product payloads in mapping order, each
// parent carrying the configurator settings its variants asked for. Options
// an existing parent is already configured with are skipped unless its
// settings are deleted in this run.
func (d *Driver) mergeConfigurators(r *run, deferred *reconcile.Deferred) []map[string]any {
	payloads := make([]map[string]any, 0, len(r.upserts))
	byID := map[string]map[string]any{}
	for _, u := range r.upserts {
		payload := map[string]any(u.payload)
		payloads = append(payloads, payload)
		if id, ok := payload["id"].(string); ok {
			byID[id] = payload
		}
	}

	for _, create := range deferred.ConfiguratorCreates() {
		payload, ok := byID[create.ParentID]
		if !ok {
			payload = map[string]any{"id": create.ParentID}
			byID[create.ParentID] = payload
			payloads = append(payloads, payload)
		}

		configured := map[string]struct{}{}
		if parent, ok := r.snapshot.Products.Product(create.ParentID); ok && !deferred.SettingsDeleted(create.ParentID) {
			for _, setting := range parent.ConfiguratorSettings {
				configured[setting.OptionID] = struct{}{}
			}
		}

		settings, _ := payload["configuratorSettings"].([]map[string]any)
		for _, optionID := range create.OptionIDs {
			if _, ok := configured[optionID]; ok {
				continue
			}
			settings = append(settings, map[string]any{"optionId": optionID})
		}
		if len(settings) > 0 {
			payload["configuratorSettings"] = settings
		}
	}

	// a parent that only existed to receive settings and got none
	return ectolinq.Filter(payloads, func(p map[string]any) bool { return len(p) > 1 })
}
