package batch

import (
	"context"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/product"
	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/metrics"
	"github.com/Kentzo-Omakse/hexim/pkg/reconcile"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
)

// mapRecord maps one record into the run. Only batch-fatal errors are
// returned; any other failure marks the record failed and takes back what it
// deferred.
func (d *Driver) mapRecord(ctx context.Context, r *run, record models.SourceRecord) error {
	r.scratch.ResetRecord()

	// a deferral is a failed attempt so the orphan reaches the veto once
	// its error count passes the defer threshold
	if r.gate.Defer(ctx, record) {
		r.ledger.MarkFailed(record.ID)
		r.result.Deferred++
		metrics.RecordOutcome(metrics.OutcomeDeferred)
		return nil
	}

	products := r.snapshot.Products
	swID, linked := products.Link(record.VariationID)
	if !linked {
		swID = shopware.NewID()
	}
	existing, _ := products.ProductFor(record.VariationID)
	cur := product.Current{Record: record, SwID: swID, Existing: existing}
	product.SetCurrent(r.scratch, cur)

	payload, err := r.engine.Map(ctx, r.registry, product.Tree(record), r.scratch)
	if err != nil {
		if synerr.IsFatal(err) {
			return err
		}
		reconcile.For(r.scratch).DropOwner(cur.Owner())
		r.ledger.MarkFailed(record.ID)
		r.result.Failed++
		metrics.RecordOutcome(metrics.OutcomeFailed)
		d.deps.Logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"variation_id": record.VariationID,
			"error_count":  record.ErrorCount,
		}).Error("Failed to map record")
		return nil
	}
	payload["id"] = swID

	verdict := r.gate.Check(ctx, cur, payload, r.scratch)
	metrics.RecordOutcome(verdict.Outcome)
	switch verdict.Outcome {
	case metrics.OutcomeSynced:
		r.result.Synced++
		r.ledger.MarkProcessed(record.ID)
		if products.AssignLink(record.VariationID, swID) {
			r.ledger.AddPendingLink(record.VariationID, swID)
		}
	case metrics.OutcomeDisabled:
		r.result.Disabled++
	case metrics.OutcomeSuppress:
		r.result.Suppressed++
		return nil
	}

	r.upserts = append(r.upserts, upsert{record: record, payload: verdict.Payload})
	return nil
}
