// Package updates is the queue of pending variation updates.
package updates

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const table = "item_updates"

type updateRow struct {
	ID            string                      `db:"id"`
	VariationID   int64                       `db:"variation_id"`
	ItemID        int64                       `db:"item_id"`
	IsMain        bool                        `db:"is_main"`
	VariationData database.JSONB[value.Value] `db:"variation_data"`
	ItemData      database.JSONB[value.Value] `db:"item_data"`
	ErrorCount    int                         `db:"error_count"`
	CreatedAt     time.Time                   `db:"created_at"`
}

func (row updateRow) record() models.SourceRecord {
	return models.SourceRecord{
		ID:          row.ID,
		VariationID: row.VariationID,
		ItemID:      row.ItemID,
		IsMain:      row.IsMain,
		Variation:   row.VariationData.Data,
		Item:        row.ItemData.Data,
		ErrorCount:  row.ErrorCount,
		CreatedAt:   row.CreatedAt,
	}
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Pending returns up to limit unprocessed updates, parents before their
// variants.
func (r *Repository) Pending(ctx context.Context, limit int) ([]models.SourceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "updates.Repository.Pending", attribute.Int("limit", limit))
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "variation_id", "item_id", "is_main", "variation_data", "item_data", "error_count", "created_at")
	sb.From(table)
	sb.Where(sb.IsNull("processed_at"))
	sb.OrderBy("item_id ASC", "is_main DESC", "variation_id ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var rows []updateRow
	if err := r.db.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load pending item updates")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to load pending item updates: %v", err)
	}

	records := make([]models.SourceRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// Enqueue stores a variation payload as pending. A pending update for the
// same variation is replaced and keeps its error count.
func (r *Repository) Enqueue(ctx context.Context, variation value.Value) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "updates.Repository.Enqueue")
	defer span.End()

	variationID, ok := variation.Get("id").AsInt()
	if !ok {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "variation payload has no id")
	}
	base := variation.Get("base")

	id := uuid.NewString()
	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "variation_id", "item_id", "is_main", "variation_data", "item_data", "error_count", "created_at", "updated_at")
	ib.Values(id, variationID, base.Get("itemId").IntOr(0), base.Get("isMain").BoolOr(false),
		database.NewJSONB(variation), database.NewJSONB(base.Get("item")), 0, now, now)
	ib.SQL("ON CONFLICT (variation_id) WHERE processed_at IS NULL DO UPDATE SET " +
		"variation_data = EXCLUDED.variation_data, item_data = EXCLUDED.item_data, " +
		"is_main = EXCLUDED.is_main, updated_at = EXCLUDED.updated_at RETURNING id")

	query, args := ib.Build()
	var stored string
	if err := r.db.Q(ctx).GetContext(ctx, &stored, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"variation_id": variationID,
		}).Error("Failed to enqueue item update")
		return "", httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to enqueue variation %d: %v", variationID, err)
	}
	return stored, nil
}

// MarkProcessed removes updates from the queue.
func (r *Repository) MarkProcessed(ctx context.Context, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "updates.Repository.MarkProcessed", attribute.Int("count", len(ids)))
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("processed_at", now), ub.Assign("updated_at", now))
	ub.Where(ub.In("id", database.AnyOf(ids)...))

	query, args := ub.Build()
	if _, err := r.db.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"count": len(ids),
		}).Error("Failed to mark item updates processed")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark item updates processed: %v", err)
	}
	return nil
}

// IncrementErrors bumps the error counter of updates that failed this run.
func (r *Repository) IncrementErrors(ctx context.Context, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "updates.Repository.IncrementErrors", attribute.Int("count", len(ids)))
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Incr("error_count"), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.In("id", database.AnyOf(ids)...))

	query, args := ub.Build()
	if _, err := r.db.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"count": len(ids),
		}).Error("Failed to increment item update errors")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to increment item update errors: %v", err)
	}
	return nil
}
