// Package links stores the plenty id to shopware id mappings, one table
// category per relation.
package links

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	table     = "links"
	batchSize = 500
)

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Lookup returns the links of category for plentyIDs keyed by plenty id.
// Ids without a link are missing from the result.
func (r *Repository) Lookup(ctx context.Context, category models.LinkCategory, plentyIDs []string) (map[string]models.Link, error) {
	ctx, span := tracing.StartSpan(ctx, "links.Repository.Lookup",
		attribute.String("category", string(category)),
		attribute.Int("count", len(plentyIDs)),
	)
	defer span.End()

	found := make(map[string]models.Link, len(plentyIDs))
	for start := 0; start < len(plentyIDs); start += batchSize {
		end := min(start+batchSize, len(plentyIDs))

		sb := database.NewSelectBuilder()
		sb.Select("category", "plenty_id", "sw_id", "extra", "created_at", "updated_at")
		sb.From(table)
		sb.Where(sb.Equal("category", string(category)), sb.In("plenty_id", database.AnyOf(plentyIDs[start:end])...))

		query, args := sb.Build()
		var rows []models.Link
		if err := r.db.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"category": category,
			}).Error("Failed to look up links")
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to look up %s links: %v", category, err)
		}
		for _, row := range rows {
			found[row.PlentyID] = row
		}
	}

	return found, nil
}

// Save inserts links or points existing ones at the new shopware id.
func (r *Repository) Save(ctx context.Context, links []models.Link) error {
	ctx, span := tracing.StartSpan(ctx, "links.Repository.Save", attribute.Int("count", len(links)))
	defer span.End()

	if len(links) == 0 {
		return nil
	}

	return database.WithTx(ctx, r.db, func(ctx context.Context) error {
		now := time.Now().UTC()
		for start := 0; start < len(links); start += batchSize {
			end := min(start+batchSize, len(links))

			ib := database.NewInsertBuilder()
			ib.InsertInto(table)
			ib.Cols("category", "plenty_id", "sw_id", "extra", "created_at", "updated_at")
			for _, link := range links[start:end] {
				extra := link.Extra
				if extra.Data == nil {
					extra = database.NewJSONB(map[string]any{})
				}
				ib.Values(string(link.Category), link.PlentyID, link.SwID, extra, now, now)
			}
			ib.OnConflictUpdate([]string{"category", "plenty_id"}, "sw_id", "extra", "updated_at")

			query, args := ib.Build()
			if _, err := r.db.Q(ctx).ExecContext(ctx, query, args...); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"count": end - start,
				}).Error("Failed to save links")
				return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to save links: %v", err)
			}
		}
		return nil
	})
}
