// Package mappingfields stores operator-defined field mappings that replace
// the built-in ones.
package mappingfields

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/Kentzo-Omakse/hexim/pkg/tracing"
	"github.com/google/uuid"
)

const table = "mapping_fields"

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ListByType returns the overrides of one mapping type in creation order.
func (r *Repository) ListByType(ctx context.Context, mappingType string) ([]models.MappingFieldOverride, error) {
	ctx, span := tracing.StartSpan(ctx, "mappingfields.Repository.ListByType")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "type", "sw_field", "plenty_field")
	sb.From(table)
	sb.Where(sb.Equal("type", mappingType))
	sb.OrderBy("created_at ASC", "sw_field ASC")

	query, args := sb.Build()
	var overrides []models.MappingFieldOverride
	if err := r.db.Q(ctx).SelectContext(ctx, &overrides, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"type": mappingType,
		}).Error("Failed to list mapping fields")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list mapping fields: %v", err)
	}
	return overrides, nil
}

// Set stores the source field for one target field, replacing a previous
// override of the same field.
func (r *Repository) Set(ctx context.Context, mappingType, swField, plentyField string) (*models.MappingFieldOverride, error) {
	ctx, span := tracing.StartSpan(ctx, "mappingfields.Repository.Set")
	defer span.End()

	if swField == "" || plentyField == "" {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "sw field and plenty field are required")
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "type", "sw_field", "plenty_field", "created_at", "updated_at")
	ib.Values(uuid.NewString(), mappingType, swField, plentyField, now, now)
	ib.OnConflictUpdate([]string{"type", "sw_field"}, "plenty_field", "updated_at")
	ib.SQL("RETURNING id, type, sw_field, plenty_field")

	query, args := ib.Build()
	var override models.MappingFieldOverride
	if err := r.db.Q(ctx).GetContext(ctx, &override, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"type":     mappingType,
			"sw_field": swField,
		}).Error("Failed to set mapping field")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to set mapping field: %v", err)
	}
	return &override, nil
}

// Delete removes the override of swField. Removing a missing override is not
// an error.
func (r *Repository) Delete(ctx context.Context, mappingType, swField string) error {
	ctx, span := tracing.StartSpan(ctx, "mappingfields.Repository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("type", mappingType), db.Equal("sw_field", swField))

	query, args := db.Build()
	if _, err := r.db.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"type":     mappingType,
			"sw_field": swField,
		}).Error("Failed to delete mapping field")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete mapping field: %v", err)
	}
	return nil
}
