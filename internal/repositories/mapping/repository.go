// Package mapping persists the normalized-name to canonical-id table
// produced by the identity rebuild.
package mapping

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/pkg/database"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

var mappingStruct = database.NewStruct(new(models.IdentifierMapping))

// Repository handles identifier mapping persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new identifier mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the mapping for a normalized name
func (r *Repository) Get(ctx context.Context, normalizedName string) (*models.IdentifierMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.Get")
	defer span.End()

	sb := mappingStruct.SelectFrom("identifier_mappings")
	sb.Where(sb.Equal("normalized_name", normalizedName))

	query, args := sb.Build()
	var m models.IdentifierMapping
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("mapping for %q not found", normalizedName))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get identifier mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get identifier mapping")
	}

	return &m, nil
}

// List retrieves identifier mappings ordered by normalized name
func (r *Repository) List(ctx context.Context, limit int) ([]models.IdentifierMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.List")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := mappingStruct.SelectFrom("identifier_mappings")
	sb.OrderBy("normalized_name")
	sb.Limit(limit)

	query, args := sb.Build()
	var mappings []models.IdentifierMapping
	if err := r.db.SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list identifier mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list identifier mappings")
	}

	return mappings, nil
}

// ReplaceAll swaps the whole mapping table for the freshly rebuilt set,
// inside the caller's transaction. Callers take a backup first.
func (r *Repository) ReplaceAll(ctx context.Context, tx database.Tx, mappings []models.IdentifierMapping) error {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.ReplaceAll")
	defer span.End()

	if _, err := tx.ExecContext(ctx, "DELETE FROM identifier_mappings"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear identifier mappings")
		return err
	}

	if len(mappings) == 0 {
		return nil
	}

	rows := make([]any, len(mappings))
	for i := range mappings {
		rows[i] = &mappings[i]
	}
	sb := mappingStruct.InsertInto("identifier_mappings", rows...)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert identifier mappings")
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(mappings)}).Debug("Replaced identifier mappings")
	return nil
}
