// Package runerror records per-item failures that did not abort a pipeline
// run.
package runerror

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/tendril/pkg/database"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Repository handles run error persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new run error repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records one per-item failure
func (r *Repository) Create(ctx context.Context, runErr *models.RunError) error {
	ctx, span := tracing.StartSpan(ctx, "runerror.Repository.Create")
	defer span.End()

	if runErr.ID == "" {
		runErr.ID = uuid.New().String()
	}
	runErr.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("run_errors")
	sb.Cols("id", "run_id", "reference_id", "stage", "message", "created_at")
	sb.Values(runErr.ID, runErr.RunID, runErr.ReferenceID, runErr.Stage, runErr.Message, runErr.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"reference_id": runErr.ReferenceID}).Error("Failed to record run error")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record run error")
	}

	return nil
}

// ListByRun retrieves the failures recorded during one run
func (r *Repository) ListByRun(ctx context.Context, runID string, limit int) ([]models.RunError, error) {
	ctx, span := tracing.StartSpan(ctx, "runerror.Repository.ListByRun")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "run_id", "reference_id", "stage", "message", "created_at")
	sb.From("run_errors")
	sb.Where(sb.Equal("run_id", runID))
	sb.OrderBy("created_at ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var errs []models.RunError
	if err := r.db.SelectContext(ctx, &errs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list run errors")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list run errors")
	}

	return errs, nil
}
