// Package matchresult persists the per-run outcome rows of the matching
// pipeline.
package matchresult

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

const selectColumns = "id, run_id, reference_id, reference_name, matched_source_id, matched_name, matched_price, matched_url, confidence, reason, created_at"

// Repository handles match result persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match result repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create flushes one match result row. The pipeline calls this once per
// reference item, immediately, so an interrupted run leaves only whole rows
// behind.
func (r *Repository) Create(ctx context.Context, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.Create")
	defer span.End()

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	result.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_results")
	sb.Cols("id", "run_id", "reference_id", "reference_name", "matched_source_id", "matched_name", "matched_price", "matched_url", "confidence", "reason", "created_at")
	sb.Values(result.ID, result.RunID, result.ReferenceID, result.ReferenceName, result.MatchedSourceID, result.MatchedName, result.MatchedPrice, result.MatchedURL, result.Confidence, result.Reason, result.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"reference_id": result.ReferenceID}).Error("Failed to create match result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match result")
	}

	return nil
}

// ListRecordedReferenceIDs returns the set of reference ids that already have
// a result row. The pipeline skips these on resume.
func (r *Repository) ListRecordedReferenceIDs(ctx context.Context) (map[string]bool, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.ListRecordedReferenceIDs")
	defer span.End()

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT DISTINCT reference_id FROM match_results"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list recorded reference ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recorded reference ids")
	}

	recorded := make(map[string]bool, len(ids))
	for _, id := range ids {
		recorded[id] = true
	}

	return recorded, nil
}

// ListByRun retrieves the results of one pipeline run in flush order
func (r *Repository) ListByRun(ctx context.Context, runID string, limit int) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.ListByRun")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 500
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns)
	sb.From("match_results")
	sb.Where(sb.Equal("run_id", runID))
	sb.OrderBy("created_at ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var results []models.MatchResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match results by run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match results")
	}

	return results, nil
}

// ListNeedingReview retrieves the most recent results that lack a
// brand-confirmed match
func (r *Repository) ListNeedingReview(ctx context.Context, limit int) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.ListNeedingReview")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns)
	sb.From("match_results")
	sb.Where(sb.Equal("confidence", models.ConfidenceNeedsReview))
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var results []models.MatchResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match results needing review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match results")
	}

	return results, nil
}
