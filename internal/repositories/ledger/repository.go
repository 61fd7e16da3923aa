// Package ledger persists the lifecycle-tracked ledger of canonical products
// and their observed prices.
package ledger

import (
	"fmt"
	"net/http"
	"time"

	"context"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/tendril/pkg/database"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

const selectColumns = "canonical_id, display_name, raw_ids, status, status_changed_at, last_status_change_at, last_known_price, price_updated_at, first_seen_at, created_at, updated_at"

// Repository handles ledger entry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts ledger entries for newly discovered products. Existing
// rows are left untouched so replays of the same snapshot are harmless.
func (r *Repository) CreateBatch(ctx context.Context, entries []*models.LedgerEntry) error {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.CreateBatch")
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := database.NewInsertBuilder()
	sb.InsertInto("ledger_entries")
	sb.Cols("canonical_id", "display_name", "raw_ids", "status", "status_changed_at", "last_status_change_at", "last_known_price", "price_updated_at", "first_seen_at", "created_at", "updated_at")

	for _, e := range entries {
		if e.Status == "" {
			e.Status = models.LedgerStatusNew
		}
		if e.StatusChangedAt.IsZero() {
			e.StatusChangedAt = now
		}
		if e.LastStatusChangeAt.IsZero() {
			e.LastStatusChangeAt = now
		}
		if e.FirstSeenAt.IsZero() {
			e.FirstSeenAt = now
		}
		e.CreatedAt = now
		e.UpdatedAt = now
		sb.Values(e.CanonicalID, e.DisplayName, e.RawIDs, e.Status, e.StatusChangedAt, e.LastStatusChangeAt, e.LastKnownPrice, e.PriceUpdatedAt, e.FirstSeenAt, e.CreatedAt, e.UpdatedAt)
	}
	sb.OnConflictDoNothing()

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create ledger entries")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create ledger entries")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(entries)}).Debug("Created ledger entries")
	return nil
}

// Get retrieves a ledger entry by canonical id
func (r *Repository) Get(ctx context.Context, canonicalID string) (*models.LedgerEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns)
	sb.From("ledger_entries")
	sb.Where(sb.Equal("canonical_id", canonicalID))

	query, args := sb.Build()
	var entry models.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("ledger entry %s not found", canonicalID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get ledger entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ledger entry")
	}

	return &entry, nil
}

// GetAll retrieves the full ledger, ordered by canonical id
func (r *Repository) GetAll(ctx context.Context) ([]models.LedgerEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.GetAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns)
	sb.From("ledger_entries")
	sb.OrderBy("canonical_id")

	query, args := sb.Build()
	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ledger entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ledger entries")
	}

	return entries, nil
}

// ListByStatus retrieves ledger entries in a lifecycle state
func (r *Repository) ListByStatus(ctx context.Context, status models.LedgerStatus, limit int) ([]models.LedgerEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.ListByStatus")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(selectColumns)
	sb.From("ledger_entries")
	sb.Where(sb.Equal("status", status))
	sb.OrderBy("last_status_change_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list ledger entries by status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ledger entries")
	}

	return entries, nil
}

// UpdateStatus transitions the given entries to a new lifecycle state,
// stamping both the transition timestamp and the most-recent-change
// timestamp. Entries already in the target state are excluded so a replay
// never restamps them.
func (r *Repository) UpdateStatus(ctx context.Context, canonicalIDs []string, status models.LedgerStatus, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.UpdateStatus")
	defer span.End()

	if len(canonicalIDs) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("ledger_entries")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("status_changed_at", at),
		sb.Assign("last_status_change_at", at),
		sb.Assign("updated_at", at),
	)
	sb.Where(
		sb.In("canonical_id", idsToAny(canonicalIDs)...),
		sb.NotEqual("status", status),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status}).Error("Failed to update ledger status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update ledger status")
	}

	return nil
}

// RefreshPrice merges a freshly observed price into an entry. Only the price
// fields are touched; lifecycle timestamps stay as they are.
func (r *Repository) RefreshPrice(ctx context.Context, canonicalID string, price int64, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.RefreshPrice")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("ledger_entries")
	sb.Set(
		sb.Assign("last_known_price", price),
		sb.Assign("price_updated_at", at),
		sb.Assign("updated_at", at),
	)
	sb.Where(sb.Equal("canonical_id", canonicalID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"canonical_id": canonicalID}).Error("Failed to refresh ledger price")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh ledger price")
	}

	return nil
}

// AddPricePoint appends one observed price to the history
func (r *Repository) AddPricePoint(ctx context.Context, point *models.PricePoint) error {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.AddPricePoint")
	defer span.End()

	if point.ID == "" {
		point.ID = uuid.New().String()
	}
	if point.RecordedAt.IsZero() {
		point.RecordedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("price_history")
	sb.Cols("id", "canonical_id", "price", "recorded_at")
	sb.Values(point.ID, point.CanonicalID, point.Price, point.RecordedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to add price point")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add price point")
	}

	return nil
}

// ListPriceHistory retrieves the most recent price points for an entry
func (r *Repository) ListPriceHistory(ctx context.Context, canonicalID string, limit int) ([]models.PricePoint, error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.ListPriceHistory")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "canonical_id", "price", "recorded_at")
	sb.From("price_history")
	sb.Where(sb.Equal("canonical_id", canonicalID))
	sb.OrderBy("recorded_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var points []models.PricePoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list price history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list price history")
	}

	return points, nil
}

// MergeGroup collapses absorbed ledger rows into the canonical one inside
// the caller's transaction: the canonical row takes the merged raw id set and
// earliest first-seen time, price history is repointed, and the absorbed rows
// are removed.
func (r *Repository) MergeGroup(ctx context.Context, tx database.Tx, canonical *models.LedgerEntry, absorbedIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "ledger.Repository.MergeGroup")
	defer span.End()

	if len(absorbedIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("ledger_entries")
	ub.Set(
		ub.Assign("raw_ids", canonical.RawIDs),
		ub.Assign("first_seen_at", canonical.FirstSeenAt),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("canonical_id", canonical.CanonicalID))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update canonical ledger entry")
		return err
	}

	repoint := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	repoint.Update("price_history")
	repoint.Set(repoint.Assign("canonical_id", canonical.CanonicalID))
	repoint.Where(repoint.In("canonical_id", idsToAny(absorbedIDs)...))

	query, args = repoint.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint price history")
		return err
	}

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("ledger_entries")
	del.Where(del.In("canonical_id", idsToAny(absorbedIDs)...))

	query, args = del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to remove absorbed ledger entries")
		return err
	}

	return nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
