// Package reconcile folds marketplace snapshots into the product ledger.
package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/pkg/database"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// SnapshotItem is one product observed in a marketplace snapshot
type SnapshotItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// LedgerStore is the subset of the ledger repository the reconciler needs
type LedgerStore interface {
	GetAll(ctx context.Context) ([]models.LedgerEntry, error)
	CreateBatch(ctx context.Context, entries []*models.LedgerEntry) error
	UpdateStatus(ctx context.Context, canonicalIDs []string, status models.LedgerStatus, at time.Time) error
	RefreshPrice(ctx context.Context, canonicalID string, price int64, at time.Time) error
	AddPricePoint(ctx context.Context, point *models.PricePoint) error
}

// Emitter publishes product lifecycle events
type Emitter interface {
	EmitProductDiscovered(ctx context.Context, entry *models.LedgerEntry) error
	EmitProductActive(ctx context.Context, entry *models.LedgerEntry) error
	EmitProductMissing(ctx context.Context, entry *models.LedgerEntry) error
}

// Reconciler diffs a snapshot against the ledger and records status
// transitions. Reconciling the same snapshot twice is a no-op apart from
// price_updated_at refreshes.
type Reconciler struct {
	ledger  LedgerStore
	emitter Emitter
	logger  ectologger.Logger
}

// NewReconciler creates a snapshot reconciler
func NewReconciler(ledger LedgerStore, emitter Emitter, logger ectologger.Logger) *Reconciler {
	return &Reconciler{
		ledger:  ledger,
		emitter: emitter,
		logger:  logger,
	}
}

// Reconcile applies one snapshot to the ledger: unseen ids are created as
// new, previously known ids are marked active with their price refreshed,
// and ledger entries absent from the snapshot are marked missing. Price
// points are appended only when the observed price actually changed.
func (r *Reconciler) Reconcile(ctx context.Context, items []SnapshotItem) (*models.ReconcileReport, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Reconciler.Reconcile")
	defer span.End()

	now := time.Now().UTC()

	// Duplicate ids within one snapshot keep the first occurrence.
	seen := make(map[string]SnapshotItem, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = item
		order = append(order, item.ID)
	}

	entries, err := r.ledger.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]models.LedgerEntry, len(entries))
	for _, e := range entries {
		known[e.CanonicalID] = e
	}

	report := &models.ReconcileReport{}
	var created []*models.LedgerEntry
	var activated []string

	for _, id := range order {
		item := seen[id]
		entry, ok := known[id]
		if !ok {
			price := item.Price
			created = append(created, &models.LedgerEntry{
				CanonicalID:    id,
				DisplayName:    item.Name,
				RawIDs:         database.JSONB[[]string]{Data: []string{id}},
				Status:         models.LedgerStatusNew,
				LastKnownPrice: &price,
				PriceUpdatedAt: &now,
				FirstSeenAt:    now,
			})
			report.NewIDs = append(report.NewIDs, id)
			continue
		}

		report.ContinuingIDs = append(report.ContinuingIDs, id)
		if entry.Status != models.LedgerStatusActive {
			activated = append(activated, id)
		}

		if err := r.ledger.RefreshPrice(ctx, id, item.Price, now); err != nil {
			return nil, err
		}
		if entry.LastKnownPrice == nil || *entry.LastKnownPrice != item.Price {
			if err := r.ledger.AddPricePoint(ctx, &models.PricePoint{
				CanonicalID: id,
				Price:       item.Price,
				RecordedAt:  now,
			}); err != nil {
				return nil, err
			}
		}

		// Keep the map copy in step with the ledger so emitted events carry
		// the observed price, not the one from before this snapshot.
		price := item.Price
		entry.LastKnownPrice = &price
		entry.PriceUpdatedAt = &now
		known[id] = entry
	}

	var disappeared []string
	for _, entry := range entries {
		if _, ok := seen[entry.CanonicalID]; ok {
			continue
		}
		report.MissingIDs = append(report.MissingIDs, entry.CanonicalID)
		if entry.Status != models.LedgerStatusMissing {
			disappeared = append(disappeared, entry.CanonicalID)
		}
	}

	if len(created) > 0 {
		if err := r.ledger.CreateBatch(ctx, created); err != nil {
			return nil, err
		}
		for _, entry := range created {
			if err := r.ledger.AddPricePoint(ctx, &models.PricePoint{
				CanonicalID: entry.CanonicalID,
				Price:       *entry.LastKnownPrice,
				RecordedAt:  now,
			}); err != nil {
				return nil, err
			}
		}
	}
	if len(activated) > 0 {
		if err := r.ledger.UpdateStatus(ctx, activated, models.LedgerStatusActive, now); err != nil {
			return nil, err
		}
	}
	if len(disappeared) > 0 {
		if err := r.ledger.UpdateStatus(ctx, disappeared, models.LedgerStatusMissing, now); err != nil {
			return nil, err
		}
	}

	r.emitTransitions(ctx, created, activated, disappeared, known, now)

	sort.Strings(report.NewIDs)
	sort.Strings(report.ContinuingIDs)
	sort.Strings(report.MissingIDs)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"new":        len(report.NewIDs),
		"continuing": len(report.ContinuingIDs),
		"missing":    len(report.MissingIDs),
	}).Info("Snapshot reconciled")

	return report, nil
}

// emitTransitions publishes lifecycle events for this snapshot. Entries are
// stamped with their post-transition status first; emission failures are
// logged and dropped, the ledger write already succeeded.
func (r *Reconciler) emitTransitions(ctx context.Context, created []*models.LedgerEntry, activated, disappeared []string, known map[string]models.LedgerEntry, now time.Time) {
	if r.emitter == nil {
		return
	}

	for _, entry := range created {
		if err := r.emitter.EmitProductDiscovered(ctx, entry); err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Dropped product.discovered event")
		}
	}
	for _, id := range activated {
		entry := known[id]
		entry.Status = models.LedgerStatusActive
		entry.StatusChangedAt = now
		if err := r.emitter.EmitProductActive(ctx, &entry); err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Dropped product.active event")
		}
	}
	for _, id := range disappeared {
		entry := known[id]
		entry.Status = models.LedgerStatusMissing
		entry.StatusChangedAt = now
		if err := r.emitter.EmitProductMissing(ctx, &entry); err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Dropped product.missing event")
		}
	}
}
