package models

import (
	"time"

	"github.com/Ramsey-B/tendril/pkg/database"
)

// LedgerStatus is the lifecycle state of a catalog product in the ledger
type LedgerStatus string

const (
	LedgerStatusNew     LedgerStatus = "new"     // discovered in the most recent snapshot, never reconciled before
	LedgerStatusActive  LedgerStatus = "active"  // present in consecutive snapshots
	LedgerStatusMissing LedgerStatus = "missing" // absent from the latest snapshot; rows are never deleted
)

// LedgerEntry is the long-lived record for one canonical product. Created on
// first discovery and mutated by every reconciliation pass thereafter.
type LedgerEntry struct {
	CanonicalID        string                   `json:"canonical_id" db:"canonical_id"`
	DisplayName        string                   `json:"display_name" db:"display_name"`
	RawIDs             database.JSONB[[]string] `json:"raw_ids" db:"raw_ids"`
	Status             LedgerStatus             `json:"status" db:"status"`
	StatusChangedAt    time.Time                `json:"status_changed_at" db:"status_changed_at"`
	LastStatusChangeAt time.Time                `json:"last_status_change_at" db:"last_status_change_at"`
	LastKnownPrice     *int64                   `json:"last_known_price,omitempty" db:"last_known_price"`
	PriceUpdatedAt     *time.Time               `json:"price_updated_at,omitempty" db:"price_updated_at"`
	FirstSeenAt        time.Time                `json:"first_seen_at" db:"first_seen_at"`
	CreatedAt          time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at" db:"updated_at"`
}

// PricePoint is one observed price for a canonical product
type PricePoint struct {
	ID          string    `json:"id" db:"id"`
	CanonicalID string    `json:"canonical_id" db:"canonical_id"`
	Price       int64     `json:"price" db:"price"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
}

// ReconcileReport summarizes one reconciliation pass over a fresh snapshot
type ReconcileReport struct {
	NewIDs        []string `json:"new_ids"`
	ContinuingIDs []string `json:"continuing_ids"`
	MissingIDs    []string `json:"missing_ids"`
}
