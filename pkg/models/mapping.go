package models

import (
	"time"

	"github.com/Ramsey-B/tendril/pkg/database"
)

// IdentifierMapping collapses every raw id whose name normalizes to the same
// string onto a single canonical id. Rebuilt as a batch from the full ledger.
type IdentifierMapping struct {
	NormalizedName  string                   `json:"normalized_name" db:"normalized_name"`
	CanonicalID     string                   `json:"canonical_id" db:"canonical_id"`
	OriginalName    string                   `json:"original_name" db:"original_name"`
	MemberIDs       database.JSONB[[]string] `json:"member_ids" db:"member_ids"`
	OccurrenceCount int                      `json:"occurrence_count" db:"occurrence_count"`
	FirstSeenAt     time.Time                `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt      time.Time                `json:"last_seen_at" db:"last_seen_at"`
}
