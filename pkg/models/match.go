package models

import "time"

// Confidence is the tier assigned to a match result
type Confidence string

const (
	ConfidenceHigh        Confidence = "high"         // brand-consistent match
	ConfidenceNeedsReview Confidence = "needs_review" // best-effort match lacking brand confirmation
)

// Match result reasons for rows that carry no matched candidate
const (
	ReasonNoSearchResults   = "no search results"
	ReasonNoAttributeMatch  = "no attribute match"
	ReasonSearchFailed      = "search failed"
	ReasonJudgmentRejected  = "judgment rejected all candidates"
	ReasonVerificationMiss  = "visual verification rejected candidate"
	ReasonJudgmentFailed    = "judgment unavailable"
)

// MatchResult is the persisted outcome of resolving one reference item in one
// run. Exactly one row is written per reference item, matched or not.
type MatchResult struct {
	ID              string     `json:"id" db:"id"`
	RunID           string     `json:"run_id" db:"run_id"`
	ReferenceID     string     `json:"reference_id" db:"reference_id"`
	ReferenceName   string     `json:"reference_name" db:"reference_name"`
	MatchedSourceID *string    `json:"matched_source_id,omitempty" db:"matched_source_id"`
	MatchedName     *string    `json:"matched_name,omitempty" db:"matched_name"`
	MatchedPrice    *int64     `json:"matched_price,omitempty" db:"matched_price"`
	MatchedURL      *string    `json:"matched_url,omitempty" db:"matched_url"`
	Confidence      Confidence `json:"confidence" db:"confidence"`
	Reason          string     `json:"reason" db:"reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Matched reports whether the result carries a selected candidate.
func (m *MatchResult) Matched() bool {
	return m.MatchedSourceID != nil
}
