package models

import "time"

// RunStats counts external calls and outcomes for one pipeline run. Carried
// explicitly on the run, never in package-level state.
type RunStats struct {
	Processed         int `json:"processed"`
	Skipped           int `json:"skipped"`
	MatchedHigh       int `json:"matched_high"`
	NeedsReview       int `json:"needs_review"`
	Unmatched         int `json:"unmatched"`
	SearchCalls       int `json:"search_calls"`
	SearchFailures    int `json:"search_failures"`
	JudgmentCalls     int `json:"judgment_calls"`
	VerificationCalls int `json:"verification_calls"`
}

// RunReport is the summary returned by a completed (or halted) pipeline run
type RunReport struct {
	RunID      string    `json:"run_id"`
	Stats      RunStats  `json:"stats"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Halted     bool      `json:"halted"`
	HaltReason string    `json:"halt_reason,omitempty"`
}

// RunError records a per-item failure that did not abort the run
type RunError struct {
	ID          string    `json:"id" db:"id"`
	RunID       string    `json:"run_id" db:"run_id"`
	ReferenceID string    `json:"reference_id" db:"reference_id"`
	Stage       string    `json:"stage" db:"stage"`
	Message     string    `json:"message" db:"message"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Run error stages
const (
	RunErrorStageSearch       = "search"
	RunErrorStageJudgment     = "judgment"
	RunErrorStageVerification = "verification"
	RunErrorStageFlush        = "flush"
)
