// Package oracle provides the external judgment and verification
// collaborators used to adjudicate ambiguous matches.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Judgment is the outcome of asking the judgment oracle to pick the best
// candidate for a reference name.
type Judgment struct {
	Matched   bool // false means the oracle rejected every candidate
	Index     int  // index into the candidate list, valid only when Matched
	Confident bool // false triggers visual verification
	Rationale string
}

// Verification is the outcome of comparing two product images
type Verification struct {
	Same      bool
	Rationale string
}

// Judge selects the best candidate among numbered titles, or none
type Judge interface {
	SelectCandidate(ctx context.Context, referenceName string, candidateNames []string) (Judgment, error)
}

// Verifier compares a reference image against a candidate image
type Verifier interface {
	CompareImages(ctx context.Context, referenceImageURL, candidateImageURL string) (Verification, error)
}

// QuotaError means the oracle's quota is exhausted. Not retryable within the
// run; the pipeline halts cleanly and a restart resumes past the last
// completed item.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("judgment quota exceeded: %v", e.Err)
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}

// TransientError covers timeouts and transport failures. Retryable a bounded
// number of times within the current item.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient judgment failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsQuota reports whether err is a quota exhaustion failure
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// quotaKeywords are the provider error-message fragments that signal quota
// exhaustion rather than a transient fault.
var quotaKeywords = []string{
	"quota",
	"rate limit",
	"too many requests",
	"exceeded",
	"resource exhausted",
	"429",
}

func classify(err error) error {
	// Timeouts stay transient even though their message contains "exceeded".
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range quotaKeywords {
		if strings.Contains(msg, kw) {
			return &QuotaError{Err: err}
		}
	}
	return &TransientError{Err: err}
}
