package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/oracle"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Judge selects the best surviving candidate for a reference item and
// assigns the confidence tier. When a judgment oracle is configured it
// adjudicates the pick, escalating to visual verification when it is not
// confident; external calls are bounded to at most one judgment call and one
// verification call per item.
type Judge struct {
	oracle   oracle.Judge
	verifier oracle.Verifier
	retries  int
	logger   ectologger.Logger
}

// NewJudge creates a match judge. Both oracles are optional; with neither,
// selection is purely attribute and price based.
func NewJudge(judgmentOracle oracle.Judge, verifier oracle.Verifier, retries int, logger ectologger.Logger) *Judge {
	if retries < 0 {
		retries = 0
	}
	return &Judge{
		oracle:   judgmentOracle,
		verifier: verifier,
		retries:  retries,
		logger:   logger,
	}
}

// Judge resolves one reference item against its filtered candidates. The
// returned error is non-nil only on quota exhaustion or cancellation, both
// of which the pipeline treats as a clean halt.
func (j *Judge) Judge(ctx context.Context, ref models.ReferenceItem, candidates []models.ListingCandidate, stats *models.RunStats) (models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Judge.Judge")
	defer span.End()

	if len(candidates) == 0 {
		return j.unmatched(ref, models.ReasonNoAttributeMatch), nil
	}

	brandMatched := j.partitionByBrand(ref, candidates)

	var textual models.MatchResult
	if len(brandMatched) > 0 {
		selected := cheapest(brandMatched)
		reason := matchReason(ref, selected) + fmt.Sprintf(", brand match (%s)", *ref.Attributes.Brand)
		textual = j.matched(ref, selected, models.ConfidenceHigh, reason)
	} else {
		selected := cheapest(candidates)
		textual = j.matched(ref, selected, models.ConfidenceNeedsReview, matchReason(ref, selected))
	}

	if j.oracle == nil {
		return textual, nil
	}

	judgment, err := j.selectWithRetries(ctx, ref, candidates, stats)
	if err != nil {
		if oracle.IsQuota(err) || ctx.Err() != nil {
			return models.MatchResult{}, err
		}

		// Transient failures exhausted the retry budget: keep the textual
		// pick but never report it as High.
		j.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"reference_id": ref.ID,
		}).Warn("Judgment oracle unavailable, downgrading textual pick")

		textual.Confidence = models.ConfidenceNeedsReview
		textual.Reason = models.ReasonJudgmentFailed
		return textual, nil
	}

	if !judgment.Matched {
		return j.unmatched(ref, models.ReasonJudgmentRejected), nil
	}

	selected := candidates[judgment.Index]
	confidence := models.ConfidenceNeedsReview
	if j.brandMatches(ref, selected) {
		confidence = models.ConfidenceHigh
	}
	reason := matchReason(ref, selected) + ", confirmed by judgment oracle"

	if judgment.Confident {
		return j.matched(ref, selected, confidence, reason), nil
	}

	// The oracle picked a candidate but is not confident: escalate to visual
	// verification when both sides have an image. An unavailable image or a
	// failed comparison confirms the textual pick.
	if j.verifier == nil || ref.ImageURL == "" || selected.ImageURL == "" {
		return j.matched(ref, selected, confidence, reason), nil
	}

	stats.VerificationCalls++
	verification, err := j.verifier.CompareImages(ctx, ref.ImageURL, selected.ImageURL)
	if err != nil {
		j.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"reference_id": ref.ID,
		}).Warn("Visual verification failed, keeping text judgment")
		return j.matched(ref, selected, confidence, reason), nil
	}

	if !verification.Same {
		return j.unmatched(ref, models.ReasonVerificationMiss), nil
	}

	return j.matched(ref, selected, confidence, reason+", confirmed by visual verification"), nil
}

func (j *Judge) selectWithRetries(ctx context.Context, ref models.ReferenceItem, candidates []models.ListingCandidate, stats *models.RunStats) (oracle.Judgment, error) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.RawName
	}

	var lastErr error
	for attempt := 0; attempt <= j.retries; attempt++ {
		stats.JudgmentCalls++
		judgment, err := j.oracle.SelectCandidate(ctx, ref.RawName, names)
		if err == nil {
			return judgment, nil
		}
		if oracle.IsQuota(err) {
			return oracle.Judgment{}, err
		}
		lastErr = err

		if attempt == j.retries {
			break
		}

		select {
		case <-ctx.Done():
			return oracle.Judgment{}, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}

	return oracle.Judgment{}, lastErr
}

func (j *Judge) partitionByBrand(ref models.ReferenceItem, candidates []models.ListingCandidate) []models.ListingCandidate {
	var brandMatched []models.ListingCandidate
	for _, candidate := range candidates {
		if j.brandMatches(ref, candidate) {
			brandMatched = append(brandMatched, candidate)
		}
	}
	return brandMatched
}

func (j *Judge) brandMatches(ref models.ReferenceItem, candidate models.ListingCandidate) bool {
	return ref.Attributes.Brand != nil &&
		candidate.Attributes.Brand != nil &&
		*ref.Attributes.Brand == *candidate.Attributes.Brand
}

func (j *Judge) matched(ref models.ReferenceItem, candidate models.ListingCandidate, confidence models.Confidence, reason string) models.MatchResult {
	return models.MatchResult{
		ID:              uuid.New().String(),
		ReferenceID:     ref.ID,
		ReferenceName:   ref.RawName,
		MatchedSourceID: &candidate.SourceID,
		MatchedName:     &candidate.RawName,
		MatchedPrice:    &candidate.FinalPrice,
		MatchedURL:      &candidate.URL,
		Confidence:      confidence,
		Reason:          reason,
	}
}

func (j *Judge) unmatched(ref models.ReferenceItem, reason string) models.MatchResult {
	return models.MatchResult{
		ID:            uuid.New().String(),
		ReferenceID:   ref.ID,
		ReferenceName: ref.RawName,
		Confidence:    models.ConfidenceNeedsReview,
		Reason:        reason,
	}
}

// cheapest returns the candidate with the lowest final price. Zero and
// negative prices sort last, and the first encountered wins ties so the
// selection is deterministic.
func cheapest(candidates []models.ListingCandidate) models.ListingCandidate {
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if priceKey(candidate.FinalPrice) < priceKey(best.FinalPrice) {
			best = candidate
		}
	}
	return best
}

func priceKey(price int64) int64 {
	if price <= 0 {
		return int64(1) << 62
	}
	return price
}

func matchReason(ref models.ReferenceItem, candidate models.ListingCandidate) string {
	count := "?"
	if ref.Attributes.PackageCount != nil {
		count = fmt.Sprintf("%d", *ref.Attributes.PackageCount)
	}

	reason := fmt.Sprintf("count and quantity match (%s x %d), price %d", count, ref.Attributes.QuantityOrDefault(), candidate.FinalPrice)
	if candidate.ShippingFee > 0 {
		reason += fmt.Sprintf(" (item %d + shipping %d)", candidate.Price, candidate.ShippingFee)
	}
	return reason
}
