// Package pipeline drives a checkpointed matching run over reference items.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/tendril/pkg/attributes"
	tcontext "github.com/Ramsey-B/tendril/pkg/context"
	"github.com/Ramsey-B/tendril/pkg/events"
	"github.com/Ramsey-B/tendril/pkg/matching"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/oracle"
	"github.com/Ramsey-B/tendril/pkg/search"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// ResultStore persists match results and knows which references already
// have one
type ResultStore interface {
	Create(ctx context.Context, result *models.MatchResult) error
	ListRecordedReferenceIDs(ctx context.Context) (map[string]bool, error)
}

// ErrorStore records per-item failures for later inspection
type ErrorStore interface {
	Create(ctx context.Context, runErr *models.RunError) error
}

// Matcher adjudicates one reference item against its filtered candidates
type Matcher interface {
	Judge(ctx context.Context, ref models.ReferenceItem, candidates []models.ListingCandidate, stats *models.RunStats) (models.MatchResult, error)
}

// Config holds pipeline tunables
type Config struct {
	TopN int
}

// Pipeline processes reference items strictly sequentially, flushing one
// result row per item as soon as it is decided. References that already have
// a result are skipped, so an interrupted run resumes by rerunning it.
type Pipeline struct {
	search    search.Client
	matcher   Matcher
	extractor *attributes.Extractor
	filter    *matching.Filter
	results   ResultStore
	runErrors ErrorStore
	emitter   *events.Emitter
	topN      int
	logger    ectologger.Logger
}

// New creates a matching pipeline
func New(cfg Config, searchClient search.Client, matcher Matcher, extractor *attributes.Extractor, filter *matching.Filter, results ResultStore, runErrors ErrorStore, emitter *events.Emitter, logger ectologger.Logger) *Pipeline {
	topN := cfg.TopN
	if topN <= 0 {
		topN = 4
	}
	return &Pipeline{
		search:    searchClient,
		matcher:   matcher,
		extractor: extractor,
		filter:    filter,
		results:   results,
		runErrors: runErrors,
		emitter:   emitter,
		topN:      topN,
		logger:    logger,
	}
}

// Run executes one matching pass over refs. It returns a report even when the
// run halts early; the error is non-nil only for quota exhaustion or a failed
// flush, both of which leave the current item unrecorded so a rerun picks it
// up again.
func (p *Pipeline) Run(ctx context.Context, refs []models.ReferenceItem) (*models.RunReport, error) {
	runID := uuid.New().String()
	ctx = tcontext.SetRunID(ctx, runID)

	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	report := &models.RunReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}

	recorded, err := p.results.ListRecordedReferenceIDs(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"references": len(refs),
		"recorded":   len(recorded),
	}).Info("Matching run started")

	for _, ref := range refs {
		if ctx.Err() != nil {
			p.halt(ctx, report, "canceled")
			break
		}

		if recorded[ref.ID] {
			report.Stats.Skipped++
			continue
		}

		halted, err := p.processOne(ctx, ref, report)
		if err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
		if halted {
			break
		}
	}

	report.FinishedAt = time.Now().UTC()

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"processed":    report.Stats.Processed,
		"skipped":      report.Stats.Skipped,
		"matched_high": report.Stats.MatchedHigh,
		"needs_review": report.Stats.NeedsReview,
		"unmatched":    report.Stats.Unmatched,
		"halted":       report.Halted,
	}).Info("Matching run finished")

	return report, nil
}

// processOne resolves a single reference item and flushes its result. It
// reports halted=true when the run must stop cleanly, and a non-nil error
// only when the run cannot continue at all.
func (p *Pipeline) processOne(ctx context.Context, ref models.ReferenceItem, report *models.RunReport) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.processOne")
	defer span.End()

	ref.Attributes = p.extractor.Extract(ref.RawName, ref.ID)

	query := buildQuery(ref)
	report.Stats.SearchCalls++
	candidates, err := p.search.Search(ctx, query, p.topN)
	if err != nil {
		if ctx.Err() != nil {
			// A canceled search is not a search failure. The item stays
			// unrecorded so the next run retries it instead of skipping it.
			p.halt(ctx, report, "canceled")
			return true, nil
		}
		report.Stats.SearchFailures++
		p.recordError(ctx, report.RunID, ref.ID, models.RunErrorStageSearch, err)
		return false, p.flush(ctx, report, unmatched(ref, models.ReasonSearchFailed))
	}

	if len(candidates) == 0 {
		return false, p.flush(ctx, report, unmatched(ref, models.ReasonNoSearchResults))
	}

	for i := range candidates {
		candidates[i].Attributes = p.extractor.Extract(candidates[i].RawName, "")
	}

	filtered := p.filter.Apply(ref.Attributes, candidates)

	result, err := p.matcher.Judge(ctx, ref, filtered, &report.Stats)
	if err != nil {
		if oracle.IsQuota(err) {
			// Quota exhaustion halts without flushing: the item stays
			// unrecorded and the next run retries it.
			p.recordError(ctx, report.RunID, ref.ID, models.RunErrorStageJudgment, err)
			p.halt(ctx, report, "judgment quota exhausted")
			return true, nil
		}
		if ctx.Err() != nil {
			p.halt(ctx, report, "canceled")
			return true, nil
		}
		p.recordError(ctx, report.RunID, ref.ID, models.RunErrorStageJudgment, err)
		return false, err
	}

	return false, p.flush(ctx, report, result)
}

// flush persists one result row. A failed flush aborts the run, the item is
// retried on the next pass.
func (p *Pipeline) flush(ctx context.Context, report *models.RunReport, result models.MatchResult) error {
	result.RunID = report.RunID

	// The store stamps CreatedAt, so the emitted event reads it back from
	// the flushed row.
	if err := p.results.Create(ctx, &result); err != nil {
		p.recordError(ctx, report.RunID, result.ReferenceID, models.RunErrorStageFlush, err)
		return err
	}

	report.Stats.Processed++
	switch {
	case !result.Matched():
		report.Stats.Unmatched++
	case result.Confidence == models.ConfidenceHigh:
		report.Stats.MatchedHigh++
	default:
		report.Stats.NeedsReview++
	}

	if p.emitter != nil {
		if err := p.emitter.EmitMatchRecorded(ctx, &result); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Dropped match.recorded event")
		}
	}

	return nil
}

func (p *Pipeline) halt(ctx context.Context, report *models.RunReport, reason string) {
	report.Halted = true
	report.HaltReason = reason
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"reason": reason,
	}).Warn("Matching run halted")
}

func (p *Pipeline) recordError(ctx context.Context, runID, referenceID, stage string, cause error) {
	runErr := &models.RunError{
		RunID:       runID,
		ReferenceID: referenceID,
		Stage:       stage,
		Message:     cause.Error(),
	}
	if err := p.runErrors.Create(ctx, runErr); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"reference_id": referenceID,
			"stage":        stage,
		}).Warn("Failed to record run error")
	}
}

// buildQuery prepends the extracted brand when the raw name does not already
// mention it, which sharpens recall for listings that lead with the brand.
func buildQuery(ref models.ReferenceItem) string {
	if ref.Attributes.Brand == nil {
		return ref.RawName
	}
	brand := *ref.Attributes.Brand
	if strings.Contains(strings.ToLower(ref.RawName), strings.ToLower(brand)) {
		return ref.RawName
	}
	return brand + " " + ref.RawName
}

func unmatched(ref models.ReferenceItem, reason string) models.MatchResult {
	return models.MatchResult{
		ID:            uuid.New().String(),
		ReferenceID:   ref.ID,
		ReferenceName: ref.RawName,
		Confidence:    models.ConfidenceNeedsReview,
		Reason:        reason,
	}
}
