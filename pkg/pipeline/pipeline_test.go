package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tendril/pkg/attributes"
	"github.com/Ramsey-B/tendril/pkg/matching"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/oracle"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

type fakeSearch struct {
	candidates map[string][]models.ListingCandidate
	failures   map[string]error
	calls      int
}

func (f *fakeSearch) Search(ctx context.Context, query string, topN int) ([]models.ListingCandidate, error) {
	f.calls++
	if err, ok := f.failures[query]; ok {
		return nil, err
	}
	return f.candidates[query], nil
}

type judgeScript struct {
	result models.MatchResult
	err    error
}

type fakeMatcher struct {
	scripts map[string]judgeScript
	calls   int
}

func (f *fakeMatcher) Judge(ctx context.Context, ref models.ReferenceItem, candidates []models.ListingCandidate, stats *models.RunStats) (models.MatchResult, error) {
	f.calls++
	script, ok := f.scripts[ref.ID]
	if !ok {
		return models.MatchResult{
			ID:            "result-" + ref.ID,
			ReferenceID:   ref.ID,
			ReferenceName: ref.RawName,
			Confidence:    models.ConfidenceNeedsReview,
			Reason:        models.ReasonNoAttributeMatch,
		}, nil
	}
	return script.result, script.err
}

type fakeResultStore struct {
	results   map[string]models.MatchResult
	createErr error
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[string]models.MatchResult)}
}

func (f *fakeResultStore) Create(ctx context.Context, result *models.MatchResult) error {
	if f.createErr != nil {
		return f.createErr
	}
	// The store owns the created_at stamp, same as the real repository.
	result.CreatedAt = time.Now().UTC()
	f.results[result.ReferenceID] = *result
	return nil
}

func (f *fakeResultStore) ListRecordedReferenceIDs(ctx context.Context) (map[string]bool, error) {
	recorded := make(map[string]bool, len(f.results))
	for id := range f.results {
		recorded[id] = true
	}
	return recorded, nil
}

type fakeErrorStore struct {
	errors []models.RunError
}

func (f *fakeErrorStore) Create(ctx context.Context, runErr *models.RunError) error {
	f.errors = append(f.errors, *runErr)
	return nil
}

func matchedResult(refID, sourceID string, confidence models.Confidence) models.MatchResult {
	return models.MatchResult{
		ID:              "result-" + refID,
		ReferenceID:     refID,
		ReferenceName:   "product " + refID,
		MatchedSourceID: &sourceID,
		Confidence:      confidence,
		Reason:          "count and quantity match",
	}
}

// refs with unknown identifier prefixes and no brand tokens keep the search
// query equal to the raw name.
func references(ids ...string) []models.ReferenceItem {
	refs := make([]models.ReferenceItem, len(ids))
	for i, id := range ids {
		refs[i] = models.ReferenceItem{ID: id, RawName: "product " + id}
	}
	return refs
}

func candidateFor(id string) []models.ListingCandidate {
	return []models.ListingCandidate{
		{SourceID: "listing-" + id, RawName: "product " + id, Price: 10000, FinalPrice: 10000, Rank: 1},
	}
}

func newPipeline(search *fakeSearch, matcher *fakeMatcher, results *fakeResultStore, runErrors *fakeErrorStore) *Pipeline {
	return New(Config{TopN: 4}, search, matcher, attributes.NewExtractor(), matching.NewFilter(), results, runErrors, nil, testLogger())
}

func TestPipelineRunFlushesEveryItem(t *testing.T) {
	search := &fakeSearch{candidates: map[string][]models.ListingCandidate{
		"product X1": candidateFor("X1"),
		"product X2": candidateFor("X2"),
	}}
	matcher := &fakeMatcher{scripts: map[string]judgeScript{
		"X1": {result: matchedResult("X1", "listing-X1", models.ConfidenceHigh)},
		"X2": {result: matchedResult("X2", "listing-X2", models.ConfidenceNeedsReview)},
	}}
	results := newFakeResultStore()
	runErrors := &fakeErrorStore{}

	report, err := newPipeline(search, matcher, results, runErrors).Run(context.Background(), references("X1", "X2"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stats.Processed)
	assert.Equal(t, 1, report.Stats.MatchedHigh)
	assert.Equal(t, 1, report.Stats.NeedsReview)
	assert.Equal(t, 2, report.Stats.SearchCalls)
	assert.False(t, report.Halted)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, results.results, 2)
	for _, result := range results.results {
		assert.Equal(t, report.RunID, result.RunID, "flushed rows carry the run id")
		assert.False(t, result.CreatedAt.IsZero())
	}
	assert.Empty(t, runErrors.errors)
}

func TestPipelineQuotaHaltsWithoutFlushingCurrentItem(t *testing.T) {
	search := &fakeSearch{candidates: map[string][]models.ListingCandidate{
		"product X1": candidateFor("X1"),
		"product X2": candidateFor("X2"),
		"product X3": candidateFor("X3"),
	}}
	matcher := &fakeMatcher{scripts: map[string]judgeScript{
		"X1": {result: matchedResult("X1", "listing-X1", models.ConfidenceHigh)},
		"X2": {err: &oracle.QuotaError{Err: errors.New("429 too many requests")}},
	}}
	results := newFakeResultStore()
	runErrors := &fakeErrorStore{}

	report, err := newPipeline(search, matcher, results, runErrors).Run(context.Background(), references("X1", "X2", "X3"))
	require.NoError(t, err)

	assert.True(t, report.Halted)
	assert.Equal(t, "judgment quota exhausted", report.HaltReason)
	assert.Equal(t, 1, report.Stats.Processed)

	// The quota item stays unrecorded and X3 was never reached.
	assert.Contains(t, results.results, "X1")
	assert.NotContains(t, results.results, "X2")
	assert.NotContains(t, results.results, "X3")

	require.Len(t, runErrors.errors, 1)
	assert.Equal(t, models.RunErrorStageJudgment, runErrors.errors[0].Stage)
	assert.Equal(t, "X2", runErrors.errors[0].ReferenceID)
}

func TestPipelineResumesAfterHalt(t *testing.T) {
	search := &fakeSearch{candidates: map[string][]models.ListingCandidate{
		"product X1": candidateFor("X1"),
		"product X2": candidateFor("X2"),
		"product X3": candidateFor("X3"),
	}}
	results := newFakeResultStore()
	runErrors := &fakeErrorStore{}

	// First run dies on quota at X2.
	halting := &fakeMatcher{scripts: map[string]judgeScript{
		"X1": {result: matchedResult("X1", "listing-X1", models.ConfidenceHigh)},
		"X2": {err: &oracle.QuotaError{Err: errors.New("quota exceeded")}},
	}}
	report, err := newPipeline(search, halting, results, runErrors).Run(context.Background(), references("X1", "X2", "X3"))
	require.NoError(t, err)
	require.True(t, report.Halted)
	require.Len(t, results.results, 1)

	// Rerun with quota restored: X1 is skipped, X2 and X3 complete.
	recovered := &fakeMatcher{scripts: map[string]judgeScript{
		"X2": {result: matchedResult("X2", "listing-X2", models.ConfidenceHigh)},
		"X3": {result: matchedResult("X3", "listing-X3", models.ConfidenceNeedsReview)},
	}}
	report, err = newPipeline(search, recovered, results, runErrors).Run(context.Background(), references("X1", "X2", "X3"))
	require.NoError(t, err)

	assert.False(t, report.Halted)
	assert.Equal(t, 1, report.Stats.Skipped)
	assert.Equal(t, 2, report.Stats.Processed)
	assert.Len(t, results.results, 3, "one row per reference, no duplicates")
}

func TestPipelineSearchFailureRecordsAndContinues(t *testing.T) {
	search := &fakeSearch{
		candidates: map[string][]models.ListingCandidate{
			"product X2": candidateFor("X2"),
		},
		failures: map[string]error{
			"product X1": errors.New("search returned status 500"),
		},
	}
	matcher := &fakeMatcher{scripts: map[string]judgeScript{
		"X2": {result: matchedResult("X2", "listing-X2", models.ConfidenceHigh)},
	}}
	results := newFakeResultStore()
	runErrors := &fakeErrorStore{}

	report, err := newPipeline(search, matcher, results, runErrors).Run(context.Background(), references("X1", "X2"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stats.Processed)
	assert.Equal(t, 1, report.Stats.SearchFailures)
	assert.Equal(t, 1, report.Stats.Unmatched)

	failed := results.results["X1"]
	assert.False(t, failed.Matched())
	assert.Equal(t, models.ReasonSearchFailed, failed.Reason)

	require.Len(t, runErrors.errors, 1)
	assert.Equal(t, models.RunErrorStageSearch, runErrors.errors[0].Stage)
}

func TestPipelineNoSearchResults(t *testing.T) {
	search := &fakeSearch{}
	matcher := &fakeMatcher{}
	results := newFakeResultStore()

	report, err := newPipeline(search, matcher, results, &fakeErrorStore{}).Run(context.Background(), references("X1"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.Unmatched)
	assert.Equal(t, models.ReasonNoSearchResults, results.results["X1"].Reason)
	assert.Equal(t, 0, matcher.calls, "empty search result never reaches the judge")
}

func TestPipelineCancelledContextHalts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	search := &fakeSearch{}
	results := newFakeResultStore()

	report, err := newPipeline(search, &fakeMatcher{}, results, &fakeErrorStore{}).Run(ctx, references("X1", "X2"))
	require.NoError(t, err)

	assert.True(t, report.Halted)
	assert.Equal(t, "canceled", report.HaltReason)
	assert.Equal(t, 0, report.Stats.Processed)
	assert.Equal(t, 0, search.calls)
}

// cancellingSearch pulls the plug mid-call, the way an interrupt lands while
// the rate limiter or a retry backoff is waiting.
type cancellingSearch struct {
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingSearch) Search(ctx context.Context, query string, topN int) ([]models.ListingCandidate, error) {
	s.calls++
	s.cancel()
	return nil, ctx.Err()
}

func TestPipelineCancelDuringSearchLeavesItemUnrecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	search := &cancellingSearch{cancel: cancel}
	results := newFakeResultStore()
	runErrors := &fakeErrorStore{}

	p := New(Config{TopN: 4}, search, &fakeMatcher{}, attributes.NewExtractor(), matching.NewFilter(), results, runErrors, nil, testLogger())
	report, err := p.Run(ctx, references("X1", "X2"))
	require.NoError(t, err)

	assert.True(t, report.Halted)
	assert.Equal(t, "canceled", report.HaltReason)
	assert.Equal(t, 0, report.Stats.Processed)
	assert.Equal(t, 0, report.Stats.SearchFailures, "an interrupt is not a search failure")
	assert.Empty(t, results.results, "the interrupted item must stay unrecorded")
	assert.Equal(t, 1, search.calls, "the run stops before the next item")

	// With the interruption gone, a rerun picks the item up instead of
	// skipping it.
	restored := &fakeSearch{candidates: map[string][]models.ListingCandidate{
		"product X1": candidateFor("X1"),
		"product X2": candidateFor("X2"),
	}}
	matcher := &fakeMatcher{scripts: map[string]judgeScript{
		"X1": {result: matchedResult("X1", "listing-X1", models.ConfidenceHigh)},
		"X2": {result: matchedResult("X2", "listing-X2", models.ConfidenceHigh)},
	}}
	report, err = newPipeline(restored, matcher, results, runErrors).Run(context.Background(), references("X1", "X2"))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Stats.Skipped)
	assert.Equal(t, 2, report.Stats.Processed)
	assert.Len(t, results.results, 2)
}

type cancellingMatcher struct {
	cancel context.CancelFunc
}

func (m *cancellingMatcher) Judge(ctx context.Context, ref models.ReferenceItem, candidates []models.ListingCandidate, stats *models.RunStats) (models.MatchResult, error) {
	m.cancel()
	return models.MatchResult{}, ctx.Err()
}

func TestPipelineCancelDuringJudgmentHaltsWithoutFlushing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	search := &fakeSearch{candidates: map[string][]models.ListingCandidate{
		"product X1": candidateFor("X1"),
	}}
	results := newFakeResultStore()
	runErrors := &fakeErrorStore{}

	p := New(Config{TopN: 4}, search, &cancellingMatcher{cancel: cancel}, attributes.NewExtractor(), matching.NewFilter(), results, runErrors, nil, testLogger())
	report, err := p.Run(ctx, references("X1"))
	require.NoError(t, err)

	assert.True(t, report.Halted)
	assert.Equal(t, "canceled", report.HaltReason)
	assert.Empty(t, results.results, "the interrupted item must stay unrecorded")
}

func TestPipelineFlushFailureAborts(t *testing.T) {
	search := &fakeSearch{candidates: map[string][]models.ListingCandidate{
		"product X1": candidateFor("X1"),
	}}
	matcher := &fakeMatcher{scripts: map[string]judgeScript{
		"X1": {result: matchedResult("X1", "listing-X1", models.ConfidenceHigh)},
	}}
	results := newFakeResultStore()
	results.createErr = errors.New("connection refused")
	runErrors := &fakeErrorStore{}

	_, err := newPipeline(search, matcher, results, runErrors).Run(context.Background(), references("X1"))
	require.Error(t, err)

	require.Len(t, runErrors.errors, 1)
	assert.Equal(t, models.RunErrorStageFlush, runErrors.errors[0].Stage)
}
