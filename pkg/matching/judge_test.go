package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/oracle"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

type fakeOracle struct {
	judgment oracle.Judgment
	err      error
	calls    int
}

func (f *fakeOracle) SelectCandidate(ctx context.Context, referenceName string, candidateNames []string) (oracle.Judgment, error) {
	f.calls++
	return f.judgment, f.err
}

type fakeVerifier struct {
	verification oracle.Verification
	err          error
	calls        int
}

func (f *fakeVerifier) CompareImages(ctx context.Context, refURL, candURL string) (oracle.Verification, error) {
	f.calls++
	return f.verification, f.err
}

func strPtr(s string) *string {
	return &s
}

func referenceItem() models.ReferenceItem {
	return models.ReferenceItem{
		ID:       "DRB00087",
		RawName:  "닥터스베스트 고흡수 마그네슘 120정",
		ImageURL: "https://img.example.com/ref.jpg",
		Attributes: models.ProductAttributes{
			Brand:        strPtr("닥터스베스트"),
			PackageCount: intPtr(120),
		},
	}
}

func TestJudgeTextualBrandMatchWinsOverCheaper(t *testing.T) {
	j := NewJudge(nil, nil, 0, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "generic", RawName: "고흡수 마그네슘 120정", FinalPrice: 10000},
		{
			SourceID:   "branded",
			RawName:    "닥터스베스트 고흡수 마그네슘 120정",
			FinalPrice: 15000,
			Attributes: models.ProductAttributes{Brand: strPtr("닥터스베스트")},
		},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	// The branded candidate wins even though the generic one is cheaper.
	require.NotNil(t, result.MatchedSourceID)
	assert.Equal(t, "branded", *result.MatchedSourceID)
	assert.Equal(t, models.ConfidenceHigh, result.Confidence)
	assert.Contains(t, result.Reason, "brand match")
}

func TestJudgeTextualNoBrandMatchNeedsReview(t *testing.T) {
	j := NewJudge(nil, nil, 0, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘 120정", FinalPrice: 12000},
		{SourceID: "b", RawName: "마그네슘 120정 특가", FinalPrice: 9000},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	require.NotNil(t, result.MatchedSourceID)
	assert.Equal(t, "b", *result.MatchedSourceID)
	assert.Equal(t, models.ConfidenceNeedsReview, result.Confidence)
}

func TestJudgeTextualTieBreakIsFirstEncountered(t *testing.T) {
	j := NewJudge(nil, nil, 0, testLogger())

	candidates := []models.ListingCandidate{
		{SourceID: "first", FinalPrice: 9000},
		{SourceID: "second", FinalPrice: 9000},
	}

	for i := 0; i < 5; i++ {
		result, err := j.Judge(context.Background(), referenceItem(), candidates, &models.RunStats{})
		require.NoError(t, err)
		require.NotNil(t, result.MatchedSourceID)
		assert.Equal(t, "first", *result.MatchedSourceID)
	}
}

func TestJudgeTextualZeroPriceSortsLast(t *testing.T) {
	j := NewJudge(nil, nil, 0, testLogger())

	candidates := []models.ListingCandidate{
		{SourceID: "free", FinalPrice: 0},
		{SourceID: "paid", FinalPrice: 25000},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, &models.RunStats{})
	require.NoError(t, err)
	require.NotNil(t, result.MatchedSourceID)
	assert.Equal(t, "paid", *result.MatchedSourceID)
}

func TestJudgeEmptyCandidates(t *testing.T) {
	j := NewJudge(nil, nil, 0, testLogger())

	result, err := j.Judge(context.Background(), referenceItem(), nil, &models.RunStats{})
	require.NoError(t, err)

	assert.False(t, result.Matched())
	assert.Equal(t, models.ReasonNoAttributeMatch, result.Reason)
	assert.Equal(t, models.ConfidenceNeedsReview, result.Confidence)
}

func TestJudgeOracleRejectsAll(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: false}}
	j := NewJudge(fo, nil, 0, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	assert.False(t, result.Matched())
	assert.Equal(t, models.ReasonJudgmentRejected, result.Reason)
	assert.Equal(t, 1, stats.JudgmentCalls)
}

func TestJudgeOracleConfidentPick(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: true, Index: 1, Confident: true}}
	fv := &fakeVerifier{}
	j := NewJudge(fo, fv, 0, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000, ImageURL: "https://img/a.jpg"},
		{
			SourceID:   "b",
			RawName:    "닥터스베스트 마그네슘",
			FinalPrice: 12000,
			ImageURL:   "https://img/b.jpg",
			Attributes: models.ProductAttributes{Brand: strPtr("닥터스베스트")},
		},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	require.NotNil(t, result.MatchedSourceID)
	assert.Equal(t, "b", *result.MatchedSourceID)
	assert.Equal(t, models.ConfidenceHigh, result.Confidence)
	// Confident pick never escalates to verification.
	assert.Equal(t, 0, fv.calls)
	assert.Equal(t, 0, stats.VerificationCalls)
}

func TestJudgeOracleConfidentPickWithoutBrandStaysNeedsReview(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: true, Index: 0, Confident: true}}
	j := NewJudge(fo, nil, 0, testLogger())

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, &models.RunStats{})
	require.NoError(t, err)

	// Oracle confidence never upgrades the tier past what the brand check
	// supports.
	assert.Equal(t, models.ConfidenceNeedsReview, result.Confidence)
}

func TestJudgeUncertainPickVerified(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: true, Index: 0, Confident: false}}
	fv := &fakeVerifier{verification: oracle.Verification{Same: true}}
	j := NewJudge(fo, fv, 0, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000, ImageURL: "https://img/a.jpg"},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	require.NotNil(t, result.MatchedSourceID)
	assert.Contains(t, result.Reason, "visual verification")
	assert.Equal(t, 1, fv.calls)
	assert.Equal(t, 1, stats.VerificationCalls)
}

func TestJudgeUncertainPickVerificationMiss(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: true, Index: 0, Confident: false}}
	fv := &fakeVerifier{verification: oracle.Verification{Same: false}}
	j := NewJudge(fo, fv, 0, testLogger())

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000, ImageURL: "https://img/a.jpg"},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, &models.RunStats{})
	require.NoError(t, err)

	assert.False(t, result.Matched())
	assert.Equal(t, models.ReasonVerificationMiss, result.Reason)
}

func TestJudgeUncertainPickWithoutImagesSkipsVerification(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: true, Index: 0, Confident: false}}
	fv := &fakeVerifier{verification: oracle.Verification{Same: false}}
	j := NewJudge(fo, fv, 0, testLogger())
	stats := &models.RunStats{}

	// Candidate has no image, so the mismatching verifier is never consulted.
	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	assert.True(t, result.Matched())
	assert.Equal(t, 0, fv.calls)
}

func TestJudgeVerifierErrorKeepsTextJudgment(t *testing.T) {
	fo := &fakeOracle{judgment: oracle.Judgment{Matched: true, Index: 0, Confident: false}}
	fv := &fakeVerifier{err: errors.New("download failed")}
	j := NewJudge(fo, fv, 0, testLogger())

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000, ImageURL: "https://img/a.jpg"},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, &models.RunStats{})
	require.NoError(t, err)
	assert.True(t, result.Matched())
}

func TestJudgeQuotaErrorPropagates(t *testing.T) {
	fo := &fakeOracle{err: &oracle.QuotaError{Err: errors.New("429 too many requests")}}
	j := NewJudge(fo, nil, 3, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000},
	}

	_, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.Error(t, err)
	assert.True(t, oracle.IsQuota(err))
	// Quota errors are never retried.
	assert.Equal(t, 1, fo.calls)
}

func TestJudgeTransientExhaustionDowngrades(t *testing.T) {
	fo := &fakeOracle{err: &oracle.TransientError{Err: errors.New("timeout")}}
	j := NewJudge(fo, nil, 0, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{
			SourceID:   "branded",
			RawName:    "닥터스베스트 마그네슘 120정",
			FinalPrice: 15000,
			Attributes: models.ProductAttributes{Brand: strPtr("닥터스베스트")},
		},
	}

	result, err := j.Judge(context.Background(), referenceItem(), candidates, stats)
	require.NoError(t, err)

	// The textual pick survives but can no longer be High.
	require.NotNil(t, result.MatchedSourceID)
	assert.Equal(t, "branded", *result.MatchedSourceID)
	assert.Equal(t, models.ConfidenceNeedsReview, result.Confidence)
	assert.Equal(t, models.ReasonJudgmentFailed, result.Reason)
	assert.Equal(t, 1, stats.JudgmentCalls)
}

func TestJudgeCancellationPropagatesInsteadOfDowngrading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fo := &fakeOracle{err: &oracle.TransientError{Err: context.Canceled}}
	j := NewJudge(fo, nil, 3, testLogger())
	stats := &models.RunStats{}

	candidates := []models.ListingCandidate{
		{SourceID: "a", RawName: "마그네슘", FinalPrice: 9000},
	}

	// An interrupt must surface as an error, not as a flushed downgrade.
	_, err := j.Judge(ctx, referenceItem(), candidates, stats)
	require.Error(t, err)
	assert.False(t, oracle.IsQuota(err))
}
