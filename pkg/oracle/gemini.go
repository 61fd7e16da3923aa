package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// GeminiOracle implements both the judgment and verification oracles on top
// of the Gemini API. Text selection and image comparison share one client.
type GeminiOracle struct {
	client *genai.Client
	model  string
	http   *resty.Client
	logger ectologger.Logger
}

// NewGeminiOracle creates a Gemini-backed oracle
func NewGeminiOracle(ctx context.Context, apiKey string, model string, logger ectologger.Logger) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	http := resty.New()
	http.SetTimeout(30 * time.Second)

	return &GeminiOracle{
		client: client,
		model:  model,
		http:   http,
		logger: logger,
	}, nil
}

// Close releases the underlying API client
func (o *GeminiOracle) Close() error {
	return o.client.Close()
}

// SelectCandidate asks Gemini to pick the best candidate title, or none
func (o *GeminiOracle) SelectCandidate(ctx context.Context, referenceName string, candidateNames []string) (Judgment, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.GeminiOracle.SelectCandidate")
	defer span.End()

	prompt := selectionPrompt(referenceName, candidateNames)

	model := o.client.GenerativeModel(o.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("Gemini candidate selection failed")
		return Judgment{}, classify(err)
	}

	raw, err := textResponse(resp)
	if err != nil {
		return Judgment{}, &TransientError{Err: err}
	}

	judgment := parseJudgment(raw, len(candidateNames))
	o.logger.WithContext(ctx).WithFields(map[string]any{
		"matched":   judgment.Matched,
		"index":     judgment.Index,
		"confident": judgment.Confident,
	}).Debug("Gemini selection parsed")

	return judgment, nil
}

// CompareImages asks Gemini vision whether two product photos show the same
// product. Any failure here is non-fatal to the caller; the text judgment
// stands.
func (o *GeminiOracle) CompareImages(ctx context.Context, referenceImageURL, candidateImageURL string) (Verification, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.GeminiOracle.CompareImages")
	defer span.End()

	refImage, err := o.downloadImage(ctx, referenceImageURL)
	if err != nil {
		return Verification{}, fmt.Errorf("download reference image: %w", err)
	}

	candidateImage, err := o.downloadImage(ctx, candidateImageURL)
	if err != nil {
		return Verification{}, fmt.Errorf("download candidate image: %w", err)
	}

	model := o.client.GenerativeModel(o.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(comparisonPrompt),
		genai.ImageData("jpeg", refImage),
		genai.ImageData("jpeg", candidateImage),
	)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("Gemini image comparison failed")
		return Verification{}, classify(err)
	}

	raw, err := textResponse(resp)
	if err != nil {
		return Verification{}, err
	}

	return parseVerification(raw), nil
}

func (o *GeminiOracle) downloadImage(ctx context.Context, url string) ([]byte, error) {
	resp, err := o.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func textResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response candidates or content")
	}

	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response part type")
}
