// Package search talks to the candidate-search collaborator: the service
// fronting the marketplace scrape that returns ranked listing candidates for
// a query.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Client returns up to topN ranked listing candidates for a query
type Client interface {
	Search(ctx context.Context, query string, topN int) ([]models.ListingCandidate, error)
}

// Failure wraps a search error after retries are exhausted. The pipeline
// skips the item and records the failure instead of aborting the run.
type Failure struct {
	Query string
	Err   error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("candidate search failed for %q: %v", e.Query, e.Err)
}

func (e *Failure) Unwrap() error {
	return e.Err
}

// listingResponse is the collaborator's wire format for one search hit
type listingResponse struct {
	SourceID    string `json:"source_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	ShippingFee int64  `json:"shipping_fee"`
	Rank        int    `json:"rank"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
}

// HTTPClient is the production search client. The collaborator is a shared,
// session-bound resource, so every call is rate limited and calls are never
// issued concurrently.
type HTTPClient struct {
	http        *resty.Client
	limiter     *rate.Limiter
	maxAttempts int
	logger      ectologger.Logger
}

// HTTPClientConfig configures the search collaborator client
type HTTPClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
}

// NewHTTPClient creates a search client for the collaborator at baseURL
func NewHTTPClient(cfg HTTPClientConfig, logger ectologger.Logger) *HTTPClient {
	http := resty.New()
	http.SetBaseURL(cfg.BaseURL)
	http.SetTimeout(cfg.Timeout)

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &HTTPClient{
		http:        http,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Search queries the collaborator, retrying transient failures with backoff.
// After the attempt budget is spent it returns a Failure.
func (c *HTTPClient) Search(ctx context.Context, query string, topN int) ([]models.ListingCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "search.HTTPClient.Search")
	defer span.End()

	var lastErr error

	// Fibonacci backoff between attempts
	a, b := 1, 1
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		candidates, err := c.search(ctx, query, topN)
		if err == nil {
			return candidates, nil
		}
		lastErr = err

		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"query":   query,
			"attempt": attempt,
		}).Warn("Candidate search attempt failed")

		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return nil, &Failure{Query: query, Err: lastErr}
}

func (c *HTTPClient) search(ctx context.Context, query string, topN int) ([]models.ListingCandidate, error) {
	var hits []listingResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("limit", fmt.Sprintf("%d", topN)).
		SetResult(&hits).
		Get("/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode())
	}

	candidates := make([]models.ListingCandidate, 0, len(hits))
	for i, hit := range hits {
		rank := hit.Rank
		if rank == 0 {
			rank = i + 1
		}
		candidates = append(candidates, models.ListingCandidate{
			SourceID:    hit.SourceID,
			RawName:     hit.Name,
			Price:       hit.Price,
			ShippingFee: hit.ShippingFee,
			FinalPrice:  hit.Price + hit.ShippingFee,
			Rank:        rank,
			URL:         hit.URL,
			ImageURL:    hit.ImageURL,
		})
	}

	return candidates, nil
}
