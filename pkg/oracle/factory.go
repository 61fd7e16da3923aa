package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
)

var errNoChoices = errors.New("no response choices")

// Config selects and configures the oracle provider
type Config struct {
	Provider string // "gemini", "openai" or "" to disable judgment entirely
	APIKey   string
	Model    string
	BaseURL  string // OpenAI-compatible endpoints only
}

// New builds the judgment and verification oracles for the configured
// provider. The verifier is nil when the provider cannot compare images.
func New(ctx context.Context, cfg Config, logger ectologger.Logger) (Judge, Verifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil, nil

	case "gemini":
		o, err := NewGeminiOracle(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, nil, err
		}
		return o, o, nil

	case "openai":
		o := NewOpenAIOracle(cfg.APIKey, cfg.Model, cfg.BaseURL, logger)
		return o, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}
