package oracle

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/sashabaranov/go-openai"

	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// OpenAIOracle implements the judgment oracle on the OpenAI chat API. It has
// no verification capability; runs configured with it skip visual escalation.
type OpenAIOracle struct {
	client *openai.Client
	model  string
	logger ectologger.Logger
}

// NewOpenAIOracle creates an OpenAI-backed judgment oracle
func NewOpenAIOracle(apiKey string, model string, baseURL string, logger ectologger.Logger) *OpenAIOracle {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIOracle{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger,
	}
}

// SelectCandidate asks the model to pick the best candidate title, or none
func (o *OpenAIOracle) SelectCandidate(ctx context.Context, referenceName string, candidateNames []string) (Judgment, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.OpenAIOracle.SelectCandidate")
	defer span.End()

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: selectionPrompt(referenceName, candidateNames),
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("OpenAI candidate selection failed")
		return Judgment{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return Judgment{}, &TransientError{Err: errNoChoices}
	}

	return parseJudgment(resp.Choices[0].Message.Content, len(candidateNames)), nil
}
