// Package llm provides text generation clients for the summarize and
// generate stages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	maxRetries  = 3
	baseBackoff = 1 * time.Second
	maxBackoff  = 8 * time.Second
)

// ErrMaxRetriesExceeded is returned after the retry budget is exhausted.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config controls the OpenAI-backed generator.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenAIGenerator implements outreach.TextGenerator on the OpenAI chat
// completions API with exponential backoff on rate limits.
type OpenAIGenerator struct {
	client openai.Client
	cfg    Config
}

// NewOpenAIGenerator builds a generator. The API key must be non-empty; use
// NewCannedGenerator for keyless runs.
func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &OpenAIGenerator{client: client, cfg: cfg}, nil
}

// Complete sends the prompt and returns the first completion choice.
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(g.cfg.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(g.cfg.Temperature),
		}
		if g.cfg.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(g.cfg.MaxTokens))
		}

		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return "", fmt.Errorf("completion request: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
