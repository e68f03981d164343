// AngelaMos | 2026
// client.go

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/carterperez-dev/copystudio/internal/config"
	"github.com/carterperez-dev/copystudio/internal/core"
)

// Generator produces the ordered copy set for one instruction and screenshot.
type Generator interface {
	Generate(ctx context.Context, instruction, imageURL string) ([]Copy, error)
}

type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
}

func NewClient(cfg config.CompletionConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		maxRetries:  max(cfg.MaxRetries, 0),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: slog.Default(),
	}
}

// Generate calls the model and returns exactly CopyCount validated copies.
// Transport failures, 429 and 5xx responses are retried; everything else
// fails immediately with core.ErrModel.
func (c *Client) Generate(ctx context.Context, instruction, imageURL string) ([]Copy, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: instruction},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
				},
			},
		}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var resp openai.ChatCompletionResponse
	attempt := 0
	op := func() error {
		attempt++
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, req)
		return classify(ctx, err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), //nolint:gosec // non-negative
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("completion request failed, retrying",
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if errors.Is(err, core.ErrModel) {
			return nil, err
		}
		return nil, fmt.Errorf("completion request: %w: %w", core.ErrModel, err)
	}

	if len(resp.Choices) == 0 {
		return nil, modelErr("response has no choices")
	}
	return ParseCopies(resp.Choices[0].Message.Content)
}

// classify marks provider rejections and undecodable bodies as permanent.
// Network errors, 429 and 5xx stay retryable.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return err
	}
	if status != 0 {
		return backoff.Permanent(fmt.Errorf("provider status %d: %w: %w", status, core.ErrModel, err))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return backoff.Permanent(fmt.Errorf("decode completion response: %w: %w", core.ErrModel, err))
	}
	return err
}
