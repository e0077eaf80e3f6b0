// Package llm talks to an OpenAI-compatible chat API to generate risk and
// suggestion text. Failures are contained per call: the caller decides what a
// failed generation means (here, falling back to the local analysis).
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"safereport/internal/llm/prompts"
	"safereport/internal/model"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	retries int
}

// New creates a generation client for the given endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: defaultTimeout,
		retries: defaultRetries,
	}
}

// Ping verifies the endpoint responds at all before a batch run starts.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("generation endpoint unreachable: %w", err)
	}
	return nil
}

// GenerateGroupTemplate produces one placeholder template covering every
// member of a violation group.
func (c *Client) GenerateGroupTemplate(ctx context.Context, g model.ViolationGroup) (*model.GenAnalysis, error) {
	return c.generate(ctx, prompts.GroupPrompt(g))
}

// GeneratePerson produces risk and suggestion text for a single person.
func (c *Client) GeneratePerson(ctx context.Context, p model.Person, analysis model.AnalysisResult) (*model.GenAnalysis, error) {
	return c.generate(ctx, prompts.PersonPrompt(p, analysis))
}

// generate runs one prompt with bounded retries. Each attempt gets its own
// timeout derived from ctx, so parent cancellation aborts in-flight calls.
// Rate-limit responses back off longer than other failures; cancellation is
// returned immediately and never retried.
func (c *Client) generate(ctx context.Context, prompt string) (*model.GenAnalysis, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.callOnce(ctx, prompt)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if attempt == c.retries {
			break
		}

		delay := time.Duration(attempt+1) * time.Second
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			delay = time.Duration(attempt+1) * 2 * time.Second
		}
		slog.Debug("generation attempt failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) callOnce(ctx context.Context, prompt string) (*model.GenAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("generation API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generation returned no choices")
	}
	return decodeGenAnalysis(resp.Choices[0].Message.Content)
}
