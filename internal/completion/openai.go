package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-polish/internal/apierr"
)

// ---------------------------------------------------------------------------
// OpenAI Completer
// ---------------------------------------------------------------------------

// chatCompleter abstracts the OpenAI client for testing.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICompleter generates text through an OpenAI-compatible chat API.
type OpenAICompleter struct {
	client chatCompleter
	model  string
}

// OpenAIOption configures an OpenAICompleter.
type OpenAIOption func(*OpenAICompleter)

// withChatCompleter sets a custom chat client (used in tests).
func withChatCompleter(client chatCompleter) OpenAIOption {
	return func(c *OpenAICompleter) {
		if client != nil {
			c.client = client
		}
	}
}

// NewOpenAICompleter creates a completer for one OpenAI chat model.
func NewOpenAICompleter(client *openai.Client, model string, opts ...OpenAIOption) (*OpenAICompleter, error) {
	c := &OpenAICompleter{model: model}
	if client != nil {
		c.client = client
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		return nil, errors.New("OpenAI client is required")
	}
	if c.model == "" {
		return nil, fmt.Errorf("%s: %w", "model required for OpenAI completions", ErrEmptyModel)
	}

	return c, nil
}

// Compile-time interface check.
var _ Completer = (*OpenAICompleter)(nil)

// Complete runs one chat completion and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(p.Temperature),
		MaxTokens:   p.MaxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps API errors to sentinel errors. OpenAI reports
// exhausted quota through 429 like plain rate limiting, so the message is
// inspected to keep the two apart.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			msg := strings.ToLower(apiErr.Message)
			if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrModelNotFound)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}

		if apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("retryable server error (status %d): %w", apiErr.HTTPStatusCode, apierr.ErrTimeout)
		}

		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
