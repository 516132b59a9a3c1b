package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alnah/go-polish/internal/apierr"
)

// ---------------------------------------------------------------------------
// Replicate Completer
// ---------------------------------------------------------------------------

const (
	defaultReplicateBaseURL = "https://api.replicate.com"
	defaultReplicateTimeout = 5 * time.Minute // whole completion, polling included
	defaultHTTPTimeout      = 2 * time.Minute // single HTTP exchange
	defaultPollInterval     = 1 * time.Second
	verifyTimeout           = 10 * time.Second
	maxResponseSize         = 10 * 1024 * 1024 // 10MB
)

// Fixed generation parameters sent with every prediction. Temperature and
// max_tokens come from Params; the rest keep the model conservative enough
// that reformatted text stays close to the input.
const (
	replicateTopP              = 0.9
	replicateMinTokens         = 1
	replicateRepetitionPenalty = 1.1
)

// Prediction lifecycle statuses reported by the API.
const (
	predictionStarting   = "starting"
	predictionProcessing = "processing"
	predictionSucceeded  = "succeeded"
	predictionFailed     = "failed"
	predictionCanceled   = "canceled"
)

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ReplicateCompleter generates text through Replicate's predictions API.
// Each call creates a prediction with a "Prefer: wait" header so short
// generations return synchronously; longer ones are polled until they
// reach a terminal status.
type ReplicateCompleter struct {
	apiKey       string
	model        string // owner/name, e.g. "meta/llama-2-7b-chat"
	baseURL      string
	timeout      time.Duration
	httpTimeout  time.Duration
	pollInterval time.Duration
	httpClient   httpDoer
}

// ReplicateOption configures a ReplicateCompleter.
type ReplicateOption func(*ReplicateCompleter)

// WithReplicateBaseURL sets a custom API base URL.
func WithReplicateBaseURL(url string) ReplicateOption {
	return func(r *ReplicateCompleter) {
		if url != "" {
			r.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithReplicateTimeout bounds a whole completion, polling included.
func WithReplicateTimeout(timeout time.Duration) ReplicateOption {
	return func(r *ReplicateCompleter) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithReplicateHTTPTimeout bounds a single HTTP exchange.
func WithReplicateHTTPTimeout(timeout time.Duration) ReplicateOption {
	return func(r *ReplicateCompleter) {
		if timeout > 0 {
			r.httpTimeout = timeout
		}
	}
}

// WithReplicatePollInterval sets the delay between status polls.
func WithReplicatePollInterval(interval time.Duration) ReplicateOption {
	return func(r *ReplicateCompleter) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// withReplicateHTTPClient sets a custom HTTP client (used in tests).
func withReplicateHTTPClient(client httpDoer) ReplicateOption {
	return func(r *ReplicateCompleter) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewReplicateCompleter creates a completer for one Replicate model.
func NewReplicateCompleter(apiKey, model string, opts ...ReplicateOption) (*ReplicateCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", "API key required for Replicate completions", ErrEmptyAPIKey)
	}
	if model == "" {
		return nil, fmt.Errorf("%s: %w", "model required for Replicate completions", ErrEmptyModel)
	}

	r := &ReplicateCompleter{
		apiKey:       apiKey,
		model:        model,
		baseURL:      defaultReplicateBaseURL,
		timeout:      defaultReplicateTimeout,
		httpTimeout:  defaultHTTPTimeout,
		pollInterval: defaultPollInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.httpTimeout}
	}

	return r, nil
}

// Compile-time interface check.
var _ Completer = (*ReplicateCompleter)(nil)

// Complete runs one prediction and returns its concatenated output.
func (r *ReplicateCompleter) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// 1. Create the prediction
	pred, err := r.createPrediction(ctx, prompt, p)
	if err != nil {
		return "", classifyReplicateError(err)
	}

	// 2. Poll until it reaches a terminal status
	pred, err = r.awaitPrediction(ctx, pred)
	if err != nil {
		return "", classifyReplicateError(err)
	}

	// 3. Decode the output
	return decodeReplicateOutput(pred.Output)
}

// Verify checks the API key by fetching the account resource. It uses a
// short deadline of its own so a misconfigured key fails fast.
func (r *ReplicateCompleter) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/account", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if _, err := r.do(req); err != nil {
		return classifyReplicateError(err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Request/Response Types
// ---------------------------------------------------------------------------

type replicatePredictionRequest struct {
	Input replicateInput `json:"input"`
}

type replicateInput struct {
	Prompt            string  `json:"prompt"`
	Temperature       float64 `json:"temperature,omitempty"`
	TopP              float64 `json:"top_p"`
	MaxTokens         int     `json:"max_tokens,omitempty"`
	MinTokens         int     `json:"min_tokens"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	SystemPrompt      string  `json:"system_prompt"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// ---------------------------------------------------------------------------
// API Calls
// ---------------------------------------------------------------------------

func (r *ReplicateCompleter) createPrediction(ctx context.Context, prompt string, p Params) (*replicatePrediction, error) {
	// 1. Build the generation payload
	payload := replicatePredictionRequest{
		Input: replicateInput{
			Prompt:            prompt,
			Temperature:       p.Temperature,
			TopP:              replicateTopP,
			MaxTokens:         p.MaxOutputTokens,
			MinTokens:         replicateMinTokens,
			RepetitionPenalty: replicateRepetitionPenalty,
			SystemPrompt:      systemPrompt,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction request: %w", err)
	}

	// 2. Create the prediction, asking the API to hold the response open
	// until it settles; long generations return early and are polled
	url := fmt.Sprintf("%s/v1/models/%s/predictions", r.baseURL, r.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	body, err := r.do(req)
	if err != nil {
		return nil, err
	}

	var pred replicatePrediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("unmarshal prediction: %w", err)
	}
	return &pred, nil
}

func (r *ReplicateCompleter) getPrediction(ctx context.Context, url string) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := r.do(req)
	if err != nil {
		return nil, err
	}

	var pred replicatePrediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("unmarshal prediction: %w", err)
	}
	return &pred, nil
}

// awaitPrediction polls the prediction until it reaches a terminal status.
func (r *ReplicateCompleter) awaitPrediction(ctx context.Context, pred *replicatePrediction) (*replicatePrediction, error) {
	for {
		switch pred.Status {
		case predictionSucceeded:
			return pred, nil
		case predictionFailed:
			msg := pred.Error
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("prediction failed: %s", msg)
		case predictionCanceled:
			return nil, errors.New("prediction canceled by the API")
		case predictionStarting, predictionProcessing:
			// still running, poll below
		default:
			return nil, fmt.Errorf("unexpected prediction status %q", pred.Status)
		}

		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("prediction %s has no polling URL", pred.ID)
		}

		if err := waitPoll(ctx, r.pollInterval); err != nil {
			return nil, err
		}

		next, err := r.getPrediction(ctx, pred.URLs.Get)
		if err != nil {
			return nil, err
		}
		pred = next
	}
}

// do executes the request with auth attached and returns the response body.
func (r *ReplicateCompleter) do(req *http.Request) (_ []byte, err error) {
	req.Header.Set("Authorization", "Token "+r.apiKey)

	// 1. Execute request
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close response body: %w", cerr)
		}
	}()

	// 2. Read response with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	// 3. Check HTTP status
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseReplicateError(resp.StatusCode, body)
	}

	return body, nil
}

// decodeReplicateOutput flattens a prediction output. Language models
// stream token-by-token, so output usually arrives as a list of string
// fragments; some models return a single string instead.
func decodeReplicateOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("prediction succeeded with no output")
	}

	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	const maxSnippet = 120
	snippet := string(raw)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return "", fmt.Errorf("unexpected prediction output shape: %s", snippet)
}

// waitPoll sleeps for d or until the context is done.
func waitPoll(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// replicateAPIError represents an error response from the Replicate API.
type replicateAPIError struct {
	StatusCode int
	Detail     string
}

func (e *replicateAPIError) Error() string {
	return fmt.Sprintf("replicate API error (status %d): %s", e.StatusCode, e.Detail)
}

// parseReplicateError extracts error details from an API error response.
func parseReplicateError(statusCode int, body []byte) *replicateAPIError {
	var errResp struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}

	detail := ""
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil {
		detail = errResp.Detail
		if detail == "" {
			detail = errResp.Title
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if detail == "" {
		detail = http.StatusText(statusCode)
	}

	return &replicateAPIError{
		StatusCode: statusCode,
		Detail:     detail,
	}
}

// classifyReplicateError maps API errors to sentinel errors.
func classifyReplicateError(err error) error {
	var apiErr *replicateAPIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", apiErr.Detail, apierr.ErrAuthFailed)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%s: %w", apiErr.Detail, apierr.ErrQuotaExceeded)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Detail, apierr.ErrModelNotFound)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", apiErr.Detail, apierr.ErrRateLimit)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Detail, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %w", apiErr.Detail, apierr.ErrBadRequest)
		}

		if apiErr.StatusCode >= 500 {
			return fmt.Errorf("retryable server error (status %d): %w", apiErr.StatusCode, apierr.ErrTimeout)
		}

		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
