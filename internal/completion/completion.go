// Package completion provides clients for hosted text-generation APIs.
// Each client issues one blocking request per prompt and classifies
// provider errors into the shared apierr sentinels, so callers can make
// retry decisions without knowing which provider produced the error.
package completion

import (
	"context"
	"errors"
	"net"

	"github.com/alnah/go-polish/internal/apierr"
)

// systemPrompt frames every completion request, for both providers.
const systemPrompt = "You are a helpful assistant that formats and analyzes text."

// ErrEmptyAPIKey indicates that the API key was not provided.
var ErrEmptyAPIKey = errors.New("API key is required")

// ErrEmptyModel indicates that the model identifier was not provided.
var ErrEmptyModel = errors.New("model identifier is required")

// Params are the generation parameters for a single completion call.
type Params struct {
	MaxOutputTokens int     // 0 means provider default
	Temperature     float64 // 0 means provider default
}

// Completer generates text from a prompt. Implementations classify
// failures into apierr sentinels; retry policy belongs to the caller.
type Completer interface {
	Complete(ctx context.Context, prompt string, p Params) (string, error)
}

// IsTransient reports whether an error is worth retrying: rate limits,
// timeouts (server errors classify as timeouts), and network failures.
// Cancellation and all fatal classifications are not transient.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrTimeout) {
		return true
	}

	// Transport-level failures (connection refused, reset, DNS) arrive
	// untyped; any net.Error is worth another attempt.
	var netErr net.Error
	return errors.As(err, &netErr)
}
