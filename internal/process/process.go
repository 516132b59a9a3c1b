// Package process orchestrates the text-polishing pipeline: it splits a
// document into chunks, pushes each chunk through the rate limiter and the
// completion provider with retries, parses the model responses, and merges
// everything back into one Document.
//
// Chunks are processed strictly in order on a single goroutine; the rate
// limiter is not safe for concurrent use and nothing here shares it.
package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alnah/go-polish/internal/apierr"
	"github.com/alnah/go-polish/internal/chunk"
	"github.com/alnah/go-polish/internal/completion"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/ratelimit"
	"github.com/alnah/go-polish/internal/template"
)

// Sentinel errors for processing failures.
var (
	ErrNilCompleter    = errors.New("completer is required")
	ErrNoModel         = errors.New("model spec is required")
	ErrEmptyInput      = errors.New("input text is empty")
	ErrAllChunksFailed = errors.New("all chunks failed")
)

// defaultMaxOutputTokens caps the per-request generation length. Models
// with a smaller output window are capped at their own limit instead.
const defaultMaxOutputTokens = 4096

// defaultTemperature keeps the model close to the input text.
const defaultTemperature = 0.1

// defaultRetryConfig gives each chunk three completion attempts in
// total, with doubling delays capped at five seconds.
var defaultRetryConfig = apierr.RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    5 * time.Second,
}

// Progress stages reported through the progress callback.
const (
	StageSplit = "split" // Total carries the chunk count
	StageChunk = "chunk" // Current/Total carry the chunk position
	StageWait  = "wait"  // Wait carries the expected rate-limit delay
)

// Progress describes one pipeline event for display.
type Progress struct {
	Stage   string
	Current int
	Total   int
	Wait    time.Duration
}

// Processor runs the full pipeline for one document at a time.
type Processor struct {
	completer   completion.Completer
	splitter    *chunk.Splitter
	limiter     *ratelimit.Limiter
	modelSpec   model.Spec
	template    template.Name
	retry       apierr.RetryConfig
	temperature float64
	onProgress  func(Progress)
}

// Option configures a Processor.
type Option func(*Processor)

// WithSplitter sets a custom chunk splitter.
func WithSplitter(s *chunk.Splitter) Option {
	return func(p *Processor) {
		if s != nil {
			p.splitter = s
		}
	}
}

// WithLimiter sets a custom rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(p *Processor) {
		if l != nil {
			p.limiter = l
		}
	}
}

// WithTemplate sets the editing style applied to every chunk.
func WithTemplate(tmpl template.Name) Option {
	return func(p *Processor) {
		if !tmpl.IsZero() {
			p.template = tmpl
		}
	}
}

// WithRetryConfig sets the retry policy for transient chunk failures.
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(p *Processor) {
		p.retry = cfg
	}
}

// WithTemperature sets the generation temperature.
func WithTemperature(t float64) Option {
	return func(p *Processor) {
		if t > 0 {
			p.temperature = t
		}
	}
}

// WithProgress sets a callback invoked for each pipeline event.
func WithProgress(fn func(Progress)) Option {
	return func(p *Processor) {
		p.onProgress = fn
	}
}

// NewProcessor creates a processor for one model. Unset collaborators are
// filled with defaults: a heuristic splitter sized from the model's input
// window and a limiter with the default call/token budgets.
func NewProcessor(completer completion.Completer, spec model.Spec, opts ...Option) (*Processor, error) {
	if completer == nil {
		return nil, fmt.Errorf("%s: %w", "completer required for processing", ErrNilCompleter)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%s: %w", "model spec required for processing", ErrNoModel)
	}

	p := &Processor{
		completer:   completer,
		modelSpec:   spec,
		template:    template.DefaultName,
		retry:       defaultRetryConfig,
		temperature: defaultTemperature,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.splitter == nil {
		s, err := chunk.NewSplitter(spec.DefaultChunkTokens(), nil)
		if err != nil {
			return nil, fmt.Errorf("build splitter: %w", err)
		}
		p.splitter = s
	}
	if p.limiter == nil {
		l, err := ratelimit.NewLimiter(ratelimit.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("build limiter: %w", err)
		}
		p.limiter = l
	}

	return p, nil
}

// Process polishes text and returns the merged document.
//
// Chunks that exhaust their retries on transient errors degrade to their
// raw text inside the document; fatal errors (bad credentials, exhausted
// quota, unknown model, rejected input) abort the whole run. If every
// chunk degrades, Process returns ErrAllChunksFailed instead of a
// document of untouched text.
func (p *Processor) Process(ctx context.Context, text string) (*Document, error) {
	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", "nothing to process", ErrEmptyInput)
	}

	p.progress(Progress{Stage: StageSplit, Total: len(chunks)})

	results := make([]ChunkResult, len(chunks))
	failed := 0
	for i, ch := range chunks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		p.progress(Progress{Stage: StageChunk, Current: i + 1, Total: len(chunks)})

		formatted, meta, err := p.processChunk(ctx, ch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isFatal(err) {
				return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			// Transient failure that survived every retry: keep the raw
			// chunk text so no content is lost.
			failed++
			results[i] = ChunkResult{Formatted: ch.Text, Failed: true}
			continue
		}

		results[i] = ChunkResult{Formatted: formatted, Meta: meta}
	}

	if failed == len(chunks) {
		return nil, fmt.Errorf("all %d chunks failed: %w", len(chunks), ErrAllChunksFailed)
	}

	merged, meta := merge(results)
	return &Document{
		FormattedText: merged,
		Metadata:      meta,
		FailedChunks:  failed,
		TotalChunks:   len(chunks),
	}, nil
}

// processChunk sends one chunk through the limiter and the provider,
// retrying transient failures. Every attempt re-acquires rate budget:
// each network call is an admitted call.
func (p *Processor) processChunk(ctx context.Context, ch chunk.Chunk) (string, Metadata, error) {
	prompt := p.template.Compose(ch.Text)
	params := completion.Params{
		MaxOutputTokens: p.maxOutputTokens(),
		Temperature:     p.temperature,
	}

	raw, err := apierr.RetryWithBackoff(ctx, p.retry, func() (string, error) {
		if wait := p.limiter.Wait(ch.Tokens); wait > 0 {
			p.progress(Progress{Stage: StageWait, Wait: wait})
		}
		if err := p.limiter.Acquire(ctx, ch.Tokens); err != nil {
			return "", err
		}
		return p.completer.Complete(ctx, prompt, params)
	}, completion.IsTransient)
	if err != nil {
		return "", Metadata{}, err
	}

	formatted, meta := parseChunkResponse(raw, ch.Text)
	return formatted, meta, nil
}

// maxOutputTokens bounds generation by the model's output window.
func (p *Processor) maxOutputTokens() int {
	if p.modelSpec.MaxOutputTokens > 0 && p.modelSpec.MaxOutputTokens < defaultMaxOutputTokens {
		return p.modelSpec.MaxOutputTokens
	}
	return defaultMaxOutputTokens
}

func (p *Processor) progress(ev Progress) {
	if p.onProgress != nil {
		p.onProgress(ev)
	}
}

// isFatal reports whether an error should abort the whole run instead of
// degrading a single chunk. Oversized requests are included: a chunk that
// cannot fit the window on this attempt will never fit on the next.
func isFatal(err error) bool {
	return errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrModelNotFound) ||
		errors.Is(err, apierr.ErrBadRequest) ||
		errors.Is(err, ratelimit.ErrRequestTooLarge)
}
