package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/alnah/go-polish/internal/apierr"
	"github.com/alnah/go-polish/internal/chunk"
	"github.com/alnah/go-polish/internal/config"
	"github.com/alnah/go-polish/internal/format"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/process"
	"github.com/alnah/go-polish/internal/ratelimit"
	"github.com/alnah/go-polish/internal/template"
)

// maxRetryDelay caps exponential backoff regardless of the configured base.
const maxRetryDelay = 30 * time.Second

// pipelineFlags carries the raw flag values shared by process and watch.
// Empty strings fall back to configuration, then to package defaults.
type pipelineFlags struct {
	provider  string
	model     string
	template  string
	format    string
	maxTokens int
}

// pipelineSettings holds the validated, fully resolved settings for one
// polishing run.
type pipelineSettings struct {
	provider    Provider
	modelSpec   model.Spec
	template    template.Name
	mode        format.Mode
	chunkTokens int
	rate        ratelimit.Config
	retry       apierr.RetryConfig
}

// loadConfig loads configuration, degrading to defaults with a warning so
// a corrupt config file doesn't block processing.
func loadConfig(env *Env) (config.Config, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveSettings merges flag values over configuration, validating each
// effective name with its owning package. All of this happens before any
// remote call.
func resolveSettings(cfg config.Config, f pipelineFlags) (pipelineSettings, error) {
	// Provider: flag > config.
	providerStr := f.provider
	if providerStr == "" {
		providerStr = cfg.Provider
	}
	provider, err := ParseProvider(providerStr)
	if err != nil {
		return pipelineSettings{}, err
	}

	// Model: flag > config.
	modelStr := f.model
	if modelStr == "" {
		modelStr = cfg.Model
	}
	name, err := model.ParseName(modelStr)
	if err != nil {
		return pipelineSettings{}, err
	}
	spec := name.Spec()

	// OpenAI chat models are served by the OpenAI API, everything else by
	// Replicate. A mismatch would fail remotely with a confusing 404.
	if provider.IsOpenAI() != (spec.Vendor == model.VendorOpenAI) {
		want := ProviderReplicate
		if spec.Vendor == model.VendorOpenAI {
			want = ProviderOpenAI
		}
		return pipelineSettings{}, fmt.Errorf("model %q is not served by the %s API (use --provider %s): %w",
			spec.Name, provider, want, ErrProviderModelMismatch)
	}

	// Template: flag > config.
	templateStr := f.template
	if templateStr == "" {
		templateStr = cfg.Template
	}
	tmpl, err := template.ParseName(templateStr)
	if err != nil {
		return pipelineSettings{}, err
	}

	// Output format: flag > config.
	formatStr := f.format
	if formatStr == "" {
		formatStr = cfg.Format
	}
	mode, err := format.ParseMode(formatStr)
	if err != nil {
		return pipelineSettings{}, err
	}

	// Chunk budget: flag > config > derived from the model's input window.
	if f.maxTokens < 0 {
		return pipelineSettings{}, fmt.Errorf("--max-tokens must be positive, got %d", f.maxTokens)
	}
	chunkTokens := f.maxTokens
	if chunkTokens == 0 {
		chunkTokens = cfg.Chunk.MaxTokens
	}
	if chunkTokens == 0 {
		chunkTokens = spec.DefaultChunkTokens()
	}

	rate := ratelimit.Config{
		MaxCalls:  cfg.Rate.MaxCallsPerWindow,
		MaxTokens: cfg.Rate.MaxTokensPerWindow,
		Window:    cfg.Window(),
	}

	// A chunk larger than the window's token budget could never be
	// admitted, so fail here rather than on the first chunk.
	if chunkTokens > rate.MaxTokens {
		return pipelineSettings{}, fmt.Errorf("chunk budget %d exceeds rate window token budget %d: %w",
			chunkTokens, rate.MaxTokens, ErrChunkBudgetTooLarge)
	}

	return pipelineSettings{
		provider:    provider,
		modelSpec:   spec,
		template:    tmpl,
		mode:        mode,
		chunkTokens: chunkTokens,
		rate:        rate,
		// retry.attempts is a total call budget per chunk, so it maps
		// onto MaxAttempts one to one.
		retry: apierr.RetryConfig{
			MaxAttempts: cfg.Retry.Attempts,
			BaseDelay:   cfg.BackoffBase(),
			MaxDelay:    maxRetryDelay,
		},
	}, nil
}

// credential resolves the provider's API key from the environment.
// The value is returned to the caller and never written anywhere else.
func credential(env *Env, p Provider) (string, error) {
	key := env.Getenv(p.CredentialVar())
	if key == "" {
		if p.IsOpenAI() {
			return "", fmt.Errorf("%w (set it with: export %s=sk-...)", ErrOpenAIKeyMissing, EnvOpenAIAPIKey)
		}
		return "", fmt.Errorf("%w (set it with: export %s=r8_...)", ErrReplicateTokenMissing, EnvReplicateAPIToken)
	}
	return key, nil
}

// buildProcessor wires the completer, splitter, and limiter for one run.
// Completers that support it get their credential verified up front so a
// bad token fails before any chunk is sent.
func buildProcessor(ctx context.Context, env *Env, s pipelineSettings, apiKey string) (DocumentProcessor, error) {
	completer, err := env.CompleterFactory.NewCompleter(s.provider, apiKey, s.modelSpec)
	if err != nil {
		return nil, err
	}

	if v, ok := completer.(credentialVerifier); ok {
		if err := v.Verify(ctx); err != nil {
			return nil, fmt.Errorf("credential check failed: %w", err)
		}
	}

	splitter, err := chunk.NewSplitter(s.chunkTokens, nil)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.NewLimiter(s.rate)
	if err != nil {
		return nil, err
	}

	return env.ProcessorFactory.NewProcessor(completer, s.modelSpec,
		process.WithSplitter(splitter),
		process.WithLimiter(limiter),
		process.WithTemplate(s.template),
		process.WithRetryConfig(s.retry),
		process.WithProgress(progressPrinter(env.Stderr)),
	)
}

// processFile runs one transcript through the pipeline and writes its
// outputs. output is the explicit prefix ("" derives <stem>_output);
// outputDir "" places outputs alongside the input.
func processFile(ctx context.Context, env *Env, processor DocumentProcessor, inputPath, output, outputDir string, mode format.Mode, withJSON bool) error {
	text, err := readTranscript(inputPath)
	if err != nil {
		return err
	}

	doc, err := processor.Process(ctx, text)
	if err != nil {
		return err
	}

	if doc.FailedChunks > 0 {
		fmt.Fprintf(env.Stderr, "Warning: %d of %d chunks failed; their text was kept unformatted\n",
			doc.FailedChunks, doc.TotalChunks)
	}

	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	prefix := config.ResolveOutputPath(output, outputDir, defaultOutputPrefix(inputPath))

	written, err := writeDocument(doc, mode, withJSON, prefix)
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Fprintf(env.Stderr, "Done: %s\n", p)
	}
	return nil
}
