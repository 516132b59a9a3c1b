package cli

import (
	"context"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-polish/internal/completion"
	"github.com/alnah/go-polish/internal/config"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/process"
	"github.com/alnah/go-polish/internal/token"
	"github.com/alnah/go-polish/internal/watch"
)

// Environment variables holding API credentials.
// Values are read at command time and never logged or echoed back.
const (
	EnvReplicateAPIToken = "REPLICATE_API_TOKEN"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects
	ConfigLoader     ConfigLoader
	CompleterFactory CompleterFactory
	ProcessorFactory ProcessorFactory
	CounterFactory   CounterFactory
	WatcherFactory   WatcherFactory
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// CompleterFactory creates completion clients for a provider and model.
// The API key is passed in explicitly and never stored beyond the client.
type CompleterFactory interface {
	NewCompleter(p Provider, apiKey string, spec model.Spec) (completion.Completer, error)
}

// DocumentProcessor runs the polishing pipeline on one text.
type DocumentProcessor interface {
	Process(ctx context.Context, text string) (*process.Document, error)
}

// ProcessorFactory creates document processors.
type ProcessorFactory interface {
	NewProcessor(completer completion.Completer, spec model.Spec, opts ...process.Option) (DocumentProcessor, error)
}

// CounterFactory creates token counters. exact selects the BPE counter
// over the byte heuristic.
type CounterFactory interface {
	NewCounter(exact bool) (token.Counter, error)
}

// DirWatcher watches a directory until its context is canceled.
type DirWatcher interface {
	Run(ctx context.Context) error
	Close() error
}

// WatcherFactory creates directory watchers.
type WatcherFactory interface {
	NewWatcher(dir string, handler watch.Handler, opts ...watch.Option) (DirWatcher, error)
}

// credentialVerifier is implemented by completers that can validate their
// credential with a cheap account call before any chunk is sent.
type credentialVerifier interface {
	Verify(ctx context.Context) error
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithCompleterFactory sets the completer factory.
func WithCompleterFactory(f CompleterFactory) EnvOption {
	return func(e *Env) {
		e.CompleterFactory = f
	}
}

// WithProcessorFactory sets the processor factory.
func WithProcessorFactory(f ProcessorFactory) EnvOption {
	return func(e *Env) {
		e.ProcessorFactory = f
	}
}

// WithCounterFactory sets the token counter factory.
func WithCounterFactory(f CounterFactory) EnvOption {
	return func(e *Env) {
		e.CounterFactory = f
	}
}

// WithWatcherFactory sets the directory watcher factory.
func WithWatcherFactory(f WatcherFactory) EnvOption {
	return func(e *Env) {
		e.WatcherFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		Now:              time.Now,
		ConfigLoader:     &defaultConfigLoader{},
		CompleterFactory: &defaultCompleterFactory{},
		ProcessorFactory: &defaultProcessorFactory{},
		CounterFactory:   &defaultCounterFactory{},
		WatcherFactory:   &defaultWatcherFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultCompleterFactory implements CompleterFactory using the real
// provider clients.
type defaultCompleterFactory struct{}

func (defaultCompleterFactory) NewCompleter(p Provider, apiKey string, spec model.Spec) (completion.Completer, error) {
	if p.IsOpenAI() {
		client := openai.NewClient(apiKey)
		return completion.NewOpenAICompleter(client, spec.ID)
	}
	return completion.NewReplicateCompleter(apiKey, spec.ID)
}

// defaultProcessorFactory implements ProcessorFactory using the process package.
type defaultProcessorFactory struct{}

func (defaultProcessorFactory) NewProcessor(completer completion.Completer, spec model.Spec, opts ...process.Option) (DocumentProcessor, error) {
	return process.NewProcessor(completer, spec, opts...)
}

// defaultCounterFactory implements CounterFactory using the token package.
type defaultCounterFactory struct{}

func (defaultCounterFactory) NewCounter(exact bool) (token.Counter, error) {
	if exact {
		return token.NewTiktokenCounter()
	}
	return token.HeuristicCounter{}, nil
}

// defaultWatcherFactory implements WatcherFactory using the watch package.
type defaultWatcherFactory struct{}

func (defaultWatcherFactory) NewWatcher(dir string, handler watch.Handler, opts ...watch.Option) (DirWatcher, error) {
	return watch.New(dir, handler, opts...)
}

// Compile-time interface verification.
var (
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ CompleterFactory   = (*defaultCompleterFactory)(nil)
	_ ProcessorFactory   = (*defaultProcessorFactory)(nil)
	_ CounterFactory     = (*defaultCounterFactory)(nil)
	_ WatcherFactory     = (*defaultWatcherFactory)(nil)
	_ credentialVerifier = (*completion.ReplicateCompleter)(nil)
)
