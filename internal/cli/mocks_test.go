package cli

import (
	"context"
	"sync"

	"github.com/alnah/go-polish/internal/completion"
	"github.com/alnah/go-polish/internal/config"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/process"
	"github.com/alnah/go-polish/internal/token"
	"github.com/alnah/go-polish/internal/watch"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock CompleterFactory + Completer
// ---------------------------------------------------------------------------

type mockCompleterFactory struct {
	NewCompleterFunc func(p Provider, apiKey string, spec model.Spec) (completion.Completer, error)
	NewCompleterErr  error // Error to return from NewCompleter

	mu                sync.Mutex
	newCompleterCalls []completerCall
	mockCompleter     *mockCompleter
}

type completerCall struct {
	Provider Provider
	APIKey   string
	Model    string
}

func (m *mockCompleterFactory) NewCompleter(p Provider, apiKey string, spec model.Spec) (completion.Completer, error) {
	m.mu.Lock()
	m.newCompleterCalls = append(m.newCompleterCalls, completerCall{Provider: p, APIKey: apiKey, Model: spec.Name})
	m.mu.Unlock()

	if m.NewCompleterErr != nil {
		return nil, m.NewCompleterErr
	}
	if m.NewCompleterFunc != nil {
		return m.NewCompleterFunc(p, apiKey, spec)
	}
	if m.mockCompleter != nil {
		return m.mockCompleter, nil
	}
	return &mockCompleter{}, nil
}

func (m *mockCompleterFactory) NewCompleterCalls() []completerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]completerCall, len(m.newCompleterCalls))
	copy(result, m.newCompleterCalls)
	return result
}

type mockCompleter struct {
	CompleteFunc func(ctx context.Context, prompt string, p completion.Params) (string, error)

	mu            sync.Mutex
	completeCalls []string // Prompts passed
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string, p completion.Params) (string, error) {
	m.mu.Lock()
	m.completeCalls = append(m.completeCalls, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, p)
	}
	return `{"formatted_text":"formatted","metadata":{"summary":"","tags":[],"key_points":[]}}`, nil
}

func (m *mockCompleter) CompleteCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.completeCalls...)
}

// mockVerifyingCompleter is a completer whose credential can be checked
// up front, like the Replicate client.
type mockVerifyingCompleter struct {
	mockCompleter
	VerifyFunc func(ctx context.Context) error

	verifyMu    sync.Mutex
	verifyCalls int
}

func (m *mockVerifyingCompleter) Verify(ctx context.Context) error {
	m.verifyMu.Lock()
	m.verifyCalls++
	m.verifyMu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx)
	}
	return nil
}

func (m *mockVerifyingCompleter) VerifyCalls() int {
	m.verifyMu.Lock()
	defer m.verifyMu.Unlock()
	return m.verifyCalls
}

// ---------------------------------------------------------------------------
// Mock ProcessorFactory + DocumentProcessor
// ---------------------------------------------------------------------------

type mockProcessorFactory struct {
	NewProcessorFunc func(completer completion.Completer, spec model.Spec, opts ...process.Option) (DocumentProcessor, error)
	NewProcessorErr  error // Error to return from NewProcessor

	mu                sync.Mutex
	newProcessorCalls []string // Model names passed
	mockProcessor     *mockDocProcessor
}

func (m *mockProcessorFactory) NewProcessor(completer completion.Completer, spec model.Spec, opts ...process.Option) (DocumentProcessor, error) {
	m.mu.Lock()
	m.newProcessorCalls = append(m.newProcessorCalls, spec.Name)
	m.mu.Unlock()

	if m.NewProcessorErr != nil {
		return nil, m.NewProcessorErr
	}
	if m.NewProcessorFunc != nil {
		return m.NewProcessorFunc(completer, spec, opts...)
	}
	if m.mockProcessor != nil {
		return m.mockProcessor, nil
	}
	return &mockDocProcessor{}, nil
}

func (m *mockProcessorFactory) NewProcessorCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.newProcessorCalls...)
}

type mockDocProcessor struct {
	ProcessFunc func(ctx context.Context, text string) (*process.Document, error)

	mu           sync.Mutex
	processCalls []string // Input texts passed
}

func (m *mockDocProcessor) Process(ctx context.Context, text string) (*process.Document, error) {
	m.mu.Lock()
	m.processCalls = append(m.processCalls, text)
	m.mu.Unlock()

	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, text)
	}
	return &process.Document{
		FormattedText: "formatted text",
		Metadata: process.Metadata{
			Summary:   "a short summary",
			Tags:      []string{"test"},
			KeyPoints: []string{"one point"},
		},
		TotalChunks: 1,
	}, nil
}

func (m *mockDocProcessor) ProcessCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.processCalls...)
}

// ---------------------------------------------------------------------------
// Mock CounterFactory
// ---------------------------------------------------------------------------

type mockCounterFactory struct {
	NewCounterFunc func(exact bool) (token.Counter, error)

	mu              sync.Mutex
	newCounterCalls []bool // Exact flags passed
}

func (m *mockCounterFactory) NewCounter(exact bool) (token.Counter, error) {
	m.mu.Lock()
	m.newCounterCalls = append(m.newCounterCalls, exact)
	m.mu.Unlock()

	if m.NewCounterFunc != nil {
		return m.NewCounterFunc(exact)
	}
	return token.HeuristicCounter{}, nil
}

func (m *mockCounterFactory) NewCounterCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.newCounterCalls...)
}

// ---------------------------------------------------------------------------
// Mock WatcherFactory + DirWatcher
// ---------------------------------------------------------------------------

type mockWatcherFactory struct {
	NewWatcherFunc func(dir string, handler watch.Handler, opts ...watch.Option) (DirWatcher, error)
	NewWatcherErr  error // Error to return from NewWatcher

	mu              sync.Mutex
	newWatcherCalls []watcherCall
	mockWatcher     *mockWatcher
}

type watcherCall struct {
	Dir     string
	Handler watch.Handler
}

func (m *mockWatcherFactory) NewWatcher(dir string, handler watch.Handler, opts ...watch.Option) (DirWatcher, error) {
	m.mu.Lock()
	m.newWatcherCalls = append(m.newWatcherCalls, watcherCall{Dir: dir, Handler: handler})
	m.mu.Unlock()

	if m.NewWatcherErr != nil {
		return nil, m.NewWatcherErr
	}
	if m.NewWatcherFunc != nil {
		return m.NewWatcherFunc(dir, handler, opts...)
	}
	if m.mockWatcher != nil {
		return m.mockWatcher, nil
	}
	return &mockWatcher{}, nil
}

func (m *mockWatcherFactory) NewWatcherCalls() []watcherCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]watcherCall, len(m.newWatcherCalls))
	copy(result, m.newWatcherCalls)
	return result
}

type mockWatcher struct {
	RunFunc   func(ctx context.Context) error
	CloseFunc func() error

	mu         sync.Mutex
	runCalls   int
	closeCalls int
}

func (m *mockWatcher) Run(ctx context.Context) error {
	m.mu.Lock()
	m.runCalls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

func (m *mockWatcher) Close() error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *mockWatcher) RunCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCalls
}

func (m *mockWatcher) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// ---------------------------------------------------------------------------
// Compile-time interface verification
// ---------------------------------------------------------------------------

var (
	_ ConfigLoader         = (*mockConfigLoader)(nil)
	_ CompleterFactory     = (*mockCompleterFactory)(nil)
	_ completion.Completer = (*mockCompleter)(nil)
	_ completion.Completer = (*mockVerifyingCompleter)(nil)
	_ credentialVerifier   = (*mockVerifyingCompleter)(nil)
	_ ProcessorFactory     = (*mockProcessorFactory)(nil)
	_ DocumentProcessor    = (*mockDocProcessor)(nil)
	_ CounterFactory       = (*mockCounterFactory)(nil)
	_ WatcherFactory       = (*mockWatcherFactory)(nil)
	_ DirWatcher           = (*mockWatcher)(nil)
)
