package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-polish/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	stdout           *syncBuffer
	stderr           *syncBuffer
	configLoader     *mockConfigLoader
	completerFactory *mockCompleterFactory
	processorFactory *mockProcessorFactory
	counterFactory   *mockCounterFactory
	watcherFactory   *mockWatcherFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		stdout:           &syncBuffer{},
		stderr:           &syncBuffer{},
		configLoader:     &mockConfigLoader{},
		completerFactory: &mockCompleterFactory{},
		processorFactory: &mockProcessorFactory{},
		counterFactory:   &mockCounterFactory{},
		watcherFactory:   &mockWatcherFactory{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	getenv func(string) string
	now    func() time.Time
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

// withGetenv overrides the environment lookup for a test Env.
func withGetenv(getenv func(string) string) testEnvOption {
	return func(o *testEnvOptions) {
		o.getenv = getenv
	}
}

// withConfig makes the config loader return the given config.
func withConfig(cfg config.Config) testEnvOption {
	return func(o *testEnvOptions) {
		o.mocks.configLoader.LoadFunc = func() (config.Config, error) {
			return cfg, nil
		}
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions; command output lands in
// mocks.stdout and mocks.stderr.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		getenv: defaultTestEnv,
		now: func() time.Time {
			return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		},
		mocks: newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stdout:           options.mocks.stdout,
		Stderr:           options.mocks.stderr,
		Getenv:           options.getenv,
		Now:              options.now,
		ConfigLoader:     options.mocks.configLoader,
		CompleterFactory: options.mocks.completerFactory,
		ProcessorFactory: options.mocks.processorFactory,
		CounterFactory:   options.mocks.counterFactory,
		WatcherFactory:   options.mocks.watcherFactory,
	}

	return env, options.mocks
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns API keys for both Replicate and OpenAI.
func defaultTestEnv(key string) string {
	switch key {
	case EnvReplicateAPIToken:
		return "r8_test_token"
	case EnvOpenAIAPIKey:
		return "sk-test-key"
	default:
		return ""
	}
}

// createTranscriptFile creates a temporary transcript file for testing.
// Returns the file path. The file is automatically cleaned up after the test.
func createTranscriptFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test transcript file: %v", err)
	}
	return path
}

// configWithOutputDir returns a ConfigLoader whose config sets the given
// output directory.
func configWithOutputDir(outputDir string) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{OutputDir: outputDir}, nil
		},
	}
}
