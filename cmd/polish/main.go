package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-polish/internal/apierr"
	"github.com/alnah/go-polish/internal/chunk"
	"github.com/alnah/go-polish/internal/cli"
	"github.com/alnah/go-polish/internal/config"
	"github.com/alnah/go-polish/internal/format"
	"github.com/alnah/go-polish/internal/interrupt"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/process"
	"github.com/alnah/go-polish/internal/ratelimit"
	"github.com/alnah/go-polish/internal/template"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes reported to the shell.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitProcessing = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	// Root command.
	rootCmd := &cobra.Command{
		Use:     "polish",
		Short:   "Polish raw transcripts into formatted documents",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Subcommands.
	rootCmd.AddCommand(cli.ProcessCmd(env))
	rootCmd.AddCommand(cli.EstimateCmd(env))
	rootCmd.AddCommand(cli.WatchCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to shell exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	// These patterns are stable across Cobra versions (tested with v1.8+).
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3): missing credentials.
	if errors.Is(err, cli.ErrReplicateTokenMissing) || errors.Is(err, cli.ErrOpenAIKeyMissing) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4): bad names, paths, or budgets.
	if errors.Is(err, cli.ErrInvalidProvider) || errors.Is(err, cli.ErrProviderModelMismatch) ||
		errors.Is(err, model.ErrUnknown) || errors.Is(err, template.ErrUnknown) ||
		errors.Is(err, format.ErrUnknownMode) || errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, cli.ErrUnsupportedInput) || errors.Is(err, cli.ErrNoInputFiles) ||
		errors.Is(err, cli.ErrOutputExists) || errors.Is(err, cli.ErrChunkBudgetTooLarge) ||
		errors.Is(err, model.ErrInputTooLong) || errors.Is(err, chunk.ErrInvalidBudget) ||
		errors.Is(err, ratelimit.ErrInvalidConfig) || errors.Is(err, ratelimit.ErrRequestTooLarge) ||
		errors.Is(err, config.ErrUnknownKey) {
		return ExitValidation
	}

	// Processing errors (ExitProcessing = 5): the API said no.
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrModelNotFound) || errors.Is(err, apierr.ErrBadRequest) ||
		errors.Is(err, process.ErrAllChunksFailed) {
		return ExitProcessing
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
