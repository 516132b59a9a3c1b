package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-polish/internal/config"
	"github.com/alnah/go-polish/internal/interrupt"
	"github.com/alnah/go-polish/internal/watch"
)

// watchOptions holds validated options for the watch command.
type watchOptions struct {
	dir       string
	outputDir string
	jsonOut   bool
	flags     pipelineFlags
}

// WatchCmd creates the watch command (process transcript files as they
// appear). The env parameter provides injectable dependencies for testing.
func WatchCmd(env *Env) *cobra.Command {
	var (
		outputDir string
		formatStr string
		jsonOut   bool
		tmpl      string
		modelName string
		provider  string
		maxTokens int
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and polish new transcripts as they appear",
		Long: `Watch a directory for newly created .txt and .md files and run each
through the processing pipeline as it appears.

Files are handled one at a time in arrival order; a short delay after
creation lets the writing process finish before the file is read.
Press Ctrl+C to stop: the file in flight is finished first, a second
Ctrl+C quits immediately.`,
		Example: `  polish watch incoming/
  polish watch incoming/ --output-dir polished/
  polish watch incoming/ -t business --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := watchOptions{
				dir:       args[0],
				outputDir: outputDir,
				jsonOut:   jsonOut,
				flags: pipelineFlags{
					provider:  provider,
					model:     modelName,
					template:  tmpl,
					format:    formatStr,
					maxTokens: maxTokens,
				},
			}
			return runWatch(cmd, env, opts)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for output files (default: alongside input)")
	cmd.Flags().StringVar(&formatStr, "format", "", "Output sections: metadata, text, both (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Also write <prefix>.json with the full document")
	cmd.Flags().StringVarP(&tmpl, "template", "t", "", "Formatting template: default, academic, technical, business")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Model to use (default from config)")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "API provider: replicate, openai (default from config)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Chunk budget in tokens (default: derived from model)")

	return cmd
}

// runWatch executes the watch command with validated options.
func runWatch(cmd *cobra.Command, env *Env, opts watchOptions) error {
	// === VALIDATION (fail-fast) ===

	// 1. Directory exists and is a directory
	info, err := os.Stat(opts.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, opts.dir)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", opts.dir)
	}

	// 2. Load config
	cfg, err := loadConfig(env)
	if err != nil {
		return err
	}

	// 3. Resolve and validate pipeline settings
	settings, err := resolveSettings(cfg, opts.flags)
	if err != nil {
		return err
	}

	// 4. Output directory: flag > config; empty keeps outputs next to inputs
	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if outputDir != "" {
		if err := config.ValidOutputDir(outputDir); err != nil {
			return err
		}
	}

	// === SETUP ===

	// 5. Credential from the environment (never logged)
	apiKey, err := credential(env, settings.provider)
	if err != nil {
		return err
	}

	// 6. One pipeline for the whole session; the rate limiter carries
	// usage across files
	processor, err := buildProcessor(cmd.Context(), env, settings, apiKey)
	if err != nil {
		return err
	}

	handler := func(ctx context.Context, path string) error {
		return processFile(ctx, env, processor, path, "", outputDir, settings.mode, opts.jsonOut)
	}

	// === WATCH ===

	// First Ctrl+C cancels ctx; the watcher finishes the file in flight
	// before returning. Second Ctrl+C exits immediately.
	h, ctx := interrupt.NewHandler(cmd.Context())
	defer h.Stop()

	w, err := env.WatcherFactory.NewWatcher(opts.dir, handler, watch.WithLogf(func(format string, args ...any) {
		fmt.Fprintf(env.Stderr, format+"\n", args...)
	}))
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) && h.WasInterrupted() {
		fmt.Fprintln(env.Stderr, "Watcher stopped.")
	}
	return err
}
