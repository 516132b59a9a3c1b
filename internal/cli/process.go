package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-polish/internal/config"
)

// processOptions holds validated options for the process command.
type processOptions struct {
	inputPath string
	output    string
	outputDir string
	jsonOut   bool
	recursive bool
	dryRun    bool
	flags     pipelineFlags
}

// ProcessCmd creates the process command (polish transcripts through the
// API). The env parameter provides injectable dependencies for testing.
func ProcessCmd(env *Env) *cobra.Command {
	var (
		output    string
		outputDir string
		formatStr string
		jsonOut   bool
		tmpl      string
		modelName string
		provider  string
		maxTokens int
		recursive bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "process <path>",
		Short: "Polish transcript files into formatted documents",
		Long: `Process raw transcript files through a hosted language model.

The transcript is split into chunks that fit the model's context window,
each chunk is reformatted (filler words removed, punctuation restored,
paragraphs rebuilt), and the results are merged into a single document
with extracted metadata (summary, tags, key points).

Given a directory, every .txt and .md file inside is processed one at a
time; a failing file is reported and the rest continue.`,
		Example: `  polish process meeting.txt
  polish process meeting.txt -o meeting_polished --json
  polish process transcripts/ --recursive --output-dir polished/
  polish process interview.txt -t technical -m granite-3.0-8b-instruct
  polish process talk.txt --provider openai -m gpt-4o-mini
  polish process talk.txt --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := processOptions{
				inputPath: args[0],
				output:    output,
				outputDir: outputDir,
				jsonOut:   jsonOut,
				recursive: recursive,
				dryRun:    dryRun,
				flags: pipelineFlags{
					provider:  provider,
					model:     modelName,
					template:  tmpl,
					format:    formatStr,
					maxTokens: maxTokens,
				},
			}
			return runProcess(cmd, env, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path prefix (default: <input stem>_output)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for output files (default: alongside input)")
	cmd.Flags().StringVar(&formatStr, "format", "", "Output sections: metadata, text, both (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Also write <prefix>.json with the full document")
	cmd.Flags().StringVarP(&tmpl, "template", "t", "", "Formatting template: default, academic, technical, business")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Model to use (default from config)")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "API provider: replicate, openai (default from config)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Chunk budget in tokens (default: derived from model)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recurse into subdirectories")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Estimate cost and exit without calling the API")

	return cmd
}

// runProcess executes the process command with validated options.
func runProcess(cmd *cobra.Command, env *Env, opts processOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Collect input files
	files, err := collectInputs(opts.inputPath, opts.recursive)
	if err != nil {
		return err
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

	// 5. An explicit prefix only makes sense for a single file
	if opts.output != "" && len(files) > 1 {
		return fmt.Errorf("cannot use --output with %d input files; use --output-dir instead", len(files))
	}

	// === DRY RUN ===

	if opts.dryRun {
		fmt.Fprintln(env.Stderr, "Dry run: estimating cost only, nothing will be written.")

		counter, err := env.CounterFactory.NewCounter(false)
		if err != nil {
			return err
		}
		estimates, err := estimateFiles(files, settings.modelSpec, counter, settings.chunkTokens)
		if err != nil {
			return err
		}
		renderEstimates(env, settings.modelSpec, estimates)
		return nil
	}

	// === SETUP ===

	// 6. Credential from the environment (never logged)
	apiKey, err := credential(env, settings.provider)
	if err != nil {
		return err
	}

	// 7. Wire the pipeline once; the rate limiter is shared by all files
	processor, err := buildProcessor(ctx, env, settings, apiKey)
	if err != nil {
		return err
	}

	// === PROCESS ===

	multi := len(files) > 1
	var failures int
	var firstErr error

	for i, path := range files {
		if multi {
			fmt.Fprintf(env.Stderr, "[%d/%d] %s\n", i+1, len(files), path)
		}

		if err := processFile(ctx, env, processor, path, opts.output, outputDir, settings.mode, opts.jsonOut); err != nil {
			// Cancellation stops the batch; a single file's error is final.
			if !multi || ctx.Err() != nil {
				return err
			}
			failures++
			if firstErr == nil {
				firstErr = err
			}
			fmt.Fprintf(env.Stderr, "Failed to process %s: %v\n", path, err)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed: %w", failures, len(files), firstErr)
	}
	return nil
}
