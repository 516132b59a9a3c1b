package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-polish/internal/chunk"
	"github.com/alnah/go-polish/internal/format"
	"github.com/alnah/go-polish/internal/model"
	"github.com/alnah/go-polish/internal/token"
)

// maxCountWorkers bounds concurrent per-file token counting. Counting is
// pure CPU work; a handful of workers keeps large directories fast without
// starving anything.
const maxCountWorkers = 4

// Panel styles for the estimate output.
var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true)
)

// panel renders a bordered panel with a bold title above the body.
func panel(title, body string) string {
	return panelStyle.Render(panelTitleStyle.Render(title)+"\n"+body) + "\n"
}

// estimateOptions holds validated options for the estimate command.
type estimateOptions struct {
	inputPath   string
	model       string
	recursive   bool
	exactTokens bool
}

// EstimateCmd creates the estimate command (project cost without calling
// the API). The env parameter provides injectable dependencies for testing.
func EstimateCmd(env *Env) *cobra.Command {
	var (
		modelName   string
		recursive   bool
		exactTokens bool
	)

	cmd := &cobra.Command{
		Use:   "estimate <path>",
		Short: "Estimate processing cost without calling the API",
		Long: `Estimate token counts and USD cost for processing transcript files.

Counting is entirely local: no API call is made and no credential is
needed. Token counts use a fast byte heuristic by default; pass
--exact-tokens for a BPE count (slower, closer to what the API bills).

When given a directory, all .txt and .md files inside are estimated and
a combined total is shown.`,
		Example: `  polish estimate meeting.txt
  polish estimate transcripts/ --recursive
  polish estimate interview.txt -m granite-3.0-8b-instruct
  polish estimate lecture.txt --exact-tokens`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := estimateOptions{
				inputPath:   args[0],
				model:       modelName,
				recursive:   recursive,
				exactTokens: exactTokens,
			}
			return runEstimate(cmd, env, opts)
		},
	}

	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Model to estimate for (default from config)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recurse into subdirectories")
	cmd.Flags().BoolVar(&exactTokens, "exact-tokens", false, "Count tokens with BPE instead of the byte heuristic")

	return cmd
}

// fileEstimate is the local estimate for one transcript file.
type fileEstimate struct {
	path   string
	size   int64
	chunks int
	cost   model.CostEstimate
}

// estimateFile counts one file's tokens and projects its processing cost.
// Chunks are costed individually because that is how processing submits
// them; a file larger than the model's window is fine as long as each
// chunk fits.
func estimateFile(path string, spec model.Spec, counter token.Counter, chunkTokens int) (fileEstimate, error) {
	text, err := readTranscript(path)
	if err != nil {
		return fileEstimate{}, err
	}

	splitter, err := chunk.NewSplitter(chunkTokens, counter)
	if err != nil {
		return fileEstimate{}, err
	}
	chunks := splitter.Split(text)

	total := model.CostEstimate{Model: spec}
	for _, ch := range chunks {
		cost, err := spec.EstimateCost(ch.Tokens, 0)
		if err != nil {
			return fileEstimate{}, fmt.Errorf("%s: %w", path, err)
		}
		total.InputTokens += cost.InputTokens
		total.EstimatedOutputTokens += cost.EstimatedOutputTokens
		total.InputCost += cost.InputCost
		total.OutputCost += cost.OutputCost
		total.TotalCost += cost.TotalCost
	}

	return fileEstimate{
		path:   path,
		size:   int64(len(text)),
		chunks: len(chunks),
		cost:   total,
	}, nil
}

// estimateFiles runs estimateFile over every path under a bounded worker
// pool. Results keep input order; the first error wins.
func estimateFiles(paths []string, spec model.Spec, counter token.Counter, chunkTokens int) ([]fileEstimate, error) {
	results := make([]fileEstimate, len(paths))

	var g errgroup.Group
	g.SetLimit(maxCountWorkers)
	for i, path := range paths {
		g.Go(func() error {
			est, err := estimateFile(path, spec, counter, chunkTokens)
			if err != nil {
				return err
			}
			results[i] = est
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// modelPanel renders the model information panel.
func modelPanel(spec model.Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model:   %s (%s)\n", spec.Name, spec.ID)
	fmt.Fprintf(&b, "Vendor:  %s\n", spec.Vendor)
	fmt.Fprintf(&b, "Input:   $%.2f / 1M tokens\n", spec.InputCostPer1M)
	fmt.Fprintf(&b, "Output:  $%.2f / 1M tokens", spec.OutputCostPer1M)
	return panel("Model Information", b.String())
}

// filePanel renders one file's estimate panel.
func filePanel(est fileEstimate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Size:           %s\n", format.Size(est.size))
	fmt.Fprintf(&b, "Input tokens:   %d\n", est.cost.InputTokens)
	fmt.Fprintf(&b, "Output tokens:  %d (estimated)\n", est.cost.EstimatedOutputTokens)
	fmt.Fprintf(&b, "Chunks:         %d\n", est.chunks)
	fmt.Fprintf(&b, "Input cost:     $%.6f\n", est.cost.InputCost)
	fmt.Fprintf(&b, "Output cost:    $%.6f\n", est.cost.OutputCost)
	fmt.Fprintf(&b, "Total cost:     $%.6f", est.cost.TotalCost)
	return panel(est.path, b.String())
}

// totalPanel renders the combined panel for multi-file runs.
func totalPanel(estimates []fileEstimate) string {
	var inputTokens, outputTokens, chunks int
	var totalCost float64
	for _, est := range estimates {
		inputTokens += est.cost.InputTokens
		outputTokens += est.cost.EstimatedOutputTokens
		chunks += est.chunks
		totalCost += est.cost.TotalCost
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Input tokens:   %d\n", inputTokens)
	fmt.Fprintf(&b, "Output tokens:  %d (estimated)\n", outputTokens)
	fmt.Fprintf(&b, "Chunks:         %d\n", chunks)
	fmt.Fprintf(&b, "Total cost:     $%.6f", totalCost)
	return panel(fmt.Sprintf("Total (%d files)", len(estimates)), b.String())
}

// renderEstimates writes the model panel, one panel per file, and the
// total panel when more than one file was estimated.
func renderEstimates(env *Env, spec model.Spec, estimates []fileEstimate) {
	fmt.Fprintln(env.Stdout, modelPanel(spec))
	for _, est := range estimates {
		fmt.Fprintln(env.Stdout, filePanel(est))
	}
	if len(estimates) > 1 {
		fmt.Fprintln(env.Stdout, totalPanel(estimates))
	}
}

// runEstimate executes the estimate command with validated options.
func runEstimate(cmd *cobra.Command, env *Env, opts estimateOptions) error {
	// === VALIDATION (fail-fast) ===

	// 1. Collect input files
	files, err := collectInputs(opts.inputPath, opts.recursive)
	if err != nil {
		return err
	}

	// 2. Load config for model and chunk defaults
	cfg, err := loadConfig(env)
	if err != nil {
		return err
	}

	// 3. Resolve model: flag > config
	modelStr := opts.model
	if modelStr == "" {
		modelStr = cfg.Model
	}
	name, err := model.ParseName(modelStr)
	if err != nil {
		return err
	}
	spec := name.Spec()

	// 4. Token counter: heuristic unless BPE was requested
	counter, err := env.CounterFactory.NewCounter(opts.exactTokens)
	if err != nil {
		return err
	}

	// 5. Chunk budget: config > derived from the model's input window
	chunkTokens := cfg.Chunk.MaxTokens
	if chunkTokens == 0 {
		chunkTokens = spec.DefaultChunkTokens()
	}

	// === COUNT ===

	estimates, err := estimateFiles(files, spec, counter, chunkTokens)
	if err != nil {
		return err
	}

	renderEstimates(env, spec, estimates)
	return nil
}
