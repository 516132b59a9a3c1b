package model

import (
	"errors"
	"fmt"
)

// ErrInputTooLong indicates the input exceeds the model's context window.
var ErrInputTooLong = errors.New("input too long")

// Default chunk budget in tokens. Halving the context window leaves room
// for the system prompt and keeps the estimated output within limits.
const defaultChunkTokens = 1500

// CostEstimate is the projected cost of processing one input.
// Costs are USD; callers format with %.6f.
type CostEstimate struct {
	Model                 Spec
	InputTokens           int
	EstimatedOutputTokens int
	InputCost             float64
	OutputCost            float64
	TotalCost             float64
}

// EstimateOutputTokens projects output length from input length.
// The heuristic assumes output roughly doubles the input, capped at the
// model's output limit.
func (s Spec) EstimateOutputTokens(inputTokens int) int {
	return min(inputTokens*2, s.MaxOutputTokens)
}

// EstimateCost projects the cost of a single completion call.
// maxOutputTokens caps the output estimate when positive; zero means use
// the heuristic. Returns ErrInputTooLong when the input does not fit the
// model's context window.
func (s Spec) EstimateCost(inputTokens, maxOutputTokens int) (CostEstimate, error) {
	if inputTokens > s.MaxInputTokens {
		return CostEstimate{}, fmt.Errorf(
			"input too long (%d tokens, model max %d): %w",
			inputTokens, s.MaxInputTokens, ErrInputTooLong)
	}

	outputTokens := s.EstimateOutputTokens(inputTokens)
	if maxOutputTokens > 0 {
		outputTokens = min(maxOutputTokens, s.MaxOutputTokens)
	}

	inputCost := float64(inputTokens) / 1_000_000 * s.InputCostPer1M
	outputCost := float64(outputTokens) / 1_000_000 * s.OutputCostPer1M

	return CostEstimate{
		Model:                 s,
		InputTokens:           inputTokens,
		EstimatedOutputTokens: outputTokens,
		InputCost:             inputCost,
		OutputCost:            outputCost,
		TotalCost:             inputCost + outputCost,
	}, nil
}

// DefaultChunkTokens returns the chunk budget to use when none is
// configured. Small-context models get half their window; everything
// else gets the standard budget.
func (s Spec) DefaultChunkTokens() int {
	return min(defaultChunkTokens, s.MaxInputTokens/2)
}
