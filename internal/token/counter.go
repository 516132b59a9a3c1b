// Package token estimates token counts for LLM prompt sizing.
//
// Two strategies are provided: a zero-dependency heuristic suitable for
// budgeting and cost estimates, and an exact BPE counter backed by
// tiktoken for when precision matters more than startup cost.
package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding used for exact counting. cl100k_base matches the tokenizer
// family of the chat models this tool targets.
const defaultEncoding = "cl100k_base"

// Heuristic estimation: English prose averages ~4 bytes/token.
const charsPerToken = 4

// Counter estimates the number of tokens in a text.
// Implementations must be safe for concurrent use.
type Counter interface {
	Count(text string) int
}

// HeuristicCounter estimates tokens as ceil(bytes/4).
//
// The estimate is deliberately simple: it never under-counts by much on
// English prose, is deterministic across platforms, and needs no model
// data at startup. Use TiktokenCounter when exact counts are required.
type HeuristicCounter struct{}

// Count returns ceil(len(text)/4). Empty text counts as zero tokens.
func (HeuristicCounter) Count(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TiktokenCounter counts tokens with the cl100k_base BPE encoding.
type TiktokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the cl100k_base encoding.
// The first call may fetch encoding data; failures surface here rather
// than on Count.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	tke, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", defaultEncoding, err)
	}
	return &TiktokenCounter{tke: tke}, nil
}

// Count returns the exact number of cl100k_base tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

// Compile-time interface checks.
var (
	_ Counter = HeuristicCounter{}
	_ Counter = (*TiktokenCounter)(nil)
)
