// Package chunk splits transcript text into spans that each fit a
// completion request's token budget. Splitting prefers paragraph
// boundaries, falls back to Unicode sentence boundaries for oversized
// paragraphs, and hard-splits at rune boundaries as a last resort.
package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/sentences"

	"github.com/alnah/go-polish/internal/token"
)

// ErrInvalidBudget indicates a non-positive per-chunk token budget.
var ErrInvalidBudget = errors.New("invalid chunk token budget")

// Byte heuristic for the initial hard-split cut. Matches the token
// package's estimation rate.
const bytesPerToken = 4

// Chunk is one contiguous span of the input, sized for a single request.
// Immutable once produced; Index 0 is the earliest span.
type Chunk struct {
	Index  int
	Text   string
	Tokens int // estimate from the splitter's counter
}

// Splitter divides text into chunks under a fixed token budget.
// The same counter must be shared with rate-limit accounting so both
// components agree on request cost.
type Splitter struct {
	maxTokens int
	counter   token.Counter
}

// NewSplitter creates a Splitter with the given per-chunk budget.
// A nil counter defaults to the byte heuristic. Returns ErrInvalidBudget
// if maxTokens is not positive.
func NewSplitter(maxTokens int, counter token.Counter) (*Splitter, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("chunk budget must be positive, got %d: %w", maxTokens, ErrInvalidBudget)
	}
	if counter == nil {
		counter = token.HeuristicCounter{}
	}
	return &Splitter{maxTokens: maxTokens, counter: counter}, nil
}

// MaxTokens returns the configured per-chunk budget.
func (s *Splitter) MaxTokens() int {
	return s.maxTokens
}

// Split divides text into ordered chunks that each estimate at or under
// the budget. Whitespace-only input yields no chunks. Chunk boundaries
// normalize surrounding whitespace; all other content is preserved in
// input order.
func (s *Splitter) Split(text string) []Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if s.counter.Count(trimmed) <= s.maxTokens {
		return []Chunk{{Index: 0, Text: trimmed, Tokens: s.counter.Count(trimmed)}}
	}

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		piece := strings.TrimSpace(current.String())
		current.Reset()
		currentTokens = 0
		if piece == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   piece,
			Tokens: s.counter.Count(piece),
		})
	}

	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}

		// A paragraph over the budget on its own can never be accumulated;
		// split it down and emit the pieces as standalone chunks.
		if s.counter.Count(para) > s.maxTokens {
			flush()
			for _, piece := range s.splitOversized(para) {
				current.WriteString(piece)
				flush()
			}
			continue
		}

		// Account the paragraph with its joining separator so the
		// accumulated estimate never undercounts the final chunk text.
		add := para
		if current.Len() > 0 {
			add = "\n\n" + para
		}
		addTokens := s.counter.Count(add)

		if current.Len() > 0 && currentTokens+addTokens > s.maxTokens {
			flush()
			add = para
			addTokens = s.counter.Count(add)
		}
		current.WriteString(add)
		currentTokens += addTokens
	}
	flush()

	return chunks
}

// splitOversized breaks a paragraph that exceeds the budget into pieces
// at Unicode sentence boundaries. Sentences that alone exceed the budget
// are hard-split. Concatenating the pieces reproduces the paragraph.
func (s *Splitter) splitOversized(para string) []string {
	var pieces []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		pieces = append(pieces, current.String())
		current.Reset()
		currentTokens = 0
	}

	// uax29 segments include trailing whitespace, so no separator
	// bookkeeping is needed here.
	for _, seg := range sentences.SegmentAll([]byte(para)) {
		sentence := string(seg)
		sentenceTokens := s.counter.Count(sentence)

		if sentenceTokens > s.maxTokens {
			flush()
			pieces = append(pieces, s.hardSplit(sentence)...)
			continue
		}

		if current.Len() > 0 && currentTokens+sentenceTokens > s.maxTokens {
			flush()
		}
		current.WriteString(sentence)
		currentTokens += sentenceTokens
	}
	flush()

	return pieces
}

// hardSplit cuts text at rune boundaries into budget-sized pieces.
// The initial cut comes from the byte heuristic and shrinks until the
// counter accepts it. A single rune is never split, so a degenerate
// budget may be exceeded by one indivisible rune.
func (s *Splitter) hardSplit(text string) []string {
	var pieces []string
	for text != "" {
		cut := min(len(text), s.maxTokens*bytesPerToken)
		cut = runeAlign(text, cut)

		for cut > 0 && s.counter.Count(text[:cut]) > s.maxTokens {
			cut = runeAlign(text, cut/2)
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(text)
			cut = size
		}

		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	return pieces
}

// runeAlign moves i back to the nearest rune start in s.
func runeAlign(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
