package process

import (
	"strings"
	"unicode"
)

// maxSummaryRunes caps the merged summary length.
const maxSummaryRunes = 1000

// Document is the merged result of processing every chunk.
type Document struct {
	FormattedText string
	Metadata      Metadata
	FailedChunks  int
	TotalChunks   int
}

// ChunkResult is one chunk's outcome before merging. Failed chunks carry
// their original text in Formatted and empty metadata.
type ChunkResult struct {
	Formatted string
	Meta      Metadata
	Failed    bool
}

// merge folds per-chunk results into one text and one metadata block.
// Text joins in chunk order with a blank line. Tags union
// case-insensitively keeping the first-seen casing and order; key points
// dedupe on exact text; summaries concatenate in order and are truncated
// at a word boundary.
func merge(results []ChunkResult) (string, Metadata) {
	texts := make([]string, 0, len(results))
	var summaries []string
	var tags []string
	var keyPoints []string
	seenTags := make(map[string]bool)
	seenPoints := make(map[string]bool)

	for _, res := range results {
		if res.Formatted != "" {
			texts = append(texts, res.Formatted)
		}

		if s := strings.TrimSpace(res.Meta.Summary); s != "" {
			summaries = append(summaries, s)
		}

		for _, tag := range res.Meta.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if seenTags[key] {
				continue
			}
			seenTags[key] = true
			tags = append(tags, tag)
		}

		for _, point := range res.Meta.KeyPoints {
			point = strings.TrimSpace(point)
			if point == "" || seenPoints[point] {
				continue
			}
			seenPoints[point] = true
			keyPoints = append(keyPoints, point)
		}
	}

	meta := Metadata{
		Summary:   truncateAtWord(strings.Join(summaries, " "), maxSummaryRunes),
		Tags:      tags,
		KeyPoints: keyPoints,
	}
	return strings.Join(texts, "\n\n"), meta
}

// truncateAtWord cuts s to at most limit runes, backing up to the last
// word boundary so no word is cut in half. A cut landing exactly between
// words keeps the whole prefix.
func truncateAtWord(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := string(runes[:limit])
	if !unicode.IsSpace(runes[limit]) {
		if i := strings.LastIndexAny(cut, " \t\n"); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " \t\n")
}
