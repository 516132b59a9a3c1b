package process

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Metadata holds the structured analysis extracted from the text.
type Metadata struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	KeyPoints []string `json:"key_points"`
}

// chunkResponse is the JSON object the prompt asks the model to return.
type chunkResponse struct {
	Metadata      Metadata `json:"metadata"`
	FormattedText string   `json:"formatted_text"`
}

// parseChunkResponse decodes a model reply leniently. If no usable JSON
// can be recovered, or the recovered object carries no formatted text,
// the original chunk text stands in so content is never lost.
func parseChunkResponse(raw, original string) (string, Metadata) {
	resp, ok := decodeChunkResponse(raw)
	if !ok {
		return original, Metadata{}
	}

	formatted := strings.TrimSpace(resp.FormattedText)
	if formatted == "" {
		formatted = original
	}
	return formatted, resp.Metadata
}

// decodeChunkResponse tries increasingly forgiving readings of the reply:
// strict JSON first, then the outermost object (models often wrap JSON in
// prose or code fences), then that object with common mistakes repaired.
func decodeChunkResponse(raw string) (chunkResponse, bool) {
	var resp chunkResponse
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return chunkResponse{}, false
	}
	inner := raw[start : end+1]

	resp = chunkResponse{}
	if err := json.Unmarshal([]byte(inner), &resp); err == nil {
		return resp, true
	}

	resp = chunkResponse{}
	if err := json.Unmarshal([]byte(sanitizeJSON(inner)), &resp); err == nil {
		return resp, true
	}

	return chunkResponse{}, false
}

// Repairs for the mistakes models make most often: smart quotes, Python
// literals, and trailing commas.
var (
	smartQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, // double quotes
		"‘", "'", "’", "'", // single quotes
	)
	pyTrue        = regexp.MustCompile(`\bTrue\b`)
	pyFalse       = regexp.MustCompile(`\bFalse\b`)
	pyNone        = regexp.MustCompile(`\bNone\b`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

func sanitizeJSON(s string) string {
	s = smartQuotes.Replace(s)
	s = pyTrue.ReplaceAllString(s, "true")
	s = pyFalse.ReplaceAllString(s, "false")
	s = pyNone.ReplaceAllString(s, "null")
	s = trailingComma.ReplaceAllString(s, "$1")
	return s
}
