// Package format renders processed documents for terminal and file
// output, plus small human-readable unit helpers shared by the CLI.
package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-polish/internal/process"
)

// ErrUnknownMode indicates an invalid output format name.
var ErrUnknownMode = errors.New("unknown output format")

// Mode selects which document sections text rendering includes.
type Mode string

// Output format modes.
const (
	ModeMetadata Mode = "metadata"
	ModeText     Mode = "text"
	ModeBoth     Mode = "both"
)

// DefaultMode renders metadata and formatted text together.
const DefaultMode = ModeBoth

// Modes returns all valid mode names for help and error messages.
func Modes() []string {
	return []string{string(ModeMetadata), string(ModeText), string(ModeBoth)}
}

// ParseMode validates and parses an output format name.
// Returns ErrUnknownMode if the name is not recognized.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMetadata, ModeText, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (available: %s): %w",
		s, strings.Join(Modes(), ", "), ErrUnknownMode)
}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Text renders the document sections selected by mode.
//
// The layout places a banner over each block and underlines every
// metadata label:
//
//	METADATA
//	========
//
//	Summary:
//	--------
//	...
func Text(doc *process.Document, mode Mode) string {
	var b strings.Builder

	if mode == ModeMetadata || mode == ModeBoth {
		writeBanner(&b, "METADATA")

		writeLabel(&b, "Summary:")
		b.WriteString(doc.Metadata.Summary)
		b.WriteString("\n\n")

		writeLabel(&b, "Tags:")
		b.WriteString(strings.Join(doc.Metadata.Tags, ", "))
		b.WriteString("\n\n")

		writeLabel(&b, "Key Points:")
		for _, p := range doc.Metadata.KeyPoints {
			b.WriteString("* ")
			b.WriteString(p)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if mode == ModeText || mode == ModeBoth {
		writeBanner(&b, "FORMATTED TEXT")
		b.WriteString(doc.FormattedText)
		b.WriteString("\n")
	}

	return b.String()
}

// writeBanner writes a block title double-underlined to its own length.
func writeBanner(b *strings.Builder, title string) {
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(title)))
	b.WriteString("\n\n")
}

// writeLabel writes a metadata label underlined to its own length.
func writeLabel(b *strings.Builder, label string) {
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", len(label)))
	b.WriteString("\n")
}

// jsonDocument is the JSON wire shape of a processed document.
type jsonDocument struct {
	Metadata      process.Metadata `json:"metadata"`
	FormattedText string           `json:"formatted_text"`
	FailedChunks  int              `json:"failed_chunks"`
	TotalChunks   int              `json:"total_chunks"`
}

// JSON renders the whole document as indented JSON with a trailing
// newline. Nil metadata lists are encoded as empty arrays.
func JSON(doc *process.Document) ([]byte, error) {
	out := jsonDocument{
		Metadata:      doc.Metadata,
		FormattedText: doc.FormattedText,
		FailedChunks:  doc.FailedChunks,
		TotalChunks:   doc.TotalChunks,
	}
	if out.Metadata.Tags == nil {
		out.Metadata.Tags = []string{}
	}
	if out.Metadata.KeyPoints == nil {
		out.Metadata.KeyPoints = []string{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// DurationHuman formats a duration for human display.
// Examples: "2h", "1h30m", "2m5s", "45s"
func DurationHuman(d time.Duration) string {
	if d >= time.Hour {
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if d >= time.Minute {
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds > 0 {
			return fmt.Sprintf("%dm%ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", d/time.Second)
}

// Size formats a size in bytes for human display.
// Uses MB for sizes >= 1MB, KB otherwise.
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	if bytes >= mb {
		return fmt.Sprintf("%d MB", bytes/mb)
	}
	if bytes >= kb {
		return fmt.Sprintf("%d KB", bytes/kb)
	}
	return fmt.Sprintf("%d bytes", bytes)
}
