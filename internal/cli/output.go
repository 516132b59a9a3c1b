package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-polish/internal/format"
	"github.com/alnah/go-polish/internal/process"
)

// defaultOutputPrefix derives an output prefix from an input file name.
// Example: "meeting.txt" -> "meeting_output"
func defaultOutputPrefix(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_output"
}

// writeDocument renders doc and writes it next to prefix: always
// <prefix>.txt with the selected rendering mode, plus <prefix>.json when
// asked. Returns the written paths. Existing files are never overwritten;
// a failed second write leaves the first file in place.
func writeDocument(doc *process.Document, mode format.Mode, withJSON bool, prefix string) ([]string, error) {
	textPath := prefix + ".txt"
	if err := writeFileAtomic(textPath, format.Text(doc, mode)); err != nil {
		return nil, err
	}
	written := []string{textPath}

	if withJSON {
		data, err := format.JSON(doc)
		if err != nil {
			return written, err
		}
		jsonPath := prefix + ".json"
		if err := writeFileAtomic(jsonPath, string(data)); err != nil {
			return written, err
		}
		written = append(written, jsonPath)
	}

	return written, nil
}

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

// progressPrinter returns a pipeline progress callback that writes status
// lines to w.
func progressPrinter(w io.Writer) func(process.Progress) {
	return func(ev process.Progress) {
		switch ev.Stage {
		case process.StageSplit:
			_, _ = fmt.Fprintf(w, "Split into %d chunks\n", ev.Total)
		case process.StageChunk:
			_, _ = fmt.Fprintf(w, "Processing chunk %d/%d...\n", ev.Current, ev.Total)
		case process.StageWait:
			_, _ = fmt.Fprintf(w, "Rate limit reached, waiting %s...\n", format.DurationHuman(ev.Wait))
		}
	}
}
