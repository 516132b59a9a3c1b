package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// transcriptExts lists the file types accepted as transcript input.
// Directory collection and the watch filter use the same set.
var transcriptExts = map[string]bool{
	".txt": true,
	".md":  true,
}

// transcriptExtsList returns a sorted, comma-separated list for error messages.
func transcriptExtsList() string {
	exts := make([]string, 0, len(transcriptExts))
	for ext := range transcriptExts {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// isTranscriptFile reports whether path has a transcript extension.
func isTranscriptFile(path string) bool {
	return transcriptExts[strings.ToLower(filepath.Ext(path))]
}

// collectInputs resolves path into the ordered list of transcript files to
// process. A file resolves to itself; a directory collects its transcript
// entries sorted by name, walking subdirectories when recursive is set.
func collectInputs(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("cannot access input path: %w", err)
	}

	if !info.IsDir() {
		if !isTranscriptFile(path) {
			return nil, fmt.Errorf("unsupported file type %q (supported: %s): %w",
				filepath.Ext(path), transcriptExtsList(), ErrUnsupportedInput)
		}
		return []string{path}, nil
	}

	var files []string
	if recursive {
		walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isTranscriptFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("cannot walk directory %s: %w", path, walkErr)
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read directory %s: %w", path, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isTranscriptFile(e.Name()) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no transcript files (%s) in %s: %w", transcriptExtsList(), path, ErrNoInputFiles)
	}
	return files, nil
}

// readTranscript reads one input file and rejects empty content.
func readTranscript(path string) (string, error) {
	// #nosec G304 -- inputPath is user-provided, validated by collectInputs
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("input file is empty: %s", path)
	}
	return text, nil
}
