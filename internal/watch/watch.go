// Package watch monitors a directory for newly created transcript files.
//
// Detected files are handed to a single handler one at a time in
// arrival order; the processing pipeline shares one rate limiter, so
// concurrent handling would only queue on it. A short settle delay
// gives the creating process time to finish writing before the file
// is read.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNilHandler indicates a missing file handler.
var ErrNilHandler = errors.New("handler is required")

// defaultSettleDelay gives the creating process time to finish writing
// before the file is read.
const defaultSettleDelay = 500 * time.Millisecond

// Handler processes one detected transcript file.
type Handler func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettleDelay overrides the delay between file creation and handling.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.settle = d
		}
	}
}

// WithLogf sets the destination for watcher status lines.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(w *Watcher) {
		if logf != nil {
			w.logf = logf
		}
	}
}

// Watcher monitors one directory for new transcript files.
type Watcher struct {
	dir     string
	handler Handler
	settle  time.Duration
	logf    func(format string, args ...any)
	fsw     *fsnotify.Watcher
}

// New creates a watcher for dir and registers the OS-level watch.
// Callers must Close the watcher when done.
func New(dir string, handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("%s: %w", "watching needs a file handler", ErrNilHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		handler: handler,
		settle:  defaultSettleDelay,
		logf:    func(string, ...any) {},
		fsw:     fsw,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Close releases the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run handles newly created transcript files until ctx is canceled.
//
// Handling is strictly sequential in arrival order. The file in flight
// is detached from ctx so that cancellation drains it instead of
// dropping it halfway through; Run returns once the drain completes.
func (w *Watcher) Run(ctx context.Context) error {
	w.logf("Watching %s for new transcript files (.txt, .md)...", w.dir)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch event channel closed")
			}
			if !event.Has(fsnotify.Create) || !isTranscript(event.Name) {
				continue
			}

			w.logf("New file detected: %s", event.Name)
			if err := w.waitSettle(ctx); err != nil {
				return err
			}

			// Detached from ctx: a first interrupt drains the file in
			// flight instead of aborting it mid-chunk.
			if err := w.handler(context.WithoutCancel(ctx), event.Name); err != nil {
				w.logf("Failed to process %s: %v", event.Name, err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch error channel closed")
			}
			w.logf("Watch error: %v", err)
		}
	}
}

// waitSettle waits for the settle delay unless ctx is canceled first.
func (w *Watcher) waitSettle(ctx context.Context) error {
	if w.settle <= 0 {
		return nil
	}

	timer := time.NewTimer(w.settle)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isTranscript reports whether path names a transcript file by extension.
func isTranscript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
