// Package interrupt provides two-stage Ctrl+C handling for long-running
// commands. The first interrupt cancels a derived context so the caller
// can drain work in flight; a second interrupt forces an immediate exit.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// stopMessage is shown on the first Ctrl+C while work in flight drains.
const stopMessage = "\nStopping... press Ctrl+C again to force quit."

// abortMessage is shown when the user forces exit with a second Ctrl+C.
const abortMessage = "\nAborted."

// Handler manages graceful shutdown with double Ctrl+C detection.
// First Ctrl+C cancels the derived context; the caller drains and exits.
// Second Ctrl+C exits immediately with ExitInterrupt.
type Handler struct {
	mu          sync.Mutex
	interrupted bool
	stopped     bool
	cancelFunc  context.CancelFunc
	done        chan struct{} // Signals listen goroutine to exit
	notifyCh    chan os.Signal

	// Injected dependencies (for testing)
	exitFunc func(int)
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	// Stderr is the writer for user-facing messages.
	// Must be safe for concurrent writes from multiple goroutines.
	// Defaults to os.Stderr which is safe at the OS level.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on first interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	h, ctx := newHandler(parent, Options{SigCh: sigCh})
	h.notifyCh = sigCh
	return h, ctx
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
// Used by tests to inject mock signal channels and exit functions.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

// newHandler creates a handler with injectable dependencies.
func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	// Apply defaults for nil options
	exitFunc := opts.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   exitFunc,
		stderr:     stderr,
	}

	// Only start listener if sigCh is provided (nil check for safety)
	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// listen handles incoming signals.
func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return // Channel closed
			}

			h.mu.Lock()
			if h.stopped {
				h.mu.Unlock()
				return
			}

			if !h.interrupted {
				// First interrupt: cancel and let the caller drain.
				h.interrupted = true
				h.cancelFunc()
				h.mu.Unlock()
				fmt.Fprintln(h.stderr, stopMessage)
				continue
			}
			h.mu.Unlock()

			// Second interrupt: exit immediately.
			fmt.Fprintln(h.stderr, abortMessage)
			h.exitFunc(ExitInterrupt)
			return // In case exitFunc doesn't actually exit (tests)
		}
	}
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Stop cleans up the handler. Should be called when done.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	// Unregister only this handler's channel so other signal listeners
	// (signal.NotifyContext in main) keep working.
	if h.notifyCh != nil {
		signal.Stop(h.notifyCh)
	}
	close(h.done) // Signal listen goroutine to exit
}
