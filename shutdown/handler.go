package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"flux_cli/core"
	"flux_cli/logging"

	"go.uber.org/zap"
)

// forcedCleanupTimeout bounds cleanups run on a forced exit.
const forcedCleanupTimeout = 2 * time.Second

// ExitCode returns the conventional exit code for a termination signal.
func ExitCode(sig os.Signal) int {
	if sig == syscall.SIGTERM {
		return core.ExitCodeSIGTERM
	}
	return core.ExitCodeSIGINT
}

// Handler owns the run context of one CLI invocation.
//
// Usage:
//
//	h := shutdown.NewHandler(context.Background(), logger)
//	h.Start()
//	defer h.Close(context.Background())
//	h.Register("history-db", 10, func(context.Context) error { return database.Close() })
//	err := processor.Process(h.Context(), req)
type Handler struct {
	logger   *logging.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	signals  *SignalCounter
	cleanups *Registry
	exit     func(int)

	mu      sync.Mutex
	started bool
	sigChan chan os.Signal
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExitFunc replaces os.Exit for forced exits.
func WithExitFunc(exit func(int)) HandlerOption {
	return func(h *Handler) {
		h.exit = exit
	}
}

// NewHandler creates a Handler whose context derives from parent.
func NewHandler(parent context.Context, logger *logging.Logger, opts ...HandlerOption) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		logger:   logger.Named("shutdown"),
		ctx:      ctx,
		cancel:   cancel,
		cleanups: NewRegistry(),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.signals = NewSignalCounter(2, h.force)
	return h
}

// Context is cancelled by the first signal or by Close.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Register adds a cleanup run by Close or by a forced exit.
func (h *Handler) Register(name string, priority int, fn CleanupFunc) {
	h.cleanups.Register(name, priority, fn)
}

// Start listens for SIGINT and SIGTERM. Calling it again is a no-op.
func (h *Handler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return
	}
	h.started = true

	h.sigChan = make(chan os.Signal, 2)
	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)

	go func(ch <-chan os.Signal) {
		for sig := range ch {
			h.Handle(sig)
		}
	}(h.sigChan)
}

// Handle processes one signal: the first cancels the context, the second
// forces an exit.
func (h *Handler) Handle(sig os.Signal) {
	if h.signals.Increment(sig) == 1 {
		h.logger.Warn("received signal, stopping at the next step (press Ctrl+C again to force)",
			zap.String("signal", sig.String()))
		h.cancel()
	}
}

// Interrupted reports whether a signal was received.
func (h *Handler) Interrupted() bool {
	return h.signals.Count() > 0
}

// ExitCodeFor maps a run error to an exit code. A cancelled run exits with the
// code of the signal that cancelled it.
func (h *Handler) ExitCodeFor(err error) int {
	if err != nil && errors.Is(err, context.Canceled) {
		if sig := h.signals.Last(); sig != nil {
			return ExitCode(sig)
		}
	}
	return core.ExitCodeForError(err)
}

// Close stops listening for signals, cancels the context and runs cleanups.
func (h *Handler) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.sigChan != nil {
		signal.Stop(h.sigChan)
		close(h.sigChan)
		h.sigChan = nil
	}
	h.mu.Unlock()

	h.cancel()
	return errors.Join(h.cleanups.Run(ctx)...)
}

func (h *Handler) force(sig os.Signal) {
	h.logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), forcedCleanupTimeout)
	defer cancel()
	for _, err := range h.cleanups.Run(ctx) {
		h.logger.Error("cleanup failed", zap.Error(err))
	}
	h.exit(ExitCode(sig))
}
