package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"flux_cli/core"
	"flux_cli/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestHandler(t *testing.T) (*Handler, *[]int, *observer.ObservedLogs) {
	t.Helper()
	obsCore, logs := observer.New(zap.DebugLevel)
	var exits []int
	h := NewHandler(context.Background(), logging.NewLoggerFromCore(obsCore), WithExitFunc(func(code int) {
		exits = append(exits, code)
	}))
	return h, &exits, logs
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(os.Interrupt); got != core.ExitCodeSIGINT {
		t.Errorf("ExitCode(SIGINT) = %d, want %d", got, core.ExitCodeSIGINT)
	}
	if got := ExitCode(syscall.SIGTERM); got != core.ExitCodeSIGTERM {
		t.Errorf("ExitCode(SIGTERM) = %d, want %d", got, core.ExitCodeSIGTERM)
	}
}

func TestHandler_FirstSignalCancels(t *testing.T) {
	h, exits, logs := newTestHandler(t)

	if h.Interrupted() {
		t.Fatal("Interrupted() before any signal")
	}

	h.Handle(os.Interrupt)

	select {
	case <-h.Context().Done():
	default:
		t.Fatal("context should be cancelled after the first signal")
	}
	if !h.Interrupted() {
		t.Error("Interrupted() = false after signal")
	}
	if len(*exits) != 0 {
		t.Errorf("exit called on first signal: %v", *exits)
	}
	if logs.FilterMessageSnippet("stopping at the next step").Len() != 1 {
		t.Error("expected a warning for the first signal")
	}
}

func TestHandler_SecondSignalForcesExit(t *testing.T) {
	h, exits, _ := newTestHandler(t)

	var cleaned bool
	h.Register("history-db", 10, func(context.Context) error {
		cleaned = true
		return nil
	})

	h.Handle(os.Interrupt)
	h.Handle(syscall.SIGTERM)

	if len(*exits) != 1 || (*exits)[0] != core.ExitCodeSIGTERM {
		t.Errorf("exits = %v, want [%d]", *exits, core.ExitCodeSIGTERM)
	}
	if !cleaned {
		t.Error("cleanups should run before a forced exit")
	}
}

func TestHandler_ExitCodeFor(t *testing.T) {
	cancelled := fmt.Errorf("generation: %w", context.Canceled)

	h, _, _ := newTestHandler(t)
	if got := h.ExitCodeFor(nil); got != core.ExitCodeSuccess {
		t.Errorf("ExitCodeFor(nil) = %d", got)
	}
	if got := h.ExitCodeFor(errors.New("boom")); got != core.ExitCodeError {
		t.Errorf("ExitCodeFor(error) = %d", got)
	}
	if got := h.ExitCodeFor(cancelled); got != core.ExitCodeSIGINT {
		t.Errorf("ExitCodeFor(cancelled) without signal = %d, want %d", got, core.ExitCodeSIGINT)
	}

	h.Handle(syscall.SIGTERM)
	if got := h.ExitCodeFor(cancelled); got != core.ExitCodeSIGTERM {
		t.Errorf("ExitCodeFor(cancelled) after SIGTERM = %d, want %d", got, core.ExitCodeSIGTERM)
	}
}

func TestHandler_Close(t *testing.T) {
	h, _, _ := newTestHandler(t)
	h.Start()
	h.Start()

	h.Register("failing", 1, func(context.Context) error { return errors.New("close failed") })

	err := h.Close(context.Background())
	if err == nil || err.Error() != "failing: close failed" {
		t.Errorf("Close() error = %v", err)
	}
	if h.Context().Err() == nil {
		t.Error("context should be cancelled after Close")
	}
	if err := h.Close(context.Background()); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
