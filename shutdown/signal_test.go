package shutdown

import (
	"os"
	"sync"
	"syscall"
	"testing"
)

func TestSignalCounter_Increment(t *testing.T) {
	counter := NewSignalCounter(3, nil)

	if counter.Count() != 0 || counter.Last() != nil {
		t.Fatalf("new counter = (%d, %v), want (0, nil)", counter.Count(), counter.Last())
	}

	if got := counter.Increment(os.Interrupt); got != 1 {
		t.Errorf("Increment() = %d, want 1", got)
	}
	if got := counter.Increment(syscall.SIGTERM); got != 2 {
		t.Errorf("Increment() = %d, want 2", got)
	}
	if counter.Last() != syscall.SIGTERM {
		t.Errorf("Last() = %v, want SIGTERM", counter.Last())
	}
}

func TestSignalCounter_ForceCallback(t *testing.T) {
	var forced []os.Signal
	counter := NewSignalCounter(2, func(sig os.Signal) {
		forced = append(forced, sig)
	})

	counter.Increment(os.Interrupt)
	if len(forced) != 0 {
		t.Fatal("callback should not be called on first signal")
	}

	counter.Increment(syscall.SIGTERM)
	if len(forced) != 1 || forced[0] != syscall.SIGTERM {
		t.Fatalf("forced = %v, want [SIGTERM]", forced)
	}

	counter.Increment(os.Interrupt)
	if len(forced) != 2 {
		t.Errorf("callback should fire again past the threshold, got %d calls", len(forced))
	}
}

func TestSignalCounter_Concurrent(t *testing.T) {
	counter := NewSignalCounter(1000, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Increment(os.Interrupt)
		}()
	}
	wg.Wait()

	if counter.Count() != 50 {
		t.Errorf("Count() = %d, want 50", counter.Count())
	}
}
