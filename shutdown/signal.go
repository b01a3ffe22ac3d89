// Package shutdown turns interrupt signals into run cancellation.
//
// The first SIGINT or SIGTERM cancels the run context, which the pipeline
// observes at the next download chunk or denoising step. A second signal
// runs the registered cleanups and exits immediately.
package shutdown

import (
	"os"
	"sync"
)

// SignalCounter counts shutdown signals and calls onForce once the count
// reaches forceAfter.
//
// Usage:
//
//	counter := NewSignalCounter(2, func(sig os.Signal) {
//	    os.Exit(ExitCode(sig))
//	})
//	for sig := range sigChan {
//	    if counter.Increment(sig) == 1 {
//	        cancel()
//	    }
//	}
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	last       os.Signal
	forceAfter int
	onForce    func(os.Signal)
}

// NewSignalCounter creates a SignalCounter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func(os.Signal)) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment records sig and returns the new count. onForce is called with sig
// on every signal at or past the threshold, while the lock is held.
func (s *SignalCounter) Increment(sig os.Signal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.last = sig
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce(sig)
	}
	return s.count
}

// Count returns the number of signals received.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Last returns the most recent signal, or nil if none was received.
func (s *SignalCounter) Last() os.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
