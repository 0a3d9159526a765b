package bridge

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultReconnectDelay is the fixed delay between reconnection attempts.
// The bridge uses a flat retry policy: one timer, no backoff.
const DefaultReconnectDelay = 3 * time.Second

// supervisor owns the single reconnection timer for a transport session.
// Every schedule cancels the previous timer first, so two competing retries
// can never be in flight at once.
type supervisor struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	attempts atomic.Uint64
}

func newSupervisor(delay time.Duration) *supervisor {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &supervisor{delay: delay}
}

// schedule arms the retry timer, replacing any pending one.
func (s *supervisor) schedule(retry func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.attempts.Add(1)
	s.timer = time.AfterFunc(s.delay, retry)
}

// cancel stops any pending retry. Safe to call repeatedly.
func (s *supervisor) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// retries returns the total number of scheduled reconnection attempts.
func (s *supervisor) retries() uint64 {
	return s.attempts.Load()
}
