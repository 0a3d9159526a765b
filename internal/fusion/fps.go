package fusion

import (
	"math"
	"sync"
	"time"
)

// FPSEstimator is a sliding-window rate counter driven by frame arrivals.
// The window boundary is checked on every arrival, not by a separate clock:
// when at least one second has elapsed the rate is published and the window
// restarts. The published value holds until the next window closes.
type FPSEstimator struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	value       int
	now         func() time.Time
}

// NewFPSEstimator creates an estimator with the wall clock.
func NewFPSEstimator() *FPSEstimator {
	e := &FPSEstimator{now: time.Now}
	e.windowStart = e.now()
	return e
}

// FrameArrived records one arrival and publishes a new rate if the current
// window is complete.
func (e *FPSEstimator) FrameArrived() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.count++
	elapsed := e.now().Sub(e.windowStart).Seconds()
	if elapsed >= 1.0 {
		e.value = int(math.Round(float64(e.count) / elapsed))
		e.count = 0
		e.windowStart = e.now()
	}
}

// Value returns the last published rate.
func (e *FPSEstimator) Value() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}
