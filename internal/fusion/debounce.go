package fusion

import (
	"sync"
	"time"
)

// DefaultFallHold is how long a fall alert stays raised after its
// triggering edge.
const DefaultFallHold = 3 * time.Second

// FallDebouncer edge-detects the raw fall signal and turns it into a timed,
// self-clearing alert. Only a rising edge (false/absent to true) raises the
// alert; further true readings while alerting neither re-trigger nor extend
// the hold, so a noisy upstream boolean cannot make the alert flicker.
type FallDebouncer struct {
	mu       sync.Mutex
	hold     time.Duration
	last     bool
	alerting bool
	timer    *time.Timer
	stopped  bool
	onChange func(active bool)
}

// NewFallDebouncer creates a debouncer with the given hold duration
// (DefaultFallHold when zero). onChange may be nil; it is called outside the
// lock on every Idle/Alerting transition.
func NewFallDebouncer(hold time.Duration, onChange func(active bool)) *FallDebouncer {
	if hold <= 0 {
		hold = DefaultFallHold
	}
	return &FallDebouncer{hold: hold, onChange: onChange}
}

// Observe feeds one raw signal reading into the state machine.
func (d *FallDebouncer) Observe(signal bool) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	rising := signal && !d.last
	d.last = signal

	if !rising || d.alerting {
		d.mu.Unlock()
		return
	}

	d.alerting = true
	// Cancel-and-replace: only ever one hold timer in flight.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.hold, d.expire)
	notify := d.onChange
	d.mu.Unlock()

	if notify != nil {
		notify(true)
	}
}

func (d *FallDebouncer) expire() {
	d.mu.Lock()
	if d.stopped || !d.alerting {
		d.mu.Unlock()
		return
	}
	d.alerting = false
	d.timer = nil
	notify := d.onChange
	d.mu.Unlock()

	if notify != nil {
		notify(false)
	}
}

// Active reports whether the alert is currently raised.
func (d *FallDebouncer) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.alerting
}

// Stop cancels any pending hold timer so it cannot fire against torn-down
// state. Idempotent.
func (d *FallDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.alerting = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
