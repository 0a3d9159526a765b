package fusion

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRisingEdge(t *testing.T) {
	d := NewFallDebouncer(time.Hour, nil)
	defer d.Stop()

	d.Observe(false)
	if d.Active() {
		t.Fatalf("active before any true reading")
	}
	d.Observe(true)
	if !d.Active() {
		t.Fatalf("rising edge did not raise alert")
	}
}

func TestDebouncerNoRetriggerWhileAlerting(t *testing.T) {
	var raises atomic.Int32
	d := NewFallDebouncer(time.Hour, func(active bool) {
		if active {
			raises.Add(1)
		}
	})
	defer d.Stop()

	d.Observe(true)
	d.Observe(true)
	d.Observe(false)
	d.Observe(true) // New rising edge, but still within the hold

	if got := raises.Load(); got != 1 {
		t.Fatalf("raises = %d, want 1", got)
	}
	if !d.Active() {
		t.Fatalf("alert dropped early")
	}
}

func TestDebouncerExpiry(t *testing.T) {
	changes := make(chan bool, 4)
	d := NewFallDebouncer(30*time.Millisecond, func(active bool) {
		changes <- active
	})
	defer d.Stop()

	d.Observe(true)
	if got := <-changes; !got {
		t.Fatalf("first change = %v, want raise", got)
	}

	select {
	case got := <-changes:
		if got {
			t.Fatalf("second change = raise, want clear")
		}
	case <-time.After(time.Second):
		t.Fatalf("alert never expired")
	}
	if d.Active() {
		t.Fatalf("still active after expiry")
	}
}

func TestDebouncerRetriggerAfterExpiry(t *testing.T) {
	changes := make(chan bool, 4)
	d := NewFallDebouncer(20*time.Millisecond, func(active bool) {
		changes <- active
	})
	defer d.Stop()

	d.Observe(true)
	<-changes // raise
	<-changes // clear

	// The signal must fall before a new edge can raise again.
	d.Observe(true)
	if d.Active() {
		t.Fatalf("sustained true re-raised after expiry without a falling edge")
	}

	d.Observe(false)
	d.Observe(true)
	select {
	case got := <-changes:
		if !got {
			t.Fatalf("change = clear, want raise")
		}
	case <-time.After(time.Second):
		t.Fatalf("new rising edge did not raise")
	}
}

func TestDebouncerStop(t *testing.T) {
	changes := make(chan bool, 4)
	d := NewFallDebouncer(10*time.Millisecond, func(active bool) {
		changes <- active
	})

	d.Observe(true)
	<-changes
	d.Stop()
	d.Stop() // Idempotent

	select {
	case got := <-changes:
		t.Fatalf("notification after Stop: %v", got)
	case <-time.After(50 * time.Millisecond):
	}

	d.Observe(true)
	if d.Active() {
		t.Fatalf("Observe raised after Stop")
	}
}
