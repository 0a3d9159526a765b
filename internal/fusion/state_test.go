package fusion

import (
	"testing"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

func boolPtr(v bool) *bool { return &v }

func TestStateSparseMerge(t *testing.T) {
	s := NewState()

	s.Apply(types.Update{Image: []byte("jpeg-1")})
	s.Apply(types.Update{BoundingBoxes: []types.BoundingBox{{X1: 1, Y1: 2, X2: 3, Y2: 4, Confidence: 0.9}}})

	frame := s.Frame()
	if string(frame.Image) != "jpeg-1" {
		t.Fatalf("image clobbered by box-only update: %q", frame.Image)
	}
	if len(frame.BoundingBoxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(frame.BoundingBoxes))
	}

	s.Apply(types.Update{Image: []byte("jpeg-2")})
	frame = s.Frame()
	if string(frame.Image) != "jpeg-2" {
		t.Fatalf("image not replaced: %q", frame.Image)
	}
	if len(frame.BoundingBoxes) != 1 {
		t.Fatalf("boxes clobbered by image-only update: %d", len(frame.BoundingBoxes))
	}
}

func TestStateEmptySliceIsObservation(t *testing.T) {
	s := NewState()

	s.Apply(types.Update{BoundingBoxes: []types.BoundingBox{{Confidence: 0.8}}})
	s.Apply(types.Update{BoundingBoxes: []types.BoundingBox{}})

	if n := len(s.Frame().BoundingBoxes); n != 0 {
		t.Fatalf("empty observation did not clear boxes: %d", n)
	}

	// A nil slice means the field was absent from the message entirely.
	s.Apply(types.Update{BoundingBoxes: []types.BoundingBox{{Confidence: 0.8}}})
	s.Apply(types.Update{Image: []byte("x")})
	if n := len(s.Frame().BoundingBoxes); n != 1 {
		t.Fatalf("absent field cleared boxes: %d", n)
	}
}

func TestStateFallSignal(t *testing.T) {
	s := NewState()

	s.Apply(types.Update{FallSignal: boolPtr(true)})
	if !s.Frame().FallSignal {
		t.Fatalf("fall signal not set")
	}

	s.Apply(types.Update{Image: []byte("x")})
	if !s.Frame().FallSignal {
		t.Fatalf("fall signal cleared by unrelated update")
	}

	s.Apply(types.Update{FallSignal: boolPtr(false)})
	if s.Frame().FallSignal {
		t.Fatalf("fall signal not cleared")
	}
}

func TestStateReceivedAt(t *testing.T) {
	s := NewState()
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return stamp }

	s.Apply(types.Update{Image: []byte("x")})
	if got := s.Frame().ReceivedAt; !got.Equal(stamp) {
		t.Fatalf("ReceivedAt = %v, want %v", got, stamp)
	}
}

func TestStateFrameIsCopy(t *testing.T) {
	s := NewState()
	s.Apply(types.Update{BoundingBoxes: []types.BoundingBox{{Confidence: 0.5}}})

	frame := s.Frame()
	frame.BoundingBoxes[0].Confidence = 0.1

	if got := s.Frame().BoundingBoxes[0].Confidence; got != 0.5 {
		t.Fatalf("caller mutated internal state: conf = %v", got)
	}
}

func TestStateReset(t *testing.T) {
	s := NewState()
	s.Apply(types.Update{Image: []byte("x"), FallSignal: boolPtr(true)})
	s.Reset()

	frame := s.Frame()
	if frame.Image != nil || frame.FallSignal || !frame.ReceivedAt.IsZero() {
		t.Fatalf("reset left residue: %+v", frame)
	}
}
