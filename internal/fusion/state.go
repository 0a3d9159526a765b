package fusion

import (
	"sync"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// State is the authoritative in-memory snapshot of what to render right now.
// Updates are merged field by field: a message that carries only boxes never
// touches the image, and vice versa. The newest arrival wins per field; there
// are no sequence numbers on the wire, so arrival order is the order.
type State struct {
	mu    sync.Mutex
	frame types.Frame
	now   func() time.Time
}

// NewState creates an empty fusion state.
func NewState() *State {
	return &State{now: time.Now}
}

// Apply merges one sparse update into the frame. Fields absent from the
// update keep their last known value. Never exposes a partially merged frame.
func (s *State) Apply(u types.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Image != nil {
		s.frame.Image = u.Image
	}
	if u.BoundingBoxes != nil {
		s.frame.BoundingBoxes = u.BoundingBoxes
	}
	if u.Poses != nil {
		s.frame.Poses = u.Poses
	}
	if u.FallSignal != nil {
		s.frame.FallSignal = *u.FallSignal
	}
	s.frame.ReceivedAt = s.now()
}

// Frame returns a copy of the current fused frame.
func (s *State) Frame() types.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.frame
	frame.BoundingBoxes = append([]types.BoundingBox(nil), s.frame.BoundingBoxes...)
	frame.Poses = append([]types.Pose(nil), s.frame.Poses...)
	return frame
}

// Reset returns the state to its initial empty value.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = types.Frame{}
}
