package types

import "time"

// KeypointCount is the number of anatomical keypoints per pose record.
const KeypointCount = 17

// Keypoint is one anatomical landmark in source-image pixel space.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Pose is one detected person: an ordered list of 17 keypoints.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
}

// BoundingBox is a detector box in source-image pixel space.
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"conf"`
}

// Frame is one visual update cycle: the latest known value for every
// renderable field. Fields are merged sparsely (last write wins per field),
// so any of them may still hold the value from an earlier message.
type Frame struct {
	Image         []byte        // Encoded JPEG, nil until the first image arrives
	BoundingBoxes []BoundingBox // Latest detector boxes
	Poses         []Pose        // Latest per-person pose records
	FallSignal    bool          // Latest raw fall flag from upstream
	ReceivedAt    time.Time     // Arrival time of the most recent update
}

// ConnState is the lifecycle state of the bridge connection.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
	StateReconnecting
)

// String returns the status-badge name of the state.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the fused state, handed to readers.
type Snapshot struct {
	Frame      Frame
	FallActive bool      // Debounced alert flag
	FPS        int       // Last published windowed frame rate
	ConnState  ConnState // Bridge connection state at snapshot time
}

// PersonCount returns the number of pose records in the frame.
func (s Snapshot) PersonCount() int {
	return len(s.Frame.Poses)
}
