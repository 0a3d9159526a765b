package overlay

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// fullPose returns a 17-keypoint pose with every point at the given
// confidence, laid out on a grid inside the reference frame.
func fullPose(conf float64) types.Pose {
	pose := types.Pose{Keypoints: make([]types.Keypoint, types.KeypointCount)}
	for i := range pose.Keypoints {
		pose.Keypoints[i] = types.Keypoint{
			X:          float64(50 + 30*(i%5)),
			Y:          float64(50 + 30*(i/5)),
			Confidence: conf,
		}
	}
	return pose
}

func TestVisibleEdgesConfidenceGate(t *testing.T) {
	if got := len(visibleEdges(fullPose(0.51))); got != len(skeletonEdges) {
		t.Fatalf("edges at conf 0.51 = %d, want %d", got, len(skeletonEdges))
	}
	if got := len(visibleEdges(fullPose(0.5))); got != 0 {
		t.Fatalf("edges at conf 0.50 = %d, want 0 (gate is strict)", got)
	}
	if got := len(visibleEdges(fullPose(0.4))); got != 0 {
		t.Fatalf("edges at conf 0.40 = %d, want 0", got)
	}
}

func TestVisibleEdgesMixedConfidence(t *testing.T) {
	// One weak endpoint suppresses every edge it participates in.
	pose := fullPose(0.9)
	pose.Keypoints[11].Confidence = 0.4 // left hip

	suppressed := 0
	for _, e := range skeletonEdges {
		if e[0] == 11 || e[1] == 11 {
			suppressed++
		}
	}
	want := len(skeletonEdges) - suppressed
	if got := len(visibleEdges(pose)); got != want {
		t.Fatalf("edges = %d, want %d", got, want)
	}
}

func TestVisibleEdgesShortPose(t *testing.T) {
	// A truncated keypoint list must never index out of range.
	pose := types.Pose{Keypoints: []types.Keypoint{
		{X: 10, Y: 10, Confidence: 0.9},
		{X: 20, Y: 10, Confidence: 0.9},
		{X: 30, Y: 10, Confidence: 0.9},
	}}
	if got := len(visibleEdges(pose)); got != 3 {
		// {1, 2}, {0, 1} and {0, 2} fit within three keypoints.
		t.Fatalf("edges = %d, want 3", got)
	}
}

func TestVisibleKeypoints(t *testing.T) {
	pose := types.Pose{Keypoints: []types.Keypoint{
		{Confidence: 0.6},
		{Confidence: 0.5},
		{Confidence: 0.9},
	}}
	if got := len(visibleKeypoints(pose)); got != 2 {
		t.Fatalf("keypoints = %d, want 2", got)
	}
}

func decodeFrame(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("composited frame is not a JPEG: %v", err)
	}
	return img
}

func TestComposeEmptySnapshot(t *testing.T) {
	c := NewCompositor()
	data, err := c.Compose(types.Snapshot{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	img := decodeFrame(t, data)
	if b := img.Bounds(); b.Dx() != refWidth || b.Dy() != refHeight {
		t.Fatalf("placeholder bounds = %v, want %dx%d", b, refWidth, refHeight)
	}
}

func TestComposeFullSnapshot(t *testing.T) {
	// Build a real base image so composition draws over a decoded JPEG.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, refWidth, refHeight)), nil); err != nil {
		t.Fatalf("encode base: %v", err)
	}

	snap := types.Snapshot{
		Frame: types.Frame{
			Image:         buf.Bytes(),
			BoundingBoxes: []types.BoundingBox{{X1: 100, Y1: 100, X2: 200, Y2: 300, Confidence: 0.88}},
			Poses:         []types.Pose{fullPose(0.9)},
		},
		FallActive: true,
		FPS:        17,
		ConnState:  types.StateOpen,
	}

	c := NewCompositor()
	data, err := c.Compose(snap)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	decodeFrame(t, data)
}

func TestComposeCorruptImageFallsBack(t *testing.T) {
	c := NewCompositor()
	data, err := c.Compose(types.Snapshot{
		Frame: types.Frame{Image: []byte("definitely not a jpeg")},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	img := decodeFrame(t, data)
	if b := img.Bounds(); b.Dx() != refWidth || b.Dy() != refHeight {
		t.Fatalf("fallback bounds = %v", b)
	}
}

func TestComposeOutOfBoundsGeometry(t *testing.T) {
	// Geometry far outside the canvas must clip, not panic.
	pose := types.Pose{Keypoints: make([]types.Keypoint, types.KeypointCount)}
	for i := range pose.Keypoints {
		pose.Keypoints[i] = types.Keypoint{X: -500 + float64(i*200), Y: 5000, Confidence: 0.9}
	}

	c := NewCompositor()
	_, err := c.Compose(types.Snapshot{
		Frame: types.Frame{
			BoundingBoxes: []types.BoundingBox{{X1: -100, Y1: -100, X2: 9000, Y2: 9000, Confidence: 1}},
			Poses:         []types.Pose{pose},
		},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
}

func TestPlaceholder(t *testing.T) {
	data, err := NewCompositor().Placeholder()
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	decodeFrame(t, data)
}
