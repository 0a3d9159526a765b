package bridge

import (
	"encoding/base64"
	"testing"
)

func TestDecodeCombinedFullPayload(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	payload := []byte(`{
		"image": "` + base64.StdEncoding.EncodeToString(image) + `",
		"bboxes": [{"x1": 10, "y1": 20, "x2": 30, "y2": 40, "conf": 0.92}],
		"keypoints": [[[100, 120, 0.9], [110, 130, 0.4]]],
		"fall_detection": true
	}`)

	u, err := DecodeCombined(payload)
	if err != nil {
		t.Fatalf("DecodeCombined: %v", err)
	}
	if string(u.Image) != string(image) {
		t.Fatalf("image = %x", u.Image)
	}
	if len(u.BoundingBoxes) != 1 || u.BoundingBoxes[0].Confidence != 0.92 {
		t.Fatalf("boxes = %+v", u.BoundingBoxes)
	}
	if len(u.Poses) != 1 || len(u.Poses[0].Keypoints) != 2 {
		t.Fatalf("poses = %+v", u.Poses)
	}
	if kp := u.Poses[0].Keypoints[1]; kp.X != 110 || kp.Y != 130 || kp.Confidence != 0.4 {
		t.Fatalf("keypoint = %+v", kp)
	}
	if u.FallSignal == nil || !*u.FallSignal {
		t.Fatalf("fall signal = %v", u.FallSignal)
	}
}

func TestDecodeCombinedSparsePayload(t *testing.T) {
	u, err := DecodeCombined([]byte(`{"bboxes": []}`))
	if err != nil {
		t.Fatalf("DecodeCombined: %v", err)
	}
	if u.Image != nil || u.Poses != nil || u.FallSignal != nil {
		t.Fatalf("absent fields decoded as present: %+v", u)
	}
	if u.BoundingBoxes == nil || len(u.BoundingBoxes) != 0 {
		t.Fatalf("empty bboxes should be a present, empty observation: %+v", u.BoundingBoxes)
	}
}

func TestDecodeCombinedStringFallFlag(t *testing.T) {
	for wire, want := range map[string]bool{
		`"true"`: true, `"false"`: false, `true`: true, `false`: false, `"1"`: true, `"0"`: false,
	} {
		u, err := DecodeCombined([]byte(`{"fall_detection": ` + wire + `}`))
		if err != nil {
			t.Fatalf("fall_detection %s: %v", wire, err)
		}
		if u.FallSignal == nil || *u.FallSignal != want {
			t.Fatalf("fall_detection %s = %v, want %v", wire, u.FallSignal, want)
		}
	}
}

func TestDecodeCombinedFallEventArray(t *testing.T) {
	u, err := DecodeCombined([]byte(`{"falldetections": [{"ts": 1}]}`))
	if err != nil {
		t.Fatalf("DecodeCombined: %v", err)
	}
	if u.FallSignal == nil || !*u.FallSignal {
		t.Fatalf("non-empty event array should mean a fall: %v", u.FallSignal)
	}

	u, err = DecodeCombined([]byte(`{"falldetections": []}`))
	if err != nil {
		t.Fatalf("DecodeCombined: %v", err)
	}
	if u.FallSignal == nil || *u.FallSignal {
		t.Fatalf("empty event array should mean no fall: %v", u.FallSignal)
	}
}

func TestDecodeCombinedBadImage(t *testing.T) {
	if _, err := DecodeCombined([]byte(`{"image": "not@base64!"}`)); err == nil {
		t.Fatalf("corrupt base64 accepted")
	}
	if _, err := DecodeCombined([]byte(`not json at all`)); err == nil {
		t.Fatalf("non-JSON payload accepted")
	}
}

func TestDecodeImageTopic(t *testing.T) {
	image := []byte("jpeg-bytes")
	encoded := base64.StdEncoding.EncodeToString(image)

	// Enveloped and bare forms carry the same image.
	for _, payload := range []string{
		`{"data": "` + encoded + `"}`,
		encoded,
	} {
		u, err := DecodeImageTopic([]byte(payload))
		if err != nil {
			t.Fatalf("DecodeImageTopic(%q): %v", payload, err)
		}
		if string(u.Image) != string(image) {
			t.Fatalf("image = %q", u.Image)
		}
	}
}

func TestDecodeKeypointTopicStringWrapped(t *testing.T) {
	// Some bridge builds double-encode the array as a JSON string.
	u, err := DecodeKeypointTopic([]byte(`{"data": "[[[1, 2, 0.9]]]"}`))
	if err != nil {
		t.Fatalf("DecodeKeypointTopic: %v", err)
	}
	if len(u.Poses) != 1 || len(u.Poses[0].Keypoints) != 1 {
		t.Fatalf("poses = %+v", u.Poses)
	}
}

func TestDecodeKeypointTopicSkipsShortTriples(t *testing.T) {
	u, err := DecodeKeypointTopic([]byte(`[[[1, 2, 0.9], [5], [3, 4, 0.8]]]`))
	if err != nil {
		t.Fatalf("DecodeKeypointTopic: %v", err)
	}
	if len(u.Poses[0].Keypoints) != 2 {
		t.Fatalf("keypoints = %+v", u.Poses[0].Keypoints)
	}
}

func TestDecodeFallTopic(t *testing.T) {
	u, err := DecodeFallTopic([]byte(`{"data": "true"}`))
	if err != nil {
		t.Fatalf("DecodeFallTopic: %v", err)
	}
	if u.FallSignal == nil || !*u.FallSignal {
		t.Fatalf("fall signal = %v", u.FallSignal)
	}

	if _, err := DecodeFallTopic([]byte(`{"data": "maybe"}`)); err == nil {
		t.Fatalf("non-boolean fall flag accepted")
	}
}

func TestDecoderForTopic(t *testing.T) {
	cases := map[string]string{
		"/dashboard/data":          "combined",
		"/camera/image/compressed": "image",
		"/pose/keypoints":          "keypoints",
		"/detection/bboxes":        "bboxes",
		"/fall_detection/flag":     "fall",
		"/something/else":          "combined",
	}

	probes := map[string][]byte{
		"combined":  []byte(`{"fall_detection": true}`),
		"image":     []byte(base64.StdEncoding.EncodeToString([]byte("x"))),
		"keypoints": []byte(`[[[1, 2, 3]]]`),
		"bboxes":    []byte(`[{"conf": 0.5}]`),
		"fall":      []byte(`true`),
	}

	for topic, kind := range cases {
		dec := DecoderForTopic(topic)
		if _, err := dec(probes[kind]); err != nil {
			t.Fatalf("topic %s did not select the %s decoder: %v", topic, kind, err)
		}
	}
}
