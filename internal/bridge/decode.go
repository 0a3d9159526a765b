package bridge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// Decoder turns a raw topic payload into a sparse frame update. A returned
// error means the whole message is dropped; missing fields are not errors.
type Decoder func(payload []byte) (types.Update, error)

// DecoderForTopic selects the decode strategy once, by topic name. The
// combined dashboard topic carries a JSON envelope with optional fields; the
// legacy per-topic variant carries one field per topic under "data".
func DecoderForTopic(topic string) Decoder {
	name := strings.ToLower(topic)
	switch {
	case strings.Contains(name, "dashboard"):
		return DecodeCombined
	case strings.Contains(name, "image"):
		return DecodeImageTopic
	case strings.Contains(name, "keypoint"), strings.Contains(name, "pose"):
		return DecodeKeypointTopic
	case strings.Contains(name, "bbox"), strings.Contains(name, "box"):
		return DecodeBBoxTopic
	case strings.Contains(name, "fall"):
		return DecodeFallTopic
	default:
		return DecodeCombined
	}
}

// combinedPayload mirrors the combined-topic wire envelope. Every field is
// optional; fall_detection arrives as a bool or a quoted bool, and older
// bridge builds push a falldetections array instead.
type combinedPayload struct {
	Image          *string         `json:"image"`
	BBoxes         json.RawMessage `json:"bboxes"`
	Keypoints      json.RawMessage `json:"keypoints"`
	FallDetection  json.RawMessage `json:"fall_detection"`
	FallDetections json.RawMessage `json:"falldetections"`
}

// DecodeCombined decodes the combined dashboard payload.
func DecodeCombined(payload []byte) (types.Update, error) {
	var raw combinedPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return types.Update{}, fmt.Errorf("combined payload: %w", err)
	}

	var u types.Update

	if raw.Image != nil {
		img, err := base64.StdEncoding.DecodeString(*raw.Image)
		if err != nil {
			return types.Update{}, fmt.Errorf("image field: %w", err)
		}
		u.Image = img
	}

	if raw.BBoxes != nil {
		boxes, err := decodeBoxes(raw.BBoxes)
		if err != nil {
			return types.Update{}, err
		}
		u.BoundingBoxes = boxes
	}

	if raw.Keypoints != nil {
		poses, err := decodePoses(raw.Keypoints)
		if err != nil {
			return types.Update{}, err
		}
		u.Poses = poses
	}

	if raw.FallDetection != nil {
		if v, ok := parseFlexBool(raw.FallDetection); ok {
			u.FallSignal = &v
		}
	} else if raw.FallDetections != nil {
		// Legacy shape: a per-event array; any element means a fall.
		var events []json.RawMessage
		if err := json.Unmarshal(raw.FallDetections, &events); err == nil {
			v := len(events) > 0
			u.FallSignal = &v
		}
	}

	return u, nil
}

// DecodeImageTopic decodes a legacy image-topic message: base64 JPEG either
// under "data" or as the bare payload.
func DecodeImageTopic(payload []byte) (types.Update, error) {
	data := legacyData(payload)
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return types.Update{}, fmt.Errorf("image topic: %w", err)
	}
	return types.Update{Image: img}, nil
}

// DecodeBBoxTopic decodes a legacy bounding-box topic message.
func DecodeBBoxTopic(payload []byte) (types.Update, error) {
	boxes, err := decodeBoxes(legacyJSON(payload))
	if err != nil {
		return types.Update{}, err
	}
	return types.Update{BoundingBoxes: boxes}, nil
}

// DecodeKeypointTopic decodes a legacy keypoint topic message.
func DecodeKeypointTopic(payload []byte) (types.Update, error) {
	poses, err := decodePoses(legacyJSON(payload))
	if err != nil {
		return types.Update{}, err
	}
	return types.Update{Poses: poses}, nil
}

// DecodeFallTopic decodes a legacy fall-flag topic message.
func DecodeFallTopic(payload []byte) (types.Update, error) {
	if v, ok := parseFlexBool(legacyJSON(payload)); ok {
		return types.Update{FallSignal: &v}, nil
	}
	return types.Update{}, fmt.Errorf("fall topic: not a boolean: %s", payload)
}

// legacyData extracts the "data" field of a legacy message, or returns the
// payload itself when there is no such envelope.
func legacyData(payload []byte) []byte {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err == nil && env.Data != nil {
		var s string
		if err := json.Unmarshal(env.Data, &s); err == nil {
			return []byte(s)
		}
		return env.Data
	}
	return payload
}

// legacyJSON is legacyData for JSON-valued fields: a string-wrapped array is
// unwrapped to its embedded JSON.
func legacyJSON(payload []byte) []byte {
	data := legacyData(payload)
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return []byte(s)
		}
	}
	return []byte(trimmed)
}

func decodeBoxes(raw json.RawMessage) ([]types.BoundingBox, error) {
	var boxes []types.BoundingBox
	if err := json.Unmarshal(raw, &boxes); err != nil {
		return nil, fmt.Errorf("bboxes field: %w", err)
	}
	if boxes == nil {
		boxes = []types.BoundingBox{}
	}
	return boxes, nil
}

// decodePoses normalizes keypoint payloads into pose records. The wire form
// is one [x, y, confidence] triple array per person; bridges that already
// send structured {x, y, confidence} records are accepted as-is. Short or
// malformed triples are skipped, never an error.
func decodePoses(raw json.RawMessage) ([]types.Pose, error) {
	var triples [][][]float64
	if err := json.Unmarshal(raw, &triples); err == nil {
		poses := make([]types.Pose, 0, len(triples))
		for _, person := range triples {
			pose := types.Pose{Keypoints: make([]types.Keypoint, 0, len(person))}
			for _, kp := range person {
				if len(kp) < 3 {
					continue
				}
				pose.Keypoints = append(pose.Keypoints, types.Keypoint{
					X:          kp[0],
					Y:          kp[1],
					Confidence: kp[2],
				})
			}
			poses = append(poses, pose)
		}
		return poses, nil
	}

	var structured []types.Pose
	if err := json.Unmarshal(raw, &structured); err == nil {
		return structured, nil
	}

	return nil, fmt.Errorf("keypoints field: unrecognized shape")
}

// parseFlexBool accepts true/false and their quoted string forms.
func parseFlexBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}
