package types

// Update is one sparse partial frame update decoded from a bridge message.
// A nil field means "not carried by this message" and must leave the fused
// value untouched; a non-nil empty slice is a real (empty) observation.
type Update struct {
	Image         []byte
	BoundingBoxes []BoundingBox
	Poses         []Pose
	FallSignal    *bool
}

// Empty reports whether the update carries no fields at all.
func (u Update) Empty() bool {
	return u.Image == nil && u.BoundingBoxes == nil && u.Poses == nil && u.FallSignal == nil
}
