package overlay

import "github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"

// minConfidence gates skeleton rendering: an edge is drawn only when both
// endpoints clear it, a marker only when its point does.
const minConfidence = 0.5

// skeletonEdges is the fixed anatomical adjacency over the 17-keypoint pose
// record (0 nose, 1/2 eyes, 3/4 ears, 5/6 shoulders, 7/8 elbows, 9/10
// wrists, 11/12 hips, 13/14 knees, 15/16 ankles).
var skeletonEdges = [19][2]int{
	{15, 13}, {13, 11}, // left leg
	{16, 14}, {14, 12}, // right leg
	{11, 12},           // pelvis
	{5, 11}, {6, 12},   // torso
	{5, 6},             // shoulders
	{5, 7}, {7, 9},     // left arm
	{6, 8}, {8, 10},    // right arm
	{1, 2},             // eyes
	{0, 1}, {0, 2},     // nose to eyes
	{1, 3}, {2, 4},     // eyes to ears
	{3, 5}, {4, 6},     // ears to shoulders
}

// visibleEdges returns the skeleton edges whose endpoints both exist and
// both clear the confidence gate.
func visibleEdges(pose types.Pose) [][2]types.Keypoint {
	edges := make([][2]types.Keypoint, 0, len(skeletonEdges))
	for _, e := range skeletonEdges {
		if e[0] >= len(pose.Keypoints) || e[1] >= len(pose.Keypoints) {
			continue
		}
		a, b := pose.Keypoints[e[0]], pose.Keypoints[e[1]]
		if a.Confidence > minConfidence && b.Confidence > minConfidence {
			edges = append(edges, [2]types.Keypoint{a, b})
		}
	}
	return edges
}

// visibleKeypoints returns the keypoints that clear the confidence gate.
func visibleKeypoints(pose types.Pose) []types.Keypoint {
	points := make([]types.Keypoint, 0, len(pose.Keypoints))
	for _, kp := range pose.Keypoints {
		if kp.Confidence > minConfidence {
			points = append(points, kp)
		}
	}
	return points
}
