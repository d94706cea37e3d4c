package model

// COCO keypoint indices produced by the pose model.
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	NumKeypoints = 17
	// VectorLen is the number of scalars in one normalized training frame.
	VectorLen = NumKeypoints * 2
)

// Keypoint is a joint position in pixel coordinates.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsOrigin reports whether the keypoint sits exactly at (0,0), which the
// detector emits for joints it could not place.
func (k Keypoint) IsOrigin() bool {
	return k.X == 0 && k.Y == 0
}

// Sub returns k - o.
func (k Keypoint) Sub(o Keypoint) Keypoint {
	return Keypoint{X: k.X - o.X, Y: k.Y - o.Y}
}

// Midpoint returns the point halfway between k and o.
func (k Keypoint) Midpoint(o Keypoint) Keypoint {
	return Keypoint{X: (k.X + o.X) / 2, Y: (k.Y + o.Y) / 2}
}

// BoundingBox is the subject box in corner form.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection is a single subject returned by the pose detector.
type Detection struct {
	Keypoints   [NumKeypoints]Keypoint `json:"keypoints"`
	Confidences [NumKeypoints]float64  `json:"confidences"`
	Box         BoundingBox            `json:"box"`
}

// Vector is one anchor-relative frame: x0, y0, x1, y1, ... x16, y16.
type Vector [VectorLen]float64

// FlattenKeypoints lays out joints in Vector order.
func FlattenKeypoints(kps [NumKeypoints]Keypoint) Vector {
	var v Vector
	for i, kp := range kps {
		v[2*i] = kp.X
		v[2*i+1] = kp.Y
	}
	return v
}
