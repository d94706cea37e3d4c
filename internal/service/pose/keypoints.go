package pose

import "github.com/njy33900/PoseDataColletor/internal/model"

// MinConfidence is the joint confidence below which a joint is unreliable.
const MinConfidence = 0.5

// AnchorSource names the landmark the anchor was taken from.
type AnchorSource int

const (
	AnchorNone AnchorSource = iota
	AnchorHipCenter
	AnchorLeftHip
	AnchorRightHip
	AnchorShoulderCenter
	AnchorLeftShoulder
	AnchorRightShoulder
	AnchorNose
)

var anchorSourceNames = map[AnchorSource]string{
	AnchorNone:           "none",
	AnchorHipCenter:      "hip_center",
	AnchorLeftHip:        "left_hip",
	AnchorRightHip:       "right_hip",
	AnchorShoulderCenter: "shoulder_center",
	AnchorLeftShoulder:   "left_shoulder",
	AnchorRightShoulder:  "right_shoulder",
	AnchorNose:           "nose",
}

func (s AnchorSource) String() string {
	if n, ok := anchorSourceNames[s]; ok {
		return n
	}
	return "unknown"
}

// Anchor is the reference point subtracted from every joint. Present is false
// when no reliable torso or head landmark was visible.
type Anchor struct {
	Point   model.Keypoint
	Source  AnchorSource
	Present bool
}

// Result is one processed frame.
type Result struct {
	Vector  model.Vector
	Display [model.NumKeypoints]model.Keypoint // imputed, not normalized
	Anchor  Anchor
}

// KeypointProcessor fills unreliable joints from their last good value and
// translates the pose so the anchor sits at the origin.
type KeypointProcessor struct {
	lastGood [model.NumKeypoints]model.Keypoint
}

func NewKeypointProcessor() *KeypointProcessor {
	return &KeypointProcessor{}
}

// Process imputes, anchors and normalizes one joint set.
func (p *KeypointProcessor) Process(joints [model.NumKeypoints]model.Keypoint, conf [model.NumKeypoints]float64) Result {
	var res Result
	var reliable [model.NumKeypoints]bool

	for i, kp := range joints {
		if conf[i] < MinConfidence || kp.IsOrigin() {
			res.Display[i] = p.lastGood[i]
			continue
		}
		reliable[i] = true
		p.lastGood[i] = kp
		res.Display[i] = kp
	}

	res.Anchor = selectAnchor(res.Display, reliable)
	if !res.Anchor.Present {
		res.Vector = model.FlattenKeypoints(res.Display)
		return res
	}

	var shifted [model.NumKeypoints]model.Keypoint
	for i, kp := range res.Display {
		shifted[i] = kp.Sub(res.Anchor.Point)
	}
	res.Vector = model.FlattenKeypoints(shifted)
	return res
}

// selectAnchor walks hips, shoulders, then nose; the first reliable option wins.
func selectAnchor(kps [model.NumKeypoints]model.Keypoint, reliable [model.NumKeypoints]bool) Anchor {
	pair := func(left, right int, center, leftOnly, rightOnly AnchorSource) (Anchor, bool) {
		switch {
		case reliable[left] && reliable[right]:
			return Anchor{Point: kps[left].Midpoint(kps[right]), Source: center, Present: true}, true
		case reliable[left]:
			return Anchor{Point: kps[left], Source: leftOnly, Present: true}, true
		case reliable[right]:
			return Anchor{Point: kps[right], Source: rightOnly, Present: true}, true
		}
		return Anchor{}, false
	}

	if a, ok := pair(model.LeftHip, model.RightHip, AnchorHipCenter, AnchorLeftHip, AnchorRightHip); ok {
		return a
	}
	if a, ok := pair(model.LeftShoulder, model.RightShoulder, AnchorShoulderCenter, AnchorLeftShoulder, AnchorRightShoulder); ok {
		return a
	}
	if reliable[model.Nose] {
		return Anchor{Point: kps[model.Nose], Source: AnchorNose, Present: true}
	}
	return Anchor{Source: AnchorNone}
}
