// Package overlay draws the collector's diagnostics onto a frame.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/model"
	"github.com/njy33900/PoseDataColletor/internal/service/pose"
)

var (
	boxColor    = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	boneColor   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	jointColor  = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	anchorColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	recColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	textColor   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Skeleton lists the bones drawn between joints. The face is left out.
var Skeleton = [][2]int{
	{model.LeftShoulder, model.LeftElbow}, {model.LeftElbow, model.LeftWrist},
	{model.RightShoulder, model.RightElbow}, {model.RightElbow, model.RightWrist},
	{model.LeftHip, model.LeftKnee}, {model.LeftKnee, model.LeftAnkle},
	{model.RightHip, model.RightKnee}, {model.RightKnee, model.RightAnkle},
	{model.LeftShoulder, model.RightShoulder}, {model.LeftHip, model.RightHip},
	{model.LeftShoulder, model.LeftHip}, {model.RightShoulder, model.RightHip},
}

// Scene is everything drawn on one frame.
type Scene struct {
	Box    *model.BoundingBox
	Joints *[model.NumKeypoints]model.Keypoint // display positions, pixel space
	Anchor pose.Anchor

	Recording bool
	LabelName string
	Elapsed   time.Duration
	Duration  time.Duration
	Buffered  int
	SeqLength int

	Count int // committed sequences
}

// Bones returns the skeleton segments whose both ends are on screen.
func Bones(joints [model.NumKeypoints]model.Keypoint) [][2]image.Point {
	var out [][2]image.Point
	for _, b := range Skeleton {
		p1, p2 := joints[b[0]], joints[b[1]]
		if visible(p1) && visible(p2) {
			out = append(out, [2]image.Point{pt(p1), pt(p2)})
		}
	}
	return out
}

// Joints returns the body joints to mark, skipping nose, eyes and ears.
func Joints(joints [model.NumKeypoints]model.Keypoint) []image.Point {
	var out []image.Point
	for i := model.LeftShoulder; i < model.NumKeypoints; i++ {
		if visible(joints[i]) {
			out = append(out, pt(joints[i]))
		}
	}
	return out
}

// Draw renders s onto img in place.
func Draw(img *gocv.Mat, s Scene) {
	if img == nil || img.Empty() {
		return
	}

	if s.Box != nil {
		rect := image.Rect(int(s.Box.X1), int(s.Box.Y1), int(s.Box.X2), int(s.Box.Y2))
		gocv.Rectangle(img, rect, boxColor, 2)
	}

	if s.Joints != nil {
		for _, b := range Bones(*s.Joints) {
			gocv.Line(img, b[0], b[1], boneColor, 2)
		}
		for _, p := range Joints(*s.Joints) {
			gocv.Circle(img, p, 4, jointColor, -1)
		}
		if s.Anchor.Present {
			gocv.Circle(img, pt(s.Anchor.Point), 6, anchorColor, 2)
		}
	}

	gocv.PutText(img, fmt.Sprintf("Saved: %d", s.Count), image.Pt(10, img.Rows()-12),
		gocv.FontHersheySimplex, 0.5, textColor, 1)

	if s.Recording {
		gocv.Circle(img, image.Pt(20, 20), 8, recColor, -1)
		gocv.PutText(img, RecordingText(s), image.Pt(35, 25), gocv.FontHersheySimplex, 0.6, recColor, 2)
	}
}

// RecordingText is the caption next to the REC dot.
func RecordingText(s Scene) string {
	return fmt.Sprintf("REC %s %.1f/%.1fs %d/%d",
		s.LabelName, s.Elapsed.Seconds(), s.Duration.Seconds(), s.Buffered, s.SeqLength)
}

func visible(k model.Keypoint) bool {
	return k.X > 0 && k.Y > 0
}

func pt(k model.Keypoint) image.Point {
	return image.Pt(int(k.X), int(k.Y))
}
