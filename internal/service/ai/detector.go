package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
)

// ErrNetworkNotLoaded is returned by Detect when the model failed to load.
var ErrNetworkNotLoaded = errors.New("pose network not initialized")

// poseRows is the per-candidate row count of a YOLO pose head:
// cx, cy, w, h, score, then x, y, visibility for each joint.
const poseRows = 5 + 3*model.NumKeypoints

// PoseDetector finds the main subject in a frame. A nil detection with a nil
// error means nobody was found.
type PoseDetector interface {
	Detect(img gocv.Mat) (*model.Detection, error)
	Close() error
}

// YOLOPoseDetector runs a YOLOv8/11 pose ONNX export through OpenCV DNN.
type YOLOPoseDetector struct {
	net        gocv.Net
	loaded     bool
	modelPath  string
	inputSize  int
	confidence float32
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewYOLOPoseDetector loads the model at cfg.ModelPath. A missing or broken
// model is logged and every later Detect call returns ErrNetworkNotLoaded.
func NewYOLOPoseDetector(cfg *config.Config, logger *logger.Logger) *YOLOPoseDetector {
	d := &YOLOPoseDetector{
		modelPath:  cfg.ModelPath,
		inputSize:  cfg.ModelInputSize,
		confidence: float32(cfg.DetectionConfidence),
		logger:     logger,
	}
	if d.inputSize <= 0 {
		d.inputSize = 640
	}

	if err := d.initializeNet(); err != nil {
		d.logger.Warning("Could not initialize pose network: %v", err)
	}
	return d
}

func (d *YOLOPoseDetector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}

	net := gocv.ReadNetFromONNX(d.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", d.modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("failed to set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return fmt.Errorf("failed to set target: %w", err)
	}

	d.net = net
	d.loaded = true
	d.logger.Info("Pose network initialized from %s", d.modelPath)
	return nil
}

// Loaded reports whether the network is usable.
func (d *YOLOPoseDetector) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Detect returns the highest scoring subject above the confidence threshold,
// in img's pixel coordinates. OpenCV panics are turned into errors.
func (d *YOLOPoseDetector) Detect(img gocv.Mat) (det *model.Detection, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return nil, ErrNetworkNotLoaded
	}
	if img.Empty() {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			det, err = nil, fmt.Errorf("pose inference panicked: %v", r)
		}
	}()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// output is [1, 56, candidates]
	dims := output.Size()
	if len(dims) != 3 || dims[1] != poseRows {
		return nil, fmt.Errorf("unexpected pose output shape %v", dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read pose output: %w", err)
	}

	scaleX := float32(img.Cols()) / float32(d.inputSize)
	scaleY := float32(img.Rows()) / float32(d.inputSize)
	return decodePose(data, dims[2], scaleX, scaleY, d.confidence, img.Cols(), img.Rows()), nil
}

// decodePose picks the best candidate from a channel-major pose tensor and
// maps it back to frame coordinates.
func decodePose(data []float32, candidates int, scaleX, scaleY, threshold float32, width, height int) *model.Detection {
	if candidates <= 0 || len(data) < poseRows*candidates {
		return nil
	}
	at := func(row, i int) float32 { return data[row*candidates+i] }

	best, bestScore := -1, threshold
	for i := 0; i < candidates; i++ {
		if score := at(4, i); score >= bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}

	clampX := func(v float32) float64 { return clamp(float64(v*scaleX), float64(width)) }
	clampY := func(v float32) float64 { return clamp(float64(v*scaleY), float64(height)) }

	cx, cy, w, h := at(0, best), at(1, best), at(2, best), at(3, best)
	det := &model.Detection{
		Box: model.BoundingBox{
			X1: clampX(cx - w/2),
			Y1: clampY(cy - h/2),
			X2: clampX(cx + w/2),
			Y2: clampY(cy + h/2),
		},
	}
	for k := 0; k < model.NumKeypoints; k++ {
		row := 5 + 3*k
		det.Keypoints[k] = model.Keypoint{X: clampX(at(row, best)), Y: clampY(at(row+1, best))}
		det.Confidences[k] = float64(at(row+2, best))
	}
	return det
}

func clamp(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if limit > 0 && v > limit {
		return limit
	}
	return v
}

// Close releases the network.
func (d *YOLOPoseDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil
	}
	d.loaded = false
	return d.net.Close()
}
