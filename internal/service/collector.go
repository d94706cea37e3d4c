package service

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
	"github.com/njy33900/PoseDataColletor/internal/service/ai"
	"github.com/njy33900/PoseDataColletor/internal/service/overlay"
	"github.com/njy33900/PoseDataColletor/internal/service/pose"
	"github.com/njy33900/PoseDataColletor/internal/service/recording"
)

// ErrInvalidLabel rejects negative labels.
var ErrInvalidLabel = errors.New("label must not be negative")

// FrameProvider hands out copies of the newest camera frame and reports on
// the device behind it.
type FrameProvider interface {
	Latest() (gocv.Mat, bool)
	Connected() bool
	Frames() uint64
}

// FrameResult is the outcome of one pipeline step. Frame is owned by the
// caller and must be closed when Success is true.
type FrameResult struct {
	Success     bool
	Frame       gocv.Mat
	DatasetSize int
	IsRecording bool
}

// Status is a snapshot for the control surface. CurrentLabel is the label of
// the running take, or of the last one started.
type Status struct {
	Count        int
	IsRecording  bool
	CurrentLabel int
	LabelName    string
	Elapsed      time.Duration
	Buffered     int
	LabelCounts  map[int]int
	LastWarning  string

	CameraConnected bool
	FramesCaptured  uint64
}

// Option customizes a Collector.
type Option func(*Collector)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// Collector is the pose collection pipeline: one ProcessFrame call pulls the
// newest frame, runs the detector every few frames, smooths and normalizes
// the pose, advances the recording session and draws the overlay. Control
// methods may be called from other goroutines; everything is serialized on
// one mutex that is never held while waiting on the camera.
type Collector struct {
	cfg      *config.Config
	frames   FrameProvider
	detector ai.PoseDetector
	logger   *logger.Logger
	now      func() time.Time

	cache     *pose.DetectionCache
	smoother  *pose.TemporalSmoother
	processor *pose.KeypointProcessor
	session   *recording.Session[gocv.Mat]
	dataset   *recording.Dataset

	mu            sync.Mutex
	frameIndex    int
	lastLabel     int
	lastWarning   string
	lastDetectErr string
}

// NewCollector wires the pipeline. detector may be nil, in which case no
// subject is ever found.
func NewCollector(cfg *config.Config, frames FrameProvider, detector ai.PoseDetector, dataset *recording.Dataset, open recording.SinkOpener[gocv.Mat], logger *logger.Logger, opts ...Option) *Collector {
	c := &Collector{
		cfg:       cfg,
		frames:    frames,
		detector:  detector,
		logger:    logger,
		now:       time.Now,
		cache:     pose.NewDetectionCache(cfg.CollectInterval, cfg.PersistenceThreshold),
		smoother:  pose.NewTemporalSmoother(cfg.SmoothingWindow),
		processor: pose.NewKeypointProcessor(),
		dataset:   dataset,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.session = recording.NewSession(recording.SessionConfig{
		Duration:       cfg.RecordDuration,
		VideoDirectory: cfg.VideoDirectory,
		Container:      cfg.VideoContainer,
	}, dataset, open, logger)

	// both callbacks run inside locked Collector methods
	c.session.OnWarning(c.setWarning)
	c.dataset.OnWarning(c.setWarning)

	return c
}

func (c *Collector) setWarning(err error) {
	c.lastWarning = err.Error()
}

// ProcessFrame runs one pipeline step. It never fails: a missing frame is
// reported as Success false and detector problems count as no subject.
func (c *Collector) ProcessFrame() FrameResult {
	raw, ok := c.frames.Latest()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		// the take still ends on time while the camera is down
		if out := c.session.Expire(c.now()); out != nil {
			c.report(out)
		}
		return FrameResult{DatasetSize: c.dataset.Len(), IsRecording: c.recording()}
	}
	frame := c.resize(raw)

	if c.cache.ShouldRunDetector(c.frameIndex) {
		det := c.detect(frame)
		if c.cache.Observe(det) {
			c.smoother.Reset()
		}
		if det != nil {
			c.smoother.Push(det.Keypoints)
		}
	}
	c.frameIndex++

	now := c.now()
	scene := overlay.Scene{Count: c.dataset.Len()}

	var vec *model.Vector
	if cur := c.cache.Current(); cur != nil {
		if mean, ok := c.smoother.Mean(); ok {
			res := c.processor.Process(mean, cur.Confidences)
			vec = &res.Vector
			box := cur.Box
			scene.Box = &box
			scene.Joints = &res.Display
			scene.Anchor = res.Anchor
		}
	}

	if c.recording() {
		label := c.session.Label()
		scene.Recording = true
		scene.LabelName = c.cfg.LabelName(label)
		scene.Elapsed = c.session.Elapsed(now)
		scene.Duration = c.cfg.RecordDuration
		scene.Buffered = c.session.Buffered()
		scene.SeqLength = c.dataset.SeqLength()
	}
	overlay.Draw(&frame, scene)

	if out := c.session.Advance(now, vec, frame); out != nil {
		c.report(out)
	}

	return FrameResult{
		Success:     true,
		Frame:       frame,
		DatasetSize: c.dataset.Len(),
		IsRecording: c.recording(),
	}
}

// resize scales raw to the working size and releases it.
func (c *Collector) resize(raw gocv.Mat) gocv.Mat {
	defer raw.Close()
	if c.cfg.FrameWidth <= 0 || c.cfg.FrameHeight <= 0 {
		return raw.Clone()
	}
	frame := gocv.NewMat()
	gocv.Resize(raw, &frame, image.Pt(c.cfg.FrameWidth, c.cfg.FrameHeight), 0, 0, gocv.InterpolationLinear)
	return frame
}

func (c *Collector) detect(frame gocv.Mat) (det *model.Detection) {
	if c.detector == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.detectFailed(fmt.Errorf("detector panic: %v", r))
			det = nil
		}
	}()

	det, err := c.detector.Detect(frame)
	if err != nil {
		c.detectFailed(err)
		return nil
	}
	c.lastDetectErr = ""
	return det
}

// detectFailed logs a detector error once until it changes or recovers.
func (c *Collector) detectFailed(err error) {
	if msg := err.Error(); msg != c.lastDetectErr {
		c.lastDetectErr = msg
		c.logger.Warning("Pose detection failed: %v", err)
	}
}

func (c *Collector) report(out *recording.Outcome) {
	name := c.cfg.LabelName(out.Label)
	switch out.Kind {
	case recording.OutcomeCommitted:
		c.logger.Info("Saved sequence #%d (%s, %d frames collected)", c.dataset.Len(), name, out.Buffered)
	case recording.OutcomeDiscarded:
		c.logger.Info("Take for %s discarded: %d of %d frames", name, out.Buffered, c.dataset.SeqLength())
	}
}

func (c *Collector) recording() bool {
	return c.session.State() == recording.Recording
}

// StartRecording begins a take. It fails with recording.ErrAlreadyRecording
// while a take is running.
func (c *Collector) StartRecording(label int) error {
	if label < 0 {
		return ErrInvalidLabel
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.session.Start(label, c.now()); err != nil {
		if !errors.Is(err, recording.ErrAlreadyRecording) {
			c.logger.Error("Failed to start recording: %v", err)
		}
		return err
	}
	c.lastLabel = label
	return nil
}

// StopRecording aborts the running take, keeping its video.
func (c *Collector) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.session.Stop()
	return err
}

// UndoLast drops the most recent sequence and its video.
func (c *Collector) UndoLast() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.dataset.Undo()
	if errors.Is(err, recording.ErrEmptyDataset) {
		return false, "nothing to undo"
	}
	if err != nil {
		return false, err.Error()
	}
	return true, res.Message()
}

// ExportDataset writes all sequences to a timestamped CSV in the export directory.
func (c *Collector) ExportDataset() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := recording.ExportPath(c.cfg.ExportDirectory, c.now())
	if err := c.dataset.Export(path); err != nil {
		if errors.Is(err, recording.ErrEmptyDataset) {
			return false, "no data to save"
		}
		c.logger.Error("Export failed: %v", err)
		return false, err.Error()
	}
	return true, fmt.Sprintf("%s (%d sequences)", path, c.dataset.Len())
}

func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Count:        c.dataset.Len(),
		IsRecording:  c.recording(),
		CurrentLabel: c.lastLabel,
		LabelName:    c.cfg.LabelName(c.lastLabel),
		Elapsed:      c.session.Elapsed(c.now()),
		Buffered:     c.session.Buffered(),
		LabelCounts:  c.dataset.LabelCounts(),
		LastWarning:  c.lastWarning,

		CameraConnected: c.frames.Connected(),
		FramesCaptured:  c.frames.Frames(),
	}
}

// Sequences returns the committed sequences, oldest first.
func (c *Collector) Sequences() []model.Sequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataset.Sequences()
}

// Close ends a running take. The frame source and detector belong to the caller.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Close()
}
