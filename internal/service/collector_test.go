package service

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
	"github.com/njy33900/PoseDataColletor/internal/service/recording"
)

type fakeFrames struct {
	mu    sync.Mutex
	frame gocv.Mat
	off   bool
	reads uint64
}

func (f *fakeFrames) Latest() (gocv.Mat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.off {
		return gocv.Mat{}, false
	}
	f.reads++
	return f.frame.Clone(), true
}

func (f *fakeFrames) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.off
}

func (f *fakeFrames) Frames() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeDetector struct {
	det   *model.Detection
	err   error
	panic bool
	calls int
	sizes [][2]int
}

func (d *fakeDetector) Detect(img gocv.Mat) (*model.Detection, error) {
	d.calls++
	d.sizes = append(d.sizes, [2]int{img.Cols(), img.Rows()})
	if d.panic {
		panic("bad tensor")
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.det == nil {
		return nil, nil
	}
	det := *d.det
	return &det, nil
}

func (d *fakeDetector) Close() error { return nil }

type countingSink struct {
	file   *os.File
	writes int
	closed bool
}

func (s *countingSink) Write(gocv.Mat) error {
	s.writes++
	return nil
}

func (s *countingSink) Close() error {
	s.closed = true
	return s.file.Close()
}

type sinks struct {
	opened []*countingSink
}

func (s *sinks) open(path string) (recording.Sink[gocv.Mat], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	sink := &countingSink{file: f}
	s.opened = append(s.opened, sink)
	return sink, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	collector *Collector
	frames    *fakeFrames
	detector  *fakeDetector
	sinks     *sinks
	clock     *fakeClock
	dataset   *recording.Dataset
	cfg       *config.Config
}

func standing() *model.Detection {
	det := &model.Detection{Box: model.BoundingBox{X1: 100, Y1: 40, X2: 300, Y2: 340}}
	for i := range det.Keypoints {
		det.Keypoints[i] = model.Keypoint{X: 150 + float64(i)*5, Y: 60 + float64(i)*15}
		det.Confidences[i] = 0.9
	}
	return det
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		FrameWidth:           480,
		FrameHeight:          360,
		VideoContainer:       "mp4",
		SeqLength:            30,
		CollectInterval:      3,
		PersistenceThreshold: 10,
		SmoothingWindow:      3,
		RecordDuration:       3 * time.Second,
		LabelNames:           []string{"Neutral", "Movement", "Suspicious"},
		VideoDirectory:       filepath.Join(dir, "videos"),
		ExportDirectory:      filepath.Join(dir, "exports"),
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), 480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	h := &harness{
		frames:   &fakeFrames{frame: frame},
		detector: &fakeDetector{det: standing()},
		sinks:    &sinks{},
		clock:    &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		dataset:  recording.NewDataset(cfg.SeqLength, nil, logger.Discard()),
		cfg:      cfg,
	}
	h.collector = NewCollector(cfg, h.frames, h.detector, h.dataset, h.sinks.open, logger.Discard(), WithClock(h.clock.Now))
	return h
}

// step runs one frame at 30 fps.
func (h *harness) step(t *testing.T) FrameResult {
	t.Helper()
	res := h.collector.ProcessFrame()
	if res.Success {
		res.Frame.Close()
	}
	h.clock.Advance(time.Second / 30)
	return res
}

func TestCollector_NoFrame(t *testing.T) {
	h := newHarness(t)
	h.frames.off = true

	res := h.collector.ProcessFrame()
	assert.False(t, res.Success)
	assert.Zero(t, res.DatasetSize)
	assert.Zero(t, h.detector.calls)
}

func TestCollector_TakeExpiresWhileCameraIsDown(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.collector.StartRecording(0))
	h.step(t)

	h.frames.off = true
	h.clock.Advance(4 * time.Second)

	res := h.collector.ProcessFrame()
	assert.False(t, res.Success)
	assert.False(t, res.IsRecording)

	st := h.collector.Status()
	assert.False(t, st.IsRecording)
	assert.False(t, st.CameraConnected)
	assert.Equal(t, uint64(1), st.FramesCaptured)
	assert.Zero(t, st.Count)
	require.Len(t, h.sinks.opened, 1)
	assert.True(t, h.sinks.opened[0].closed)
	entries, err := os.ReadDir(filepath.Join(h.cfg.VideoDirectory, "2026-03-14"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollector_ResizesAndAnnotates(t *testing.T) {
	h := newHarness(t)

	res := h.collector.ProcessFrame()
	require.True(t, res.Success)
	defer res.Frame.Close()

	assert.Equal(t, 480, res.Frame.Cols())
	assert.Equal(t, 360, res.Frame.Rows())
	assert.Equal(t, [][2]int{{480, 360}}, h.detector.sizes)
}

func TestCollector_DetectorRunsEveryNthFrame(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 9; i++ {
		h.step(t)
	}
	assert.Equal(t, 3, h.detector.calls)
}

func TestCollector_ThirtyFPSScenario(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.collector.StartRecording(2))

	for i := 0; i < 200 && h.collector.Status().IsRecording; i++ {
		h.step(t)
	}

	st := h.collector.Status()
	assert.False(t, st.IsRecording)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, map[int]int{2: 1}, st.LabelCounts)
	assert.Equal(t, "Suspicious", st.LabelName)

	seqs := h.collector.Sequences()
	require.Len(t, seqs, 1)
	assert.Equal(t, 2, seqs[0].Label)
	assert.Len(t, seqs[0].Frames, 30)

	require.Len(t, h.dataset.VideoPaths(), 1)
	assert.FileExists(t, h.dataset.VideoPaths()[0])
	require.Len(t, h.sinks.opened, 1)
	assert.GreaterOrEqual(t, h.sinks.opened[0].writes, 90)
	assert.True(t, h.sinks.opened[0].closed)
}

func TestCollector_NoSubjectDiscardsTake(t *testing.T) {
	h := newHarness(t)
	h.detector.det = nil
	require.NoError(t, h.collector.StartRecording(1))

	for i := 0; i < 200 && h.collector.Status().IsRecording; i++ {
		h.step(t)
	}

	assert.Zero(t, h.collector.Status().Count)
	assert.Empty(t, h.dataset.VideoPaths())
	entries, err := os.ReadDir(filepath.Join(h.cfg.VideoDirectory, "2026-03-14"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollector_DetectorFailuresAreAbsence(t *testing.T) {
	h := newHarness(t)
	h.detector.panic = true

	res := h.step(t)
	assert.True(t, res.Success)

	h.detector.panic = false
	h.detector.err = errors.New("inference failed")
	for i := 0; i < 3; i++ {
		assert.True(t, h.step(t).Success)
	}
	assert.Equal(t, 2, h.detector.calls)
}

func TestCollector_StartRecordingRejections(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.collector.StartRecording(-1), ErrInvalidLabel)
	require.NoError(t, h.collector.StartRecording(0))
	assert.ErrorIs(t, h.collector.StartRecording(1), recording.ErrAlreadyRecording)

	st := h.collector.Status()
	assert.True(t, st.IsRecording)
	assert.Equal(t, 0, st.CurrentLabel)
	assert.Len(t, h.sinks.opened, 1)
}

func TestCollector_StopRecording(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.collector.StopRecording(), recording.ErrNotRecording)

	require.NoError(t, h.collector.StartRecording(1))
	h.step(t)
	require.NoError(t, h.collector.StopRecording())

	assert.False(t, h.collector.Status().IsRecording)
	assert.Zero(t, h.collector.Status().Count)
	assert.True(t, h.sinks.opened[0].closed)
}

func TestCollector_UndoAndExport(t *testing.T) {
	h := newHarness(t)

	ok, msg := h.collector.UndoLast()
	assert.False(t, ok)
	assert.Equal(t, "nothing to undo", msg)

	ok, msg = h.collector.ExportDataset()
	assert.False(t, ok)
	assert.Equal(t, "no data to save", msg)

	require.NoError(t, h.collector.StartRecording(0))
	for i := 0; i < 200 && h.collector.Status().IsRecording; i++ {
		h.step(t)
	}
	require.Equal(t, 1, h.collector.Status().Count)

	ok, msg = h.collector.ExportDataset()
	require.True(t, ok, msg)
	assert.Contains(t, msg, "pose_data_")
	assert.Contains(t, msg, "(1 sequences)")

	video := h.dataset.VideoPaths()[0]
	ok, msg = h.collector.UndoLast()
	assert.True(t, ok)
	assert.Contains(t, msg, filepath.Base(video))
	assert.NoFileExists(t, video)
	assert.Zero(t, h.collector.Status().Count)
}

func TestCollector_CloseMidRecording(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.collector.StartRecording(2))
	h.step(t)

	require.NoError(t, h.collector.Close())
	assert.True(t, h.sinks.opened[0].closed)
	assert.False(t, h.collector.Status().IsRecording)
	require.NoError(t, h.collector.Close())
}

func TestCollector_DeletionWarningInStatus(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.collector.StartRecording(0))
	for i := 0; i < 200 && h.collector.Status().IsRecording; i++ {
		h.step(t)
	}

	// swap the video for a non-empty directory so removal fails
	video := h.dataset.VideoPaths()[0]
	require.NoError(t, os.Remove(video))
	require.NoError(t, os.MkdirAll(filepath.Join(video, "x"), 0755))

	ok, _ := h.collector.UndoLast()
	assert.True(t, ok)
	assert.Contains(t, h.collector.Status().LastWarning, "delete")
}
