// Package capture runs the camera acquisition loop and publishes the newest
// frame through a single slot.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/service/slot"
)

var (
	// ErrDeviceUnavailable is returned when the capture device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrAlreadyStarted rejects a second Start.
	ErrAlreadyStarted = errors.New("frame source already started")
)

// maxReadFailures is how many consecutive empty reads trigger a reopen.
const maxReadFailures = 30

// Device is the part of gocv.VideoCapture the acquisition loop uses.
type Device interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// Opener opens a capture device for a source string.
type Opener func(source string) (Device, error)

// OpenDevice opens a numeric source as a device index and anything else as a
// file or stream URL. The device buffer is kept to one frame.
func OpenDevice(source string) (Device, error) {
	var target interface{} = source
	if index, err := strconv.Atoi(source); err == nil {
		target = index
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrDeviceUnavailable, source)
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)
	return vc, nil
}

// FrameSource owns the device and runs acquisition on its own goroutine.
// Consumers call Latest and never wait on device I/O.
type FrameSource struct {
	source string
	retry  time.Duration
	open   Opener
	logger *logger.Logger

	frame     slot.Cell[gocv.Mat]
	started   atomic.Bool
	connected atomic.Bool
	frames    atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFrameSource creates a source for cfg.CameraSource. A nil open uses OpenDevice.
func NewFrameSource(cfg *config.Config, logger *logger.Logger, open Opener) *FrameSource {
	if open == nil {
		open = OpenDevice
	}
	retry := cfg.CaptureRetryInterval
	if retry <= 0 {
		retry = 2 * time.Second
	}
	return &FrameSource{
		source: cfg.CameraSource,
		retry:  retry,
		open:   open,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Start launches the acquisition loop. The device is opened by the loop, so
// an unavailable camera is retried rather than reported here.
func (s *FrameSource) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.wg.Add(1)
	go s.run()
	s.logger.Info("Frame source started: %s", s.source)
	return nil
}

// Latest returns a copy of the newest frame, which the caller must Close.
// It reports false before the first successful read and after a failed one.
func (s *FrameSource) Latest() (gocv.Mat, bool) {
	return s.frame.Load(func(m gocv.Mat) gocv.Mat { return m.Clone() })
}

// Connected reports whether a device is currently open.
func (s *FrameSource) Connected() bool {
	return s.connected.Load()
}

// Frames counts successful reads since start.
func (s *FrameSource) Frames() uint64 {
	return s.frames.Load()
}

// Stop ends acquisition and waits for the loop to release the device. Safe
// to call more than once, and before Start.
func (s *FrameSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if last, ok := s.frame.Take(); ok {
			last.Close()
		}
		s.logger.Info("Frame source stopped")
	})
}

func (s *FrameSource) run() {
	defer s.wg.Done()

	warned := false
	for {
		if s.stopped() {
			return
		}

		dev, err := s.open(s.source)
		if err != nil {
			if !warned {
				s.logger.Warning("Camera %s unavailable, retrying every %v: %v", s.source, s.retry, err)
				warned = true
			}
			if !s.wait(s.retry) {
				return
			}
			continue
		}

		warned = false
		s.connected.Store(true)
		s.logger.Info("Camera %s opened", s.source)

		stopped := s.readLoop(dev)

		s.connected.Store(false)
		if err := dev.Close(); err != nil {
			s.logger.Warning("Failed to close camera %s: %v", s.source, err)
		}
		if stopped {
			return
		}

		s.logger.Warning("Camera %s stopped delivering frames, reopening", s.source)
		if !s.wait(s.retry) {
			return
		}
	}
}

// readLoop reads until the stop flag is set (true) or the device keeps
// failing (false).
func (s *FrameSource) readLoop(dev Device) bool {
	failures := 0
	for {
		if s.stopped() {
			return true
		}

		frame := gocv.NewMat()
		if !dev.Read(&frame) || frame.Empty() {
			frame.Close()
			s.publish(gocv.Mat{}, false)
			failures++
			if failures >= maxReadFailures || !dev.IsOpened() {
				return false
			}
			if !s.wait(10 * time.Millisecond) {
				return true
			}
			continue
		}

		failures = 0
		s.frames.Add(1)
		s.publish(frame, true)
	}
}

// publish swaps a new value into the slot and releases the one it replaced.
func (s *FrameSource) publish(frame gocv.Mat, ok bool) {
	if old, oldOK := s.frame.Swap(frame, ok); oldOK {
		old.Close()
	}
}

func (s *FrameSource) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// wait sleeps for d unless stopped first; it reports whether to keep going.
func (s *FrameSource) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.stop:
		return false
	case <-timer.C:
		return true
	}
}
