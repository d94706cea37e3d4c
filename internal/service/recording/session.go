package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
)

// Sink receives the frames of one take.
type Sink[F any] interface {
	Write(frame F) error
	Close() error
}

// SinkOpener opens a sink writing to path.
type SinkOpener[F any] func(path string) (Sink[F], error)

// SessionConfig holds the timing and layout of a take. The sequence length
// comes from the dataset.
type SessionConfig struct {
	Duration       time.Duration
	VideoDirectory string
	Container      string
}

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

type OutcomeKind int

const (
	OutcomeCommitted OutcomeKind = iota + 1
	OutcomeDiscarded
	OutcomeAborted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCommitted:
		return "committed"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// Outcome describes how a take ended.
type Outcome struct {
	Kind      OutcomeKind
	Label     int
	VideoPath string
	Buffered  int             // vectors collected during the take
	Sequence  *model.Sequence // set when committed
	Warning   error
}

// Session is the recording state machine. A take runs for a fixed duration,
// writing every frame to a sink and buffering normalized vectors; when time
// is up the first SeqLength vectors are committed to the dataset, or the
// video is deleted when too few were collected. Not safe for concurrent use.
type Session[F any] struct {
	cfg     SessionConfig
	dataset *Dataset
	open    SinkOpener[F]
	logger  *logger.Logger
	warn    func(error)

	state     State
	label     int
	startedAt time.Time
	videoPath string
	sink      Sink[F]
	buffer    []model.Vector
	writeErrs int
}

func NewSession[F any](cfg SessionConfig, dataset *Dataset, open SinkOpener[F], logger *logger.Logger) *Session[F] {
	return &Session[F]{
		cfg:     cfg,
		dataset: dataset,
		open:    open,
		logger:  logger,
	}
}

// OnWarning registers a callback for sink and deletion failures.
func (s *Session[F]) OnWarning(fn func(error)) {
	s.warn = fn
}

func (s *Session[F]) warning(err error) {
	s.logger.Warning("%v", err)
	if s.warn != nil {
		s.warn(err)
	}
}

// Start begins a take for label and returns the video path.
func (s *Session[F]) Start(label int, now time.Time) (string, error) {
	if s.state == Recording {
		return "", ErrAlreadyRecording
	}

	path := VideoPath(s.cfg.VideoDirectory, label, s.cfg.Container, now)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrIOFailure, dir, err)
	}

	sink, err := s.open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrIOFailure, path, err)
	}

	s.state = Recording
	s.label = label
	s.startedAt = now
	s.videoPath = path
	s.sink = sink
	s.buffer = make([]model.Vector, 0, s.dataset.SeqLength()*2)
	s.writeErrs = 0

	s.logger.Info("Recording label %d to %s", label, path)
	return path, nil
}

// Advance feeds one frame. vec is nil when no pose is available for the
// frame. It returns a non-nil Outcome only when the take ended on this call.
func (s *Session[F]) Advance(now time.Time, vec *model.Vector, frame F) *Outcome {
	if out := s.Expire(now); out != nil || s.state != Recording {
		return out
	}

	if vec != nil {
		s.buffer = append(s.buffer, *vec)
	}
	if err := s.sink.Write(frame); err != nil {
		s.writeErrs++
		// one warning per take is enough
		if s.writeErrs == 1 {
			s.warning(fmt.Errorf("%w: write %s: %w", ErrIOFailure, s.videoPath, err))
		}
	}
	return nil
}

// Expire finalizes the take once its duration has passed, without a frame.
// Callers use it on cycles where the camera delivered nothing.
func (s *Session[F]) Expire(now time.Time) *Outcome {
	if s.state != Recording || now.Sub(s.startedAt) < s.cfg.Duration {
		return nil
	}
	return s.finalize(now)
}

func (s *Session[F]) finalize(now time.Time) *Outcome {
	out := &Outcome{
		Label:     s.label,
		VideoPath: s.videoPath,
		Buffered:  len(s.buffer),
	}
	if err := s.release(); err != nil {
		out.Warning = err
	}

	seqLength := s.dataset.SeqLength()
	if len(s.buffer) >= seqLength {
		frames := make([]model.Vector, seqLength)
		copy(frames, s.buffer[:seqLength])
		seq, err := s.dataset.Commit(model.Sequence{
			Label:     out.Label,
			Frames:    frames,
			VideoPath: out.VideoPath,
			CreatedAt: now,
		})
		if err == nil {
			out.Kind = OutcomeCommitted
			out.Sequence = &seq
			s.buffer = nil
			return out
		}
		out.Warning = err
	}

	out.Kind = OutcomeDiscarded
	s.logger.Info("Discarding take %s: %d of %d frames", filepath.Base(out.VideoPath), out.Buffered, seqLength)
	if err := os.Remove(out.VideoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		out.Warning = fmt.Errorf("%w: delete %s: %w", ErrIOFailure, out.VideoPath, err)
		s.warning(out.Warning)
	}
	s.buffer = nil
	return out
}

// Stop aborts the take. The video is kept and nothing is committed.
func (s *Session[F]) Stop() (string, error) {
	if s.state != Recording {
		return "", ErrNotRecording
	}
	path := s.videoPath
	err := s.release()
	s.buffer = nil
	s.logger.Info("Recording stopped early: %s", path)
	return path, err
}

// Close releases the sink of an active take. Safe to call when idle.
func (s *Session[F]) Close() error {
	if s.state != Recording {
		return nil
	}
	_, err := s.Stop()
	return err
}

// release closes the sink and returns to Idle.
func (s *Session[F]) release() error {
	sink := s.sink
	s.sink = nil
	s.state = Idle
	if sink == nil {
		return nil
	}
	if err := sink.Close(); err != nil {
		err = fmt.Errorf("%w: close %s: %w", ErrIOFailure, s.videoPath, err)
		s.warning(err)
		return err
	}
	return nil
}

func (s *Session[F]) State() State {
	return s.state
}

// Label is the label of the current take, or -1 when idle.
func (s *Session[F]) Label() int {
	if s.state != Recording {
		return -1
	}
	return s.label
}

func (s *Session[F]) Elapsed(now time.Time) time.Duration {
	if s.state != Recording {
		return 0
	}
	return now.Sub(s.startedAt)
}

// Buffered is the number of vectors collected so far in the current take.
func (s *Session[F]) Buffered() int {
	return len(s.buffer)
}

// VideoPath of the current take.
func (s *Session[F]) VideoPath() string {
	if s.state != Recording {
		return ""
	}
	return s.videoPath
}
