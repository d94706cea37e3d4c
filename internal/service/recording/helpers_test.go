package recording

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
)

// fileSink writes one byte per frame to a real file so deletion can be observed.
type fileSink struct {
	file     *os.File
	frames   []int
	writeErr error
	closeErr error
	closed   bool
}

func (s *fileSink) Write(frame int) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.frames = append(s.frames, frame)
	_, err := s.file.Write([]byte{byte(frame)})
	return err
}

func (s *fileSink) Close() error {
	s.closed = true
	s.file.Close()
	return s.closeErr
}

type sinkRecorder struct {
	opened []*fileSink
	err    error
}

func (r *sinkRecorder) open(path string) (Sink[int], error) {
	if r.err != nil {
		return nil, r.err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &fileSink{file: f}
	r.opened = append(r.opened, s)
	return s, nil
}

func (r *sinkRecorder) last() *fileSink {
	return r.opened[len(r.opened)-1]
}

type memJournal struct {
	inserted  []*model.Recording
	deleted   []string
	insertErr error
	deleteErr error
}

func (j *memJournal) Insert(rec *model.Recording) error {
	if j.insertErr != nil {
		return j.insertErr
	}
	j.inserted = append(j.inserted, rec)
	return nil
}

func (j *memJournal) Delete(id string) error {
	if j.deleteErr != nil {
		return j.deleteErr
	}
	j.deleted = append(j.deleted, id)
	return nil
}

var errBoom = errors.New("boom")

var t0 = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func vec(v float64) *model.Vector {
	var out model.Vector
	for i := range out {
		out[i] = v
	}
	return &out
}

func fullSequence(label, seqLength int, path string) model.Sequence {
	frames := make([]model.Vector, seqLength)
	for i := range frames {
		frames[i] = *vec(float64(i))
	}
	return model.Sequence{Label: label, Frames: frames, VideoPath: path}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
}

func quiet() *logger.Logger {
	return logger.Discard()
}
