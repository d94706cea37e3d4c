package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
)

// ErrInvalidSequence rejects a commit whose frame count differs from the
// dataset's sequence length.
var ErrInvalidSequence = errors.New("invalid sequence length")

// Journal persists committed sequences outside the process. Optional.
type Journal interface {
	Insert(rec *model.Recording) error
	Delete(id string) error
}

// FileOutcome describes what happened to a take's video during undo.
type FileOutcome int

const (
	FileNone FileOutcome = iota // no video was registered
	FileDeleted
	FileMissing
	FileDeleteFailed
)

// UndoResult reports a successful undo.
type UndoResult struct {
	Sequence  model.Sequence
	VideoPath string
	File      FileOutcome
	Warning   error
}

// Message is the human readable summary shown to operators.
func (r UndoResult) Message() string {
	name := filepath.Base(r.VideoPath)
	switch r.File {
	case FileDeleted:
		return fmt.Sprintf("removed last sequence and deleted %s", name)
	case FileMissing:
		return fmt.Sprintf("removed last sequence; video %s was already missing", name)
	case FileDeleteFailed:
		return fmt.Sprintf("removed last sequence; could not delete %s: %v", name, r.Warning)
	default:
		return "removed last sequence"
	}
}

// Dataset is the in-memory list of committed sequences together with the
// parallel list of their video paths, which doubles as the undo stack.
// It is not safe for concurrent use.
type Dataset struct {
	seqLength  int
	sequences  []model.Sequence
	videoPaths []string

	journal Journal
	logger  *logger.Logger
	warn    func(error)
}

// NewDataset creates an empty dataset. journal may be nil. A seqLength
// below 1 is raised to 1.
func NewDataset(seqLength int, journal Journal, logger *logger.Logger) *Dataset {
	if seqLength < 1 {
		logger.Warning("Sequence length %d is invalid, using 1", seqLength)
		seqLength = 1
	}
	return &Dataset{
		seqLength: seqLength,
		journal:   journal,
		logger:    logger,
	}
}

// OnWarning registers a callback for non-fatal failures (journal writes,
// file deletion). Warnings are logged either way.
func (d *Dataset) OnWarning(fn func(error)) {
	d.warn = fn
}

func (d *Dataset) warning(err error) {
	d.logger.Warning("%v", err)
	if d.warn != nil {
		d.warn(err)
	}
}

// SeqLength is the number of frames in every sequence.
func (d *Dataset) SeqLength() int {
	return d.seqLength
}

// Commit appends seq and its video path. A journal failure does not undo the
// in-memory commit; it is reported as a warning.
func (d *Dataset) Commit(seq model.Sequence) (model.Sequence, error) {
	if len(seq.Frames) != d.seqLength {
		return model.Sequence{}, fmt.Errorf("%w: got %d frames, want %d", ErrInvalidSequence, len(seq.Frames), d.seqLength)
	}
	if seq.ID == "" {
		seq.ID = uuid.New().String()
	}
	if seq.CreatedAt.IsZero() {
		seq.CreatedAt = time.Now()
	}

	d.sequences = append(d.sequences, seq)
	d.videoPaths = append(d.videoPaths, seq.VideoPath)

	if d.journal != nil {
		if err := d.journal.Insert(toRecording(seq)); err != nil {
			d.warning(fmt.Errorf("%w: journal insert %s: %w", ErrIOFailure, seq.ID, err))
		}
	}

	d.logger.Info("Committed sequence %s (label %d, %d total)", seq.ID, seq.Label, len(d.sequences))
	return seq, nil
}

// Undo removes the most recent sequence and deletes its video. Deletion
// problems never restore the sequence.
func (d *Dataset) Undo() (UndoResult, error) {
	if len(d.sequences) == 0 {
		return UndoResult{}, ErrEmptyDataset
	}

	last := len(d.sequences) - 1
	seq := d.sequences[last]
	d.sequences = d.sequences[:last]

	var path string
	if n := len(d.videoPaths); n > 0 {
		path = d.videoPaths[n-1]
		d.videoPaths = d.videoPaths[:n-1]
	}

	res := UndoResult{Sequence: seq, VideoPath: path}
	if path != "" {
		err := os.Remove(path)
		switch {
		case err == nil:
			res.File = FileDeleted
		case errors.Is(err, os.ErrNotExist):
			res.File = FileMissing
			d.logger.Warning("Undo: video %s already missing", path)
		default:
			res.File = FileDeleteFailed
			res.Warning = fmt.Errorf("%w: delete %s: %w", ErrIOFailure, path, err)
			d.warning(res.Warning)
		}
	}

	if d.journal != nil {
		if err := d.journal.Delete(seq.ID); err != nil {
			d.warning(fmt.Errorf("%w: journal delete %s: %w", ErrIOFailure, seq.ID, err))
		}
	}

	d.logger.Info("Undo: %s (%d remaining)", res.Message(), len(d.sequences))
	return res, nil
}

// Restore loads previously journaled recordings, oldest first, without
// writing them back to the journal. Records with the wrong feature count are
// skipped. It returns how many were restored.
func (d *Dataset) Restore(records []model.Recording) int {
	restored := 0
	for _, rec := range records {
		if len(rec.Features) != d.seqLength*model.VectorLen {
			d.logger.Warning("Skipping journal entry %s: %d features, want %d",
				rec.ID, len(rec.Features), d.seqLength*model.VectorLen)
			continue
		}
		frames := make([]model.Vector, d.seqLength)
		for i := range frames {
			copy(frames[i][:], rec.Features[i*model.VectorLen:(i+1)*model.VectorLen])
		}
		d.sequences = append(d.sequences, model.Sequence{
			ID:        rec.ID,
			Label:     rec.Label,
			Frames:    frames,
			VideoPath: rec.VideoPath,
			CreatedAt: rec.CreatedAt,
		})
		d.videoPaths = append(d.videoPaths, rec.VideoPath)
		restored++
	}
	return restored
}

// Len is the number of committed sequences.
func (d *Dataset) Len() int {
	return len(d.sequences)
}

// Sequences returns a copy of the committed sequences.
func (d *Dataset) Sequences() []model.Sequence {
	return append([]model.Sequence(nil), d.sequences...)
}

// VideoPaths returns a copy of the undo stack, oldest first.
func (d *Dataset) VideoPaths() []string {
	return append([]string(nil), d.videoPaths...)
}

// LabelCounts returns the number of sequences per label.
func (d *Dataset) LabelCounts() map[int]int {
	counts := make(map[int]int)
	for _, s := range d.sequences {
		counts[s.Label]++
	}
	return counts
}

func toRecording(seq model.Sequence) *model.Recording {
	return &model.Recording{
		ID:         seq.ID,
		Label:      seq.Label,
		VideoPath:  seq.VideoPath,
		FrameCount: len(seq.Frames),
		Features:   seq.Features(),
		CreatedAt:  seq.CreatedAt,
	}
}
