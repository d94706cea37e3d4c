package recording

import "errors"

var (
	// ErrEmptyDataset is returned by Undo and Export when nothing has been committed.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrIOFailure wraps filesystem and sink failures.
	ErrIOFailure = errors.New("io failure")
	// ErrAlreadyRecording rejects a start while a take is in progress.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when no take is in progress.
	ErrNotRecording = errors.New("not recording")
)
