package repository

import "github.com/njy33900/PoseDataColletor/internal/model"

// RecordingRepository persists committed sequences so a restarted collector
// can rebuild its dataset.
type RecordingRepository interface {
	// Create operations
	Insert(rec *model.Recording) error

	// Read operations
	GetByID(id string) (*model.Recording, error)
	GetAll() ([]model.Recording, error)
	Count() (int, error)

	// Delete operations
	Delete(id string) error
	DeleteAll() error
}
