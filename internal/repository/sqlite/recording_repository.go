package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/njy33900/PoseDataColletor/internal/model"
)

// RecordingRepository implements repository.RecordingRepository for SQLite.
// It also satisfies the dataset journal.
type RecordingRepository struct {
	db *DB
}

// NewRecordingRepository creates a new SQLite recording repository.
func NewRecordingRepository(db *DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Insert stores a committed sequence with its flattened features.
func (r *RecordingRepository) Insert(rec *model.Recording) error {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err = r.db.Conn().Exec(`
		INSERT INTO recordings (id, label, video_path, frame_count, features, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Label, rec.VideoPath, rec.FrameCount, string(features), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert recording: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when no recording has the id.
func (r *RecordingRepository) GetByID(id string) (*model.Recording, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rec, err := scanRecording(r.db.Conn().QueryRow(`
		SELECT id, label, video_path, frame_count, features, created_at
		FROM recordings WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	return rec, nil
}

// GetAll returns every recording, oldest first.
func (r *RecordingRepository) GetAll() ([]model.Recording, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, label, video_path, frame_count, features, created_at
		FROM recordings ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	var recs []model.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (r *RecordingRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM recordings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recordings: %w", err)
	}
	return count, nil
}

// Delete removes a recording. Deleting an unknown id is not an error.
func (r *RecordingRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM recordings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

func (r *RecordingRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM recordings`); err != nil {
		return fmt.Errorf("failed to delete recordings: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row rowScanner) (*model.Recording, error) {
	var (
		rec      model.Recording
		features string
	)
	if err := row.Scan(&rec.ID, &rec.Label, &rec.VideoPath, &rec.FrameCount, &features, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
		return nil, fmt.Errorf("failed to decode features of %s: %w", rec.ID, err)
	}
	return &rec, nil
}
