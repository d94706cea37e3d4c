package model

import "time"

// Sequence is a committed, labeled run of normalized frames. Frames always
// holds exactly the configured sequence length.
type Sequence struct {
	ID        string    `json:"id"`
	Label     int       `json:"label"`
	Frames    []Vector  `json:"frames"`
	VideoPath string    `json:"video_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Features returns the sequence flattened row-major, without the label.
func (s Sequence) Features() []float64 {
	out := make([]float64, 0, len(s.Frames)*VectorLen)
	for _, f := range s.Frames {
		out = append(out, f[:]...)
	}
	return out
}

// Recording is the persisted journal entry for a committed sequence.
type Recording struct {
	ID         string    `json:"id"`
	Label      int       `json:"label"`
	VideoPath  string    `json:"video_path"`
	FrameCount int       `json:"frame_count"`
	Features   []float64 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
