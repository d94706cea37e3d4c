package dto

import "time"

// StartRequest is the body of POST /control/start.
type StartRequest struct {
	Label *int `json:"label"`
}

// StartResponse mirrors the status/label pair returned on a successful start.
type StartResponse struct {
	Status  string `json:"status"`
	Label   int    `json:"label,omitempty"`
	Message string `json:"message,omitempty"`
}

// ControlResponse is returned by stop, save, undo and log clearing.
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Count       int            `json:"count"`
	IsRecording bool           `json:"is_recording"`
	Label       int            `json:"label"`
	LabelName   string         `json:"label_name"`
	Elapsed     float64        `json:"elapsed"` // seconds into the running take
	Buffered    int            `json:"buffered"`
	LabelCounts map[string]int `json:"label_counts"`
	LastWarning string         `json:"last_warning,omitempty"`

	CameraConnected bool   `json:"camera_connected"`
	FramesCaptured  uint64 `json:"frames_captured"`
}

// RecordingInfo describes one committed sequence in listings.
type RecordingInfo struct {
	ID        string    `json:"id"`
	Label     int       `json:"label"`
	LabelName string    `json:"label_name"`
	FileName  string    `json:"file_name"`
	Frames    int       `json:"frames"`
	CreatedAt time.Time `json:"created_at"`
}

type RecordingsData struct {
	Recordings  []RecordingInfo `json:"recordings"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"limit"`
}
