package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/njy33900/PoseDataColletor/internal/dto"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
	"github.com/njy33900/PoseDataColletor/internal/service"
	"github.com/njy33900/PoseDataColletor/internal/service/recording"
)

// Controller is the collector's control surface as the handlers use it.
type Controller interface {
	StartRecording(label int) error
	StopRecording() error
	UndoLast() (bool, string)
	ExportDataset() (bool, string)
	Status() service.Status
	Sequences() []model.Sequence
}

// StartRecordingHandler handles POST /control/start with {"label": n}.
func StartRecordingHandler(collector Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req dto.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == nil {
			writeJSON(w, logger, http.StatusBadRequest, dto.StartResponse{Status: "error", Message: "label is required"})
			return
		}

		err := collector.StartRecording(*req.Label)
		switch {
		case err == nil:
			logger.Info("Recording started with label %d", *req.Label)
			writeJSON(w, logger, http.StatusOK, dto.StartResponse{Status: "started", Label: *req.Label})
		case errors.Is(err, recording.ErrAlreadyRecording):
			writeJSON(w, logger, http.StatusConflict, dto.StartResponse{Status: "error", Message: err.Error()})
		case errors.Is(err, service.ErrInvalidLabel):
			writeJSON(w, logger, http.StatusBadRequest, dto.StartResponse{Status: "error", Message: err.Error()})
		default:
			writeJSON(w, logger, http.StatusInternalServerError, dto.StartResponse{Status: "error", Message: err.Error()})
		}
	}
}

// StopRecordingHandler handles POST /control/stop.
func StopRecordingHandler(collector Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := collector.StopRecording(); err != nil {
			writeJSON(w, logger, http.StatusConflict, dto.ControlResponse{Message: err.Error()})
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.ControlResponse{Success: true, Message: "recording stopped"})
	}
}

// SaveHandler handles POST /control/save by exporting the dataset to CSV.
func SaveHandler(collector Controller, logger *logger.Logger) http.HandlerFunc {
	return controlAction(logger, collector.ExportDataset)
}

// UndoHandler handles POST /control/undo.
func UndoHandler(collector Controller, logger *logger.Logger) http.HandlerFunc {
	return controlAction(logger, collector.UndoLast)
}

// controlAction reports a (success, message) action. A failed action is
// still a 200: the body carries the outcome.
func controlAction(logger *logger.Logger, action func() (bool, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ok, msg := action()
		writeJSON(w, logger, http.StatusOK, dto.ControlResponse{Success: ok, Message: msg})
	}
}

// StatusHandler handles GET /status.
func StatusHandler(collector Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := collector.Status()

		counts := make(map[string]int, len(st.LabelCounts))
		for label, n := range st.LabelCounts {
			counts[strconv.Itoa(label)] = n
		}

		writeJSON(w, logger, http.StatusOK, dto.StatusResponse{
			Count:       st.Count,
			IsRecording: st.IsRecording,
			Label:       st.CurrentLabel,
			LabelName:   st.LabelName,
			Elapsed:     st.Elapsed.Seconds(),
			Buffered:    st.Buffered,
			LabelCounts: counts,
			LastWarning: st.LastWarning,

			CameraConnected: st.CameraConnected,
			FramesCaptured:  st.FramesCaptured,
		})
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
