package handler

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/dto"
	"github.com/njy33900/PoseDataColletor/internal/logger"
)

// RecordingsHandler lists the collector's committed sequences (including
// those restored from the journal at startup), newest first, optionally
// filtered by ?label= and paginated by ?page=&limit=.
func RecordingsHandler(collector Controller, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		labelFilter := -1
		if v, err := strconv.Atoi(q.Get("label")); err == nil && v >= 0 {
			labelFilter = v
		}

		seqs := collector.Sequences()
		var recordings []dto.RecordingInfo
		for i := len(seqs) - 1; i >= 0; i-- {
			s := seqs[i]
			if labelFilter >= 0 && s.Label != labelFilter {
				continue
			}
			recordings = append(recordings, dto.RecordingInfo{
				ID:        s.ID,
				Label:     s.Label,
				LabelName: cfg.LabelName(s.Label),
				FileName:  filepath.Base(s.VideoPath),
				Frames:    len(s.Frames),
				CreatedAt: s.CreatedAt,
			})
		}

		total := len(recordings)
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}

		writeJSON(w, logger, http.StatusOK, dto.RecordingsData{
			Recordings:  append([]dto.RecordingInfo{}, recordings[start:end]...),
			Length:      total,
			TotalPages:  (total + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// RecordingVideoHandler serves the video of a committed sequence by ?id=.
// Only paths registered in the dataset are served.
func RecordingVideoHandler(collector Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id parameter is required", http.StatusBadRequest)
			return
		}

		for _, s := range collector.Sequences() {
			if s.ID == id && s.VideoPath != "" {
				http.ServeFile(w, r, s.VideoPath)
				return
			}
		}
		http.NotFound(w, r)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
