package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/handler"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/middleware"
	"github.com/njy33900/PoseDataColletor/internal/service/stream"
)

// StaticDir holds the control page and its assets.
const StaticDir = "static"

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDir, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the control API, the live views, recordings, logs
// and auth, wrapped in CORS and authentication middleware.
func SetupRoutes(collector handler.Controller, hub *stream.Hub, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDir))))

	// Collection control
	mux.HandleFunc("/control/start", handler.StartRecordingHandler(collector, logger))
	mux.HandleFunc("/control/stop", handler.StopRecordingHandler(collector, logger))
	mux.HandleFunc("/control/save", handler.SaveHandler(collector, logger))
	mux.HandleFunc("/control/undo", handler.UndoHandler(collector, logger))
	mux.HandleFunc("/status", handler.StatusHandler(collector, logger))

	// Live views
	mux.HandleFunc("/video_feed", handler.VideoFeedHandler(hub, logger))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, logger))

	// Recordings
	mux.HandleFunc("/api/recordings", handler.RecordingsHandler(collector, cfg, logger))
	mux.HandleFunc("/api/recordings/video", handler.RecordingVideoHandler(collector))

	// Log endpoints
	for name, file := range logFiles {
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// /login -> static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.CORSMiddleware(middleware.AuthMiddleware(cfg.Password, mux))
}
