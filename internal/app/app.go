package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/repository/sqlite"
	"github.com/njy33900/PoseDataColletor/internal/route"
	"github.com/njy33900/PoseDataColletor/internal/service"
	"github.com/njy33900/PoseDataColletor/internal/service/ai"
	"github.com/njy33900/PoseDataColletor/internal/service/capture"
	"github.com/njy33900/PoseDataColletor/internal/service/recording"
	"github.com/njy33900/PoseDataColletor/internal/service/stream"
	"github.com/njy33900/PoseDataColletor/internal/service/video"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config    *config.Config
	logger    *logger.Logger
	db        *sqlite.DB
	source    *capture.FrameSource
	detector  *ai.YOLOPoseDetector
	collector *service.Collector
	hub       *stream.Hub
	driver    *stream.Driver
}

// NewApp loads configuration, opens the journal database and wires the
// capture, detection, recording and streaming services.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	journal := sqlite.NewRecordingRepository(db)

	dataset := recording.NewDataset(cfg.SeqLength, journal, log)
	if cfg.RestoreDataset {
		records, err := journal.GetAll()
		if err != nil {
			log.Warning("Could not read recording journal: %v", err)
		} else if n := dataset.Restore(records); n > 0 {
			log.Info("Restored %d sequences from %s", n, cfg.DatabasePath)
		}
	}

	source := capture.NewFrameSource(cfg, log, nil)
	detector := ai.NewYOLOPoseDetector(cfg, log)
	collector := service.NewCollector(cfg, source, detector, dataset, video.Opener(cfg), log)
	hub := stream.NewHub(log)

	return &App{
		config:    cfg,
		logger:    log,
		db:        db,
		source:    source,
		detector:  detector,
		collector: collector,
		hub:       hub,
		driver:    stream.NewDriver(cfg, collector, hub, log),
	}, nil
}

// Run serves until ctx is cancelled, then shuts everything down in reverse
// order of startup.
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		a.hub.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		a.driver.Run(ctx)
	}()

	router := route.SetupRoutes(a.collector, a.hub, a.config, a.logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("🎥 Pose Data Collector\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Camera: %s\n", a.config.CameraSource)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)
	fmt.Printf("📁 Videos: %s\n", a.config.VideoDirectory)
	fmt.Printf("🗄️  Journal: %s (%d sequences)\n", a.config.DatabasePath, len(a.collector.Sequences()))

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.logger.Info("Shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
	}

	// the driver may be inside Detect; wait before freeing the network
	cancel()
	workers.Wait()
	a.close()
	return serveErr
}

func (a *App) close() {
	if err := a.collector.Close(); err != nil {
		a.logger.Warning("Closing recording session: %v", err)
	}
	a.source.Stop()
	if err := a.detector.Close(); err != nil {
		a.logger.Warning("Closing detector: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Closing database: %v", err)
	}
}
