package stream

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/service"
)

// Processor is the pipeline step the driver ticks.
type Processor interface {
	ProcessFrame() service.FrameResult
}

// Driver calls the pipeline at a fixed interval and publishes each
// annotated frame as JPEG.
type Driver struct {
	processor Processor
	hub       *Hub
	interval  time.Duration
	quality   int
	logger    *logger.Logger
}

func NewDriver(cfg *config.Config, processor Processor, hub *Hub, logger *logger.Logger) *Driver {
	interval := cfg.StreamInterval
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 50
	}
	return &Driver{
		processor: processor,
		hub:       hub,
		interval:  interval,
		quality:   quality,
		logger:    logger,
	}
}

// Run ticks until ctx is done.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Stream driver running every %v (JPEG quality %d)", d.interval, d.quality)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step processes one frame and reports whether a JPEG was published.
func (d *Driver) Step() bool {
	res := d.processor.ProcessFrame()
	if !res.Success {
		return false
	}
	defer res.Frame.Close()

	jpeg, err := EncodeJPEG(res.Frame, d.quality)
	if err != nil {
		d.logger.Warning("%v", err)
		return false
	}
	d.hub.Publish(jpeg)
	return true
}

// EncodeJPEG compresses frame at the given quality.
func EncodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
