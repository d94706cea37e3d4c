// Package video writes recorded takes to disk through OpenCV.
package video

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/service/recording"
)

// Writer is a recording sink backed by gocv.VideoWriter. Frames of another
// size are scaled to the size the file was opened with.
type Writer struct {
	vw     *gocv.VideoWriter
	path   string
	width  int
	height int
	scaled gocv.Mat
}

// Open creates a video file at path.
func Open(path, codec string, fps float64, width, height int) (*Writer, error) {
	vw, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("video writer %s did not open (codec %s)", path, codec)
	}
	return &Writer{
		vw:     vw,
		path:   path,
		width:  width,
		height: height,
		scaled: gocv.NewMat(),
	}, nil
}

// Opener returns a session sink opener using the configured codec, rate and size.
func Opener(cfg *config.Config) recording.SinkOpener[gocv.Mat] {
	return func(path string) (recording.Sink[gocv.Mat], error) {
		return Open(path, cfg.VideoCodec, cfg.VideoFPS, cfg.FrameWidth, cfg.FrameHeight)
	}
}

// Write appends one frame.
func (w *Writer) Write(frame gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("empty frame for %s", w.path)
	}
	if frame.Cols() != w.width || frame.Rows() != w.height {
		gocv.Resize(frame, &w.scaled, image.Pt(w.width, w.height), 0, 0, gocv.InterpolationLinear)
		return w.vw.Write(w.scaled)
	}
	return w.vw.Write(frame)
}

// Close finalizes the file.
func (w *Writer) Close() error {
	w.scaled.Close()
	return w.vw.Close()
}
