package pose

import (
	"gonum.org/v1/gonum/floats"

	"github.com/njy33900/PoseDataColletor/internal/model"
)

// TemporalSmoother averages the last few raw joint sets to damp detector jitter.
type TemporalSmoother struct {
	size   int
	window [][]float64
}

func NewTemporalSmoother(size int) *TemporalSmoother {
	if size < 1 {
		size = 1
	}
	return &TemporalSmoother{size: size, window: make([][]float64, 0, size)}
}

// Push adds a joint set, evicting the oldest once the window is full.
func (s *TemporalSmoother) Push(kps [model.NumKeypoints]model.Keypoint) {
	v := model.FlattenKeypoints(kps)
	if len(s.window) == s.size {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.size-1]
	}
	s.window = append(s.window, v[:])
}

// Mean returns the elementwise mean of the window. ok is false when the
// window is empty.
func (s *TemporalSmoother) Mean() (mean [model.NumKeypoints]model.Keypoint, ok bool) {
	if len(s.window) == 0 {
		return mean, false
	}

	sum := make([]float64, model.VectorLen)
	for _, v := range s.window {
		floats.Add(sum, v)
	}
	floats.Scale(1/float64(len(s.window)), sum)

	for i := range mean {
		mean[i] = model.Keypoint{X: sum[2*i], Y: sum[2*i+1]}
	}
	return mean, true
}

func (s *TemporalSmoother) Len() int {
	return len(s.window)
}

func (s *TemporalSmoother) Reset() {
	s.window = s.window[:0]
}
