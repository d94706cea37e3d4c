package pose

import "github.com/njy33900/PoseDataColletor/internal/model"

// DetectionCache keeps the last detection alive across frames where the
// detector is skipped or briefly misses the subject.
type DetectionCache struct {
	interval  int
	threshold int

	current *model.Detection
	misses  int
}

// NewDetectionCache runs the detector every interval frames and tolerates up
// to threshold consecutive misses before dropping the cached pose.
func NewDetectionCache(interval, threshold int) *DetectionCache {
	if interval < 1 {
		interval = 1
	}
	if threshold < 0 {
		threshold = 0
	}
	return &DetectionCache{interval: interval, threshold: threshold}
}

// ShouldRunDetector reports whether frameIndex is a detector frame.
func (c *DetectionCache) ShouldRunDetector(frameIndex int) bool {
	return frameIndex%c.interval == 0
}

// Observe records the result of a detector run. It returns true when this
// observation cleared a previously cached subject.
func (c *DetectionCache) Observe(det *model.Detection) (cleared bool) {
	if det != nil {
		c.current = det
		c.misses = 0
		return false
	}

	c.misses++
	if c.misses > c.threshold && c.current != nil {
		c.current = nil
		return true
	}
	return false
}

// Current returns the cached detection, or nil when no subject is tracked.
func (c *DetectionCache) Current() *model.Detection {
	return c.current
}

// Misses is the number of consecutive detector runs without a subject.
func (c *DetectionCache) Misses() int {
	return c.misses
}

// Reset forgets the cached detection and the miss count.
func (c *DetectionCache) Reset() {
	c.current = nil
	c.misses = 0
}
