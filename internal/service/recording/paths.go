package recording

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	dateLayout   = "2006-01-02"
	clockLayout  = "15-04-05.000"
	exportLayout = "20060102_150405"
)

// VideoPath lays out a take as <base>/<date>/<label>_<time>.<container>.
func VideoPath(base string, label int, container string, at time.Time) string {
	name := fmt.Sprintf("%d_%s.%s", label, at.Format(clockLayout), strings.TrimPrefix(container, "."))
	return filepath.Join(base, at.Format(dateLayout), name)
}

// ExportPath names a CSV export in dir.
func ExportPath(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("pose_data_%s.csv", at.Format(exportLayout)))
}
