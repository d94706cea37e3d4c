package recording

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/njy33900/PoseDataColletor/internal/model"
)

// Header returns the export columns: v0..v(seqLength*34-1) followed by label.
func Header(seqLength int) []string {
	cols := make([]string, 0, seqLength*model.VectorLen+1)
	for i := 0; i < seqLength*model.VectorLen; i++ {
		cols = append(cols, "v"+strconv.Itoa(i))
	}
	return append(cols, "label")
}

// WriteCSV writes the header and one row per sequence to w.
func (d *Dataset) WriteCSV(w io.Writer) error {
	if len(d.sequences) == 0 {
		return ErrEmptyDataset
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(d.seqLength)); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrIOFailure, err)
	}

	row := make([]string, 0, d.seqLength*model.VectorLen+1)
	for _, seq := range d.sequences {
		row = row[:0]
		for _, v := range seq.Features() {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		row = append(row, strconv.Itoa(seq.Label))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: write row %s: %w", ErrIOFailure, seq.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrIOFailure, err)
	}
	return nil
}

// Export writes the dataset to path. A partially written file is removed.
func (d *Dataset) Export(path string) error {
	if len(d.sequences) == 0 {
		return ErrEmptyDataset
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIOFailure, filepath.Dir(path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIOFailure, path, err)
	}

	bw := bufio.NewWriter(file)
	err = d.WriteCSV(bw)
	if err == nil {
		if ferr := bw.Flush(); ferr != nil {
			err = fmt.Errorf("%w: flush %s: %w", ErrIOFailure, path, ferr)
		}
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: close %s: %w", ErrIOFailure, path, cerr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	d.logger.Info("Exported %d sequences to %s", len(d.sequences), path)
	return nil
}
