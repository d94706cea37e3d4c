package recording

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	h := Header(2)
	require.Len(t, h, 2*34+1)
	assert.Equal(t, "v0", h[0])
	assert.Equal(t, "v67", h[67])
	assert.Equal(t, "label", h[68])
}

func TestExport_Empty(t *testing.T) {
	ds := NewDataset(30, nil, quiet())
	path := filepath.Join(t.TempDir(), "out.csv")

	err := ds.Export(path)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.NoFileExists(t, path)

	assert.ErrorIs(t, ds.WriteCSV(&bytes.Buffer{}), ErrEmptyDataset)
}

func TestExport_SingleSequence(t *testing.T) {
	const seqLength = 30
	ds := NewDataset(seqLength, nil, quiet())
	_, err := ds.Commit(fullSequence(2, seqLength, "a.mp4"))
	require.NoError(t, err)

	path := ExportPath(filepath.Join(t.TempDir(), "exports"), t0)
	require.NoError(t, ds.Export(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Len(t, rec, seqLength*34+1)
	}
	assert.Equal(t, "label", records[0][seqLength*34])
	assert.Equal(t, "2", records[1][seqLength*34])
	// frame i carries value i in every column
	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "29", records[1][29*34])
}

func TestExport_UnwritableDestination(t *testing.T) {
	ds := NewDataset(1, nil, quiet())
	_, err := ds.Commit(fullSequence(0, 1, ""))
	require.NoError(t, err)

	// a regular file where the export directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	err = ds.Export(filepath.Join(blocker, "out.csv"))
	assert.ErrorIs(t, err, ErrIOFailure)
}
