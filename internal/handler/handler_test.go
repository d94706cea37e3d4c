package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njy33900/PoseDataColletor/internal/config"
	"github.com/njy33900/PoseDataColletor/internal/dto"
	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/model"
	"github.com/njy33900/PoseDataColletor/internal/service"
	"github.com/njy33900/PoseDataColletor/internal/service/recording"
	"github.com/njy33900/PoseDataColletor/internal/service/stream"
)

type fakeController struct {
	started   []int
	startErr  error
	stopErr   error
	undoOK    bool
	undoMsg   string
	status    service.Status
	sequences []model.Sequence
}

func (f *fakeController) StartRecording(label int) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, label)
	return nil
}

func (f *fakeController) StopRecording() error          { return f.stopErr }
func (f *fakeController) UndoLast() (bool, string)      { return f.undoOK, f.undoMsg }
func (f *fakeController) ExportDataset() (bool, string) { return false, "no data to save" }
func (f *fakeController) Status() service.Status        { return f.status }
func (f *fakeController) Sequences() []model.Sequence   { return f.sequences }

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartRecordingHandler(t *testing.T) {
	ctl := &fakeController{}
	h := StartRecordingHandler(ctl, logger.Discard())

	rec := post(h, "/control/start", `{"label": 2}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"started","label":2}`, rec.Body.String())
	assert.Equal(t, []int{2}, ctl.started)

	rec = post(h, "/control/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ctl.startErr = recording.ErrAlreadyRecording
	rec = post(h, "/control/start", `{"label": 0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ctl.startErr = service.ErrInvalidLabel
	rec = post(h, "/control/start", `{"label": -4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/control/start", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStopRecordingHandler(t *testing.T) {
	ctl := &fakeController{stopErr: recording.ErrNotRecording}
	rec := post(StopRecordingHandler(ctl, logger.Discard()), "/control/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	ctl.stopErr = nil
	rec = post(StopRecordingHandler(ctl, logger.Discard()), "/control/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUndoAndSaveHandlers(t *testing.T) {
	ctl := &fakeController{undoOK: true, undoMsg: "removed last sequence and deleted 2_09-00-00.000.mp4"}

	rec := post(UndoHandler(ctl, logger.Discard()), "/control/undo", "")
	var resp dto.ControlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, ctl.undoMsg, resp.Message)

	rec = post(SaveHandler(ctl, logger.Discard()), "/control/save", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "no data to save", resp.Message)
}

func TestStatusHandler(t *testing.T) {
	ctl := &fakeController{status: service.Status{
		Count:        3,
		IsRecording:  true,
		CurrentLabel: 1,
		LabelName:    "Movement",
		Elapsed:      1500 * time.Millisecond,
		Buffered:     40,
		LabelCounts:  map[int]int{0: 1, 1: 2},

		CameraConnected: true,
		FramesCaptured:  812,
	}}

	rec := httptest.NewRecorder()
	StatusHandler(ctl, logger.Discard()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.JSONEq(t, `{
		"count": 3,
		"is_recording": true,
		"label": 1,
		"label_name": "Movement",
		"elapsed": 1.5,
		"buffered": 40,
		"label_counts": {"0": 1, "1": 2},
		"camera_connected": true,
		"frames_captured": 812
	}`, rec.Body.String())
}

func TestRecordingsHandler(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctl := &fakeController{}
	for i, label := range []int{0, 1, 1} {
		ctl.sequences = append(ctl.sequences, model.Sequence{
			ID:        string(rune('a' + i)),
			Label:     label,
			Frames:    make([]model.Vector, 30),
			VideoPath: filepath.Join("videos", "x", string(rune('a'+i))+".mp4"),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	cfg := &config.Config{LabelNames: []string{"Neutral", "Movement"}}
	h := RecordingsHandler(ctl, cfg, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings?label=1&limit=1", nil))

	var data dto.RecordingsData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, 2, data.Length)
	assert.Equal(t, 2, data.TotalPages)
	require.Len(t, data.Recordings, 1)
	assert.Equal(t, "c", data.Recordings[0].ID)
	assert.Equal(t, "Movement", data.Recordings[0].LabelName)
	assert.Equal(t, "c.mp4", data.Recordings[0].FileName)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings?page=9", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Empty(t, data.Recordings)
	assert.Equal(t, 3, data.Length)
}

func TestRecordingVideoHandler(t *testing.T) {
	video := filepath.Join(t.TempDir(), "take.mp4")
	require.NoError(t, os.WriteFile(video, []byte("video-bytes"), 0644))
	ctl := &fakeController{sequences: []model.Sequence{{ID: "a", VideoPath: video}}}
	h := RecordingVideoHandler(ctl)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/video?id=a", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/video?id=../../etc/passwd", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/video", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsHandlers(t *testing.T) {
	dir := t.TempDir()
	l := logger.NewLogger(&config.Config{LogDirectory: dir})
	l.Warning("sink write failed")

	rec := httptest.NewRecorder()
	ShowLogsHandler(l, logger.WarningFile).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sink write failed")

	rec = post(ClearLogsHandler(l, logger.WarningFile), "/logs/warning/clear", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	data, err := os.ReadFile(filepath.Join(dir, logger.WarningFile))
	require.NoError(t, err)
	assert.Empty(t, data)

	rec = httptest.NewRecorder()
	ShowLogsHandler(logger.Discard(), logger.InfoFile).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	h := LoginHandler(&config.Config{Password: "secret"}, logger.Discard())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=nope"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password=secret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, "true", rec.Result().Cookies()[0].Value)
}

func TestVideoFeedHandler(t *testing.T) {
	hub := stream.NewHub(logger.Discard())
	hub.Publish([]byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9})

	srv := httptest.NewServer(VideoFeedHandler(hub, logger.Discard()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Length: 5\r\n", line)
}

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"", 24, 24},
		{"abc", 1, 1},
		{"0", 7, 7},
		{"-3", 7, 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, atoiDefault(tt.input, tt.def), "atoiDefault(%q, %d)", tt.input, tt.def)
	}
}
