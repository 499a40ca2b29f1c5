package appliance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/briarwatch/meetingcap/internal/queue"
	"github.com/briarwatch/meetingcap/internal/receiver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReceiver struct {
	mu         sync.Mutex
	started    string
	bytesOnStop uint32
	stopErr    error
}

func (f *fakeReceiver) StartRecording(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = path
	return nil
}

func (f *fakeReceiver) StopRecording(sampleRate, channels int) (receiver.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return receiver.Stats{}, f.stopErr
	}
	return receiver.Stats{BytesWritten: f.bytesOnStop}, nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func newTestServer(t *testing.T) (*Server, *fakeReceiver, string) {
	t.Helper()
	dir := t.TempDir()
	recv := &fakeReceiver{bytesOnStop: 50000}
	q := queue.New(stubTranscriber{text: "hello there"})
	cfg := config.DefaultAppliance()
	cfg.RecordingsDir = dir
	cfg.Webhook.URL = ""

	s := NewServer(recv, q, cfg, testLogger(), nil)
	fixed := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Run(ctx)

	return s, recv, dir
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleStartThenStopQueuesTranscription(t *testing.T) {
	s, recv, dir := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/start", startRequest{Title: "Weekly Sync"})
	require.Equal(t, http.StatusOK, rec.Code)

	var startResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &startResp))
	require.Equal(t, "recording", startResp["status"])
	require.Equal(t, filepath.Join(dir, "20260730-100000-weekly-sync.wav"), recv.started)

	stopRec := doJSON(t, s, http.MethodPost, "/stop", nil)
	require.Equal(t, http.StatusOK, stopRec.Code)

	var stopResp map[string]any
	require.NoError(t, json.Unmarshal(stopRec.Body.Bytes(), &stopResp))
	require.Equal(t, "transcribing", stopResp["status"])
	require.Equal(t, "Weekly Sync", stopResp["title"])

	require.Eventually(t, func() bool {
		return len(s.queue.Recent()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHandleStartRejectsSecondConcurrentRecording(t *testing.T) {
	s, _, _ := newTestServer(t)

	first := doJSON(t, s, http.MethodPost, "/start", startRequest{Title: "A"})
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, s, http.MethodPost, "/start", startRequest{Title: "B"})
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestHandleStopWithoutActiveRecordingReturns404(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/stop", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStopDiscardsRecordingBelowMinimumBytes(t *testing.T) {
	s, recv, _ := newTestServer(t)
	recv.bytesOnStop = 100

	doJSON(t, s, http.MethodPost, "/start", startRequest{Title: "Too Short"})
	rec := doJSON(t, s, http.MethodPost, "/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "failed", resp["status"])

	recent := s.queue.Recent()
	require.Len(t, recent, 1)
	require.Equal(t, queue.StateFailed, recent[0].State)
}

func TestHandleRetranscribeRejectsMissingFile(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/retranscribe", retranscribeRequest{Filename: "missing.wav"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRetranscribeRejectsNonWavFilename(t *testing.T) {
	s, _, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	rec := doJSON(t, s, http.MethodPost, "/retranscribe", retranscribeRequest{Filename: "notes.txt"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRetranscribeQueuesExistingFile(t *testing.T) {
	s, _, dir := newTestServer(t)
	path := filepath.Join(dir, "20260101-090000-old-meeting.wav")
	require.NoError(t, os.WriteFile(path, sampleWAV(), 0o644))

	rec := doJSON(t, s, http.MethodPost, "/retranscribe", retranscribeRequest{Filename: "20260101-090000-old-meeting.wav"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "queued", resp["status"])
	require.Equal(t, "old meeting", resp["title"])
}

func TestHandleStatusReportsQueueAndDiskFields(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.Contains(t, resp, "transcription_queue_depth")
	require.Contains(t, resp, "disk_free_gb")
	require.Contains(t, resp, "recording_max_age_days")
	require.Contains(t, resp, "webhook_url")
	require.Contains(t, resp, "vban_port")
}

func TestHandleRecordingsListsMostRecentFirst(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.queue.RecordWithoutTranscription(queue.Recording{ID: "1", Title: "first", State: queue.StateCompleted})
	s.queue.RecordWithoutTranscription(queue.Recording{ID: "2", Title: "second", State: queue.StateCompleted})

	rec := doJSON(t, s, http.MethodGet, "/recordings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, float64(2), resp["total"])

	recordings := resp["recordings"].([]any)
	require.Equal(t, "second", recordings[0].(map[string]any)["title"])
}

// sampleWAV returns a minimal valid 44-byte WAV header with no payload.
func sampleWAV() []byte {
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	header[16] = 16
	header[20] = 1
	header[22] = 2
	header[24] = 0x80
	header[25] = 0xbb
	header[26] = 0
	header[27] = 0
	header[28] = 0
	header[29] = 0xee
	header[30] = 2
	header[31] = 0
	header[32] = 4
	header[34] = 16
	copy(header[36:40], "data")
	return header
}
