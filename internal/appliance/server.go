package appliance

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briarwatch/meetingcap/internal/queue"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	var recording map[string]any
	switch {
	case current != nil:
		recording = recordingJSON(*current)
	default:
		if active, ok := s.queue.Active(); ok {
			recording = recordingJSON(active)
		} else if recent := s.queue.Recent(); len(recent) > 0 {
			recording = recordingJSON(recent[len(recent)-1])
		}
	}

	diskFree, err := diskFreeGB(s.recordingsDir)
	if err != nil {
		s.logger.Warn("disk free check failed", "error", err)
	}
	s.updateQueueDepthMetric()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                   "ok",
		"recording":                recording,
		"transcription_queue_depth": s.queue.Depth(),
		"disk_free_gb":             roundTo(diskFree, 1),
		"recording_max_age_days":   s.maxAgeDays,
		"recent_count":             len(s.queue.Recent()),
		"webhook_url":              s.webhookURL,
		"vban_port":                s.vbanPort,
	})
}

type startRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled Meeting"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		writeError(w, http.StatusConflict, "a recording is already in progress")
		return
	}

	if err := os.MkdirAll(s.recordingsDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prepare recordings directory")
		return
	}

	now := s.now()
	filename := audioFilename(title, now)
	audioPath := filepath.Join(s.recordingsDir, filename)

	if err := s.receiver.StartRecording(audioPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start recording: "+err.Error())
		return
	}

	s.current = &queue.Recording{
		ID:           newRecordingID(),
		Title:        title,
		AudioPath:    audioPath,
		State:        queue.StateRecording,
		MeetingStart: now,
	}
	if s.metrics != nil {
		s.metrics.ActiveRecording.Set(1)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "recording",
		"title":         title,
		"audio_path":    audioPath,
		"meeting_start": now.Format(time.RFC3339),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec := s.current
	s.current = nil
	s.mu.Unlock()

	if rec == nil {
		writeError(w, http.StatusNotFound, "no recording in progress")
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveRecording.Set(0)
	}

	stats, err := s.receiver.StopRecording(s.sampleRate, s.channels)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stop recording: "+err.Error())
		return
	}

	rec.MeetingEnd = s.now()
	duration := rec.MeetingEnd.Sub(rec.MeetingStart).Seconds()

	if stats.BytesWritten < minRecordingBytes {
		rec.State = queue.StateFailed
		rec.Error = "recording captured no usable audio"
		s.queue.RecordWithoutTranscription(*rec)
		if s.metrics != nil {
			s.metrics.RecordingsTotal.WithLabelValues("failed").Inc()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "failed",
			"title":            rec.Title,
			"duration_seconds": roundTo(duration, 2),
			"message":          "Recording discarded: no usable audio captured",
		})
		return
	}

	s.queue.Enqueue(rec)
	s.updateQueueDepthMetric()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "transcribing",
		"title":            rec.Title,
		"duration_seconds": roundTo(duration, 2),
		"message":          "Recording stopped, transcription queued",
	})
}

type retranscribeRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handleRetranscribe(w http.ResponseWriter, r *http.Request) {
	var req retranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == "/" {
		writeError(w, http.StatusBadRequest, "Missing required field: 'filename'")
		return
	}
	if !strings.HasSuffix(filename, ".wav") {
		writeError(w, http.StatusBadRequest, "filename must reference a .wav recording")
		return
	}

	audioPath := filepath.Join(s.recordingsDir, filename)
	if _, err := os.Stat(audioPath); err != nil {
		writeError(w, http.StatusNotFound, "recording not found: "+filename)
		return
	}

	duration, err := wavDurationSeconds(audioPath)
	if err != nil {
		s.logger.Warn("retranscribe duration probe failed", "error", err, "file", filename)
	}

	title := titleFromFilename(filename)
	now := s.now()
	rec := &queue.Recording{
		ID:           newRecordingID(),
		Title:        title,
		AudioPath:    audioPath,
		State:        queue.StateRecording,
		MeetingStart: now.Add(-time.Duration(duration * float64(time.Second))),
		MeetingEnd:   now,
	}
	s.queue.Enqueue(rec)
	s.updateQueueDepthMetric()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "queued",
		"title":            title,
		"filename":         filename,
		"duration_seconds": roundTo(duration, 2),
		"message":          "Recording queued for transcription",
	})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	recent := s.queue.Recent()
	out := make([]map[string]any, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		out = append(out, recordingJSON(recent[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recordings": out,
		"total":      len(out),
	})
}

func recordingJSON(r queue.Recording) map[string]any {
	out := map[string]any{
		"title":        r.Title,
		"state":        string(r.State),
		"audio_path":   r.AudioPath,
		"meeting_start": r.MeetingStart.Format(time.RFC3339),
		"webhook_sent": r.WebhookSent,
	}
	if r.TranscriptPath != "" {
		out["transcript_path"] = r.TranscriptPath
	}
	if !r.MeetingEnd.IsZero() {
		out["meeting_end"] = r.MeetingEnd.Format(time.RFC3339)
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return out
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+0.5)) / scale
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": message})
}
