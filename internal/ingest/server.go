// Package ingest implements the ingest daemon's HTTP API:
// accepting transcripts and calendar updates and persisting them into the
// workspace with at-most-one-writer discipline.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/briarwatch/meetingcap/internal/metrics"
	"github.com/briarwatch/meetingcap/internal/transcript"
	"github.com/briarwatch/meetingcap/internal/workspace"
)

const (
	maxTranscriptBytes = 256 * 1024
	maxCalendarBytes   = 1024 * 1024
)

// Snapshot is the health-check/config summary returned by GET /.
type Snapshot struct {
	Port                    int
	SyncEnabled             bool
	PollIntervalSeconds     float64
	StandaloneEnabled       bool
	StandaloneAsync         bool
	StandaloneCommand       []string
	WorkflowDispatchEnabled bool
	WorkflowRepo            string
	WorkflowName            string
}

// Server is the ingest daemon's HTTP handler.
type Server struct {
	router     *chi.Mux
	ws         *workspace.Workspace
	snapshot   Snapshot
	autoCommit bool
	logger     *slog.Logger
	metrics    *metrics.Ingest
	now        func() time.Time
}

// NewServer builds the ingest daemon's HTTP handler, with all routes
// mounted.
func NewServer(ws *workspace.Workspace, snapshot Snapshot, autoCommit bool, logger *slog.Logger, m *metrics.Ingest) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		ws:         ws,
		snapshot:   snapshot,
		autoCommit: autoCommit,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/", s.handleHealth)
	s.router.Post("/webhook", s.handleWebhook)
	s.router.Post("/calendar", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "meetingcap-ingestd",
		"port":    s.snapshot.Port,
		"endpoints": map[string]string{
			"health":     "/",
			"transcript": "/webhook",
			"calendar":   "/calendar",
		},
		"sync": map[string]any{
			"enabled":                s.snapshot.SyncEnabled,
			"poll_interval_seconds":  s.snapshot.PollIntervalSeconds,
		},
		"standalone": map[string]any{
			"enabled": s.snapshot.StandaloneEnabled,
			"command": s.snapshot.StandaloneCommand,
		},
		"relay": map[string]any{
			"workflow_dispatch_enabled": s.snapshot.WorkflowDispatchEnabled,
			"repo":                      s.snapshot.WorkflowRepo,
			"workflow":                  s.snapshot.WorkflowName,
		},
	})
}

type webhookPayload struct {
	Title           string     `json:"title"`
	Transcript      string     `json:"transcript"`
	MeetingStart    *time.Time `json:"meeting_start,omitempty"`
	MeetingEnd      *time.Time `json:"meeting_end,omitempty"`
	DurationSeconds *float64   `json:"duration,omitempty"`
	RecordingSource string     `json:"recording_source,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}
	if r.ContentLength > maxTranscriptBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "transcript too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTranscriptBytes)
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "transcript too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if strings.TrimSpace(payload.Title) == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: 'title'")
		return
	}
	if strings.TrimSpace(payload.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "Transcript cannot be empty")
		return
	}

	body := payload.Transcript
	if !transcript.HasHeader(body) {
		body = transcript.Inject(s.buildHeader(payload), body)
	}

	if len(body) > maxTranscriptBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("transcript too large (%d bytes)", len(body)))
		return
	}

	s.ws.Lock()
	defer s.ws.Unlock()

	if s.snapshot.SyncEnabled {
		if _, msg, err := s.ws.Sync(r.Context()); err != nil {
			s.logger.Warn("pre-webhook sync failed", "error", err)
		} else {
			s.logger.Info("pre-webhook sync", "message", msg)
		}
	}

	inboxDir := s.ws.InboxPath()
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prepare inbox directory")
		return
	}

	filename, err := writeUniqueFile(inboxDir, generateFilename(payload.Title, s.now()), []byte(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write transcript")
		return
	}

	response := map[string]any{
		"status":   "success",
		"filename": filename,
		"message":  "Transcript queued for processing",
	}

	if s.autoCommit {
		filePath := filepath.Join(inboxDir, filename)
		ok, commitMsg := s.ws.Commit(r.Context(), filePath, payload.Title)
		response["git"] = map[string]any{"enabled": true, "committed": ok, "message": commitMsg}

		if ok {
			response["processing"] = s.triggerDownstream(r.Context(), filename)
		}
	} else {
		response["git"] = map[string]any{"enabled": false, "message": "Git operations disabled in config"}
	}

	if s.metrics != nil {
		s.metrics.WebhooksTotal.WithLabelValues("accepted").Inc()
	}
	writeJSON(w, http.StatusOK, response)
}

// triggerDownstream runs the configured downstream strategy after a
// successful commit: standalone local processing (sync or async) or
// relay via push + GitHub workflow dispatch. The two are mutually
// exclusive per deployment.
func (s *Server) triggerDownstream(ctx context.Context, filename string) map[string]any {
	if s.snapshot.StandaloneEnabled {
		if s.snapshot.StandaloneAsync {
			s.ws.RunStandaloneProcessingAsync(context.Background())
			return map[string]any{"mode": "standalone", "async": true, "message": "Processing started in background"}
		}

		ok, msg := s.ws.RunStandaloneProcessing(ctx)
		result := map[string]any{"mode": "standalone", "async": false, "success": ok, "message": msg}
		if s.autoCommit {
			pushOK, pushMsg := s.ws.Push(ctx)
			result["pushed"] = pushOK
			result["push_message"] = pushMsg
		}
		return result
	}

	pushOK, pushMsg := s.ws.Push(ctx)
	if !pushOK {
		s.logger.Warn("push failed, skipping workflow dispatch", "message", pushMsg)
		return map[string]any{
			"mode": "relay",
			"workflow_dispatch": map[string]any{
				"enabled": s.snapshot.WorkflowDispatchEnabled,
				"success": false,
				"message": "Skipped: push failed",
			},
		}
	}

	dispatchOK, dispatchMsg := s.ws.MaybeDispatchWorkflow(ctx, "webhook:"+filename)
	return map[string]any{
		"mode": "relay",
		"workflow_dispatch": map[string]any{
			"enabled": s.snapshot.WorkflowDispatchEnabled,
			"success": dispatchOK,
			"message": dispatchMsg,
		},
	}
}

func (s *Server) buildHeader(payload webhookPayload) transcript.Header {
	now := s.now()
	h := transcript.Header{Title: payload.Title, RecordingSource: payload.RecordingSource, ReceivedAt: now}

	switch {
	case payload.MeetingStart != nil:
		h.MeetingStart = *payload.MeetingStart
		if payload.MeetingEnd != nil {
			h.MeetingEnd = *payload.MeetingEnd
		} else if payload.DurationSeconds != nil {
			h.MeetingEnd = h.MeetingStart.Add(time.Duration(*payload.DurationSeconds * float64(time.Second)))
		}
	case payload.DurationSeconds != nil:
		h.MeetingEnd = now
		h.MeetingStart = now.Add(-time.Duration(*payload.DurationSeconds * float64(time.Second)))
	default:
		h.MeetingEnd = now
	}
	return h
}

type calendarPayload struct {
	Calendar string `json:"calendar"`
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	var content string

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		if r.ContentLength > maxCalendarBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxCalendarBytes)
		var payload calendarPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if err.Error() == "http: request body too large" {
				writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		content = payload.Calendar
	case strings.Contains(contentType, "text/plain"):
		if r.ContentLength > maxCalendarBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
			return
		}
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCalendarBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "calendar too large")
			return
		}
		content = string(data)
	default:
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json or text/plain")
		return
	}

	if strings.TrimSpace(content) == "" {
		writeError(w, http.StatusBadRequest, "Calendar content cannot be empty")
		return
	}
	if len(content) > maxCalendarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("calendar too large (%d bytes)", len(content)))
		return
	}

	s.ws.Lock()
	defer s.ws.Unlock()

	if s.snapshot.SyncEnabled {
		if _, msg, err := s.ws.Sync(r.Context()); err != nil {
			s.logger.Warn("pre-calendar sync failed", "error", err)
		} else {
			s.logger.Info("pre-calendar sync", "message", msg)
		}
	}

	calendarPath := filepath.Join(s.ws.RepoPath(), "calendar.org")
	if err := os.WriteFile(calendarPath, []byte(content), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write calendar")
		return
	}

	response := map[string]any{
		"status":  "success",
		"message": "Calendar updated",
		"size":    len(content),
	}

	if s.autoCommit {
		ok, commitMsg := s.ws.Commit(r.Context(), calendarPath, "Calendar update")
		git := map[string]any{"committed": ok, "message": commitMsg}
		if ok {
			pushOK, pushMsg := s.ws.Push(r.Context())
			git["pushed"] = pushOK
			git["push_message"] = pushMsg
		}
		response["git"] = git
	}

	writeJSON(w, http.StatusOK, response)
}

// writeUniqueFile writes data to dir/name, appending "-2", "-3", ... before
// the extension on collision so concurrent webhooks never clobber each
// other.
func writeUniqueFile(dir, name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for attempt := 2; ; attempt++ {
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, writeErr := f.Write(data)
			closeErr := f.Close()
			if writeErr != nil {
				return "", writeErr
			}
			if closeErr != nil {
				return "", closeErr
			}
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, attempt, ext)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": message})
}
