// Package appliance implements the transcription appliance's HTTP control
// surface: start/stop a recording, queue a retranscription, and report
// status, wiring the VBAN receiver and transcription queue together behind
// exactly one in-progress recording at a time.
package appliance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/briarwatch/meetingcap/internal/metrics"
	"github.com/briarwatch/meetingcap/internal/postprocess"
	"github.com/briarwatch/meetingcap/internal/queue"
	"github.com/briarwatch/meetingcap/internal/receiver"
	"github.com/briarwatch/meetingcap/internal/transcript"
)

// minRecordingBytes is the boundary below which a stopped recording is
// considered to have captured no usable audio and is never handed to the
// transcription worker.
const minRecordingBytes = 1024

// Receiver is the appliance's view of the VBAN audio receiver.
type Receiver interface {
	StartRecording(path string) error
	StopRecording(sampleRate, channels int) (receiver.Stats, error)
}

// Server is the transcription appliance's HTTP handler.
type Server struct {
	router *chi.Mux

	receiver Receiver
	queue    *queue.Queue

	recordingsDir string
	sampleRate    int
	channels      int
	vbanPort      int
	maxAgeDays    int
	diskFreeMinGB float64

	webhookURL     string
	webhookClient  *http.Client

	logger  *slog.Logger
	metrics *metrics.Appliance
	now     func() time.Time

	mu      sync.Mutex
	current *queue.Recording
}

// NewServer builds the appliance's HTTP handler and wires the queue's
// completion hook to post-processing and webhook delivery.
func NewServer(recv Receiver, q *queue.Queue, cfg config.ApplianceConfig, logger *slog.Logger, m *metrics.Appliance) *Server {
	channels := 1
	webhookTimeout := time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second
	if webhookTimeout <= 0 {
		webhookTimeout = 30 * time.Second
	}

	s := &Server{
		router:        chi.NewRouter(),
		receiver:      recv,
		queue:         q,
		recordingsDir: cfg.RecordingsDir,
		sampleRate:    cfg.VBAN.SampleRate,
		channels:      channels,
		vbanPort:      portFromAddr(cfg.VBAN.ListenAddr),
		maxAgeDays:    cfg.RecordingMaxAgeDays,
		diskFreeMinGB: cfg.DiskFreeMinGB,
		webhookURL:    cfg.Webhook.URL,
		webhookClient: &http.Client{Timeout: webhookTimeout},
		logger:        logger,
		metrics:       m,
		now:           time.Now,
	}
	q.OnFinished = s.onTranscriptionFinished
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/status", s.handleStatus)
	s.router.Post("/start", s.handleStart)
	s.router.Post("/stop", s.handleStop)
	s.router.Post("/retranscribe", s.handleRetranscribe)
	s.router.Get("/recordings", s.handleRecordings)
}

// onTranscriptionFinished runs once a recording leaves the queue's worker,
// successfully transcribed or not: it post-processes and persists the
// transcript, then attempts webhook delivery. Delivery failure never
// changes the recording's terminal state; it only leaves WebhookSent false.
func (s *Server) onTranscriptionFinished(ctx context.Context, r *queue.Recording) {
	outcome := string(r.State)
	if s.metrics != nil {
		s.metrics.RecordingsTotal.WithLabelValues(outcome).Inc()
	}
	if r.State != queue.StateCompleted {
		return
	}

	cleaned := postprocess.Clean(r.Transcript)
	header := transcript.Header{
		Title:           r.Title,
		MeetingStart:    r.MeetingStart,
		MeetingEnd:      r.MeetingEnd,
		RecordingSource: "transcriber",
		ReceivedAt:      s.now(),
	}
	body := transcript.Inject(header, cleaned)

	r.TranscriptPath = strings.TrimSuffix(r.AudioPath, filepath.Ext(r.AudioPath)) + ".txt"
	if err := os.WriteFile(r.TranscriptPath, []byte(body), 0o644); err != nil {
		s.logger.Error("write transcript failed", "error", err, "path", r.TranscriptPath)
	}

	if s.webhookURL == "" {
		return
	}

	deliverCtx, cancel := context.WithTimeout(detachedContext(ctx), s.webhookClient.Timeout)
	defer cancel()

	if err := deliverWebhook(deliverCtx, s.webhookClient, s.webhookURL, header, body); err != nil {
		r.WebhookSent = false
		s.logger.Warn("webhook delivery failed", "error", err, "title", r.Title)
		if s.metrics != nil {
			s.metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
		}
		return
	}
	r.WebhookSent = true
	if s.metrics != nil {
		s.metrics.WebhookDeliveries.WithLabelValues("success").Inc()
	}
}

// detachedContext drops both the deadline and the cancellation of ctx,
// keeping only its values, so a webhook delivery attempt gets its own full
// timeout budget instead of inheriting whatever remained on the queue
// worker's context.
func detachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func newRecordingID() string {
	return uuid.NewString()
}

func (s *Server) updateQueueDepthMetric() {
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.queue.Depth()))
	}
}

// instrumentedTranscriber wraps a Transcriber to observe STT wall-clock
// duration on m's histogram, the one appliance metric the queue package
// itself has no business recording.
type instrumentedTranscriber struct {
	inner queue.Transcriber
	m     *metrics.Appliance
}

// WrapTranscriber instruments t's STT invocations with m's transcription
// duration histogram. m may be nil, in which case t is returned unwrapped.
func WrapTranscriber(t queue.Transcriber, m *metrics.Appliance) queue.Transcriber {
	if m == nil {
		return t
	}
	return instrumentedTranscriber{inner: t, m: m}
}

func (it instrumentedTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	start := time.Now()
	text, err := it.inner.Transcribe(ctx, audioPath)
	it.m.TranscriptionDuration.Observe(time.Since(start).Seconds())
	return text, err
}

func portFromAddr(addr string) int {
	_, portStr, err := splitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx == -1 {
		return "", "", fmt.Errorf("appliance: invalid address %q", addr)
	}
	return addr[:idx], addr[idx+1:], nil
}

func diskFreeGB(dir string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	return float64(stat.Bavail) * float64(stat.Bsize) / (1 << 30), nil
}
