// Package metrics exposes Prometheus counters and gauges for the
// appliance and ingest daemon, mirroring fields already surfaced by their
// /status and / endpoints so metrics never become a second source of
// truth for recording or sync state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Appliance bundles the appliance's metric instruments.
type Appliance struct {
	RecordingsTotal      *prometheus.CounterVec
	ActiveRecording       prometheus.Gauge
	TranscriptionDuration prometheus.Histogram
	QueueDepth            prometheus.Gauge
	WebhookDeliveries     *prometheus.CounterVec
}

// NewAppliance registers and returns the appliance's metric instruments
// against reg.
func NewAppliance(reg prometheus.Registerer) *Appliance {
	factory := promauto.With(reg)
	return &Appliance{
		RecordingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingcap_appliance_recordings_total",
			Help: "Recordings completed, labeled by outcome state.",
		}, []string{"state"}),
		ActiveRecording: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meetingcap_appliance_active_recording",
			Help: "1 if a recording is currently in progress, else 0.",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetingcap_appliance_transcription_duration_seconds",
			Help:    "Wall-clock duration of STT invocations.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meetingcap_appliance_queue_depth",
			Help: "Recordings waiting for transcription.",
		}),
		WebhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingcap_appliance_webhook_deliveries_total",
			Help: "Webhook delivery attempts, labeled by outcome.",
		}, []string{"outcome"}),
	}
}

// Ingest bundles the ingest daemon's metric instruments.
type Ingest struct {
	WebhooksTotal  *prometheus.CounterVec
	SyncOutcomes   *prometheus.CounterVec
	CommitsTotal   prometheus.Counter
	StandaloneRuns *prometheus.CounterVec
}

// NewIngest registers and returns the ingest daemon's metric instruments
// against reg.
func NewIngest(reg prometheus.Registerer) *Ingest {
	factory := promauto.With(reg)
	return &Ingest{
		WebhooksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingcap_ingest_webhooks_total",
			Help: "Webhook requests received, labeled by outcome.",
		}, []string{"outcome"}),
		SyncOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingcap_ingest_sync_total",
			Help: "Workspace sync attempts, labeled by outcome.",
		}, []string{"outcome"}),
		CommitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "meetingcap_ingest_commits_total",
			Help: "Commits made to the workspace repository.",
		}),
		StandaloneRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingcap_ingest_standalone_runs_total",
			Help: "Standalone processing command runs, labeled by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler returns the /metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
