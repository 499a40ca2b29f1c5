package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewApplianceRegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewAppliance(reg)
	a.RecordingsTotal.WithLabelValues("completed").Inc()
	a.ActiveRecording.Set(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewIngestRegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	i := NewIngest(reg)
	i.WebhooksTotal.WithLabelValues("accepted").Inc()
	i.CommitsTotal.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestHandlerServesMetricsText(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewAppliance(reg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "meetingcap_appliance")
}
