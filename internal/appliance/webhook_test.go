package appliance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/briarwatch/meetingcap/internal/transcript"
)

func TestDeliverWebhookSucceedsOn2xx(t *testing.T) {
	var gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotTitle = payload.Title
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := transcript.Header{Title: "Weekly Sync", MeetingStart: time.Now(), MeetingEnd: time.Now().Add(time.Minute)}
	err := deliverWebhook(context.Background(), srv.Client(), srv.URL, h, "body text")
	require.NoError(t, err)
	require.Equal(t, "Weekly Sync", gotTitle)
}

func TestDeliverWebhookReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := deliverWebhook(context.Background(), srv.Client(), srv.URL, transcript.Header{Title: "x"}, "body")
	require.Error(t, err)
}

func TestDeliverWebhookReturnsErrorOnUnreachableHost(t *testing.T) {
	client := &http.Client{Timeout: 200 * time.Millisecond}
	err := deliverWebhook(context.Background(), client, "http://127.0.0.1:1", transcript.Header{Title: "x"}, "body")
	require.Error(t, err)
}
