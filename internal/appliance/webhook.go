package appliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/briarwatch/meetingcap/internal/transcript"
)

// webhookPayload is the JSON body posted to the configured webhook URL
// once a transcript is ready, mirroring the ingest daemon's own
// /webhook request shape so the same endpoint can sit on either side.
type webhookPayload struct {
	Title           string  `json:"title"`
	Transcript      string  `json:"transcript"`
	MeetingStart    string  `json:"meeting_start,omitempty"`
	MeetingEnd      string  `json:"meeting_end,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
	RecordingSource string  `json:"recording_source,omitempty"`
}

// deliverWebhook posts transcriptBody (already carrying its front-matter
// header) to url. Any non-2xx response or transport error is returned for
// the caller to log; delivery failure is never fatal to the recording.
func deliverWebhook(ctx context.Context, client *http.Client, url string, h transcript.Header, transcriptBody string) error {
	payload := webhookPayload{
		Title:           h.Title,
		Transcript:      transcriptBody,
		RecordingSource: h.RecordingSource,
	}
	if !h.MeetingStart.IsZero() {
		payload.MeetingStart = h.MeetingStart.Format("2006-01-02T15:04:05Z07:00")
	}
	if !h.MeetingEnd.IsZero() {
		payload.MeetingEnd = h.MeetingEnd.Format("2006-01-02T15:04:05Z07:00")
		if !h.MeetingStart.IsZero() {
			payload.DurationSeconds = h.MeetingEnd.Sub(h.MeetingStart).Seconds()
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
