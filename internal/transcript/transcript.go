// Package transcript builds and parses the `---`-delimited front matter
// header the ingest daemon attaches to every transcript artifact before it
// lands in the workspace inbox.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

const delimiter = "---"

// Header holds the known front-matter fields. Fields are rendered in a
// fixed order so repeated runs over the same Header produce byte-identical
// output.
type Header struct {
	Title           string
	MeetingStart    time.Time
	MeetingEnd      time.Time
	RecordingSource string
	ReceivedAt      time.Time
}

// recordingSourceDefault matches the reference ingest daemon's default
// when a webhook payload omits the field.
const recordingSourceDefault = "macwhisper"

const timeLayout = time.RFC3339

// HasHeader reports whether body already begins with a front-matter block,
// so callers never double-inject a header onto a resubmitted artifact.
func HasHeader(body string) bool {
	return strings.HasPrefix(strings.TrimLeft(body, "\n"), delimiter+"\n")
}

// Inject renders h as a front-matter block and prepends it to body. If
// body already has a header, Inject returns body unchanged.
func Inject(h Header, body string) string {
	if HasHeader(body) {
		return body
	}

	if h.RecordingSource == "" {
		h.RecordingSource = recordingSourceDefault
	}

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	fmt.Fprintf(&b, "title: %s\n", h.Title)
	if !h.MeetingStart.IsZero() {
		fmt.Fprintf(&b, "meeting_start: %s\n", h.MeetingStart.Format(timeLayout))
	}
	if !h.MeetingEnd.IsZero() {
		fmt.Fprintf(&b, "meeting_end: %s\n", h.MeetingEnd.Format(timeLayout))
	}
	if !h.MeetingStart.IsZero() && !h.MeetingEnd.IsZero() {
		fmt.Fprintf(&b, "duration_seconds: %d\n", int(h.MeetingEnd.Sub(h.MeetingStart).Seconds()))
	}
	fmt.Fprintf(&b, "recording_source: %s\n", h.RecordingSource)
	if !h.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "received_at: %s\n", h.ReceivedAt.Format(timeLayout))
	}
	b.WriteString(delimiter + "\n\n")
	b.WriteString(body)
	return b.String()
}

// Parse splits a transcript artifact into its header fields (best effort,
// missing fields left zero-valued) and body. If body has no header, Parse
// returns a zero Header and the body unchanged.
func Parse(artifact string) (Header, string) {
	trimmed := strings.TrimLeft(artifact, "\n")
	if !strings.HasPrefix(trimmed, delimiter+"\n") {
		return Header{}, artifact
	}

	rest := trimmed[len(delimiter)+1:]
	end := strings.Index(rest, "\n"+delimiter+"\n")
	if end == -1 {
		return Header{}, artifact
	}

	block := rest[:end]
	body := strings.TrimPrefix(rest[end+len(delimiter)+2:], "\n")

	var h Header
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "title":
			h.Title = value
		case "meeting_start":
			h.MeetingStart, _ = time.Parse(timeLayout, value)
		case "meeting_end":
			h.MeetingEnd, _ = time.Parse(timeLayout, value)
		case "recording_source":
			h.RecordingSource = value
		case "received_at":
			h.ReceivedAt, _ = time.Parse(timeLayout, value)
		}
	}

	return h, body
}
