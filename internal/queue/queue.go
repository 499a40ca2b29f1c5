// Package queue implements the transcription queue: a single in-process
// worker that transcribes recordings strictly in FIFO order, plus a bounded
// ring buffer of recent recordings for the appliance's /status and
// /recordings endpoints.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/briarwatch/meetingcap/internal/command"
	"github.com/briarwatch/meetingcap/internal/fsm"
)

// maxRecent bounds the ring buffer of recently-seen recordings, matching
// the reference appliance's MAX_RECENT.
const maxRecent = 20

const (
	StateRecording    fsm.State = "recording"
	StateTranscribing fsm.State = "transcribing"
	StateCompleted    fsm.State = "completed"
	StateFailed       fsm.State = "failed"

	eventTranscribeStart Event = "transcribe_start"
	eventComplete        Event = "complete"
	eventFail             Event = "fail"
)

// Event is an alias kept local to this package's transition table so
// callers never need to import internal/fsm just to drive a Recording.
type Event = fsm.Event

// recordingTable is the recording lifecycle: RECORDING -> TRANSCRIBING ->
// COMPLETED|FAILED, strictly forward, no path back to RECORDING.
var recordingTable = fsm.Table{
	StateRecording: {
		eventTranscribeStart: StateTranscribing,
	},
	StateTranscribing: {
		eventComplete: StateCompleted,
		eventFail:     StateFailed,
	},
}

// Recording is one tracked recording's lifecycle and metadata.
type Recording struct {
	ID             string
	Title          string
	AudioPath      string
	TranscriptPath string
	Transcript     string // raw STT output, filled in once State reaches Completed
	State          fsm.State
	MeetingStart   time.Time
	MeetingEnd     time.Time
	Error          string
	WebhookSent    bool
}

// transition applies event to r's state using the recording lifecycle table.
func (r *Recording) transition(event Event) error {
	next, err := fsm.Transition(recordingTable, r.State, event)
	if err != nil {
		return err
	}
	r.State = next
	return nil
}

// Transcriber runs STT over one recording's audio and returns raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// CommandTranscriber shells out to an STT binary through the bounded
// command abstraction, the STT invocation path.
type CommandTranscriber struct {
	Argv    func(audioPath string) []string
	Deadline time.Duration
}

// Transcribe runs the configured STT binary against audioPath and returns
// every line it printed (stdout and stderr, in arrival order, as
// command.Spec.OnLine delivers them) joined by newlines as the transcript.
func (c CommandTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var out []string
	result, err := command.Run(ctx, command.Spec{
		Argv:     c.Argv(audioPath),
		Deadline: c.Deadline,
		OnLine:   func(l string) { out = append(out, l) },
	})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("queue: transcription exited %d: %s", result.ExitCode, result.Tail)
	}

	joined := ""
	for i, l := range out {
		if i > 0 {
			joined += "\n"
		}
		joined += l
	}
	return joined, nil
}

// Queue is the single-worker FIFO transcription queue.
type Queue struct {
	transcriber Transcriber

	// OnFinished, if set, runs synchronously once a recording reaches a
	// terminal state (Completed or Failed) and before it is pushed onto
	// the recent ring, letting the appliance post-process the transcript
	// and attempt webhook delivery without the queue knowing about either
	// concern.
	OnFinished func(ctx context.Context, r *Recording)

	mu      sync.Mutex
	active  *Recording
	recent  []Recording // ring buffer, most recent last
	pending []*Recording

	wakeCh chan struct{}
}

// New returns a Queue that transcribes via t.
func New(t Transcriber) *Queue {
	return &Queue{
		transcriber: t,
		wakeCh:      make(chan struct{}, 1),
	}
}

// Enqueue adds a finished recording for transcription and wakes the worker.
func (q *Queue) Enqueue(r *Recording) {
	q.mu.Lock()
	q.pending = append(q.pending, r)
	q.mu.Unlock()

	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
}

// Active returns a copy of the recording currently being transcribed, if any.
func (q *Queue) Active() (Recording, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		return Recording{}, false
	}
	return *q.active, true
}

// Recent returns a snapshot of the bounded recent-recordings ring, oldest first.
func (q *Queue) Recent() []Recording {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Recording, len(q.recent))
	copy(out, q.recent)
	return out
}

// Depth reports how many recordings are waiting to start transcription.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// RecordWithoutTranscription appends r directly to the recent ring without
// running it through the transcription worker, for recordings that never
// reach transcription (e.g. too short to contain usable audio).
func (q *Queue) RecordWithoutTranscription(r Recording) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushRecent(r)
}

// Run drains the pending queue strictly in FIFO order until ctx is done.
// It is meant to run in its own goroutine for the appliance's lifetime.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wakeCh:
		}

		for {
			q.mu.Lock()
			if len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			next := q.pending[0]
			q.pending = q.pending[1:]
			q.active = next
			q.mu.Unlock()

			q.transcribeOne(ctx, next)

			if q.OnFinished != nil {
				q.OnFinished(ctx, next)
			}

			q.mu.Lock()
			q.active = nil
			q.pushRecent(*next)
			q.mu.Unlock()
		}
	}
}

func (q *Queue) transcribeOne(ctx context.Context, r *Recording) {
	if err := r.transition(eventTranscribeStart); err != nil {
		r.State = StateFailed
		r.Error = err.Error()
		return
	}

	text, err := q.transcriber.Transcribe(ctx, r.AudioPath)
	if err != nil {
		r.Error = err.Error()
		_ = r.transition(eventFail)
		return
	}
	if strings.TrimSpace(text) == "" {
		r.Error = "transcriber produced empty output"
		_ = r.transition(eventFail)
		return
	}

	r.Transcript = text
	if err := r.transition(eventComplete); err != nil {
		r.State = StateFailed
		r.Error = err.Error()
	}
}

func (q *Queue) pushRecent(r Recording) {
	q.recent = append(q.recent, r)
	if len(q.recent) > maxRecent {
		q.recent = q.recent[len(q.recent)-maxRecent:]
	}
}
