package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.calls = append(f.calls, audioPath)
	if err, ok := f.errs[audioPath]; ok {
		return "", err
	}
	return f.results[audioPath], nil
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueueTranscribesInFIFOOrder(t *testing.T) {
	ft := &fakeTranscriber{results: map[string]string{"a.wav": "transcript a", "b.wav": "transcript b"}}
	q := New(ft)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(&Recording{ID: "1", AudioPath: "a.wav", State: StateRecording})
	q.Enqueue(&Recording{ID: "2", AudioPath: "b.wav", State: StateRecording})

	waitForCondition(t, time.Second, func() bool { return len(q.Recent()) == 2 })

	require.Equal(t, []string{"a.wav", "b.wav"}, ft.calls)

	recent := q.Recent()
	require.Equal(t, StateCompleted, recent[0].State)
	require.Equal(t, "transcript a", recent[0].Transcript)
	require.Equal(t, StateCompleted, recent[1].State)
}

func TestQueueMarksFailedOnTranscriptionError(t *testing.T) {
	ft := &fakeTranscriber{errs: map[string]error{"bad.wav": errors.New("stt crashed")}}
	q := New(ft)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(&Recording{ID: "1", AudioPath: "bad.wav", State: StateRecording})

	waitForCondition(t, time.Second, func() bool { return len(q.Recent()) == 1 })

	recent := q.Recent()
	require.Equal(t, StateFailed, recent[0].State)
	require.Equal(t, "stt crashed", recent[0].Error)
}

func TestQueueRecentRingIsBounded(t *testing.T) {
	q := New(&fakeTranscriber{})
	for i := 0; i < maxRecent+5; i++ {
		q.pushRecent(Recording{ID: string(rune('a' + i%26))})
	}
	require.Len(t, q.Recent(), maxRecent)
}

func TestOnFinishedFiresForBothOutcomes(t *testing.T) {
	ft := &fakeTranscriber{
		results: map[string]string{"ok.wav": "text"},
		errs:    map[string]error{"bad.wav": errors.New("stt crashed")},
	}
	q := New(ft)

	var mu sync.Mutex
	var seen []string
	q.OnFinished = func(_ context.Context, r *Recording) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(r.State))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(&Recording{ID: "1", AudioPath: "ok.wav", State: StateRecording})
	q.Enqueue(&Recording{ID: "2", AudioPath: "bad.wav", State: StateRecording})

	waitForCondition(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"completed", "failed"}, seen)
}

func TestDepthReflectsPendingCount(t *testing.T) {
	ft := &fakeTranscriber{results: map[string]string{"a.wav": "x"}}
	q := New(ft)
	q.Enqueue(&Recording{ID: "1", AudioPath: "a.wav", State: StateRecording})
	q.Enqueue(&Recording{ID: "2", AudioPath: "a.wav", State: StateRecording})
	require.Equal(t, 2, q.Depth())
}

func TestRecordWithoutTranscriptionSkipsWorker(t *testing.T) {
	q := New(&fakeTranscriber{})
	q.RecordWithoutTranscription(Recording{ID: "1", State: StateFailed, Error: "too short"})
	recent := q.Recent()
	require.Len(t, recent, 1)
	require.Equal(t, StateFailed, recent[0].State)
	require.Equal(t, 0, q.Depth())
}

func TestActiveReflectsInProgressRecording(t *testing.T) {
	ft := &fakeTranscriber{results: map[string]string{"a.wav": "x"}}
	q := New(ft)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(&Recording{ID: "1", AudioPath: "a.wav", State: StateRecording})
	waitForCondition(t, time.Second, func() bool { return len(q.Recent()) == 1 })

	_, active := q.Active()
	require.False(t, active)
}
