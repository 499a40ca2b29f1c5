package agentapp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/briarwatch/meetingcap/internal/audio"
	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/briarwatch/meetingcap/internal/sender"
)

// localSender captures the selected primary (and optional mic) audio
// source, downmixes them, and streams the result to the appliance as VBAN
// frames. It implements controller.LocalSender.
type localSender struct {
	cfg    config.AgentConfig
	logger *slog.Logger

	mu      sync.Mutex
	primary *audio.Capture
	mic     *audio.Capture
	out     *sender.Sender
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newLocalSender(cfg config.AgentConfig, logger *slog.Logger) *localSender {
	return &localSender{cfg: cfg, logger: logger}
}

// Start selects the configured audio devices, opens the VBAN sender, and
// begins streaming mixed PCM until Stop is called.
func (l *localSender) Start(ctx context.Context) error {
	selection, err := audio.SelectDevice(ctx, l.cfg.Audio.Input, l.cfg.Audio.Fallback)
	if err != nil {
		return fmt.Errorf("select primary audio device: %w", err)
	}

	captureCtx, cancel := context.WithCancel(context.Background())

	primary, err := audio.StartCapture(captureCtx, selection.Device, audio.Options{SampleRate: l.cfg.Audio.SampleRate})
	if err != nil {
		cancel()
		return fmt.Errorf("start primary capture: %w", err)
	}

	var mic *audio.Capture
	if l.cfg.Audio.MicInput != "" {
		micSelection, micErr := audio.SelectDevice(ctx, l.cfg.Audio.MicInput, "")
		if micErr != nil {
			l.logger.Warn("mic capture unavailable, continuing with primary only", "error", micErr)
		} else if m, startErr := audio.StartCapture(captureCtx, micSelection.Device, audio.Options{SampleRate: l.cfg.Audio.SampleRate}); startErr != nil {
			l.logger.Warn("mic capture failed to start, continuing with primary only", "error", startErr)
		} else {
			mic = m
		}
	}

	out, err := sender.Dial(sender.Config{
		Addr:       l.cfg.VBAN.Addr,
		StreamName: l.cfg.VBAN.StreamName,
		SampleRate: l.cfg.Audio.SampleRate,
		Channels:   1,
	})
	if err != nil {
		primary.Close()
		if mic != nil {
			mic.Close()
		}
		cancel()
		return fmt.Errorf("dial vban sender: %w", err)
	}

	l.mu.Lock()
	l.primary, l.mic, l.out, l.cancel = primary, mic, out, cancel
	l.mu.Unlock()

	var micChunks <-chan []byte
	if mic != nil {
		micChunks = mic.Chunks()
	}
	mixer := audio.NewMixer(primary.Chunks(), micChunks)
	if l.cfg.Audio.MicGain != 0 {
		mixer.SetMicGain(l.cfg.Audio.MicGain)
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			chunk, ok := mixer.Next()
			if !ok {
				return
			}
			if err := out.SendPCM(captureCtx, chunk); err != nil {
				if captureCtx.Err() == nil {
					l.logger.Warn("vban send failed", "error", err)
				}
				return
			}
		}
	}()

	return nil
}

// Stop halts capture and the VBAN stream and waits for the send loop to exit.
func (l *localSender) Stop(context.Context) error {
	l.mu.Lock()
	cancel := l.cancel
	primary := l.primary
	mic := l.mic
	out := l.out
	l.primary, l.mic, l.out, l.cancel = nil, nil, nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if primary != nil {
		primary.Close()
	}
	if mic != nil {
		mic.Close()
	}
	l.wg.Wait()

	if out != nil {
		return out.Close()
	}
	return nil
}
