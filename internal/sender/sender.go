// Package sender implements the VBAN sender: it slices captured PCM
// into fixed-size frames, wraps each in a VBAN header, and fires them at a
// UDP destination without waiting for acknowledgment.
package sender

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/briarwatch/meetingcap/internal/vban"
)

const (
	// DefaultSamplesPerFrame matches the reference VBAN sender's packet size.
	DefaultSamplesPerFrame = 256
	// DefaultPort is the conventional VBAN audio port.
	DefaultPort = 6980
	// DefaultStreamName is used when the caller does not override it.
	DefaultStreamName = "MeetingAudio"

	bytesPerSample = 2 // PCM s16
)

// Config describes one outbound VBAN stream.
type Config struct {
	Addr            string // host:port, e.g. "192.168.1.50:6980"
	StreamName      string
	SampleRate      int
	Channels        int
	SamplesPerFrame int
}

// Sender fires PCM chunks at a UDP destination as VBAN frames. It is not
// safe for concurrent use by multiple goroutines; callers serialize calls
// to SendPCM through a single capture pipeline.
type Sender struct {
	conn            *net.UDPConn
	streamName      string
	sampleRateIdx   int
	channels        int
	samplesPerFrame int
	counter         atomic.Uint32
}

// Dial opens the UDP socket used to send VBAN frames for cfg.
func Dial(cfg Config) (*Sender, error) {
	if cfg.SamplesPerFrame <= 0 {
		cfg.SamplesPerFrame = DefaultSamplesPerFrame
	}
	if cfg.StreamName == "" {
		cfg.StreamName = DefaultStreamName
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	idx, err := vban.SampleRateIndex(cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("sender: resolve %s: %w", cfg.Addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("sender: dial %s: %w", cfg.Addr, err)
	}

	return &Sender{
		conn:            conn,
		streamName:      cfg.StreamName,
		sampleRateIdx:   idx,
		channels:        cfg.Channels,
		samplesPerFrame: cfg.SamplesPerFrame,
	}, nil
}

// Close releases the underlying UDP socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// SendPCM splits pcm (interleaved s16 samples, byte-packed) into
// SamplesPerFrame-sized VBAN frames and writes each to the destination.
// The final, possibly short, chunk is still sent — VBAN has no minimum
// frame size. SendPCM returns on the first write error; it does not retry,
// matching UDP's best-effort delivery model.
func (s *Sender) SendPCM(ctx context.Context, pcm []byte) error {
	frameBytes := s.samplesPerFrame * s.channels * bytesPerSample

	for off := 0; off < len(pcm); off += frameBytes {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := off + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		chunk := pcm[off:end]
		samplesInChunk := len(chunk) / (s.channels * bytesPerSample)
		if samplesInChunk == 0 {
			continue
		}

		hdr := vban.Header{
			SampleRateIndex: s.sampleRateIdx,
			SamplesPerFrame: samplesInChunk,
			Channels:        s.channels,
			DataType:        vban.DataTypeInt16,
			Codec:           vban.CodecPCM,
			StreamName:      s.streamName,
			FrameCounter:    s.counter.Load(),
		}

		frame, err := vban.BuildFrame(hdr, chunk)
		if err != nil {
			return err
		}
		if _, err := s.conn.Write(frame); err != nil {
			return fmt.Errorf("sender: write: %w", err)
		}
		s.counter.Add(1)
	}
	return nil
}
