// Package receiver implements the VBAN receiver: it listens on a UDP
// socket for VBAN audio frames, appends their PCM payloads in arrival order
// (frames whose counter is not newer than the last one seen are dropped,
// not reordered), and streams it to a WAV file whose header is finalized
// only when the recording stops.
package receiver

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/briarwatch/meetingcap/internal/vban"
)

const wavHeaderSize = 44

// Receiver owns a UDP listener bound to one VBAN stream and writes incoming
// PCM payloads to an open WAV file.
type Receiver struct {
	conn       *net.UDPConn
	streamName string

	mu            sync.Mutex
	file          *os.File
	bytesWritten  uint32
	lastCounter   uint32
	haveCounter   bool
	droppedFrames int
}

// Listen binds a UDP socket on addr (host:port, empty host means all
// interfaces) for frames belonging to streamName. Frames for other stream
// names are silently ignored, since a shared VBAN network may carry
// multiple streams on the same port.
func Listen(addr string, streamName string) (*Receiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("receiver: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("receiver: listen %s: %w", addr, err)
	}
	return &Receiver{conn: conn, streamName: streamName}, nil
}

// Close releases the UDP socket. It does not close any in-progress WAV
// file; callers must call StopRecording first.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

// StartRecording opens path and begins writing PCM payloads to it as they
// arrive, reserving space for a WAV header that is only filled in once the
// final byte count is known.
func (r *Receiver) StartRecording(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("receiver: create %s: %w", path, err)
	}
	if _, err := f.Write(make([]byte, wavHeaderSize)); err != nil {
		f.Close()
		return fmt.Errorf("receiver: reserve header: %w", err)
	}

	r.mu.Lock()
	r.file = f
	r.bytesWritten = 0
	r.haveCounter = false
	r.droppedFrames = 0
	r.mu.Unlock()
	return nil
}

// Stats summarizes one completed recording.
type Stats struct {
	BytesWritten  uint32
	DroppedFrames int
}

// StopRecording finalizes the WAV header with the actual byte count and
// closes the file. It is a no-op error if no recording is in progress.
func (r *Receiver) StopRecording(sampleRate, channels int) (Stats, error) {
	r.mu.Lock()
	f := r.file
	stats := Stats{BytesWritten: r.bytesWritten, DroppedFrames: r.droppedFrames}
	r.file = nil
	r.mu.Unlock()

	if f == nil {
		return Stats{}, fmt.Errorf("receiver: no recording in progress")
	}

	if err := finalizeWAVHeader(f, stats.BytesWritten, sampleRate, channels); err != nil {
		f.Close()
		return Stats{}, err
	}
	return stats, f.Close()
}

// ServeOnce reads one UDP datagram, decodes it as a VBAN audio frame, and
// appends its payload to the active recording file if one is open.
// Out-of-order frames (counter <= last seen) are counted as dropped rather
// than rejected outright, since VBAN delivery is best-effort over UDP and a
// stray reorder should not abort the recording.
func (r *Receiver) ServeOnce(buf []byte) error {
	n, _, err := r.conn.ReadFromUDP(buf)
	if err != nil {
		return err
	}

	hdr, payload, err := vban.ParseFrame(buf[:n])
	if err != nil {
		return nil //nolint:nilerr // malformed/foreign frames are dropped, not fatal
	}
	if hdr.StreamName != r.streamName {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.haveCounter && hdr.FrameCounter <= r.lastCounter && hdr.FrameCounter != 0 {
		r.droppedFrames++
		return nil
	}
	r.lastCounter = hdr.FrameCounter
	r.haveCounter = true

	if r.file == nil {
		return nil
	}
	if _, err := r.file.Write(payload); err != nil {
		return fmt.Errorf("receiver: write payload: %w", err)
	}
	r.bytesWritten += uint32(len(payload))
	return nil
}

// Run loops ServeOnce until stopCh is closed or a read error occurs.
func (r *Receiver) Run(stopCh <-chan struct{}) error {
	buf := make([]byte, 65536)
	errCh := make(chan error, 1)

	go func() {
		for {
			if err := r.ServeOnce(buf); err != nil {
				errCh <- err
				return
			}
		}
	}()

	select {
	case <-stopCh:
		r.conn.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func finalizeWAVHeader(f *os.File, pcmBytes uint32, sampleRate, channels int) error {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+pcmBytes)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], pcmBytes)

	if _, err := f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("receiver: write wav header: %w", err)
	}
	return nil
}
