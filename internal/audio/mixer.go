package audio

import (
	"encoding/binary"
	"math"
)

// defaultMicGain leaves the mic stream unattenuated unless the caller
// configures otherwise.
const defaultMicGain = 1.0

// Mixer combines a primary capture source with an optional secondary (mic)
// source into a single mono PCM stream: the primary source
// backpressures the pipeline (Capture already drops its oldest chunk when
// the consumer falls behind); the mic source is read non-blocking and
// zero-filled on underflow so a quiet or absent microphone never stalls
// the mix.
type Mixer struct {
	primary <-chan []byte
	mic     <-chan []byte
	micGain float64
}

// NewMixer builds a Mixer over primary's and mic's chunk streams. mic may
// be nil, in which case Next always zero-fills the secondary channel. The
// mic stream is summed at unity gain unless SetMicGain is called.
func NewMixer(primary <-chan []byte, mic <-chan []byte) *Mixer {
	return &Mixer{primary: primary, mic: mic, micGain: defaultMicGain}
}

// SetMicGain sets the linear gain applied to the mic stream before it is
// summed into the primary stream. A gain of 0 mutes the mic entirely.
func (m *Mixer) SetMicGain(gain float64) {
	m.micGain = gain
}

// Next blocks for one primary chunk, opportunistically mixes in a mic
// chunk if one is immediately available (a shorter mic chunk is padded
// with silence, a longer one is cut to the primary chunk's length), and
// returns the downmixed, hard-clipped s16 PCM. It returns ok=false once the primary
// channel is closed and drained.
func (m *Mixer) Next() (mixed []byte, ok bool) {
	primaryChunk, open := <-m.primary
	if !open {
		return nil, false
	}

	var micChunk []byte
	if m.mic != nil {
		select {
		case c, open := <-m.mic:
			if open {
				micChunk = c
			}
		default:
		}
	}

	return downmix(primaryChunk, micChunk, m.micGain), true
}

// downmix sums two s16 PCM buffers sample-by-sample as int32, applying
// micGain to the secondary buffer (rounded to the nearest integer), and
// hard-clips the result to
// the representable int16 range. A short or missing secondary buffer is
// treated as silence for the remainder.
func downmix(primary, secondary []byte, micGain float64) []byte {
	n := len(primary) / bytesPerSample
	out := make([]byte, len(primary))

	for i := 0; i < n; i++ {
		a := int32(int16(binary.LittleEndian.Uint16(primary[i*2 : i*2+2])))

		var b int32
		if (i+1)*2 <= len(secondary) {
			raw := int32(int16(binary.LittleEndian.Uint16(secondary[i*2 : i*2+2])))
			b = int32(math.Round(float64(raw) * micGain))
		}

		sum := a + b
		switch {
		case sum > 32767:
			sum = 32767
		case sum < -32768:
			sum = -32768
		}

		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(sum)))
	}

	return out
}
