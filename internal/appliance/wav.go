package appliance

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// wavDurationSeconds reads a WAV file's canonical 44-byte header (the same
// layout the receiver writes) and computes playback duration from the
// declared data size and byte rate, without decoding any audio samples.
func wavDurationSeconds(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, 44)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, fmt.Errorf("appliance: read wav header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("appliance: %s is not a WAV file", path)
	}

	byteRate := binary.LittleEndian.Uint32(header[28:32])
	dataSize := binary.LittleEndian.Uint32(header[40:44])
	if byteRate == 0 {
		return 0, fmt.Errorf("appliance: %s has zero byte rate", path)
	}
	return float64(dataSize) / float64(byteRate), nil
}
