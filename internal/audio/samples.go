package audio

import (
	"encoding/binary"
	"math"
)

// RMS16 of an int16 frame, normalized to [0, 1].
func RMS16(f []int16) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		v := float64(x) / 32768.0
		s += v * v
	}
	return math.Sqrt(s / float64(len(f)))
}

// Int16Bytes encodes samples as little-endian S16, the layout vosk expects.
func Int16Bytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, v := range in {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
