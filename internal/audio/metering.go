// Package audio provides the process-backed capture pipeline: a parec
// sample source, RMS amplitude reduction and the bounded waveform history
// that feeds the renderer.
package audio

import (
	"encoding/binary"
	"math"
)

// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
const MaxSampleValue = 32768.0

// DecodeSamples converts raw s16le mono PCM bytes into normalized samples
// in [-1.0, 1.0]. Trailing odd bytes are ignored.
func DecodeSamples(buf []byte, out []float64) []float64 {
	n := len(buf) / 2
	if cap(out) < n {
		out = make([]float64, n)
	}
	out = out[:n]
	for i := range n {
		s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		out[i] = float64(s) / MaxSampleValue
	}
	return out
}

// RMS computes the root-mean-square amplitude of a batch of normalized
// samples. An empty batch is silent.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
