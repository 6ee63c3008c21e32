// ABOUTME: Audio type definitions and sample-domain math
// ABOUTME: Defines stream format plus clipping, quantization and gain helpers
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// 16-bit audio range constants
	Max16Bit = 32767 // 2^15 - 1
	Min16Bit = -32768
)

// Format describes the PCM format handed to an output sink
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// FrameBytes returns the size in bytes of one frame (one sample per channel)
func (f Format) FrameBytes() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameBytes()
}

// MaxSample returns the largest positive sample value for the given bit depth
func MaxSample(bits int) float64 {
	return math.Pow(2, float64(bits-1)) - 1
}

// Clip clamps a signal value to [-limit, limit]
func Clip(in, limit float64) float64 {
	if in >= limit {
		return limit
	}
	if in <= -limit {
		return -limit
	}
	// NaN compares false both ways and would otherwise propagate into the cast
	if in != in {
		return 0
	}
	return in
}

// Quantize converts an amplitude to a 16-bit sample.
// The input is clipped to [-1, 1] so Min16Bit is never produced.
func Quantize(amplitude float64) int16 {
	return int16(math.Round(Clip(amplitude, 1) * Max16Bit))
}

// ClampGain restricts a gain value to [0, 1]
func ClampGain(g float64) float64 {
	if g != g || g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}

// ChannelGain picks the left or right gain for an interleaved channel index.
// Even channels follow left, odd channels follow right; mono uses left.
func ChannelGain(left, right float64, channel int) float64 {
	if channel%2 == 1 {
		return right
	}
	return left
}

// ApplyGain scales interleaved samples in place with per-channel gain
func ApplyGain(samples []int16, channels int, left, right float64) {
	if left == 1 && right == 1 {
		return
	}
	for i, s := range samples {
		g := ChannelGain(left, right, i%channels)
		samples[i] = int16(math.Round(float64(s) * g))
	}
}

// PutInt16LE encodes samples as little-endian PCM into out.
// out must hold at least 2*len(samples) bytes.
func PutInt16LE(out []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
}

// Int16LE decodes little-endian PCM bytes into samples
func Int16LE(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
