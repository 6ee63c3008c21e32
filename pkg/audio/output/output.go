// ABOUTME: Audio output sink interface definition
// ABOUTME: Common interface for asynchronous block-based playback backends
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

var (
	// ErrNotOpen is returned when a sink is used before Open or after Close
	ErrNotOpen = errors.New("output not initialized")

	// ErrUnsupportedFormat is returned by Open for formats a backend cannot play
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Sink represents an audio output device that plays whole blocks asynchronously
type Sink interface {
	// Open initializes the device. done is invoked exactly once per
	// submitted block, from a backend goroutine, once the block is consumed.
	Open(format audio.Format, done func(block int)) error

	// Submit queues a block for playback without waiting for it to play.
	// The sink may read samples until it calls done(block).
	Submit(block int, samples []int16) error

	// SetVolume sets per-channel gain in [0, 1]
	SetVolume(left, right float64) error

	// Close releases output resources and drops blocks still queued
	Close() error
}

// Underrunner is implemented by sinks that count device underruns
type Underrunner interface {
	Underruns() int64
}

// Backends lists the backend names accepted by New
var Backends = []string{"oto", "malgo", "pulse", "portaudio", "null"}

// New creates a sink by backend name
func New(backend string) (Sink, error) {
	switch strings.ToLower(backend) {
	case "oto", "":
		return NewOto(), nil
	case "malgo", "miniaudio":
		return NewMalgo(), nil
	case "pulse", "pulseaudio":
		return NewPulse(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "null", "headless":
		return NewNull(0), nil
	}
	return nil, fmt.Errorf("unknown output backend %q (supported: %s)", backend, strings.Join(Backends, ", "))
}

// CheckFormat rejects formats the block queue cannot carry
func CheckFormat(format audio.Format) error {
	if format.BitDepth != 16 {
		return fmt.Errorf("%w: %d-bit (only 16-bit PCM)", ErrUnsupportedFormat, format.BitDepth)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("%w: %dHz %d channels", ErrUnsupportedFormat, format.SampleRate, format.Channels)
	}
	return nil
}
