//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using PortAudio
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	queue  *BlockQueue
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Sink {
	return &PortAudio{}
}

// Open initializes PortAudio and starts the default output stream
func (p *PortAudio) Open(format audio.Format, done func(block int)) error {
	if err := CheckFormat(format); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return fmt.Errorf("portaudio output already open")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	q := NewBlockQueue(format.Channels, done)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), 0, func(out []int16) {
		q.Fill(out)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.queue = q
	p.stream = stream

	log.Printf("Audio output initialized: %dHz, %d channels (portaudio)", format.SampleRate, format.Channels)
	return nil
}

// Submit queues a block for playback
func (p *PortAudio) Submit(block int, samples []int16) error {
	p.mu.Lock()
	q := p.queue
	p.mu.Unlock()

	if q == nil {
		return ErrNotOpen
	}
	return q.Push(block, samples)
}

// SetVolume sets per-channel gain
func (p *PortAudio) SetVolume(left, right float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue == nil {
		return ErrNotOpen
	}
	p.queue.SetGain(left, right)
	return nil
}

// Underruns returns the number of short stream callbacks
func (p *PortAudio) Underruns() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue == nil {
		return 0
	}
	return p.queue.Underruns()
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.queue.Reset()
	p.queue = nil
	p.stream = nil
	return portaudio.Terminate()
}
