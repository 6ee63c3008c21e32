// ABOUTME: PulseAudio output implementation
// ABOUTME: Native-protocol playback stream that pulls queued blocks
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/jfreymuth/pulse"
)

// Pulse output implementation using the PulseAudio native protocol
type Pulse struct {
	mu      sync.Mutex
	client  *pulse.Client
	stream  *pulse.PlaybackStream
	queue   *BlockQueue
	appName string
	ready   bool
}

// NewPulse creates a new PulseAudio output
func NewPulse() *Pulse {
	return &Pulse{appName: "resonate-synth"}
}

// Open connects to the PulseAudio server and starts a playback stream
func (p *Pulse) Open(format audio.Format, done func(block int)) error {
	if err := CheckFormat(format); err != nil {
		return err
	}

	var layout pulse.PlaybackOption
	switch format.Channels {
	case 1:
		layout = pulse.PlaybackMono
	case 2:
		layout = pulse.PlaybackStereo
	default:
		return fmt.Errorf("%w: pulse output supports mono or stereo, got %d channels",
			ErrUnsupportedFormat, format.Channels)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return fmt.Errorf("pulse output already open")
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName(p.appName))
	if err != nil {
		return fmt.Errorf("failed to connect to pulseaudio: %w", err)
	}

	p.queue = NewBlockQueue(format.Channels, done)
	q := p.queue

	stream, err := client.NewPlayback(
		pulse.Int16Reader(func(out []int16) (int, error) {
			q.Fill(out)
			return len(out), nil
		}),
		layout,
		pulse.PlaybackSampleRate(format.SampleRate),
	)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create playback stream: %w", err)
	}

	stream.Start()

	p.client = client
	p.stream = stream
	p.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (pulse)", format.SampleRate, format.Channels)
	return nil
}

// Submit queues a block for playback
func (p *Pulse) Submit(block int, samples []int16) error {
	p.mu.Lock()
	q := p.queue
	ready := p.ready
	p.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}
	return q.Push(block, samples)
}

// SetVolume sets per-channel gain
func (p *Pulse) SetVolume(left, right float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return ErrNotOpen
	}
	p.queue.SetGain(left, right)
	log.Printf("Volume set to %.2f/%.2f", audio.ClampGain(left), audio.ClampGain(right))
	return nil
}

// Underruns returns the number of short stream reads
func (p *Pulse) Underruns() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue == nil {
		return 0
	}
	return p.queue.Underruns()
}

// Close stops the stream and disconnects
func (p *Pulse) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return nil
	}

	p.stream.Stop()
	p.queue.Reset()
	p.client.Close()

	p.stream = nil
	p.client = nil
	p.ready = false
	return nil
}
