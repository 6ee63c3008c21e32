// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a data callback draining queued blocks
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	queue    *BlockQueue
	scratch  []int16
	format   audio.Format
	ready    bool
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Open initializes the output device with specified format
func (m *Malgo) Open(format audio.Format, done func(block int)) error {
	if err := CheckFormat(format); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return fmt.Errorf("malgo output already open")
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.queue = NewBlockQueue(format.Channels, done)
	m.format = format

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels, 16-bit (malgo/S16)",
		format.SampleRate, format.Channels)
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	total := int(frameCount) * m.format.Channels
	if cap(m.scratch) < total {
		m.scratch = make([]int16, total)
	}
	samples := m.scratch[:total]

	m.queue.Fill(samples)
	audio.PutInt16LE(pOutput, samples)
}

// Submit queues a block for playback
func (m *Malgo) Submit(block int, samples []int16) error {
	m.mu.Lock()
	q := m.queue
	ready := m.ready
	m.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}
	return q.Push(block, samples)
}

// SetVolume sets per-channel gain
func (m *Malgo) SetVolume(left, right float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return ErrNotOpen
	}
	m.queue.SetGain(left, right)
	log.Printf("Volume set to %.2f/%.2f", audio.ClampGain(left), audio.ClampGain(right))
	return nil
}

// Underruns returns the number of short device reads
func (m *Malgo) Underruns() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queue == nil {
		return 0
	}
	return m.queue.Underruns()
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.queue != nil {
		m.queue.Reset()
	}

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	m.ready = false
	return nil
}
