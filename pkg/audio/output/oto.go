// ABOUTME: Oto-based audio output implementation
// ABOUTME: Persistent oto player pulls queued blocks with software volume control
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process
var (
	otoOnce    sync.Once
	otoCtx     *oto.Context
	otoFormat  audio.Format
	otoInitErr error
)

// Oto output implementation using oto library
type Oto struct {
	mu      sync.Mutex
	player  *oto.Player
	queue   *BlockQueue
	scratch []int16
	format  audio.Format
	ready   bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

func sharedOtoContext(format audio.Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoInitErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan

		otoCtx = ctx
		otoFormat = format
	})

	if otoInitErr != nil {
		return nil, otoInitErr
	}

	// oto can't be reinitialized with a different format
	if otoFormat != format {
		return nil, fmt.Errorf("%w: oto context already running at %dHz %dch",
			ErrUnsupportedFormat, otoFormat.SampleRate, otoFormat.Channels)
	}

	if err := otoCtx.Resume(); err != nil {
		return nil, fmt.Errorf("failed to resume oto context: %w", err)
	}
	return otoCtx, nil
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format, done func(block int)) error {
	if err := CheckFormat(format); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready {
		return fmt.Errorf("oto output already open")
	}

	ctx, err := sharedOtoContext(format)
	if err != nil {
		return err
	}

	o.queue = NewBlockQueue(format.Channels, done)
	o.format = format

	// Persistent player that reads from the block queue
	o.player = ctx.NewPlayer(o)
	o.player.Play()
	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (oto)", format.SampleRate, format.Channels)
	return nil
}

// Read feeds the oto player from the block queue
func (o *Oto) Read(p []byte) (int, error) {
	n := len(p) / 2
	if cap(o.scratch) < n {
		o.scratch = make([]int16, n)
	}
	samples := o.scratch[:n]

	o.queue.Fill(samples)
	audio.PutInt16LE(p, samples)
	return n * 2, nil
}

// Submit queues a block for playback
func (o *Oto) Submit(block int, samples []int16) error {
	o.mu.Lock()
	q := o.queue
	ready := o.ready
	o.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}
	return q.Push(block, samples)
}

// SetVolume sets per-channel gain
func (o *Oto) SetVolume(left, right float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ready {
		return ErrNotOpen
	}
	o.queue.SetGain(left, right)
	log.Printf("Volume set to %.2f/%.2f", audio.ClampGain(left), audio.ClampGain(right))
	return nil
}

// Underruns returns the number of short device reads
func (o *Oto) Underruns() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.queue == nil {
		return 0
	}
	return o.queue.Underruns()
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ready {
		return nil
	}

	o.queue.Reset()
	var err error
	if o.player != nil {
		err = o.player.Close()
		o.player = nil
	}
	if otoCtx != nil {
		if serr := otoCtx.Suspend(); serr != nil && err == nil {
			err = serr
		}
	}
	o.ready = false

	if err != nil {
		return fmt.Errorf("failed to close oto output: %w", err)
	}
	return nil
}
