// ABOUTME: Headless audio output that discards samples in real time
// ABOUTME: Drains queued blocks on a ticker so completions arrive at playback pace
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// DefaultNullPeriod is how often the null device pulls samples
const DefaultNullPeriod = 10 * time.Millisecond

// Null output consumes audio at the stream rate without a device
type Null struct {
	period time.Duration

	mu     sync.Mutex
	queue  *BlockQueue
	format audio.Format
	stop   chan struct{}
	wg     sync.WaitGroup
	ready  bool

	consumed atomic.Int64
}

// NewNull creates a headless output; period <= 0 selects DefaultNullPeriod
func NewNull(period time.Duration) *Null {
	if period <= 0 {
		period = DefaultNullPeriod
	}
	return &Null{period: period}
}

// Open starts the pacing goroutine
func (n *Null) Open(format audio.Format, done func(block int)) error {
	if err := CheckFormat(format); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ready {
		return fmt.Errorf("null output already open")
	}

	frames := int(float64(format.SampleRate) * n.period.Seconds())
	if frames < 1 {
		frames = 1
	}

	n.queue = NewBlockQueue(format.Channels, done)
	n.format = format
	n.stop = make(chan struct{})
	n.ready = true

	n.wg.Add(1)
	go n.run(n.queue, n.stop, make([]int16, frames*format.Channels))

	log.Printf("Audio output initialized: %dHz, %d channels (null)", format.SampleRate, format.Channels)
	return nil
}

func (n *Null) run(q *BlockQueue, stop <-chan struct{}, scratch []int16) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.consumed.Add(int64(q.Fill(scratch)))
		case <-stop:
			return
		}
	}
}

// Submit queues a block for playback
func (n *Null) Submit(block int, samples []int16) error {
	n.mu.Lock()
	q := n.queue
	ready := n.ready
	n.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}
	return q.Push(block, samples)
}

// SetVolume sets per-channel gain
func (n *Null) SetVolume(left, right float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.ready {
		return ErrNotOpen
	}
	n.queue.SetGain(left, right)
	return nil
}

// Consumed returns the number of queued samples played so far
func (n *Null) Consumed() int64 {
	return n.consumed.Load()
}

// Underruns returns the number of ticks that found too few samples
func (n *Null) Underruns() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.queue == nil {
		return 0
	}
	return n.queue.Underruns()
}

// Close stops the pacing goroutine and drops queued blocks
func (n *Null) Close() error {
	n.mu.Lock()
	if !n.ready {
		n.mu.Unlock()
		return nil
	}
	close(n.stop)
	n.ready = false
	q := n.queue
	n.mu.Unlock()

	n.wg.Wait()
	q.Reset()
	return nil
}
