// ABOUTME: FIFO of submitted blocks shared by pull-based backends
// ABOUTME: Device callbacks drain it and completion fires as each block empties
package output

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

type queuedBlock struct {
	index   int
	samples []int16
	pos     int
}

// BlockQueue holds blocks between Submit and the device callback.
// Samples are read in place; the producer must not touch a block until done fires.
type BlockQueue struct {
	mu       sync.Mutex
	blocks   []queuedBlock
	channels int
	done     func(int)
	started  bool
	closed   bool

	left      atomic.Uint64
	right     atomic.Uint64
	underruns atomic.Int64
}

// NewBlockQueue creates an open queue; done fires once per drained block
func NewBlockQueue(channels int, done func(int)) *BlockQueue {
	q := &BlockQueue{
		channels: channels,
		done:     done,
	}
	q.SetGain(1, 1)
	return q
}

// Push appends a block for playback
func (q *BlockQueue) Push(index int, samples []int16) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrNotOpen
	}
	q.blocks = append(q.blocks, queuedBlock{index: index, samples: samples})
	q.started = true
	return nil
}

// Fill copies queued samples into out, zero-filling on underrun.
// Returns the number of samples that came from queued blocks.
func (q *BlockQueue) Fill(out []int16) int {
	var finished [4]int
	completed := finished[:0]

	q.mu.Lock()
	n := 0
	for n < len(out) && len(q.blocks) > 0 {
		head := &q.blocks[0]
		c := copy(out[n:], head.samples[head.pos:])
		head.pos += c
		n += c

		if head.pos >= len(head.samples) {
			completed = append(completed, head.index)
			q.blocks[0] = queuedBlock{}
			q.blocks = q.blocks[1:]
		}
	}
	short := n < len(out) && q.started && !q.closed
	q.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if short {
		q.underruns.Add(1)
	}

	left, right := q.Gain()
	audio.ApplyGain(out[:n], q.channels, left, right)

	// Completion runs outside the lock so done may submit again
	for _, index := range completed {
		if q.done != nil {
			q.done(index)
		}
	}

	return n
}

// Pending returns the number of blocks not yet fully consumed
func (q *BlockQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.blocks)
}

// Reset drops all queued blocks and refuses further pushes.
// Dropped blocks do not fire completion.
func (q *BlockQueue) Reset() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.blocks)
	q.blocks = nil
	q.closed = true
	return dropped
}

// SetGain stores per-channel gain, clamped to [0, 1]
func (q *BlockQueue) SetGain(left, right float64) {
	q.left.Store(math.Float64bits(audio.ClampGain(left)))
	q.right.Store(math.Float64bits(audio.ClampGain(right)))
}

// Gain returns the current per-channel gain
func (q *BlockQueue) Gain() (left, right float64) {
	return math.Float64frombits(q.left.Load()), math.Float64frombits(q.right.Load())
}

// Underruns returns how many device reads came up short after playback began
func (q *BlockQueue) Underruns() int64 {
	return q.underruns.Load()
}
