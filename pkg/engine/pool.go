// ABOUTME: Fixed ring of reusable sample blocks shared with the output sink
// ABOUTME: Atomic free-block counter with a wake signal fed by completions
package engine

import (
	"fmt"
	"sync/atomic"
)

// BlockState tracks who owns a block's samples
type BlockState int32

const (
	// BlockIdle blocks are free for the producer to claim
	BlockIdle BlockState = iota
	// BlockFilling blocks are being rendered by the producer
	BlockFilling
	// BlockQueued blocks belong to the sink until it reports completion
	BlockQueued
)

func (s BlockState) String() string {
	switch s {
	case BlockIdle:
		return "idle"
	case BlockFilling:
		return "filling"
	case BlockQueued:
		return "queued"
	}
	return fmt.Sprintf("BlockState(%d)", int32(s))
}

// Block is one fixed-size chunk of interleaved samples
type Block struct {
	Index   int
	Samples []int16
	state   atomic.Int32
}

// State returns the block's current lifecycle state
func (b *Block) State() BlockState {
	return BlockState(b.state.Load())
}

// BufferPool is a ring of blocks claimed in round-robin order.
//
// free is decremented only by a successful claim and incremented only by
// Release, so 0 <= free <= len(blocks) always holds.
type BufferPool struct {
	blocks  []*Block
	current int // owned by the producer
	free    atomic.Int32
	wake    chan struct{}
}

// NewBufferPool allocates n zeroed blocks of size samples each
func NewBufferPool(n, size int) *BufferPool {
	p := &BufferPool{
		blocks: make([]*Block, n),
		wake:   make(chan struct{}, 1),
	}

	// One backing array keeps the blocks contiguous
	backing := make([]int16, n*size)
	for i := range p.blocks {
		p.blocks[i] = &Block{
			Index:   i,
			Samples: backing[i*size : (i+1)*size : (i+1)*size],
		}
	}
	p.free.Store(int32(n))
	return p
}

// Len returns the number of blocks in the pool
func (p *BufferPool) Len() int {
	return len(p.blocks)
}

// Free returns the number of blocks not owned by the sink
func (p *BufferPool) Free() int {
	return int(p.free.Load())
}

// Current returns the index of the next block to fill
func (p *BufferPool) Current() int {
	return p.current
}

// Block returns the block at index
func (p *BufferPool) Block(index int) *Block {
	return p.blocks[index]
}

// Queued returns the number of blocks currently owned by the sink
func (p *BufferPool) Queued() int {
	n := 0
	for _, b := range p.blocks {
		if b.State() == BlockQueued {
			n++
		}
	}
	return n
}

// TryClaim claims the block at the cursor if any block is free.
// It never blocks and does not advance the cursor.
func (p *BufferPool) TryClaim() (*Block, bool) {
	for {
		f := p.free.Load()
		if f <= 0 {
			return nil, false
		}
		if p.free.CompareAndSwap(f, f-1) {
			break
		}
	}

	b := p.blocks[p.current]
	if !b.state.CompareAndSwap(int32(BlockIdle), int32(BlockFilling)) {
		// A different block completed first; the cursor block is still with the sink
		p.free.Add(1)
		return nil, false
	}
	return b, true
}

// Claim waits until the block at the cursor can be claimed.
// Returns false if stop closes first.
func (p *BufferPool) Claim(stop <-chan struct{}) (*Block, bool) {
	for {
		select {
		case <-stop:
			return nil, false
		default:
		}

		if b, ok := p.TryClaim(); ok {
			return b, true
		}

		select {
		case <-p.wake:
		case <-stop:
			return nil, false
		}
	}
}

// MarkQueued hands a filled block to the sink. Call before submitting it.
func (p *BufferPool) MarkQueued(b *Block) {
	b.state.Store(int32(BlockQueued))
}

// Abandon returns a claimed block that will not be submitted
func (p *BufferPool) Abandon(b *Block) {
	if b.state.CompareAndSwap(int32(BlockFilling), int32(BlockIdle)) {
		p.free.Add(1)
		p.signal()
	}
}

// Advance moves the cursor to the next block in round-robin order
func (p *BufferPool) Advance() {
	p.current = (p.current + 1) % len(p.blocks)
}

// Release is the sink's completion notification for a block.
// Safe to call concurrently with claims and with other releases.
func (p *BufferPool) Release(index int) error {
	if index < 0 || index >= len(p.blocks) {
		return fmt.Errorf("%w: index %d out of range", ErrNotQueued, index)
	}

	b := p.blocks[index]
	if !b.state.CompareAndSwap(int32(BlockQueued), int32(BlockIdle)) {
		return fmt.Errorf("%w: block %d is %s", ErrNotQueued, index, b.State())
	}

	p.free.Add(1)
	p.signal()
	return nil
}

func (p *BufferPool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
