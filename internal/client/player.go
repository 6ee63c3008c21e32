// ABOUTME: Plays a received synth stream on a local output
// ABOUTME: Repacks network chunks into pool blocks and tracks timestamp gaps
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

const (
	// DefaultBlocks is the playback pool size
	DefaultBlocks = 8

	// DefaultBlockDuration is the audio held by one playback block
	DefaultBlockDuration = 20 * time.Millisecond

	// gapTolerance absorbs timestamp rounding between chunks
	gapTolerance = 1000 // microseconds
)

// ErrDisconnected is returned by Run when the server connection ends
var ErrDisconnected = errors.New("disconnected from server")

// PlayerStats tracks playback metrics
type PlayerStats struct {
	Chunks  int64
	Blocks  int64
	Gaps    int64
	Streams int64
}

// Player feeds a client's stream into an output sink
type Player struct {
	client        *Client
	sink          output.Sink
	blocks        int
	blockDuration time.Duration

	chunks  atomic.Int64
	queued  atomic.Int64
	gaps    atomic.Int64
	streams atomic.Int64
}

// playback is the state of one stream between stream/start and stream/end
type playback struct {
	format audio.Format
	pool   *engine.BufferPool
	block  *engine.Block
	fill   int
	next   int64 // expected timestamp of the next chunk, -1 before the first
}

// NewPlayer creates a player; blocks < 2 selects DefaultBlocks
func NewPlayer(client *Client, sink output.Sink, blocks int) *Player {
	if blocks < 2 {
		blocks = DefaultBlocks
	}
	return &Player{
		client:        client,
		sink:          sink,
		blocks:        blocks,
		blockDuration: DefaultBlockDuration,
	}
}

// Run plays streams until ctx is cancelled or the connection drops
func (p *Player) Run(ctx context.Context) error {
	var pb *playback
	defer func() { p.closeStream(pb) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-p.client.Done():
			return ErrDisconnected

		case start := <-p.client.StreamStart:
			p.closeStream(pb)
			pb = nil

			var err error
			if pb, err = p.openStream(start); err != nil {
				return err
			}

		case end := <-p.client.StreamEnd:
			log.Printf("Stream ended: %s", end.Reason)
			p.closeStream(pb)
			pb = nil

		case chunk := <-p.client.AudioChunks:
			if pb == nil {
				continue
			}
			p.chunks.Add(1)
			if err := p.write(ctx, pb, chunk); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	}
}

func (p *Player) openStream(start protocol.StreamStart) (*playback, error) {
	if start.Codec != "pcm" {
		return nil, fmt.Errorf("unsupported codec %q", start.Codec)
	}

	format := audio.Format{
		SampleRate: start.SampleRate,
		Channels:   start.Channels,
		BitDepth:   start.BitDepth,
	}
	if err := output.CheckFormat(format); err != nil {
		return nil, err
	}

	frames := int(float64(format.SampleRate) * p.blockDuration.Seconds())
	if frames < 1 {
		frames = 1
	}
	pool := engine.NewBufferPool(p.blocks, frames*format.Channels)

	done := func(block int) {
		if err := pool.Release(block); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	if err := p.sink.Open(format, done); err != nil {
		return nil, &engine.DeviceError{Err: err}
	}

	p.streams.Add(1)
	log.Printf("Playing stream: %s %.1fHz (%dHz, %d channels)", start.Waveform, start.Frequency, format.SampleRate, format.Channels)

	return &playback{format: format, pool: pool, next: -1}, nil
}

// write copies a chunk into pool blocks, submitting each block once full
func (p *Player) write(ctx context.Context, pb *playback, chunk protocol.AudioChunk) error {
	if pb.next >= 0 {
		if d := chunk.Timestamp - pb.next; d > gapTolerance || d < -gapTolerance {
			if p.gaps.Add(1) <= 5 {
				log.Printf("Stream gap: expected timestamp %d, got %d", pb.next, chunk.Timestamp)
			}
		}
	}
	frames := int64(len(chunk.Samples) / pb.format.Channels)
	pb.next = chunk.Timestamp + frames*1_000_000/int64(pb.format.SampleRate)

	samples := chunk.Samples
	for len(samples) > 0 {
		if pb.block == nil {
			b, ok := pb.pool.Claim(ctx.Done())
			if !ok {
				return ctx.Err()
			}
			pb.block = b
			pb.fill = 0
		}

		n := copy(pb.block.Samples[pb.fill:], samples)
		pb.fill += n
		samples = samples[n:]

		if pb.fill == len(pb.block.Samples) {
			b := pb.block
			pb.block = nil

			pb.pool.MarkQueued(b)
			if err := p.sink.Submit(b.Index, b.Samples); err != nil {
				return &engine.StreamError{Block: b.Index, Err: err}
			}
			pb.pool.Advance()
			p.queued.Add(1)
		}
	}
	return nil
}

func (p *Player) closeStream(pb *playback) {
	if pb == nil {
		return
	}
	if pb.block != nil {
		pb.pool.Abandon(pb.block)
		pb.block = nil
	}
	if err := p.sink.Close(); err != nil {
		log.Printf("Error closing output: %v", err)
	}
}

// Stats returns playback counters
func (p *Player) Stats() PlayerStats {
	return PlayerStats{
		Chunks:  p.chunks.Load(),
		Blocks:  p.queued.Load(),
		Gaps:    p.gaps.Load(),
		Streams: p.streams.Load(),
	}
}
