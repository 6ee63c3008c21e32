// ABOUTME: Output sink that streams engine blocks to network listeners
// ABOUTME: Drains the block queue at real-time pace and broadcasts timestamped chunks
package server

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
)

// DefaultChunkDuration is the audio carried by one broadcast chunk
const DefaultChunkDuration = 20 * time.Millisecond

// Sink plays blocks by broadcasting them. Completions fire as each block's
// samples leave in a chunk, so the engine is paced by the chunk clock.
type Sink struct {
	server *Server
	chunk  time.Duration

	mu     sync.Mutex
	queue  *output.BlockQueue
	format audio.Format
	stop   chan struct{}
	wg     sync.WaitGroup
	ready  bool

	frames atomic.Int64
}

// NewSink creates a network sink; chunk <= 0 selects DefaultChunkDuration
func NewSink(server *Server, chunk time.Duration) *Sink {
	if chunk <= 0 {
		chunk = DefaultChunkDuration
	}
	s := &Sink{server: server, chunk: chunk}

	server.clientsMu.Lock()
	server.clock = s.StreamTime
	server.clientsMu.Unlock()
	return s
}

// Open announces the stream to listeners and starts the chunk clock
func (s *Sink) Open(format audio.Format, done func(block int)) error {
	if err := output.CheckFormat(format); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return fmt.Errorf("network output already open")
	}

	frames := int(float64(format.SampleRate) * s.chunk.Seconds())
	if frames < 1 {
		frames = 1
	}

	s.queue = output.NewBlockQueue(format.Channels, done)
	s.format = format
	s.stop = make(chan struct{})
	s.frames.Store(0)
	s.ready = true

	s.server.StartStream(protocol.StreamStart{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
	})

	s.wg.Add(1)
	go s.run(s.queue, s.stop, format, make([]int16, frames*format.Channels))

	log.Printf("Network output initialized: %dHz, %d channels, %v chunks", format.SampleRate, format.Channels, s.chunk)
	return nil
}

func (s *Sink) run(q *output.BlockQueue, stop <-chan struct{}, format audio.Format, buf []int16) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.chunk)
	defer ticker.Stop()

	frames := int64(len(buf) / format.Channels)
	for {
		select {
		case <-ticker.C:
			q.Fill(buf)

			// Stream time of the chunk's first frame, in microseconds
			pos := s.frames.Add(frames) - frames
			ts := pos * 1_000_000 / int64(format.SampleRate)

			if s.server.ListenerCount() > 0 {
				s.server.Broadcast(protocol.EncodeAudioChunk(ts, buf))
			}
		case <-stop:
			return
		}
	}
}

// Submit queues a block for broadcast
func (s *Sink) Submit(block int, samples []int16) error {
	s.mu.Lock()
	q := s.queue
	ready := s.ready
	s.mu.Unlock()

	if !ready {
		return output.ErrNotOpen
	}
	return q.Push(block, samples)
}

// SetVolume scales broadcast samples per channel
func (s *Sink) SetVolume(left, right float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return output.ErrNotOpen
	}
	s.queue.SetGain(left, right)
	return nil
}

// Underruns returns the number of chunks that found too few queued samples
func (s *Sink) Underruns() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return 0
	}
	return s.queue.Underruns()
}

// StreamTime returns how much audio has been broadcast in the current stream
func (s *Sink) StreamTime() time.Duration {
	s.mu.Lock()
	rate := s.format.SampleRate
	s.mu.Unlock()

	if rate == 0 {
		return 0
	}
	return time.Duration(s.frames.Load()) * time.Second / time.Duration(rate)
}

// Close stops the chunk clock, drops queued blocks and ends the stream
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil
	}
	close(s.stop)
	s.ready = false
	q := s.queue
	s.mu.Unlock()

	s.wg.Wait()
	q.Reset()
	s.server.EndStream("stopped")
	return nil
}
