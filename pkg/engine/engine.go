// ABOUTME: Multi-buffered streaming engine feeding an output sink
// ABOUTME: Background producer renders a signal source into pooled blocks
package engine

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
)

// SignalSource returns the amplitude at time t seconds for a channel.
// Values outside [-1, 1] are clipped. Called from the producer goroutine.
type SignalSource func(t float64, channel int) float64

// State is the engine lifecycle state
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Stats is a snapshot of the current or most recent stream
type Stats struct {
	Blocks     int64   // blocks submitted to the sink
	FreeBlocks int     // blocks not owned by the sink
	Time       float64 // stream time cursor in seconds
	Underruns  int64   // device underruns, if the sink counts them
}

// Engine streams a SignalSource to an output sink through a BufferPool
type Engine struct {
	sink    output.Sink
	onError func(error)

	// mu serializes Start, Stop and failure teardown. The producer never takes it.
	mu    sync.Mutex
	state State
	sess  *session
	err   error

	// kept after the session and its pool are dropped
	id    string
	cfg   Config
	final Stats

	source atomic.Pointer[SignalSource]
	left   atomic.Uint64
	right  atomic.Uint64
}

type session struct {
	id   string
	cfg  Config
	pool *BufferPool

	stop     chan struct{}
	done     chan struct{}
	stopping atomic.Bool
	err      error // set by the producer before done closes

	blocks   atomic.Int64
	timeBits atomic.Uint64
}

// New creates a stopped engine. onError, if set, is called once when a
// running stream halts on a submission failure.
func New(sink output.Sink, onError func(error)) *Engine {
	e := &Engine{
		sink:    sink,
		onError: onError,
	}
	e.left.Store(math.Float64bits(1))
	e.right.Store(math.Float64bits(1))
	return e
}

// Start validates cfg, opens the sink and launches the producer.
// A nil source renders silence.
func (e *Engine) Start(cfg Config, source SignalSource) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Running {
		return ErrAlreadyRunning
	}

	s := &session{
		id:   uuid.New().String(),
		cfg:  cfg,
		pool: NewBufferPool(cfg.Blocks, cfg.BlockSamples),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if err := e.sink.Open(cfg.Format(), s.release); err != nil {
		return &DeviceError{Err: err}
	}

	e.source.Store(&source)
	e.left.Store(math.Float64bits(1))
	e.right.Store(math.Float64bits(1))
	e.state = Running
	e.sess = s
	e.id = s.id
	e.cfg = cfg
	e.final = Stats{}
	e.err = nil

	log.Printf("Engine %s starting: %dHz, %d channels, %d blocks x %d samples (%v buffered)",
		s.id, cfg.SampleRate, cfg.Channels, cfg.Blocks, cfg.BlockSamples, cfg.Latency())

	go e.run(s)
	go e.supervise(s)
	return nil
}

// Stop halts the producer, waits for it to exit and closes the sink.
// Calling Stop on a stopped engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sess
	if s == nil {
		return nil
	}

	s.stopping.Store(true)
	close(s.stop)
	<-s.done

	if s.err != nil {
		e.err = s.err
	}
	return e.teardown(s)
}

// teardown must be called with mu held after the producer has exited
func (e *Engine) teardown(s *session) error {
	e.state = Stopped
	e.final = e.snapshot(s)
	e.sess = nil

	err := e.sink.Close()
	log.Printf("Engine %s stopped after %d blocks (%.2fs)", s.id, s.blocks.Load(), s.time())
	if err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}

// supervise tears the stream down when the producer exits on its own
func (e *Engine) supervise(s *session) {
	<-s.done
	if s.err == nil {
		return
	}

	e.mu.Lock()
	if e.sess != s {
		// Stop got there first
		e.mu.Unlock()
		return
	}
	e.err = s.err
	if err := e.teardown(s); err != nil {
		log.Printf("Warning: %v", err)
	}
	e.mu.Unlock()

	log.Printf("Engine %s halted: %v", s.id, s.err)
	if e.onError != nil {
		e.onError(s.err)
	}
}

func (e *Engine) run(s *session) {
	defer close(s.done)
	s.err = e.produce(s)
}

// produce fills blocks until stopped or until the sink rejects one
func (e *Engine) produce(s *session) error {
	channels := s.cfg.Channels
	step := 1.0 / float64(s.cfg.SampleRate)
	t := 0.0

	for {
		b, ok := s.pool.Claim(s.stop)
		if !ok {
			return nil
		}

		source := e.loadSource()
		for i := 0; i < len(b.Samples); i += channels {
			if s.stopping.Load() {
				s.pool.Abandon(b)
				return nil
			}
			for c := 0; c < channels; c++ {
				v := 0.0
				if source != nil {
					v = source(t, c)
				}
				b.Samples[i+c] = audio.Quantize(v)
			}
			t += step
		}
		s.timeBits.Store(math.Float64bits(t))

		s.pool.MarkQueued(b)
		if err := e.sink.Submit(b.Index, b.Samples); err != nil {
			return &StreamError{Block: b.Index, Err: err}
		}
		s.blocks.Add(1)
		s.pool.Advance()
	}
}

func (s *session) release(block int) {
	if err := s.pool.Release(block); err != nil {
		log.Printf("Warning: engine %s: %v", s.id, err)
	}
}

func (s *session) time() float64 {
	return math.Float64frombits(s.timeBits.Load())
}

func (e *Engine) loadSource() SignalSource {
	if p := e.source.Load(); p != nil {
		return *p
	}
	return nil
}

// SetSource swaps the signal source; the producer picks it up at the next block
func (e *Engine) SetSource(source SignalSource) {
	e.source.Store(&source)
}

// SetVolume forwards clamped per-channel gain to the sink
func (e *Engine) SetVolume(left, right float64) error {
	left = audio.ClampGain(left)
	right = audio.ClampGain(right)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Running {
		return ErrNotRunning
	}

	if err := e.sink.SetVolume(left, right); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	e.left.Store(math.Float64bits(left))
	e.right.Store(math.Float64bits(right))
	return nil
}

// Volume returns the last gain applied to the sink
func (e *Engine) Volume() (left, right float64) {
	return math.Float64frombits(e.left.Load()), math.Float64frombits(e.right.Load())
}

// State returns Running or Stopped
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the failure that halted the most recent stream, if any
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// ID returns the identifier of the current or most recent stream
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Config returns the parameters of the current or most recent stream
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Stats returns counters for the current or most recent stream
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	s := e.sess
	final := e.final
	e.mu.Unlock()

	if s == nil {
		return final
	}
	return e.snapshot(s)
}

func (e *Engine) snapshot(s *session) Stats {
	stats := Stats{
		Blocks:     s.blocks.Load(),
		FreeBlocks: s.pool.Free(),
		Time:       s.time(),
	}
	if u, ok := e.sink.(output.Underrunner); ok {
		stats.Underruns = u.Underruns()
	}
	return stats
}
