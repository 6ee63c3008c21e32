// ABOUTME: Stream configuration for the engine
// ABOUTME: Validation and derivation of the sink format
package engine

import (
	"time"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 1
	DefaultBlocks       = 8
	DefaultBlockSamples = 255

	// BitDepth is the only sample width the engine renders
	BitDepth = 16
)

// Config holds stream parameters, fixed for the lifetime of a running stream
type Config struct {
	// SampleRate in Hz
	SampleRate int

	// Channels per frame; samples are interleaved
	Channels int

	// Blocks in the pool, at least 2
	Blocks int

	// BlockSamples per block, a multiple of Channels
	BlockSamples int
}

// DefaultConfig returns a mono 44.1kHz stream with 8 blocks of 255 samples
func DefaultConfig() Config {
	return Config{
		SampleRate:   DefaultSampleRate,
		Channels:     DefaultChannels,
		Blocks:       DefaultBlocks,
		BlockSamples: DefaultBlockSamples,
	}
}

// Validate rejects parameters the engine cannot stream
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return &ConfigError{Field: "sample rate", Value: c.SampleRate, Reason: "must be positive"}
	case c.Channels <= 0:
		return &ConfigError{Field: "channel count", Value: c.Channels, Reason: "must be positive"}
	case c.Blocks < 2:
		return &ConfigError{Field: "block count", Value: c.Blocks, Reason: "must be at least 2"}
	case c.BlockSamples <= 0:
		return &ConfigError{Field: "samples per block", Value: c.BlockSamples, Reason: "must be positive"}
	case c.BlockSamples%c.Channels != 0:
		return &ConfigError{Field: "samples per block", Value: c.BlockSamples, Reason: "must be a multiple of the channel count"}
	}
	return nil
}

// Format returns the PCM format handed to the sink
func (c Config) Format() audio.Format {
	return audio.Format{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitDepth:   BitDepth,
	}
}

// FramesPerBlock returns the number of frames in one block
func (c Config) FramesPerBlock() int {
	return c.BlockSamples / c.Channels
}

// BlockDuration returns how long one block plays
func (c Config) BlockDuration() time.Duration {
	return time.Duration(c.FramesPerBlock()) * time.Second / time.Duration(c.SampleRate)
}

// Latency returns the playback time covered by the whole pool
func (c Config) Latency() time.Duration {
	return time.Duration(c.Blocks) * c.BlockDuration()
}
