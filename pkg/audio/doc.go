// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and the sample-domain math used by the engine
// Package audio provides fundamental audio types and sample math.
//
// This package defines:
//   - Format: Describes the PCM format handed to a sink (sample rate, channels, bit depth)
//   - Clip / Quantize: Map an unbounded signal value to a symmetric 16-bit sample
//   - ApplyGain / ChannelGain: Per-channel software volume
//   - PutInt16LE / Int16LE: Little-endian PCM packing
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    Channels:   1,
//	    BitDepth:   16,
//	}
//
//	sample := audio.Quantize(0.5) // 16384
package audio
