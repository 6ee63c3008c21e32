// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Sink interface and its device backends
// Package output provides asynchronous block playback.
//
// A Sink accepts whole blocks of interleaved 16-bit samples and reports
// each one back through the done callback once the device has consumed it.
// Backends: oto (default), malgo, pulse, portaudio (build tag) and null.
//
// Example:
//
//	out, err := output.New("oto")
//	err = out.Open(audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, func(block int) {
//	    pool.Release(block)
//	})
//	err = out.Submit(0, samples)
package output
