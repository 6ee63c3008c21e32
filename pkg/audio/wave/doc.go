// ABOUTME: Waveform math package
// ABOUTME: Pure functions of (frequency, time) returning values in [-1, 1]
// Package wave provides the periodic generators the synth voice is built from.
//
// Every generator is a pure function of frequency and time except noise,
// which ignores both and draws a fresh uniform value per call.
//
// Example:
//
//	v := wave.Oscillate(wave.Square, 110, t)
package wave
