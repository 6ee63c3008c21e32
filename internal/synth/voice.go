// ABOUTME: Voice renders the current synth parameters as a signal source
// ABOUTME: Evaluated per sample on the engine's producer goroutine
package synth

import (
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/wave"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

// Voice is a single oscillator driven by Params
type Voice struct {
	params *Params
	noise  *wave.NoiseSource
}

// NewVoice creates a voice reading p. seed feeds the noise generator.
func NewVoice(p *Params, seed uint64) *Voice {
	return &Voice{
		params: p,
		noise:  wave.NewNoiseSource(seed),
	}
}

// Sample returns amplitude * waveform(frequency, t). Silent while no note is held.
func (v *Voice) Sample(t float64, _ int) float64 {
	f := v.params.Frequency()
	if f == 0 {
		return 0
	}

	a := v.params.Amplitude()
	switch w := v.params.Waveform(); w {
	case wave.Noise:
		return a * v.noise.Next()
	case wave.Pulse:
		return a * wave.PulseWave(f, t, v.params.DutyCycle())
	default:
		return a * wave.Oscillate(w, f, t)
	}
}

// Source adapts the voice to the engine
func (v *Voice) Source() engine.SignalSource {
	return v.Sample
}

// Tone returns a fixed-pitch source, used by the tone server
func Tone(w wave.Waveform, frequency, amplitude float64) engine.SignalSource {
	p := NewParams(amplitude, w)
	p.SetFrequency(frequency)
	return NewVoice(p, uint64(frequency*1000)).Source()
}
