// ABOUTME: Synth parameters shared between the keyboard loop and the audio producer
// ABOUTME: Lock-free float fields stored as atomic bit patterns
package synth

import (
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/wave"
)

const (
	MinDutyCycle = 0.05
	MaxDutyCycle = 0.95
)

// Params holds the live voice settings. The UI writes, the producer reads.
type Params struct {
	frequency atomic.Uint64
	amplitude atomic.Uint64
	duty      atomic.Uint64
	pan       atomic.Uint64
	waveform  atomic.Int32
}

// Snapshot is a consistent-enough copy of Params for display
type Snapshot struct {
	Frequency float64
	Amplitude float64
	DutyCycle float64
	Pan       float64
	Waveform  wave.Waveform
}

// NewParams creates silent parameters with the given amplitude and waveform
func NewParams(amplitude float64, w wave.Waveform) *Params {
	p := &Params{}
	p.SetAmplitude(amplitude)
	p.SetWaveform(w)
	p.SetDutyCycle(wave.DefaultDutyCycle)
	return p
}

func loadFloat(v *atomic.Uint64) float64 {
	return math.Float64frombits(v.Load())
}

func storeFloat(v *atomic.Uint64, f float64) {
	v.Store(math.Float64bits(f))
}

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Frequency returns the note frequency in Hz; 0 means no note
func (p *Params) Frequency() float64 { return loadFloat(&p.frequency) }

// SetFrequency sets the note frequency; negative values become 0
func (p *Params) SetFrequency(hz float64) {
	if hz != hz || hz < 0 {
		hz = 0
	}
	storeFloat(&p.frequency, hz)
}

// Amplitude returns the output scale in [0, 1]
func (p *Params) Amplitude() float64 { return loadFloat(&p.amplitude) }

// SetAmplitude sets the output scale, clamped to [0, 1]
func (p *Params) SetAmplitude(a float64) {
	storeFloat(&p.amplitude, clamp(a, 0, 1))
}

// AdjustAmplitude adds delta to the amplitude and returns the clamped result
func (p *Params) AdjustAmplitude(delta float64) float64 {
	a := clamp(p.Amplitude()+delta, 0, 1)
	storeFloat(&p.amplitude, a)
	return a
}

// Waveform returns the selected oscillator shape
func (p *Params) Waveform() wave.Waveform { return wave.Waveform(p.waveform.Load()) }

// SetWaveform selects the oscillator shape
func (p *Params) SetWaveform(w wave.Waveform) { p.waveform.Store(int32(w)) }

// DutyCycle returns the pulse wave duty cycle
func (p *Params) DutyCycle() float64 { return loadFloat(&p.duty) }

// SetDutyCycle sets the pulse duty cycle, clamped to [MinDutyCycle, MaxDutyCycle]
func (p *Params) SetDutyCycle(d float64) {
	storeFloat(&p.duty, clamp(d, MinDutyCycle, MaxDutyCycle))
}

// AdjustDutyCycle adds delta to the duty cycle and returns the clamped result
func (p *Params) AdjustDutyCycle(delta float64) float64 {
	d := clamp(p.DutyCycle()+delta, MinDutyCycle, MaxDutyCycle)
	storeFloat(&p.duty, d)
	return d
}

// Pan returns the stereo balance in [-1, 1], negative is left
func (p *Params) Pan() float64 { return loadFloat(&p.pan) }

// AdjustPan moves the balance by delta and returns the clamped result
func (p *Params) AdjustPan(delta float64) float64 {
	v := clamp(p.Pan()+delta, -1, 1)
	storeFloat(&p.pan, v)
	return v
}

// PanGains converts a balance to left and right gains. Centre is full volume on both.
func PanGains(pan float64) (left, right float64) {
	pan = clamp(pan, -1, 1)
	left, right = 1, 1
	if pan > 0 {
		left = 1 - pan
	} else if pan < 0 {
		right = 1 + pan
	}
	return left, right
}

// Snapshot copies every field
func (p *Params) Snapshot() Snapshot {
	return Snapshot{
		Frequency: p.Frequency(),
		Amplitude: p.Amplitude(),
		DutyCycle: p.DutyCycle(),
		Pan:       p.Pan(),
		Waveform:  p.Waveform(),
	}
}
