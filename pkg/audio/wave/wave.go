// ABOUTME: Periodic waveform functions of frequency and time
// ABOUTME: Sine, square, sawtooth, triangle, pulse and noise generators
package wave

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
)

// Waveform selects the generator used by Oscillate
type Waveform int32

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
	Noise
	Pulse
)

// DefaultDutyCycle is the duty cycle Oscillate uses for Pulse
const DefaultDutyCycle = 0.25

var waveformNames = [...]string{
	Sine:     "Sine",
	Triangle: "Triangle",
	Square:   "Square",
	Sawtooth: "Sawtooth",
	Noise:    "Random Noise",
	Pulse:    "Pulse",
}

// Waveforms lists every waveform in selection order
var Waveforms = []Waveform{Sine, Triangle, Square, Sawtooth, Noise, Pulse}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int32(w))
	}
	return waveformNames[w]
}

// ParseWaveform resolves a waveform by case-insensitive name
func ParseWaveform(name string) (Waveform, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "sine", "sin":
		return Sine, nil
	case "triangle", "tri":
		return Triangle, nil
	case "square", "sq":
		return Square, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	case "noise", "random", "random noise":
		return Noise, nil
	case "pulse":
		return Pulse, nil
	}
	return Sine, fmt.Errorf("unknown waveform: %q", name)
}

// Remainder returns the phase of time within one period of frequency, in [0, 1).
// For a function f with period 1/frequency, f(time) == f(Remainder*period).
func Remainder(frequency, time float64) float64 {
	ft := frequency * time
	r := ft - math.Floor(ft)
	// ft - floor(ft) rounds up to exactly 1 for tiny negative ft
	if r >= 1 {
		return 0
	}
	return r
}

// SineWave uses sin(pi*f*t); the period convention is kept for compatibility
func SineWave(frequency, time float64) float64 {
	return math.Sin(frequency * math.Pi * time)
}

func SquareWave(frequency, time float64) float64 {
	if Remainder(frequency, time) < 0.5 {
		return 1
	}
	return -1
}

// SawtoothWave descends from 1 towards 0 over each period
func SawtoothWave(frequency, time float64) float64 {
	return 1 - Remainder(frequency, time)
}

// TriangleWave rises 0 -> 1 -> 0 -> -1 -> 0 with breakpoints at each quarter period
func TriangleWave(frequency, time float64) float64 {
	r := Remainder(frequency, time)
	switch {
	case r < 0.25:
		return 4 * r
	case r < 0.5:
		return 4 * (0.5 - r)
	case r < 0.75:
		return -4 * (r - 0.5)
	default:
		return -4 * (1 - r)
	}
}

// PulseWave is high for the first dutyCycle fraction of each period
func PulseWave(frequency, time, dutyCycle float64) float64 {
	if Remainder(frequency, time) < dutyCycle {
		return 1
	}
	return -1
}

// NoiseSource produces uniform noise in [-1, 1).
// It is safe for concurrent use.
type NoiseSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoiseSource creates a noise generator with a fixed seed
func NewNoiseSource(seed uint64) *NoiseSource {
	return &NoiseSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the next noise value
func (n *NoiseSource) Next() float64 {
	n.mu.Lock()
	v := n.rng.Float64()
	n.mu.Unlock()
	return 2*v - 1
}

// RandomNoise returns a uniform value in [-1, 1) from the global source
func RandomNoise() float64 {
	return 2*rand.Float64() - 1
}

// Oscillate evaluates a waveform. Unknown waveforms are silent.
func Oscillate(w Waveform, frequency, time float64) float64 {
	switch w {
	case Sine:
		return SineWave(frequency, time)
	case Triangle:
		return TriangleWave(frequency, time)
	case Square:
		return SquareWave(frequency, time)
	case Sawtooth:
		return SawtoothWave(frequency, time)
	case Noise:
		return RandomNoise()
	case Pulse:
		return PulseWave(frequency, time, DefaultDutyCycle)
	}
	return 0
}
