// ABOUTME: Synth parameter, voice and keyboard layout tests
// ABOUTME: Covers clamping, note pitches and voice output
package synth

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/wave"
)

func TestNoteFrequency(t *testing.T) {
	tests := []struct {
		key  rune
		want float64
	}{
		{'z', 110},
		{'s', 116.5409},
		{'k', 207.6523},
		{',', 220},
		{'.', 246.9417},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			semi, ok := KeySemitone(tt.key)
			if !ok {
				t.Fatalf("%q is not a piano key", tt.key)
			}
			got := NoteFrequency(DefaultBaseFrequency, semi)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("expected %.4f Hz, got %.4f", tt.want, got)
			}
		})
	}

	if _, ok := KeySemitone('q'); ok {
		t.Error("q should not be a piano key")
	}
	if len([]rune(NoteKeys)) != 15 {
		t.Errorf("expected 15 piano keys, got %d", len(NoteKeys))
	}
}

func TestHeldFrequency(t *testing.T) {
	held := func(keys string) func(rune) bool {
		return func(r rune) bool {
			for _, k := range keys {
				if k == r {
					return true
				}
			}
			return false
		}
	}

	tests := []struct {
		name string
		keys string
		want float64
	}{
		{"none", "", 0},
		{"lowest", "z", 110},
		{"octave", ",", 220},
		{"highest wins", "z,", 220},
		{"ignores other keys", "q1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeldFrequency(DefaultBaseFrequency, held(tt.keys))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v Hz, got %v", tt.want, got)
			}
		})
	}
}

func TestParamsClamp(t *testing.T) {
	p := NewParams(1, wave.Sine)

	if got := p.AdjustAmplitude(0.5); got != 1 {
		t.Errorf("amplitude above 1: got %v", got)
	}
	p.SetAmplitude(0.005)
	if got := p.AdjustAmplitude(-0.01); got != 0 {
		t.Errorf("amplitude below 0: got %v", got)
	}
	p.SetAmplitude(math.NaN())
	if p.Amplitude() != 0 {
		t.Errorf("NaN amplitude stored as %v", p.Amplitude())
	}

	p.SetFrequency(-5)
	if p.Frequency() != 0 {
		t.Errorf("negative frequency stored as %v", p.Frequency())
	}

	if p.DutyCycle() != wave.DefaultDutyCycle {
		t.Errorf("expected default duty %v, got %v", wave.DefaultDutyCycle, p.DutyCycle())
	}
	if got := p.AdjustDutyCycle(5); got != MaxDutyCycle {
		t.Errorf("duty above max: got %v", got)
	}
	if got := p.AdjustDutyCycle(-5); got != MinDutyCycle {
		t.Errorf("duty below min: got %v", got)
	}

	if got := p.AdjustPan(-3); got != -1 {
		t.Errorf("pan below -1: got %v", got)
	}
}

func TestPanGains(t *testing.T) {
	tests := []struct {
		pan         float64
		left, right float64
	}{
		{0, 1, 1},
		{-1, 1, 0},
		{1, 0, 1},
		{0.25, 0.75, 1},
		{-0.5, 1, 0.5},
	}

	for _, tt := range tests {
		l, r := PanGains(tt.pan)
		if math.Abs(l-tt.left) > 1e-9 || math.Abs(r-tt.right) > 1e-9 {
			t.Errorf("PanGains(%v) = (%v, %v), expected (%v, %v)", tt.pan, l, r, tt.left, tt.right)
		}
	}
}

func TestVoiceSilentWithoutNote(t *testing.T) {
	for _, w := range wave.Waveforms {
		v := NewVoice(NewParams(1, w), 1)
		for i := 0; i < 100; i++ {
			if s := v.Sample(float64(i)/44100, 0); s != 0 {
				t.Fatalf("%s: expected silence with no note, got %v", w, s)
			}
		}
	}
}

func TestVoiceScalesByAmplitude(t *testing.T) {
	p := NewParams(0.5, wave.Square)
	p.SetFrequency(110)
	v := NewVoice(p, 1)

	if got := v.Sample(0, 0); got != 0.5 {
		t.Errorf("expected 0.5 at phase 0, got %v", got)
	}

	// Half a period into the square wave
	if got := v.Sample(0.5/110+1e-6, 0); got != -0.5 {
		t.Errorf("expected -0.5 in second half period, got %v", got)
	}

	p.SetWaveform(wave.Noise)
	for i := 0; i < 1000; i++ {
		if s := v.Sample(0, 0); s < -0.5 || s >= 0.5 {
			t.Fatalf("noise sample %v outside [-0.5, 0.5)", s)
		}
	}
}

func TestVoicePulseUsesDutyCycle(t *testing.T) {
	p := NewParams(1, wave.Pulse)
	p.SetFrequency(1)
	p.SetDutyCycle(0.75)
	v := NewVoice(p, 1)

	if got := v.Sample(0.5, 0); got != 1 {
		t.Errorf("expected high at phase 0.5 with duty 0.75, got %v", got)
	}
	if got := v.Sample(0.8, 0); got != -1 {
		t.Errorf("expected low at phase 0.8 with duty 0.75, got %v", got)
	}
}

func TestTone(t *testing.T) {
	src := Tone(wave.Sine, 440, 0.5)

	// sin(pi * 440 * t) peaks at t = 1/880
	if got := src(1.0/880, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected peak 0.5, got %v", got)
	}
}
