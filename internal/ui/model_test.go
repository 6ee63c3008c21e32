// ABOUTME: Tests for the synth TUI model, grid and keyboard
// ABOUTME: Drives frames with injected key presses against a fake engine
package ui

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-synth/internal/synth"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/wave"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

type fakeEngine struct {
	mu      sync.Mutex
	cfg     engine.Config
	stats   engine.Stats
	left    float64
	right   float64
	volumes int
	stops   int
}

func (f *fakeEngine) SetVolume(left, right float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left, f.right = left, right
	f.volumes++
	return nil
}

func (f *fakeEngine) Stats() engine.Stats   { return f.stats }
func (f *fakeEngine) Config() engine.Config { return f.cfg }

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

// fakeClock lets tests move key hold deadlines
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestModel(channels int) (Model, *fakeEngine, *synth.Params, *fakeClock) {
	cfg := engine.DefaultConfig()
	cfg.Channels = channels
	cfg.BlockSamples = 256
	e := &fakeEngine{cfg: cfg}

	clock := &fakeClock{t: time.Unix(1000, 0)}
	keys := NewKeyboard(DefaultHoldTimeout)
	keys.now = clock.now

	params := synth.NewParams(1, wave.Sine)
	m := NewModel(e, params, keys, Options{BaseFrequency: 110, AmplitudeStep: 0.1, Name: "test"})
	return m, e, params, clock
}

func press(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func step(m Model) Model {
	next, _ := m.Update(tickMsg(time.Now()))
	return next.(Model)
}

func TestGridDrawText(t *testing.T) {
	g := NewGrid(10, 3)

	g.DrawText(0, 0, "hello")
	g.DrawText(3, 0, "p!")
	g.DrawText(7, 1, "overflow")
	g.DrawText(-2, 2, "abc")
	g.DrawText(0, 5, "offscreen")

	want := "help!\n       ove\nc"
	if got := g.Present(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	g.Clear()
	if got := g.Present(); got != "\n\n" {
		t.Errorf("expected blank grid, got %q", got)
	}
}

func TestKeyboardHold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	k := NewKeyboard(100 * time.Millisecond)
	k.now = clock.now

	if k.IsKeyDown("z") {
		t.Fatal("key down before any press")
	}

	k.Press("z")
	clock.advance(300 * time.Millisecond)
	if !k.IsKeyDown("z") {
		t.Fatal("first press released before the repeat delay")
	}

	// Auto-repeat keeps it held for one more hold period
	k.Press("z")
	clock.advance(90 * time.Millisecond)
	if !k.IsKeyDown("z") {
		t.Error("repeat did not extend the hold")
	}
	clock.advance(20 * time.Millisecond)
	if k.IsKeyDown("z") {
		t.Error("key still down after repeats stopped")
	}

	k.Press("x")
	k.Release("x")
	if k.IsKeyDown("x") {
		t.Error("released key still down")
	}
}

func TestNewModel(t *testing.T) {
	m, _, _, _ := newTestModel(1)

	if m.stereo {
		t.Error("mono stream should not enable panning")
	}
	if m.base != 110 || m.step != 0.1 {
		t.Errorf("options not applied: base %v step %v", m.base, m.step)
	}
	if m.quitting {
		t.Error("expected quitting to be false initially")
	}
}

func TestFramePlaysHeldNote(t *testing.T) {
	m, _, params, clock := newTestModel(1)

	m = press(m, ",")
	m = step(m)
	if got := params.Frequency(); math.Abs(got-220) > 1e-9 {
		t.Errorf("expected 220 Hz while ',' is held, got %v", got)
	}

	clock.advance(time.Second)
	m = step(m)
	if got := params.Frequency(); got != 0 {
		t.Errorf("expected silence after release, got %v Hz", got)
	}
}

func TestFrameUppercaseKey(t *testing.T) {
	m, _, params, _ := newTestModel(1)

	m = press(m, "Z")
	step(m)
	if got := params.Frequency(); got != 110 {
		t.Errorf("expected shifted key to play 110 Hz, got %v", got)
	}
}

func TestFrameAmplitude(t *testing.T) {
	m, _, params, _ := newTestModel(1)

	m = press(m, "down")
	m = step(m)
	m = step(m)
	if got := params.Amplitude(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected amplitude 0.8 after two frames, got %v", got)
	}

	m.keys.Release("down")
	m = press(m, "up")
	for i := 0; i < 5; i++ {
		m = step(m)
	}
	if got := params.Amplitude(); got != 1 {
		t.Errorf("expected amplitude clamped to 1, got %v", got)
	}
}

func TestFrameSelectsWaveform(t *testing.T) {
	tests := []struct {
		key  string
		want wave.Waveform
	}{
		{"1", wave.Sine},
		{"2", wave.Triangle},
		{"3", wave.Square},
		{"4", wave.Sawtooth},
		{"5", wave.Noise},
		{"6", wave.Pulse},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, _, params, _ := newTestModel(1)
			params.SetWaveform(wave.Square)
			if tt.want == wave.Square {
				params.SetWaveform(wave.Sine)
			}

			m = press(m, tt.key)
			m = step(m)

			if params.Waveform() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, params.Waveform())
			}
			if !strings.Contains(m.grid.Present(), tt.want.String()+" (selected)") {
				t.Errorf("grid does not mark %s as selected:\n%s", tt.want, m.grid.Present())
			}
		})
	}
}

func TestFrameDutyCycle(t *testing.T) {
	m, _, params, _ := newTestModel(1)

	m = press(m, "]")
	step(m)
	if got := params.DutyCycle(); math.Abs(got-(wave.DefaultDutyCycle+dutyStep)) > 1e-9 {
		t.Errorf("expected duty %v, got %v", wave.DefaultDutyCycle+dutyStep, got)
	}
}

func TestFramePanStereo(t *testing.T) {
	m, e, params, _ := newTestModel(2)

	m = press(m, "right")
	m = step(m)

	if got := params.Pan(); math.Abs(got-panStep) > 1e-9 {
		t.Errorf("expected pan %v, got %v", panStep, got)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.volumes != 1 || math.Abs(e.left-(1-panStep)) > 1e-9 || e.right != 1 {
		t.Errorf("expected one SetVolume(%v, 1), got %d calls with (%v, %v)", 1-panStep, e.volumes, e.left, e.right)
	}
}

func TestFramePanIgnoredForMono(t *testing.T) {
	m, e, params, _ := newTestModel(1)

	m = press(m, "left")
	step(m)

	if params.Pan() != 0 || e.volumes != 0 {
		t.Errorf("mono stream panned: pan %v, %d volume calls", params.Pan(), e.volumes)
	}
}

func TestQuitStopsEngine(t *testing.T) {
	for _, key := range []string{"esc", "q"} {
		t.Run(key, func(t *testing.T) {
			m, e, _, _ := newTestModel(1)

			next, cmd := m.Update(pressMsg(key))
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if !next.(Model).quitting {
				t.Error("expected quitting state")
			}
			if e.stops != 1 {
				t.Errorf("expected engine stopped once, got %d", e.stops)
			}
		})
	}
}

func pressMsg(key string) tea.KeyMsg {
	if key == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func TestErrorMsgQuits(t *testing.T) {
	m, _, _, _ := newTestModel(1)
	cause := errors.New("device lost")

	next, cmd := m.Update(ErrorMsg{Err: cause})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	final := next.(Model)
	if !errors.Is(final.Err(), cause) {
		t.Errorf("expected error to be kept, got %v", final.Err())
	}
	if !strings.Contains(final.View(), "device lost") {
		t.Errorf("view does not show the error: %q", final.View())
	}
}

func TestViewShowsScreen(t *testing.T) {
	m, e, _, _ := newTestModel(1)
	e.stats = engine.Stats{Blocks: 42, FreeBlocks: 3}

	m = step(m)
	view := m.View()

	for _, want := range []string{
		"Resonate Synth",
		"Amplitude: 1.000000",
		"1 => Sine (selected)",
		"5 => Random Noise",
		"Blocks: 42",
		"Press escape to quit.",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWindowSize(t *testing.T) {
	m, _, _, _ := newTestModel(1)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model := next.(Model)

	if model.width != 80 || model.height != 30 {
		t.Errorf("expected 80x30, got %dx%d", model.width, model.height)
	}
}
