// ABOUTME: Bubbletea model for the keyboard synth
// ABOUTME: Each tick polls held keys, updates synth parameters and redraws the grid
package ui

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/resonate-synth/internal/synth"
	"github.com/Resonate-Protocol/resonate-synth/internal/version"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/wave"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

// FrameInterval is how often the foreground loop polls input and redraws
const FrameInterval = 10 * time.Millisecond

const (
	dutyStep = 0.01
	panStep  = 0.02
)

// Engine is the part of the streaming engine the UI drives
type Engine interface {
	SetVolume(left, right float64) error
	Stats() engine.Stats
	Config() engine.Config
	Stop() error
}

// Options configures the foreground loop
type Options struct {
	BaseFrequency float64
	AmplitudeStep float64
	Name          string
}

// Model represents the TUI state
type Model struct {
	engine Engine
	params *synth.Params
	keys   *Keyboard
	grid   *Grid

	base   float64
	step   float64
	name   string
	stereo bool

	frames   int64
	err      error
	quitting bool

	width  int
	height int
}

type tickMsg time.Time

// ErrorMsg reports a stream failure to the UI
type ErrorMsg struct {
	Err error
}

// NewModel creates the synth UI around a running engine
func NewModel(e Engine, params *synth.Params, keys *Keyboard, opts Options) Model {
	if opts.BaseFrequency <= 0 {
		opts.BaseFrequency = synth.DefaultBaseFrequency
	}
	if opts.AmplitudeStep <= 0 {
		opts.AmplitudeStep = 0.01
	}
	if keys == nil {
		keys = NewKeyboard(DefaultHoldTimeout)
	}

	return Model{
		engine: e,
		params: params,
		keys:   keys,
		grid:   NewGrid(GridWidth, GridHeight),
		base:   opts.BaseFrequency,
		step:   opts.AmplitudeStep,
		name:   opts.Name,
		stereo: e.Config().Channels >= 2,
	}
}

// Init starts the frame ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.frame()
		return m, tick()
	case ErrorMsg:
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// Err returns the stream failure that ended the UI, if any
func (m Model) Err() error {
	return m.err
}

// handleKey records presses for polling; quit keys act immediately
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc", "q", "ctrl+c":
		m.quitting = true
		if err := m.engine.Stop(); err != nil {
			log.Printf("Error stopping engine: %v", err)
		}
		return m, tea.Quit
	}

	if len([]rune(key)) == 1 {
		key = strings.ToLower(key)
	}
	m.keys.Press(key)
	return m, nil
}

// frame is one iteration of the foreground loop
func (m *Model) frame() {
	held := func(r rune) bool { return m.keys.IsKeyDown(string(r)) }
	m.params.SetFrequency(synth.HeldFrequency(m.base, held))

	if m.keys.IsKeyDown("up") {
		m.params.AdjustAmplitude(m.step)
	} else if m.keys.IsKeyDown("down") {
		m.params.AdjustAmplitude(-m.step)
	}

	for i, w := range wave.Waveforms {
		if m.keys.IsKeyDown(strconv.Itoa(i + 1)) {
			m.params.SetWaveform(w)
		}
	}

	if m.keys.IsKeyDown("]") {
		m.params.AdjustDutyCycle(dutyStep)
	} else if m.keys.IsKeyDown("[") {
		m.params.AdjustDutyCycle(-dutyStep)
	}

	if m.stereo {
		m.pan()
	}

	m.frames++
	m.draw()
}

func (m *Model) pan() {
	delta := 0.0
	if m.keys.IsKeyDown("left") {
		delta = -panStep
	} else if m.keys.IsKeyDown("right") {
		delta = panStep
	}
	if delta == 0 {
		return
	}

	before := m.params.Pan()
	after := m.params.AdjustPan(delta)
	if after == before {
		return
	}

	left, right := synth.PanGains(after)
	if err := m.engine.SetVolume(left, right); err != nil {
		log.Printf("Failed to set volume: %v", err)
	}
}

// draw lays out the readouts, waveform menu and help text
func (m *Model) draw() {
	g := m.grid
	p := m.params.Snapshot()
	g.Clear()

	g.DrawText(0, 0, fmt.Sprintf("Amplitude: %f", p.Amplitude))

	for i, w := range wave.Waveforms {
		line := fmt.Sprintf("%d => %s", i+1, w)
		if w == p.Waveform {
			line += " (selected)"
		}
		g.DrawText(0, i+1, line)
	}

	if p.Frequency > 0 {
		g.DrawText(0, 8, fmt.Sprintf("Note: %.2f Hz", p.Frequency))
	} else {
		g.DrawText(0, 8, "Note: -")
	}
	g.DrawText(0, 9, fmt.Sprintf("Duty cycle: %.0f%%", p.DutyCycle*100))
	if m.stereo {
		g.DrawText(0, 10, fmt.Sprintf("Pan: %+.2f", p.Pan))
	}

	stats := m.engine.Stats()
	cfg := m.engine.Config()
	g.DrawText(0, 12, fmt.Sprintf("Stream: %dHz %s, %d x %d samples",
		cfg.SampleRate, channelName(cfg.Channels), cfg.Blocks, cfg.BlockSamples))
	g.DrawText(0, 13, fmt.Sprintf("Blocks: %d  Free: %d  Underruns: %d  Time: %.1fs",
		stats.Blocks, stats.FreeBlocks, stats.Underruns, stats.Time))

	g.DrawText(0, 18, "Use up/down keys to modify amplitude.")
	g.DrawText(0, 19, "Select waveform with number keys.")
	g.DrawText(0, 20, "Adjust pulse duty cycle with [ and ].")
	if m.stereo {
		g.DrawText(0, 21, "Pan with left/right keys.")
	}
	g.DrawText(0, 22, "Play notes using last two rows on keyboard.")
	g.DrawText(0, 23, "Press escape to quit.")
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		if m.err != nil {
			return fmt.Sprintf("Stream halted: %v\n", m.err)
		}
		return "Stopping synth...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	gridStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(0, 1)

	title := fmt.Sprintf("%s v%s", version.Product, version.Version)
	if m.name != "" {
		title += " - " + m.name
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(gridStyle.Render(m.grid.Present()))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'esc' or 'q' to quit"))

	return b.String()
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	}
	return fmt.Sprintf("%d channels", channels)
}
