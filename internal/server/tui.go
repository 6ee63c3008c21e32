// ABOUTME: Server TUI for displaying connected listeners and stream stats
// ABOUTME: Real-time server status display using bubbletea
package server

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	tableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	updates  chan ServerStatus
	quitChan chan struct{}
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name       string
	Addr       string
	Stream     string
	Streamed   time.Duration
	ChunksSent int64
	Listeners  []ClientInfo
}

// ClientInfo holds listener information for display
type ClientInfo struct {
	Name    string
	ID      string
	Since   time.Time
	Dropped int64
}

type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}

	// chunk rate over the last status interval
	lastChunks int64
	lastAt     time.Time
	rate       float64
}

type tickMsg time.Time
type statusMsg ServerStatus

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		now := time.Now()
		if !m.lastAt.IsZero() {
			if dt := now.Sub(m.lastAt).Seconds(); dt > 0 {
				m.rate = float64(msg.ChunksSent-m.lastChunks) / dt
			}
		}
		m.lastChunks = msg.ChunksSent
		m.lastAt = now
		m.status = ServerStatus(msg)
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resonate Tone Server"))
	b.WriteString("\n")

	rows := [][2]string{
		{"Server", m.status.Name},
		{"Address", m.status.Addr + StreamPath},
		{"Uptime", time.Since(m.startTime).Round(time.Second).String()},
		{"Playing", m.status.Stream},
		{"Streamed", m.status.Streamed.Round(time.Millisecond).String()},
		{"Chunks", fmt.Sprintf("%d (%.0f/s)", m.status.ChunksSent, m.rate)},
	}
	for _, row := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tableHeader.Render(fmt.Sprintf("Listeners (%d)", len(m.status.Listeners))))
	b.WriteString("\n")
	b.WriteString(listenerTable(m.status.Listeners))

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// listenerTable renders one row per listener, oldest first
func listenerTable(listeners []ClientInfo) string {
	if len(listeners) == 0 {
		return valueStyle.Render("  No listeners connected") + "\n"
	}

	sorted := append([]ClientInfo(nil), listeners...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Since.Before(sorted[j].Since) })

	var b strings.Builder
	b.WriteString(valueStyle.Render(fmt.Sprintf("  %-24s %-10s %s", "NAME", "CONNECTED", "DROPPED")))
	b.WriteString("\n")
	for _, c := range sorted {
		line := fmt.Sprintf("  %-24s %-10s %d", truncate(c.Name, 24), time.Since(c.Since).Round(time.Second), c.Dropped)
		if c.Dropped > 0 {
			line = warnStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// NewServerTUI creates a new server TUI
func NewServerTUI() *ServerTUI {
	return &ServerTUI{
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(serverName, addr string) error {
	m := tuiModel{
		status: ServerStatus{
			Name:   serverName,
			Addr:   addr,
			Stream: "Initializing...",
		},
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	t.program = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for status := range t.updates {
			t.program.Send(statusMsg(status))
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update without blocking
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
