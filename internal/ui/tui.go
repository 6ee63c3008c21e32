// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program that runs the synth foreground loop
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NewProgram creates the full-screen program; call Run on it to block
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// Run blocks until the user quits and returns the stream failure, if any
func Run(p *tea.Program) error {
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
