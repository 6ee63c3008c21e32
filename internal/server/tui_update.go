// ABOUTME: TUI update helpers for server
// ABOUTME: Functions to send server state updates to TUI
package server

import (
	"fmt"
	"time"
)

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	// The TUI's update channel closes once shutdown begins
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	if s.isShutdown {
		return
	}

	s.tui.Update(s.status())
}

// status builds the TUI snapshot
func (s *Server) status() ServerStatus {
	stream := "Stopped"
	s.clientsMu.RLock()
	if st := s.stream; st != nil {
		stream = fmt.Sprintf("%s %.1fHz (%dHz, %d ch)", st.Waveform, st.Frequency, st.SampleRate, st.Channels)
	}
	clock := s.clock
	s.clientsMu.RUnlock()

	// The sink's lock is taken outside clientsMu; Open holds it while announcing
	var streamed time.Duration
	if clock != nil {
		streamed = clock()
	}

	return ServerStatus{
		Name:       s.config.Name,
		Addr:       s.config.Addr,
		Stream:     stream,
		Streamed:   streamed,
		ChunksSent: s.chunksSent.Load(),
		Listeners:  s.Listeners(),
	}
}
