// ABOUTME: WebSocket server broadcasting the synth output to network listeners
// ABOUTME: Manages listener handshakes, per-listener writers and mDNS advertisement
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-synth/internal/discovery"
	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/internal/version"
)

// StreamPath is the WebSocket endpoint listeners connect to
const StreamPath = "/stream"

// Config holds server configuration
type Config struct {
	Addr       string
	Name       string
	EnableMDNS bool
	UseTUI     bool
	Debug      bool

	// Describes the signal in stream/start
	Waveform  string
	Frequency float64
}

// Server represents the stream server
type Server struct {
	config   Config
	serverID string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management; stream is nil between streams
	clients   map[string]*Client
	stream    *protocol.StreamStart
	clientsMu sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui *ServerTUI

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup

	chunksSent atomic.Int64

	// reports audio broadcast so far; set by the network sink
	clock func() time.Duration
}

// Client represents a connected listener
type Client struct {
	ID          string
	Name        string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	// Output channel for messages
	sendChan chan interface{}
	dropped  atomic.Int64
}

// New creates a new server instance
func New(config Config) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Listeners are native clients on a trusted local network
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(StreamPath, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the stream endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ID returns the server's identifier
func (s *Server) ID() string {
	return s.serverID
}

// Start listens on the configured address and blocks until Stop is called,
// the TUI quits, or the HTTP server fails.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if s.config.UseTUI {
		s.tui = NewServerTUI()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, ln.Addr().String()); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		// Give TUI time to initialize
		time.Sleep(100 * time.Millisecond)
		s.updateTUI()
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        port,
			Path:        StreamPath,
			Version:     version.Version,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	log.Printf("WebSocket server listening on %s%s", ln.Addr(), StreamPath)

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Refresh the TUI with stream counters
	if s.tui != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.updateTUI()
				case <-s.stopChan:
					return
				}
			}
		}()
	}

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
		s.Stop()
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
		s.Stop()
	}

	// Reject new connections from here on
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown does not close hijacked connections
	s.closeClients()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Done is closed once Stop has been called
func (s *Server) Done() <-chan struct{} {
	return s.stopChan
}

// StartStream announces a new stream format to every listener
func (s *Server) StartStream(start protocol.StreamStart) {
	start.Codec = "pcm"
	if start.Waveform == "" {
		start.Waveform = s.config.Waveform
	}
	if start.Frequency == 0 {
		start.Frequency = s.config.Frequency
	}

	s.clientsMu.Lock()
	s.stream = &start
	clients := s.clientList()
	s.clientsMu.Unlock()

	log.Printf("Stream started: %dHz, %d channels, %d-bit", start.SampleRate, start.Channels, start.BitDepth)
	for _, client := range clients {
		if err := s.sendMessage(client, protocol.TypeStreamStart, start); err != nil {
			log.Printf("Warning: could not send stream/start to %s: %v", client.Name, err)
		}
	}
}

// EndStream tells every listener the stream has stopped
func (s *Server) EndStream(reason string) {
	s.clientsMu.Lock()
	s.stream = nil
	clients := s.clientList()
	s.clientsMu.Unlock()

	for _, client := range clients {
		if err := s.sendMessage(client, protocol.TypeStreamEnd, protocol.StreamEnd{Reason: reason}); err != nil {
			log.Printf("Warning: could not send stream/end to %s: %v", client.Name, err)
		}
	}
}

// Broadcast queues a binary message for every listener. Listeners whose
// send buffer is full miss this message.
func (s *Server) Broadcast(data []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		if err := s.sendBinary(client, data); err != nil {
			if n := client.dropped.Add(1); n == 1 || s.config.Debug {
				log.Printf("Warning: listener %s is falling behind (%d dropped): %v", client.Name, n, err)
			}
		}
	}
	s.chunksSent.Add(1)
}

// ListenerCount returns the number of connected listeners
func (s *Server) ListenerCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Listeners returns a snapshot of connected listeners
func (s *Server) Listeners() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	infos := make([]ClientInfo, 0, len(s.clients))
	for _, client := range s.clients {
		infos = append(infos, ClientInfo{
			Name:    client.Name,
			ID:      client.ID,
			Since:   client.ConnectedAt,
			Dropped: client.dropped.Load(),
		})
	}
	return infos
}

// clientList must be called with clientsMu held
func (s *Server) clientList() []*Client {
	clients := make([]*Client, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a listener connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	// Wait for client/hello
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	hello, err := parseHello(data)
	if err != nil {
		log.Printf("Rejecting listener: %v", err)
		writeError(conn, "bad_hello", err.Error())
		return
	}

	if hello.ClientID == "" {
		hello.ClientID = uuid.New().String()
	}

	client := &Client{
		ID:          hello.ClientID,
		Name:        hello.Name,
		Conn:        conn,
		ConnectedAt: time.Now(),
		sendChan:    make(chan interface{}, 100),
	}

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", client.ID, existing.Name)
		writeError(conn, "duplicate_client_id", "Client ID already connected")
		return
	}

	// The hello and current stream format go out before any audio
	client.sendChan <- protocol.Message{
		Type: protocol.TypeServerHello,
		Payload: protocol.ServerHello{
			ServerID: s.serverID,
			ClientID: client.ID,
			Name:     s.config.Name,
			Version:  protocol.ProtocolVersion,
		},
	}
	if s.stream != nil {
		client.sendChan <- protocol.Message{Type: protocol.TypeStreamStart, Payload: *s.stream}
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	log.Printf("Listener joined: %s (ID: %s)", client.Name, client.ID)
	s.updateTUI()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(client)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		close(client.sendChan)
		s.clientsMu.Unlock()
		<-writerDone
		log.Printf("Listener left: %s", client.Name)
		s.updateTUI()
	}()

	// Listeners send nothing after the hello; reading surfaces pongs and close frames
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func parseHello(data []byte) (protocol.ClientHello, error) {
	var msg struct {
		Type    string               `json:"type"`
		Payload protocol.ClientHello `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return protocol.ClientHello{}, fmt.Errorf("invalid hello: %w", err)
	}
	if msg.Type != protocol.TypeClientHello {
		return protocol.ClientHello{}, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, msg.Type)
	}
	if msg.Payload.Name == "" {
		return protocol.ClientHello{}, fmt.Errorf("client hello missing name")
	}
	return msg.Payload, nil
}

func writeError(conn *websocket.Conn, code, message string) {
	msg := protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending server error: %v", err)
	}
}

// clientWriter sends messages to the listener
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					client.Conn.Close()
					return
				}
			default:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteJSON(v); err != nil {
					log.Printf("Error writing text message: %v", err)
					client.Conn.Close()
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// sendMessage queues a JSON message for a listener
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if s.clients[client.ID] != client {
		return fmt.Errorf("listener disconnected")
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// sendBinary queues binary data for a listener; call with clientsMu held
func (s *Server) sendBinary(client *Client, data []byte) error {
	select {
	case client.sendChan <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}
