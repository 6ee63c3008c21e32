// ABOUTME: Tests for the stream server and network sink
// ABOUTME: Drives real WebSocket listeners against an httptest server
package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := New(Config{Name: "test-server", Waveform: "Sine", Frequency: 440})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + StreamPath
}

func dial(t *testing.T, url string, hello protocol.ClientHello) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	msg := protocol.Message{Type: protocol.TypeClientHello, Payload: hello}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("invalid JSON %q: %v", data, err)
		}
		return env
	}
}

func readChunk(t *testing.T, conn *websocket.Conn) protocol.AudioChunk {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		chunk, err := protocol.DecodeAudioChunk(data)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		return chunk
	}
}

func TestHandshake(t *testing.T) {
	srv, url := newTestServer(t)
	conn := dial(t, url, protocol.ClientHello{ClientID: "listener-1", Name: "kitchen", Version: protocol.ProtocolVersion})

	env := readJSON(t, conn)
	if env.Type != protocol.TypeServerHello {
		t.Fatalf("expected %s, got %s", protocol.TypeServerHello, env.Type)
	}
	var hello protocol.ServerHello
	if err := json.Unmarshal(env.Payload, &hello); err != nil {
		t.Fatal(err)
	}
	if hello.ClientID != "listener-1" || hello.ServerID != srv.ID() || hello.Name != "test-server" {
		t.Errorf("unexpected hello: %+v", hello)
	}

	if got := srv.ListenerCount(); got != 1 {
		t.Errorf("expected 1 listener, got %d", got)
	}

	srv.StartStream(protocol.StreamStart{SampleRate: 48000, Channels: 2, BitDepth: 16})

	env = readJSON(t, conn)
	if env.Type != protocol.TypeStreamStart {
		t.Fatalf("expected %s, got %s", protocol.TypeStreamStart, env.Type)
	}
	var start protocol.StreamStart
	if err := json.Unmarshal(env.Payload, &start); err != nil {
		t.Fatal(err)
	}
	want := protocol.StreamStart{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16, Waveform: "Sine", Frequency: 440}
	if start != want {
		t.Errorf("expected %+v, got %+v", want, start)
	}

	srv.EndStream("stopped")
	if env := readJSON(t, conn); env.Type != protocol.TypeStreamEnd {
		t.Errorf("expected %s, got %s", protocol.TypeStreamEnd, env.Type)
	}
}

func TestLateJoinerReceivesStreamStart(t *testing.T) {
	srv, url := newTestServer(t)
	srv.StartStream(protocol.StreamStart{SampleRate: 44100, Channels: 1, BitDepth: 16})

	conn := dial(t, url, protocol.ClientHello{Name: "late"})

	env := readJSON(t, conn)
	if env.Type != protocol.TypeServerHello {
		t.Fatalf("expected %s, got %s", protocol.TypeServerHello, env.Type)
	}
	var hello protocol.ServerHello
	if err := json.Unmarshal(env.Payload, &hello); err != nil {
		t.Fatal(err)
	}
	if hello.ClientID == "" {
		t.Error("expected server to assign a client ID")
	}

	if env := readJSON(t, conn); env.Type != protocol.TypeStreamStart {
		t.Errorf("expected %s, got %s", protocol.TypeStreamStart, env.Type)
	}
}

func TestHandshakeRejected(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, url string)
		hello protocol.ClientHello
		code  string
	}{
		{
			name:  "missing name",
			hello: protocol.ClientHello{ClientID: "x"},
			code:  "bad_hello",
		},
		{
			name: "duplicate id",
			setup: func(t *testing.T, url string) {
				first := dial(t, url, protocol.ClientHello{ClientID: "dup", Name: "first"})
				readJSON(t, first)
			},
			hello: protocol.ClientHello{ClientID: "dup", Name: "second"},
			code:  "duplicate_client_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := newTestServer(t)
			if tt.setup != nil {
				tt.setup(t, url)
			}

			conn := dial(t, url, tt.hello)
			env := readJSON(t, conn)
			if env.Type != protocol.TypeServerError {
				t.Fatalf("expected %s, got %s", protocol.TypeServerError, env.Type)
			}
			var serr protocol.ServerError
			if err := json.Unmarshal(env.Payload, &serr); err != nil {
				t.Fatal(err)
			}
			if serr.Error != tt.code {
				t.Errorf("expected error %q, got %q", tt.code, serr.Error)
			}
		})
	}
}

func TestSinkBroadcastsChunks(t *testing.T) {
	srv, url := newTestServer(t)
	conn := dial(t, url, protocol.ClientHello{Name: "listener"})
	readJSON(t, conn)

	sink := NewSink(srv, 10*time.Millisecond)
	done := make(chan int, 4)
	format := audio.Format{SampleRate: 1000, Channels: 1, BitDepth: 16}
	if err := sink.Open(format, func(block int) { done <- block }); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sink.Close()

	if env := readJSON(t, conn); env.Type != protocol.TypeStreamStart {
		t.Fatalf("expected %s, got %s", protocol.TypeStreamStart, env.Type)
	}

	// 10ms at 1kHz is 10 frames per chunk
	samples := make([]int16, 10)
	for i := range samples {
		samples[i] = int16(100 * (i + 1))
	}
	if err := sink.Submit(3, samples); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case block := <-done:
		if block != 3 {
			t.Errorf("expected completion for block 3, got %d", block)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("block never completed")
	}

	// Skip silent chunks broadcast before the submission
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		chunk := readChunk(t, conn)
		if len(chunk.Samples) != 10 {
			t.Fatalf("expected 10 samples per chunk, got %d", len(chunk.Samples))
		}
		if chunk.Samples[0] == 0 {
			continue
		}
		for i, s := range chunk.Samples {
			if s != samples[i] {
				t.Fatalf("sample %d: expected %d, got %d", i, samples[i], s)
			}
		}
		if chunk.Timestamp%10_000 != 0 {
			t.Errorf("timestamp %d not on a chunk boundary", chunk.Timestamp)
		}

		// The chunk clock has passed at least the chunk we just read
		minimum := time.Duration(chunk.Timestamp)*time.Microsecond + 10*time.Millisecond
		if got := sink.StreamTime(); got < minimum {
			t.Errorf("expected stream time of at least %v, got %v", minimum, got)
		}
		if got := srv.status().Streamed; got < minimum {
			t.Errorf("expected status to report at least %v streamed, got %v", minimum, got)
		}
		return
	}
	t.Fatal("never received the submitted samples")
}

func TestSinkRequiresOpen(t *testing.T) {
	srv := New(Config{Name: "idle"})
	sink := NewSink(srv, 0)

	if err := sink.Submit(0, make([]int16, 4)); !errors.Is(err, output.ErrNotOpen) {
		t.Errorf("Submit before Open: expected ErrNotOpen, got %v", err)
	}
	if err := sink.SetVolume(1, 1); !errors.Is(err, output.ErrNotOpen) {
		t.Errorf("SetVolume before Open: expected ErrNotOpen, got %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close before Open: %v", err)
	}

	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 8}
	if err := sink.Open(format, nil); !errors.Is(err, output.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEngineStreamsToListener(t *testing.T) {
	srv, url := newTestServer(t)
	conn := dial(t, url, protocol.ClientHello{Name: "listener"})
	readJSON(t, conn)

	sink := NewSink(srv, 5*time.Millisecond)
	eng := engine.New(sink, nil)
	cfg := engine.Config{SampleRate: 8000, Channels: 1, Blocks: 4, BlockSamples: 40}
	constant := func(t float64, ch int) float64 { return 0.5 }
	if err := eng.Start(cfg, constant); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if env := readJSON(t, conn); env.Type != protocol.TypeStreamStart {
		t.Fatalf("expected %s, got %s", protocol.TypeStreamStart, env.Type)
	}

	deadline := time.Now().Add(2 * time.Second)
	found := false
	for !found && time.Now().Before(deadline) {
		chunk := readChunk(t, conn)
		for _, s := range chunk.Samples {
			if s == 16384 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("no rendered samples reached the listener")
	}

	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if env := readJSON(t, conn); env.Type != protocol.TypeStreamEnd {
		t.Errorf("expected %s after Stop, got %s", protocol.TypeStreamEnd, env.Type)
	}
}

func TestListenerTable(t *testing.T) {
	if got := listenerTable(nil); !strings.Contains(got, "No listeners connected") {
		t.Errorf("expected empty message, got %q", got)
	}

	now := time.Now()
	table := listenerTable([]ClientInfo{
		{Name: "newer", Since: now.Add(-time.Second)},
		{Name: "older", Since: now.Add(-time.Minute), Dropped: 3},
	})
	if strings.Index(table, "older") > strings.Index(table, "newer") {
		t.Errorf("expected oldest listener first:\n%s", table)
	}
	if !strings.Contains(table, "DROPPED") {
		t.Errorf("missing header:\n%s", table)
	}
}

func TestTUIModelChunkRate(t *testing.T) {
	m := tuiModel{startTime: time.Now(), quitChan: make(chan struct{}, 1)}

	next, _ := m.Update(statusMsg{Name: "srv", ChunksSent: 100})
	m = next.(tuiModel)
	m.lastAt = m.lastAt.Add(-2 * time.Second)

	next, _ = m.Update(statusMsg{Name: "srv", ChunksSent: 200, Streamed: 4 * time.Second})
	m = next.(tuiModel)
	if m.rate < 45 || m.rate > 50 {
		t.Errorf("expected about 50 chunks/s, got %.1f", m.rate)
	}
	view := m.View()
	if !strings.Contains(view, "Resonate Tone Server") {
		t.Error("view missing title")
	}
	if !strings.Contains(view, "4s") {
		t.Errorf("view missing streamed time:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much-too-long-name", 8, "much-to…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
