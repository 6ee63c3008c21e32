// ABOUTME: Stream protocol message type definitions
// ABOUTME: JSON control messages exchanged during the listener handshake
package protocol

// ProtocolVersion is sent in both hellos
const ProtocolVersion = 1

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeServerError = "server/error"
	TypeStreamStart = "stream/start"
	TypeStreamEnd   = "stream/end"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by listeners to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id,omitempty"` // server assigns one when empty
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerError rejects a handshake
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StreamStart notifies the listener of the stream format. Sent after the
// hello and again whenever the synth restarts with new parameters.
type StreamStart struct {
	Codec      string  `json:"codec"` // always "pcm"
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitDepth   int     `json:"bit_depth"`
	Waveform   string  `json:"waveform,omitempty"`
	Frequency  float64 `json:"frequency,omitempty"`
}

// StreamEnd tells listeners no more chunks will arrive until the next stream/start
type StreamEnd struct {
	Reason string `json:"reason,omitempty"`
}
