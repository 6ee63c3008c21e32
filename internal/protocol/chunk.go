// ABOUTME: Binary audio chunk framing
// ABOUTME: One type byte, a big-endian stream timestamp, then little-endian PCM
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const (
	// BinaryMessageHeaderSize is the type byte plus the 8 byte timestamp
	BinaryMessageHeaderSize = 1 + 8

	// AudioChunkMessageType identifies PCM audio chunks
	AudioChunkMessageType = 0
)

var (
	ErrShortChunk      = errors.New("binary message too short")
	ErrUnknownChunk    = errors.New("unknown binary message type")
	ErrOddSampleLength = errors.New("chunk payload is not whole 16-bit samples")
)

// AudioChunk is a block of interleaved samples starting at Timestamp
// microseconds of stream time
type AudioChunk struct {
	Timestamp int64
	Samples   []int16
}

// EncodeAudioChunk frames samples for a binary WebSocket message
func EncodeAudioChunk(timestamp int64, samples []int16) []byte {
	data := make([]byte, BinaryMessageHeaderSize+len(samples)*2)
	data[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(data[1:BinaryMessageHeaderSize], uint64(timestamp))
	audio.PutInt16LE(data[BinaryMessageHeaderSize:], samples)
	return data
}

// DecodeAudioChunk parses a binary WebSocket message
func DecodeAudioChunk(data []byte) (AudioChunk, error) {
	if len(data) < BinaryMessageHeaderSize {
		return AudioChunk{}, fmt.Errorf("%w: %d bytes", ErrShortChunk, len(data))
	}
	if data[0] != AudioChunkMessageType {
		return AudioChunk{}, fmt.Errorf("%w: %d", ErrUnknownChunk, data[0])
	}

	payload := data[BinaryMessageHeaderSize:]
	if len(payload)%2 != 0 {
		return AudioChunk{}, fmt.Errorf("%w: %d bytes", ErrOddSampleLength, len(payload))
	}

	return AudioChunk{
		Timestamp: int64(binary.BigEndian.Uint64(data[1:BinaryMessageHeaderSize])),
		Samples:   audio.Int16LE(payload),
	}, nil
}
