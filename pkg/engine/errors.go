// ABOUTME: Error kinds reported by the streaming engine
// ABOUTME: Configuration, device and streaming failures plus state errors
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig matches every *ConfigError
	ErrInvalidConfig = errors.New("invalid stream configuration")

	// ErrDevice matches every *DeviceError
	ErrDevice = errors.New("output device error")

	// ErrStreaming matches every *StreamError
	ErrStreaming = errors.New("streaming error")

	// ErrNotRunning is returned by operations that need a running engine
	ErrNotRunning = errors.New("engine not running")

	// ErrAlreadyRunning is returned by Start on a running engine
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNotQueued is returned when a block is released without being submitted
	ErrNotQueued = errors.New("block not queued")
)

// ConfigError reports an invalid stream parameter
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// DeviceError reports a sink that could not be opened
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("failed to open output: %v", e.Err)
}

func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// StreamError reports a block submission that failed mid-stream
type StreamError struct {
	Block int
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("failed to submit block %d: %v", e.Block, e.Err)
}

func (e *StreamError) Is(target error) bool {
	return target == ErrStreaming
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
