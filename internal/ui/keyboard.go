// ABOUTME: Polled key state built from terminal key presses
// ABOUTME: Terminals never report releases, so a key is down until its repeats stop
package ui

import (
	"sync"
	"time"
)

const (
	// DefaultHoldTimeout covers the gap between terminal auto-repeats
	DefaultHoldTimeout = 120 * time.Millisecond

	// DefaultRepeatDelay covers the pause before auto-repeat kicks in
	DefaultRepeatDelay = 400 * time.Millisecond
)

// Keyboard answers IsKeyDown from the timing of key press events
type Keyboard struct {
	hold        time.Duration
	repeatDelay time.Duration
	now         func() time.Time

	mu       sync.Mutex
	deadline map[string]time.Time
}

// NewKeyboard creates a keyboard; hold <= 0 selects DefaultHoldTimeout
func NewKeyboard(hold time.Duration) *Keyboard {
	if hold <= 0 {
		hold = DefaultHoldTimeout
	}
	delay := DefaultRepeatDelay
	if delay < hold {
		delay = hold
	}
	return &Keyboard{
		hold:        hold,
		repeatDelay: delay,
		now:         time.Now,
		deadline:    make(map[string]time.Time),
	}
}

// Press records a key press or auto-repeat
func (k *Keyboard) Press(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if d, ok := k.deadline[key]; ok && now.Before(d) {
		k.deadline[key] = now.Add(k.hold)
		return
	}
	// First press waits out the initial repeat delay
	k.deadline[key] = now.Add(k.repeatDelay)
}

// Release forgets a key immediately
func (k *Keyboard) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.deadline, key)
}

// IsKeyDown reports whether key was pressed recently enough to count as held
func (k *Keyboard) IsKeyDown(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	d, ok := k.deadline[key]
	if !ok {
		return false
	}
	if !k.now().Before(d) {
		delete(k.deadline, key)
		return false
	}
	return true
}
