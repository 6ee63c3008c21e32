// ABOUTME: Computer keyboard piano layout
// ABOUTME: Maps the bottom two letter rows to semitones above a base frequency
package synth

import (
	"math"
	"strings"
)

// DefaultBaseFrequency is A2, the pitch of the z key
const DefaultBaseFrequency = 110.0

// NoteKeys are the piano keys from lowest to highest. White keys sit on the
// bottom row and black keys on the row above, one semitone apart.
const NoteKeys = "zsxcfvgbnjmk,l."

// NoteFrequency returns base * 2^(semitone/12)
func NoteFrequency(base float64, semitone int) float64 {
	return base * math.Pow(2, float64(semitone)/12)
}

// KeySemitone returns the semitone for a piano key
func KeySemitone(key rune) (int, bool) {
	i := strings.IndexRune(NoteKeys, key)
	if i < 0 {
		return 0, false
	}
	return i, true
}

// HeldFrequency scans every piano key and returns the frequency of the
// highest one held, or 0 when none is.
func HeldFrequency(base float64, isDown func(key rune) bool) float64 {
	freq := 0.0
	for i, key := range []rune(NoteKeys) {
		if isDown(key) {
			freq = NoteFrequency(base, i)
		}
	}
	return freq
}
