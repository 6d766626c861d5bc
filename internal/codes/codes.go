// internal/codes/codes.go
//
// Code alphabet for the Bulls & Cows engine.
//
// Responsibilities:
//   - Define the Code type: an ordered 4-digit sequence over 0–9 with
//     pairwise-distinct digits.
//   - Parse and validate raw guess text into a Code.
//   - Enumerate the candidate universe (all 5040 valid codes) exactly once
//     and share it read-only across sessions and resets.
//   - Supply utility functions like Random and Stats.
//
// Constraints:
//   • Codes are exactly Length digits, each 0–9, all distinct.
//   • The universe is secret-independent, so enumeration runs once (sync.Once)
//     for the process lifetime.

package codes

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// Length is the number of digits in a code.
const Length = 4

// UniverseSize is 10·9·8·7: ordered draws of 4 distinct digits.
const UniverseSize = 5040

// Code is an ordered sequence of 4 distinct decimal digits.
// Order matters: positional matches are what bulls count.
type Code [Length]uint8

// ValidationError reports a malformed guess. It is always recoverable:
// the caller may correct the input and resubmit.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Parse converts raw guess text into a Code.
//
// Validation rules, checked in order:
//   - exactly 4 characters,
//   - every character a decimal digit,
//   - all digits pairwise distinct.
//
// Any violation returns a *ValidationError with a stable message for the
// same input; Parse never has side effects.
func Parse(raw string) (Code, error) {
	var c Code
	if len(raw) != Length {
		return c, &ValidationError{Msg: "guess must be exactly 4 digits"}
	}
	var seen [10]bool
	for i := 0; i < Length; i++ {
		ch := raw[i]
		if ch < '0' || ch > '9' {
			return c, &ValidationError{Msg: "guess must contain only digits 0-9"}
		}
		d := ch - '0'
		if seen[d] {
			return c, &ValidationError{Msg: "guess digits must all be different"}
		}
		seen[d] = true
		c[i] = d
	}
	return c, nil
}

// String renders the code back as 4 ASCII digits.
func (c Code) String() string {
	b := make([]byte, Length)
	for i, d := range c {
		b[i] = '0' + d
	}
	return string(b)
}

var (
	universeOnce sync.Once
	universe     []Code
)

// Universe returns all 5040 codes with pairwise-distinct digits.
// The slice is built once and shared; callers must treat it as read-only.
func Universe() []Code {
	universeOnce.Do(func() {
		universe = make([]Code, 0, UniverseSize)
		for a := 0; a < 10; a++ {
			for b := 0; b < 10; b++ {
				if b == a {
					continue
				}
				for c := 0; c < 10; c++ {
					if c == a || c == b {
						continue
					}
					for d := 0; d < 10; d++ {
						if d == a || d == b || d == c {
							continue
						}
						universe = append(universe, Code{uint8(a), uint8(b), uint8(c), uint8(d)})
					}
				}
			}
		}
	})
	return universe
}

// Random returns a cryptographically random code: a uniform permutation
// draw from the universe (order matters, so this is not a combination draw).
func Random() Code {
	u := Universe()
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(u))))
	return u[nBig.Int64()]
}

// Stats returns the universe size, for diagnostics endpoints.
func Stats() int {
	return len(Universe())
}
