// internal/game/types.go
//
// Core type definitions for the Bulls & Cows game engine.
// Defines:
//   - Feedback: the scored result of one processed guess.
//   - Record: one history entry (raw guess plus its recorded feedback).
//   - Game: state for a single in-progress or finished session.

package game

import "github.com/dagsan/bullscows/go-server/internal/codes"

// Feedback holds everything the engine reports for one validated guess.
// Bulls/Cows come from scoring against the true secret; Entropy and
// MutualInformation describe the consistent candidate set, rounded to two
// decimal places for display.
type Feedback struct {
	Bulls             int     `json:"bulls"`
	Cows              int     `json:"cows"`
	MutualInformation float64 `json:"mutualInformation"`
	Entropy           float64 `json:"entropy"`
	Remaining         int     `json:"remaining"` // size of the consistent candidate set
	Attempts          int     `json:"attempts"`
}

// Record is one append-only history entry: the guess as submitted,
// the parsed code, and the feedback it produced.
type Record struct {
	Guess    string     `json:"guess"`
	Code     codes.Code `json:"-"`
	Feedback *Feedback  `json:"feedback"`
}

// Game holds the state of a single Bulls & Cows session.
// Each session is an independently constructed value with its own secret,
// candidate set, and counters; nothing here is process-wide.
type Game struct {
	ID         string       // Unique game identifier (random hex string).
	Secret     codes.Code   // The hidden code. Never serialized to clients.
	Attempts   int          // Validated guesses so far; validation failures don't count.
	History    []Record     // Guesses in submission order.
	Candidates []codes.Code // Codes still consistent with all feedback so far.
	Finished   bool         // True once the secret has been guessed.
	Won        bool         // Mirrors Finished; kept for symmetry with state().
}
