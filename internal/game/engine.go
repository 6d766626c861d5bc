// internal/game/engine.go
//
// Core game engine for a single Bulls & Cows session.
// Responsibilities:
//   - Create new games with a random (or fixed, for testing) 4-digit secret.
//   - Validate and apply guesses (length, digits, distinctness).
//   - Score guesses: bulls (right digit, right place) and cows (right digit,
//     wrong place).
//   - Maintain the consistent candidate set and report entropy / mutual
//     information for every processed guess.
//   - Track state transitions: playing → won.
//
// Notes:
//   - The candidate universe comes from the codes package and is shared,
//     read-only, across all sessions.
//   - Scoring and filtering are pure; all mutation happens in ApplyGuess.
//   - randomID() is a compact hex identifier for correlating server state.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/dagsan/bullscows/go-server/internal/codes"
)

// ErrFinished is returned for guesses submitted after the secret was found.
// It is not a validation error: the input may be well-formed, the session is
// simply over until an explicit reset.
var ErrFinished = errors.New("game finished")

// New constructs a new game instance.
// If withSecret is empty, a random secret is drawn from the universe;
// otherwise withSecret must parse as a valid code (testing hook — an invalid
// fixed secret falls back to a random draw).
func New(withSecret string) *Game {
	g := &Game{ID: randomID()}
	g.start(withSecret)
	return g
}

// Reset returns the game to the ready state: fresh secret, zero attempts,
// empty history, candidates restored to the full universe. The game ID is
// preserved so callers keep their handle.
func (g *Game) Reset() {
	g.start("")
}

// start (re)initializes secret and derived state. The universe itself is
// secret-independent and cached by the codes package, so a reset only
// re-slices it.
func (g *Game) start(withSecret string) {
	secret, err := codes.Parse(withSecret)
	if withSecret == "" || err != nil {
		secret = codes.Random()
	}
	g.Secret = secret
	g.Attempts = 0
	g.History = nil
	g.Candidates = codes.Universe()
	g.Finished = false
	g.Won = false
}

// ApplyGuess validates and scores a guess, mutating the game state.
// Returns: the feedback, the new state string ("playing"/"won"), or an error.
//
// Errors:
//   - ErrFinished if the session is already won.
//   - *codes.ValidationError for malformed input. Validation failures leave
//     every piece of state untouched: no attempt is counted, no history
//     entry is appended, the candidate set is unchanged.
//
// For a validated guess, in this exact order:
//  1. increment the attempt counter,
//  2. score bulls/cows against the true secret,
//  3. snapshot entropy of the current candidate set,
//  4. re-filter the full universe down to codes that would have produced
//     every (bulls, cows) observation recorded so far, this guess included,
//  5. compute the new entropy; mutual information is the drop between the
//     two snapshots,
//  6. append the guess and its feedback to the history,
//  7. transition to won when bulls = 4.
func (g *Game) ApplyGuess(raw string) (*Feedback, string, error) {
	if g.Finished {
		return nil, g.state(), ErrFinished
	}
	code, err := codes.Parse(raw)
	if err != nil {
		return nil, g.state(), err
	}

	g.Attempts++
	bulls, cows := Score(code, g.Secret)

	prev := entropyOf(len(g.Candidates))
	g.Candidates = g.filter(code, bulls, cows)
	cur := entropyOf(len(g.Candidates))

	fb := &Feedback{
		Bulls:             bulls,
		Cows:              cows,
		MutualInformation: round2(prev - cur),
		Entropy:           round2(cur),
		Remaining:         len(g.Candidates),
		Attempts:          g.Attempts,
	}
	g.History = append(g.History, Record{Guess: raw, Code: code, Feedback: fb})

	if bulls == codes.Length {
		g.Finished, g.Won = true, true
	}

	log.Debug().
		Str("gameId", g.ID).
		Str("guess", raw).
		Int("bulls", bulls).
		Int("cows", cows).
		Int("remaining", fb.Remaining).
		Float64("entropy", fb.Entropy).
		Float64("mutualInformation", fb.MutualInformation).
		Msg("guess processed")

	return fb, g.state(), nil
}

// state reports a coarse string representation of the current game state.
func (g *Game) state() string {
	if g.Finished {
		return "won"
	}
	return "playing"
}

// State is the exported form of state(), for the HTTP layer and tests.
func (g *Game) State() string { return g.state() }

// Remaining is the size of the consistent candidate set.
func (g *Game) Remaining() int { return len(g.Candidates) }

// Entropy reports the current uncertainty about the secret in bits,
// rounded for display. A fresh session reports log2(5040) ≈ 12.30.
func (g *Game) Entropy() float64 { return round2(entropyOf(len(g.Candidates))) }

// Score counts bulls and cows for a guess against a reference code.
//
// bulls: positions where guess and reference hold the same digit.
// cows:  digits present in both codes minus the bulls. Both codes carry
// pairwise-distinct digits, so the set intersection needs no multiset
// bookkeeping and Score is symmetric in its arguments.
func Score(guess, ref codes.Code) (bulls, cows int) {
	var inRef [10]bool
	for _, d := range ref {
		inRef[d] = true
	}
	shared := 0
	for i, d := range guess {
		if d == ref[i] {
			bulls++
		}
		if inRef[d] {
			shared++
		}
	}
	cows = shared - bulls
	return bulls, cows
}

// filter re-scans the full candidate universe and keeps the codes that,
// standing in as a hypothetical secret, would have yielded the identical
// (bulls, cows) feedback for every guess recorded so far plus the one being
// processed. Because each pass applies the whole constraint history the
// result is always a subset of the previous candidate set.
func (g *Game) filter(code codes.Code, bulls, cows int) []codes.Code {
	next := make([]codes.Code, 0, len(g.Candidates))
	for _, cand := range codes.Universe() {
		if !matches(cand, code, bulls, cows) {
			continue
		}
		ok := true
		for _, rec := range g.History {
			if !matches(cand, rec.Code, rec.Feedback.Bulls, rec.Feedback.Cows) {
				ok = false
				break
			}
		}
		if ok {
			next = append(next, cand)
		}
	}
	return next
}

// matches reports whether candidate-as-secret reproduces the observed
// feedback for a guess.
func matches(cand, guess codes.Code, bulls, cows int) bool {
	b, c := Score(guess, cand)
	return b == bulls && c == cows
}

// entropyOf is log2 of the candidate count, in bits.
// Defined as 0 at n=0 to avoid a log domain error; an empty candidate set
// cannot occur while scoring is self-consistent, since the true secret
// always reproduces its own feedback.
func entropyOf(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Log2(float64(n))
}

// round2 rounds to two decimal places for display; internal entropy
// arithmetic stays at full precision.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
