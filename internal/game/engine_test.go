package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagsan/bullscows/go-server/internal/codes"
)

func mustCode(t *testing.T, s string) codes.Code {
	t.Helper()
	c, err := codes.Parse(s)
	require.NoError(t, err)
	return c
}

func TestScoreSelfIsFourBulls(t *testing.T) {
	for i, c := range codes.Universe() {
		if i%97 != 0 { // sample the universe, full quadratic scans live elsewhere
			continue
		}
		b, cw := Score(c, c)
		require.Equal(t, 4, b, "code %v", c)
		require.Equal(t, 0, cw, "code %v", c)
	}
}

func TestScoreSymmetryAndBounds(t *testing.T) {
	u := codes.Universe()
	for i := 0; i < len(u); i += 211 {
		for j := 0; j < len(u); j += 367 {
			g, r := u[i], u[j]
			b1, c1 := Score(g, r)
			b2, c2 := Score(r, g)
			require.Equal(t, b1, b2, "bulls(%v,%v)", g, r)
			require.Equal(t, c1, c2, "cows(%v,%v)", g, r)
			require.LessOrEqual(t, b1+c1, 4)
			require.GreaterOrEqual(t, b1, 0)
			require.GreaterOrEqual(t, c1, 0)
			if b1 == 4 {
				require.Equal(t, g, r)
			}
		}
	}
}

func TestScoreKnownPairs(t *testing.T) {
	cases := []struct {
		guess, ref  string
		bulls, cows int
	}{
		{"1234", "1234", 4, 0},
		{"4321", "1234", 0, 4},
		{"1243", "1234", 2, 2},
		{"1567", "1234", 1, 0},
		{"5678", "1234", 0, 0},
		{"2134", "1234", 2, 2},
		{"1235", "1234", 3, 0},
	}
	for _, tc := range cases {
		b, c := Score(mustCode(t, tc.guess), mustCode(t, tc.ref))
		assert.Equal(t, tc.bulls, b, "bulls(%s,%s)", tc.guess, tc.ref)
		assert.Equal(t, tc.cows, c, "cows(%s,%s)", tc.guess, tc.ref)
	}
}

func TestNewFreshSession(t *testing.T) {
	g := New("")
	assert.Equal(t, "playing", g.State())
	assert.Equal(t, 0, g.Attempts)
	assert.Empty(t, g.History)
	assert.Equal(t, codes.UniverseSize, g.Remaining())
	assert.InDelta(t, 12.30, g.Entropy(), 0.001)
	assert.NotEmpty(t, g.ID)
}

func TestWinFirstTry(t *testing.T) {
	g := New("1234")
	fb, state, err := g.ApplyGuess("1234")
	require.NoError(t, err)
	assert.Equal(t, "won", state)
	assert.Equal(t, 4, fb.Bulls)
	assert.Equal(t, 0, fb.Cows)
	assert.Equal(t, 1, fb.Attempts)
	assert.True(t, g.Won)
	// only the secret itself remains consistent with 4 bulls
	assert.Equal(t, 1, g.Remaining())
	assert.Equal(t, 0.0, fb.Entropy)
}

func TestAllCows(t *testing.T) {
	g := New("1234")
	fb, state, err := g.ApplyGuess("4321")
	require.NoError(t, err)
	assert.Equal(t, "playing", state)
	assert.Equal(t, 0, fb.Bulls)
	assert.Equal(t, 4, fb.Cows)
}

func TestValidationLeavesStateUntouched(t *testing.T) {
	g := New("1234")
	for _, bad := range []string{"123", "12a3", "1123", "", "12345"} {
		before := g.Remaining()
		fb, state, err := g.ApplyGuess(bad)
		require.Error(t, err, "guess %q", bad)
		var verr *codes.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Nil(t, fb)
		assert.Equal(t, "playing", state)
		assert.Equal(t, 0, g.Attempts)
		assert.Empty(t, g.History)
		assert.Equal(t, before, g.Remaining())
	}
}

func TestValidationIdempotent(t *testing.T) {
	g := New("1234")
	_, _, err1 := g.ApplyGuess("1123")
	_, _, err2 := g.ApplyGuess("1123")
	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1.Error(), err2.Error())
	assert.Equal(t, 0, g.Attempts)
}

func TestGuessAfterWinRejected(t *testing.T) {
	g := New("1234")
	_, _, err := g.ApplyGuess("1234")
	require.NoError(t, err)
	_, state, err := g.ApplyGuess("5678")
	require.ErrorIs(t, err, ErrFinished)
	assert.Equal(t, "won", state)
	assert.Equal(t, 1, g.Attempts)
}

func TestCandidateInvariants(t *testing.T) {
	g := New("0123")
	prevRemaining := g.Remaining()
	prevEntropy := g.Entropy()

	for _, guess := range []string{"4567", "8901", "2345", "0132", "0123"} {
		fb, _, err := g.ApplyGuess(guess)
		require.NoError(t, err)

		// candidate set never regrows
		assert.LessOrEqual(t, fb.Remaining, prevRemaining, "after %q", guess)
		// the true secret is never filtered out
		assert.Contains(t, g.Candidates, g.Secret, "after %q", guess)
		// entropy non-negative, mutual information non-negative
		assert.GreaterOrEqual(t, fb.Entropy, 0.0)
		assert.GreaterOrEqual(t, fb.MutualInformation, 0.0)
		// mutual information is the entropy drop, up to display rounding
		assert.InDelta(t, prevEntropy-fb.Entropy, fb.MutualInformation, 0.02, "after %q", guess)

		prevRemaining = fb.Remaining
		prevEntropy = fb.Entropy
	}
	assert.Equal(t, "won", g.State())
}

func TestEntropyMatchesCandidateCount(t *testing.T) {
	g := New("9876")
	fb, _, err := g.ApplyGuess("0123")
	require.NoError(t, err)
	want := math.Round(math.Log2(float64(fb.Remaining))*100) / 100
	assert.Equal(t, want, fb.Entropy)
}

func TestHistoryRecordsFeedback(t *testing.T) {
	g := New("1234")
	_, _, err := g.ApplyGuess("5678")
	require.NoError(t, err)
	_, _, err = g.ApplyGuess("1234")
	require.NoError(t, err)

	require.Len(t, g.History, 2)
	assert.Equal(t, "5678", g.History[0].Guess)
	assert.Equal(t, 0, g.History[0].Feedback.Bulls)
	assert.Equal(t, "1234", g.History[1].Guess)
	assert.Equal(t, 4, g.History[1].Feedback.Bulls)
}

func TestReset(t *testing.T) {
	g := New("1234")
	_, _, err := g.ApplyGuess("1234")
	require.NoError(t, err)
	require.True(t, g.Finished)

	id := g.ID
	g.Reset()
	assert.Equal(t, id, g.ID, "reset keeps the session handle")
	assert.Equal(t, "playing", g.State())
	assert.Equal(t, 0, g.Attempts)
	assert.Empty(t, g.History)
	assert.Equal(t, codes.UniverseSize, g.Remaining())
}

func TestFixedSecretFallsBackWhenInvalid(t *testing.T) {
	g := New("11x2")
	_, err := codes.Parse(g.Secret.String())
	require.NoError(t, err, "fallback secret must be a valid code")
}
