package httpserver_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagsan/bullscows/go-server/internal/codes"
	"github.com/dagsan/bullscows/go-server/internal/daily"
	"github.com/dagsan/bullscows/go-server/internal/httpserver"
	"github.com/dagsan/bullscows/go-server/internal/store"
)

const testSchema = `
CREATE TABLE users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    games_played  INTEGER NOT NULL DEFAULT 0,
    wins          INTEGER NOT NULL DEFAULT 0,
    streak        INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE games (
    id           TEXT PRIMARY KEY,
    user_id      TEXT REFERENCES users(id),
    anonymous_id TEXT,
    started_at   TEXT NOT NULL,
    finished_at  TEXT,
    status       TEXT NOT NULL DEFAULT 'playing',
    guesses      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE daily_results (
    user_id    TEXT NOT NULL,
    date       TEXT NOT NULL,
    code_index INTEGER NOT NULL,
    guesses    INTEGER NOT NULL,
    elapsed_ms INTEGER NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(user_id, date)
);`

// newTestServer spins up the full router over an in-memory SQLite database
// and returns a client with a cookie jar (anon + auth cookies need to stick).
func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // one shared in-memory connection
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	srv := httpserver.New(store.NewMemoryStore(), db)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body any, out any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := c.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func getJSON(t *testing.T, c *http.Client, url string, out any) *http.Response {
	t.Helper()
	res, err := c.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

type newGameRes struct {
	GameID    string  `json:"gameId"`
	Remaining int     `json:"remaining"`
	Entropy   float64 `json:"entropy"`
}

type guessRes struct {
	State             string  `json:"state"`
	Attempts          int     `json:"attempts"`
	Bulls             *int    `json:"bulls"`
	Cows              *int    `json:"cows"`
	MutualInformation float64 `json:"mutualInformation"`
	Entropy           float64 `json:"entropy"`
	Remaining         int     `json:"remaining"`
}

type stateRes struct {
	GameID    string  `json:"gameId"`
	State     string  `json:"state"`
	Attempts  int     `json:"attempts"`
	Remaining int     `json:"remaining"`
	Entropy   float64 `json:"entropy"`
	History   []struct {
		Guess    string `json:"guess"`
		Feedback struct {
			Bulls int `json:"bulls"`
			Cows  int `json:"cows"`
		} `json:"feedback"`
	} `json:"history"`
}

func TestHealth(t *testing.T) {
	ts, c := newTestServer(t)
	res := getJSON(t, c, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestNewGameGuessWin(t *testing.T) {
	ts, c := newTestServer(t)

	var ng newGameRes
	res := postJSON(t, c, ts.URL+"/game/new", map[string]string{"secret": "1234"}, &ng)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, ng.GameID)
	assert.Equal(t, 5040, ng.Remaining)
	assert.InDelta(t, 12.30, ng.Entropy, 0.001)

	var g1 guessRes
	res = postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": "4321"}, &g1)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "playing", g1.State)
	require.NotNil(t, g1.Bulls)
	require.NotNil(t, g1.Cows)
	assert.Equal(t, 0, *g1.Bulls)
	assert.Equal(t, 4, *g1.Cows)
	assert.Equal(t, 1, g1.Attempts)
	assert.Greater(t, g1.MutualInformation, 0.0)
	assert.Less(t, g1.Remaining, 5040)

	var g2 guessRes
	res = postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": "1234"}, &g2)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "won", g2.State)
	assert.Equal(t, 2, g2.Attempts)
	assert.Nil(t, g2.Bulls, "win payload carries only state and attempts")

	var st stateRes
	res = getJSON(t, c, ts.URL+"/game/"+ng.GameID, &st)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "won", st.State)
	assert.Equal(t, 2, st.Attempts)
	require.Len(t, st.History, 2)
	assert.Equal(t, "4321", st.History[0].Guess)
	assert.Equal(t, 4, st.History[1].Feedback.Bulls)
}

func TestGuessValidation(t *testing.T) {
	ts, c := newTestServer(t)

	var ng newGameRes
	postJSON(t, c, ts.URL+"/game/new", map[string]string{"secret": "1234"}, &ng)

	for _, bad := range []string{"123", "12a3", "1123"} {
		res := postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": bad}, nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, "guess %q", bad)
	}

	// rejected guesses never touch the session
	var st stateRes
	getJSON(t, c, ts.URL+"/game/"+ng.GameID, &st)
	assert.Equal(t, 0, st.Attempts)
	assert.Equal(t, 5040, st.Remaining)
	assert.Empty(t, st.History)
}

func TestGuessUnknownGame(t *testing.T) {
	ts, c := newTestServer(t)
	res := postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": "missing", "guess": "1234"}, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGuessAfterWinConflicts(t *testing.T) {
	ts, c := newTestServer(t)

	var ng newGameRes
	postJSON(t, c, ts.URL+"/game/new", map[string]string{"secret": "1234"}, &ng)
	postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": "1234"}, nil)

	res := postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": "5678"}, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestReset(t *testing.T) {
	ts, c := newTestServer(t)

	var ng newGameRes
	postJSON(t, c, ts.URL+"/game/new", map[string]string{"secret": "1234"}, &ng)
	postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": "1234"}, nil)

	var rr newGameRes
	res := postJSON(t, c, ts.URL+"/game/reset", map[string]string{"gameId": ng.GameID}, &rr)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ng.GameID, rr.GameID)
	assert.Equal(t, 5040, rr.Remaining)

	var st stateRes
	getJSON(t, c, ts.URL+"/game/"+ng.GameID, &st)
	assert.Equal(t, "playing", st.State)
	assert.Equal(t, 0, st.Attempts)
}

func TestAuthAndStats(t *testing.T) {
	ts, c := newTestServer(t)

	creds := map[string]string{"username": "crackerjack", "password": "letmein-123"}
	res := postJSON(t, c, ts.URL+"/auth/signup", creds, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var me struct {
		Username string `json:"username"`
	}
	res = getJSON(t, c, ts.URL+"/auth/me", &me)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "crackerjack", me.Username)

	// win a game while authenticated → stats bump
	var ng newGameRes
	postJSON(t, c, ts.URL+"/game/new", map[string]string{"secret": "1234"}, &ng)
	postJSON(t, c, ts.URL+"/game/guess", map[string]string{"gameId": ng.GameID, "guess": "1234"}, nil)

	var stats struct {
		GamesPlayed int `json:"gamesPlayed"`
		Wins        int `json:"wins"`
		Streak      int `json:"streak"`
	}
	res = getJSON(t, c, ts.URL+"/stats/me", &stats)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Streak)

	// wrong password rejected
	res = postJSON(t, c, ts.URL+"/auth/login", map[string]string{"username": "crackerjack", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	ts, c := newTestServer(t)
	res := getJSON(t, c, ts.URL+"/stats/me", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestDailyFlow(t *testing.T) {
	ts, c := newTestServer(t)

	// the daily secret is deterministic: recompute it the way the server does
	idx := daily.CodeIndex(time.Now().UTC(), "local_dev_salt", codes.UniverseSize)
	secret := codes.Universe()[idx].String()

	var nr struct {
		GameID string `json:"gameId"`
		Date   string `json:"date"`
		Played bool   `json:"played"`
	}
	res := postJSON(t, c, ts.URL+"/daily/new", map[string]string{}, &nr)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.False(t, nr.Played)
	require.NotEmpty(t, nr.GameID)

	var win guessRes
	res = postJSON(t, c, ts.URL+"/daily/guess", map[string]string{"gameId": nr.GameID, "guess": secret}, &win)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "won", win.State)
	assert.Equal(t, 1, win.Attempts)

	// a second /daily/new the same day reports played
	res = postJSON(t, c, ts.URL+"/daily/new", map[string]string{}, &nr)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, nr.Played)

	var lb struct {
		Date string `json:"date"`
		Top  []struct {
			Guesses int `json:"guesses"`
		} `json:"top"`
	}
	res = getJSON(t, c, ts.URL+"/daily/leaderboard", &lb)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, lb.Top, 1)
	assert.Equal(t, 1, lb.Top[0].Guesses)
}

func TestDebugCodes(t *testing.T) {
	ts, c := newTestServer(t)
	var out map[string]int
	res := getJSON(t, c, ts.URL+"/debug/codes", &out)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 5040, out["universe"])
}

func TestNotFoundIsJSON(t *testing.T) {
	ts, c := newTestServer(t)
	res, err := c.Get(fmt.Sprintf("%s/nope", ts.URL))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
