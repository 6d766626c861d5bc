// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start a daily game (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's daily code
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each user can play once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on win.
// The daily secret is deterministic: an HMAC of date + salt indexes the
// shared candidate universe, so every player cracks the same code.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dagsan/bullscows/go-server/internal/codes"
	"github.com/dagsan/bullscows/go-server/internal/daily"
	"github.com/dagsan/bullscows/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions and guess processing
}

// dailySession holds transient in-memory state for an in-progress daily game.
type dailySession struct {
	UserID    string
	Date      string
	CodeIndex int
	Game      *game.Game
	Start     time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// dateKeyNow returns today's date key, deterministic code index, and secret.
func (d *dailyServer) dateKeyNow() (date string, idx int, secret codes.Code) {
	now := time.Now().UTC()
	date = daily.DateKey(now)
	u := codes.Universe()
	idx = daily.CodeIndex(now, d.salt, len(u))
	return date, idx, u[idx]
}

// userIDWithAnon returns the authenticated user ID if logged in,
// otherwise ensures an anonymous ID via Server.ensureAnonID.
func (d *dailyServer) userIDWithAnon(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return d.srv.ensureAnonID(w, r)
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID    string  `json:"gameId"`
	Date      string  `json:"date"`
	Played    bool    `json:"played"`
	Remaining int     `json:"remaining,omitempty"`
	Entropy   float64 `json:"entropy,omitempty"`
}

// handleNew creates or reuses a daily session for the current date.
// - If user already has a DB row for today → return Played=true.
// - Otherwise create/reuse an in-memory session and return GameID.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)
	date, idx, secret := d.dateKeyNow()

	// Check if already played (persisted in DB).
	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: "", Date: date, Played: true})
		return
	}

	// Reuse or create session in memory.
	key := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok {
		sess = &dailySession{
			UserID:    uid,
			Date:      date,
			CodeIndex: idx,
			Game:      game.New(secret.String()),
			Start:     time.Now(),
		}
		d.sessions[key] = sess
	}
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(dailyNewRes{
		GameID:    sess.Game.ID,
		Date:      date,
		Played:    false,
		Remaining: sess.Game.Remaining(),
		Entropy:   sess.Game.Entropy(),
	})
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessReq is the request payload for /daily/guess.
type dailyGuessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

// handleGuess validates and applies a guess for today's daily session.
// - Ensures valid GameID for today's session.
// - Rejects with "locked" once the session is finished.
// - Scores via the same engine as free play, metrics included.
// - Persists result to DB if won.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)

	var p dailyGuessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if p.GameID == "" {
		http.Error(w, `{"error":"invalid"}`, http.StatusBadRequest)
		return
	}

	date, _, _ := d.dateKeyNow()

	// Find session; the lock also serializes guesses within it.
	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, ok := d.sessions[key]
	if !ok || sess.Game.ID != p.GameID {
		http.Error(w, `{"error":"no_session"}`, http.StatusConflict)
		return
	}

	fb, state, err := sess.Game.ApplyGuess(strings.TrimSpace(p.Guess))
	if err != nil {
		if errors.Is(err, game.ErrFinished) {
			_ = json.NewEncoder(w).Encode(guessRes{State: "locked", Attempts: sess.Game.Attempts})
			return
		}
		var verr *codes.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, `{"error":"`+verr.Msg+`"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	// Persist and return.
	if state == "won" {
		elapsed := int(time.Since(sess.Start).Milliseconds())
		_ = d.store.InsertResult(r.Context(), daily.Result{
			UserID: uid, Date: date, CodeIndex: sess.CodeIndex,
			Guesses: sess.Game.Attempts, ElapsedMs: elapsed,
		})
		_ = json.NewEncoder(w).Encode(guessRes{State: state, Attempts: fb.Attempts})
		return
	}
	_ = json.NewEncoder(w).Encode(guessRes{
		State:             state,
		Attempts:          fb.Attempts,
		Bulls:             &fb.Bulls,
		Cows:              &fb.Cows,
		MutualInformation: fb.MutualInformation,
		Entropy:           fb.Entropy,
		Remaining:         fb.Remaining,
	})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _, _ = d.dateKeyNow()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
