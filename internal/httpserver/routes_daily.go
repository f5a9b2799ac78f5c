// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes two endpoints under /daily:
//   - GET /daily/status      → today's date and whether the caller already won it
//   - GET /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// A daily game is started through POST /game/new {mode:"daily"}; every player
// gets the same layout for the date. Each player gets one daily session per
// date: asking again resumes it, a ranked win ends it for the day, and the
// board cannot be reset. Only the first daily win per owner per date is
// ranked (enforced by the daily_results UNIQUE constraint).

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/devmemory/apps/go-server/internal/daily"
	"github.com/robalobadob/devmemory/apps/go-server/internal/results"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.With(s.withOptionalAuth()).Get("/status", s.handleDailyStatus)
	r.Get("/leaderboard", s.handleLeaderboard)
}

// dailyKey identifies one player's daily game.
type dailyKey struct {
	owner string
	date  string
}

// dailySessions remembers the daily session handed to each owner per date.
type dailySessions struct {
	mu    sync.Mutex          // guards byKey; held across lookup-or-create
	byKey map[dailyKey]string // → gameId
}

func newDailySessions() *dailySessions {
	return &dailySessions{byKey: make(map[dailyKey]string)}
}

// handleNewDaily resumes or starts the caller's daily game.
//   - Already ranked today → {date, played:true}, no game.
//   - Session handed out earlier and still live → same gameId.
//   - Session handed out earlier but gone (deleted/reaped) → 409.
func (s *Server) handleNewDaily(w http.ResponseWriter, r *http.Request, userID, anonID string) {
	now := s.now()
	date := daily.DateKey(now)
	owner := results.Result{UserID: userID, AnonymousID: anonID}.Owner()

	played, err := s.results.AlreadyPlayed(r.Context(), owner, date)
	if err != nil {
		log.Error().Err(err).Msg("daily played check")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		_ = json.NewEncoder(w).Encode(statusRes{Date: date, Played: true})
		return
	}

	// A guest who signed in mid-game keeps the game started under the cookie.
	keys := []dailyKey{{owner, date}}
	if userID != "" {
		if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
			keys = append(keys, dailyKey{c.Value, date})
		}
	}

	d := s.daily
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, k := range keys {
		id, ok := d.byKey[k]
		if !ok {
			continue
		}
		runner, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusConflict, "daily_abandoned")
			return
		}
		s.writeGame(w, r, runner, results.ModeDaily, date)
		return
	}

	for k := range d.byKey {
		if k.date != date {
			delete(d.byKey, k)
		}
	}
	runner, err := s.startGame(r.Context(), results.ModeDaily, userID, anonID, date, daily.NewRand(now, s.cfg.DailySalt))
	if err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.byKey[dailyKey{owner, date}] = runner.ID()
	s.writeGame(w, r, runner, results.ModeDaily, date)
}

// statusRes is returned by /daily/status and by a daily /game/new once played.
type statusRes struct {
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

// handleDailyStatus reports whether the caller already has a ranked result today.
func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	userID, anonID := s.ownerOf(w, r)
	owner := results.Result{UserID: userID, AnonymousID: anonID}.Owner()
	date := daily.DateKey(s.now())

	played, err := s.results.AlreadyPlayed(r.Context(), owner, date)
	if err != nil {
		log.Error().Err(err).Msg("daily status")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(statusRes{Date: date, Played: played})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string          `json:"date"`
	Top  []results.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	}
	rows, err := s.results.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
