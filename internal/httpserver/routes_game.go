// internal/httpserver/routes_game.go
//
// HTTP routes for game sessions (the presenter boundary).
//   - POST   /game/new          → start a session ({mode:"normal"|"daily"})
//   - GET    /game/{id}         → current snapshot
//   - POST   /game/{id}/select  → forward a tile selection ({index})
//   - POST   /game/{id}/reset   → deal a new board
//   - DELETE /game/{id}         → stop the session and release its clock
//
// Every response carries the full snapshot so a presenter can re-render
// from any single reply. Face-down tiles are sent without their glyph.
// Sessions live in memory; a win is recorded to the results store in the
// background. Daily sessions are one per player per date and cannot be reset.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/devmemory/apps/go-server/internal/daily"
	"github.com/robalobadob/devmemory/apps/go-server/internal/game"
	"github.com/robalobadob/devmemory/apps/go-server/internal/metrics"
	"github.com/robalobadob/devmemory/apps/go-server/internal/results"
	"github.com/robalobadob/devmemory/apps/go-server/internal/store"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/new", s.handleNewGame)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetGame)
		r.Post("/select", s.handleSelect)
		r.Post("/reset", s.handleReset)
		r.Delete("/", s.handleDeleteGame)
	})
}

type newGameReq struct {
	Mode string `json:"mode"` // "normal" | "daily"
}

type gameRes struct {
	GameID   string        `json:"gameId"`
	Mode     string        `json:"mode,omitempty"`
	Date     string        `json:"date,omitempty"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleNewGame creates and starts a session runner.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Mode == "" {
		req.Mode = results.ModeNormal
	}
	if req.Mode != results.ModeNormal && req.Mode != results.ModeDaily {
		writeError(w, http.StatusBadRequest, "invalid_mode")
		return
	}

	userID, anonID := s.ownerOf(w, r)
	if req.Mode == results.ModeDaily {
		s.handleNewDaily(w, r, userID, anonID)
		return
	}

	runner, err := s.startGame(r.Context(), results.ModeNormal, userID, anonID, daily.DateKey(s.now()), nil)
	if err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.writeGame(w, r, runner, results.ModeNormal, "")
}

// startGame builds a runner, starts its loop, and registers it.
func (s *Server) startGame(ctx context.Context, mode, userID, anonID, date string, newRand func() *rand.Rand) (*game.Runner, error) {
	id := store.NewID()
	runner := game.NewRunner(id, game.RunnerOptions{
		Options: game.Options{
			Glyphs:        s.glyphs,
			NewRand:       newRand,
			MismatchDelay: s.mismatchDelay,
			OnMove:        metrics.RecordMove,
			OnWin: func(snap game.Snapshot) {
				metrics.GamesWon.WithLabelValues(mode).Inc()
				go s.recordWin(results.Result{
					GameID:         id,
					UserID:         userID,
					AnonymousID:    anonID,
					Mode:           mode,
					Date:           date,
					Moves:          snap.MoveCount,
					ElapsedSeconds: snap.ElapsedSeconds,
				})
			},
		},
		TickInterval: s.tickInterval,
		LockBoard:    mode == results.ModeDaily,
	})
	go runner.Run(s.ctx)

	if err := s.sessions.Save(ctx, runner); err != nil {
		runner.Stop()
		return nil, err
	}
	metrics.GamesStarted.WithLabelValues(mode).Inc()
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	log.Info().Str("gameId", id).Str("mode", mode).Msg("game started")
	return runner, nil
}

// writeGame replies with the runner's current snapshot.
func (s *Server) writeGame(w http.ResponseWriter, r *http.Request, runner *game.Runner, mode, date string) {
	snap, err := runner.Snapshot(r.Context())
	if err != nil {
		s.writeRunnerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(gameRes{GameID: runner.ID(), Mode: mode, Date: date, Snapshot: faceDown(snap)})
}

// recordWin persists a finished game. Runs off the session loop.
func (s *Server) recordWin(res results.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.results.Insert(ctx, res); err != nil {
		log.Warn().Err(err).Str("gameId", res.GameID).Msg("record result")
		return
	}
	log.Info().Str("gameId", res.GameID).Int("moves", res.Moves).Int("elapsed", res.ElapsedSeconds).Msg("game won")
}

func (s *Server) runner(w http.ResponseWriter, r *http.Request) (*game.Runner, bool) {
	runner, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return runner, true
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(w, r)
	if !ok {
		return
	}
	snap, err := runner.Snapshot(r.Context())
	if err != nil {
		s.writeRunnerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(gameRes{GameID: runner.ID(), Snapshot: faceDown(snap)})
}

type selectReq struct {
	Index *int `json:"index"`
}

// handleSelect forwards a tile selection. Gated or out-of-range selections
// are not errors; the unchanged snapshot is returned.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(w, r)
	if !ok {
		return
	}
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	snap, err := runner.SelectTile(r.Context(), *req.Index)
	if err != nil {
		s.writeRunnerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(gameRes{GameID: runner.ID(), Snapshot: faceDown(snap)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(w, r)
	if !ok {
		return
	}
	snap, err := runner.Reset(r.Context())
	if err != nil {
		s.writeRunnerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(gameRes{GameID: runner.ID(), Snapshot: faceDown(snap)})
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) writeRunnerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrStopped):
		writeError(w, http.StatusGone, "game_stopped")
		return
	case errors.Is(err, game.ErrResetLocked):
		writeError(w, http.StatusConflict, "reset_locked")
		return
	}
	log.Warn().Err(err).Msg("runner call")
	writeError(w, http.StatusServiceUnavailable, "unavailable")
}

// faceDown returns a copy of snap with hidden tiles' glyphs blanked.
func faceDown(snap game.Snapshot) game.Snapshot {
	tiles := make([]game.TileView, len(snap.Tiles))
	for i, t := range snap.Tiles {
		if !t.Revealed && !t.Matched {
			t.Glyph = ""
		}
		tiles[i] = t
	}
	snap.Tiles = tiles
	return snap
}
