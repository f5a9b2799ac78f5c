// internal/httpserver/server.go
//
// HTTP server wiring for the devmemory backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Game endpoints (optional auth): /game/new, /game/{id}/..., WebSocket stream.
//   - Daily leaderboard under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The WebSocket route is mounted outside the request timeout.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/devmemory/apps/go-server/internal/catalog"
	"github.com/robalobadob/devmemory/apps/go-server/internal/config"
	"github.com/robalobadob/devmemory/apps/go-server/internal/game"
	"github.com/robalobadob/devmemory/apps/go-server/internal/metrics"
	"github.com/robalobadob/devmemory/apps/go-server/internal/results"
	"github.com/robalobadob/devmemory/apps/go-server/internal/store"
	"github.com/robalobadob/devmemory/apps/go-server/internal/users"
)

// Server bundles router, live sessions, and persistence.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	sessions store.Store
	results  *results.Store
	users    *users.Store
	glyphs   []string
	now      func() time.Time
	daily    *dailySessions

	// base context for session runners; cancelled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// timing knobs, overridable in tests
	tickInterval  time.Duration
	mismatchDelay time.Duration

	httpSrv *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithGlyphs overrides the symbol catalog.
func WithGlyphs(g []string) Option { return func(s *Server) { s.glyphs = g } }

// WithTiming overrides the clock period and mismatch delay.
func WithTiming(tick, mismatch time.Duration) Option {
	return func(s *Server) { s.tickInterval, s.mismatchDelay = tick, mismatch }
}

// WithClock overrides the wall clock used for dates.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, opts ...Option) *Server {
	s := &Server{
		r:             chi.NewRouter(),
		cfg:           cfg,
		sessions:      st,
		results:       results.NewStore(db),
		users:         users.NewStore(db),
		glyphs:        catalog.Glyphs(),
		now:           time.Now,
		daily:         newDailySessions(),
		tickInterval:  game.DefaultTickInterval,
		mismatchDelay: game.DefaultMismatchDelay,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.httpSrv = &http.Server{Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.corsFromConfig)

	// WebSocket stream: long-lived, so no timeout and no JSON header.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"devmemory-go","endpoints":["/health","POST /game/new","POST /game/{id}/select","POST /game/{id}/reset","GET /game/{id}/ws","/auth/*","/daily/leaderboard"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": s.sessions.Len(), "pairs": len(s.glyphs)})
		})
		r.Method(http.MethodGet, "/metrics", metrics.Handler())

		// Game endpoints: OPTIONAL AUTH (guests can play)
		r.With(s.withOptionalAuth()).Route("/game", s.mountGame)

		// Daily board: public
		r.Route("/daily", s.mountDaily)

		// Auth + profile/stats
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.httpSrv.Serve(ln)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Context is the parent context for session runners.
func (s *Server) Context() context.Context { return s.ctx }

// Shutdown stops accepting requests and stops every session runner
// started by this server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.cancel()
	log.Info().Msg("session runners cancelled")
	return err
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromConfig enables credentialed CORS for a single origin.
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

// writeError writes {"error": code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
