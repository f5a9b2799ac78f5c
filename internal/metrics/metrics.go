// Package metrics exposes game counters for Prometheus scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GamesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devmemory",
		Name:      "games_started_total",
		Help:      "Game sessions created, by mode.",
	}, []string{"mode"})

	GamesWon = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devmemory",
		Name:      "games_won_total",
		Help:      "Games finished with every pair matched, by mode.",
	}, []string{"mode"})

	Moves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devmemory",
		Name:      "moves_total",
		Help:      "Resolved pair attempts, by outcome.",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "devmemory",
		Name:      "active_sessions",
		Help:      "Game sessions currently held in memory.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "devmemory",
		Name:      "ws_connections",
		Help:      "Open presenter WebSocket connections.",
	})
)

// RecordMove counts one resolved pair.
func RecordMove(matched bool) {
	if matched {
		Moves.WithLabelValues("match").Inc()
		return
	}
	Moves.WithLabelValues("mismatch").Inc()
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
