// internal/httpserver/ws.go
//
// WebSocket stream for a game session: GET /game/{id}/ws
//   - server → client: {"type":"snapshot","snapshot":{...}} on every state change
//     (selection, mismatch hide, clock tick, reset)
//   - client → server: {"type":"select","index":n} | {"type":"reset"}
//   - server → client: {"type":"error","error":"reset_locked"} when a daily
//     board refuses a reset
//
// One connection is one subscriber. The write pump owns all writes on the
// connection; the read pump only forwards commands to the session runner.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/devmemory/apps/go-server/internal/game"
	"github.com/robalobadob/devmemory/apps/go-server/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// wsIn is an inbound command.
type wsIn struct {
	Type  string `json:"type"`
	Index *int   `json:"index,omitempty"`
}

// wsOut is an outbound frame.
type wsOut struct {
	Type     string         `json:"type"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.cfg.ClientOrigin == "*" || origin == s.cfg.ClientOrigin
		},
	}
}

// handleWS upgrades the request and streams snapshots until either side leaves.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	runner, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		log.Warn().Err(err).Str("gameId", runner.ID()).Msg("ws upgrade")
		return
	}

	snaps, cancel, err := runner.Subscribe(s.ctx)
	if err != nil {
		_ = conn.WriteJSON(wsOut{Type: "error", Error: "game_stopped"})
		conn.Close()
		return
	}

	metrics.WSConnections.Inc()
	log.Debug().Str("gameId", runner.ID()).Msg("ws connected")

	notices := make(chan string, 4)
	go s.wsWritePump(conn, snaps, notices)
	s.wsReadPump(conn, runner, notices)

	cancel()
	metrics.WSConnections.Dec()
	log.Debug().Str("gameId", runner.ID()).Msg("ws disconnected")
}

// wsReadPump forwards inbound commands until the connection fails.
// Refused commands are reported through notices.
func (s *Server) wsReadPump(conn *websocket.Conn, runner *game.Runner, notices chan<- string) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("gameId", runner.ID()).Msg("ws read")
			}
			return
		}

		var in wsIn
		if err := json.Unmarshal(msg, &in); err != nil {
			log.Debug().Err(err).Str("gameId", runner.ID()).Msg("ws bad message")
			continue
		}

		switch in.Type {
		case "select":
			if in.Index == nil {
				continue
			}
			_, err = runner.SelectTile(s.ctx, *in.Index)
		case "reset":
			_, err = runner.Reset(s.ctx)
			if errors.Is(err, game.ErrResetLocked) {
				select {
				case notices <- "reset_locked":
				default:
				}
				continue
			}
		default:
			log.Debug().Str("type", in.Type).Msg("ws unknown message")
			continue
		}
		if err != nil {
			return
		}
	}
}

// wsWritePump writes snapshots and keepalive pings. It exits when the
// subscription closes, which happens on unsubscribe or runner stop.
func (s *Server) wsWritePump(conn *websocket.Conn, snaps <-chan game.Snapshot, notices <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snap, ok := <-snaps:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			snap = faceDown(snap)
			if err := conn.WriteJSON(wsOut{Type: "snapshot", Snapshot: &snap}); err != nil {
				return
			}
		case code := <-notices:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsOut{Type: "error", Error: code}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
