package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haskel/ensemblr/internal/apperr"
	"github.com/haskel/ensemblr/internal/training"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin allows clients without an Origin header, same-host pages and
// the configured allowlist.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	s.logger.Warn("rejecting training stream origin", "origin", origin, "host", r.Host)
	return false
}

// streamMessage is one frame on the training stream. The first frame is
// always a status snapshot.
type streamMessage struct {
	Type   string               `json:"type"`
	Status *training.StatusView `json:"status,omitempty"`
	Event  any                  `json:"event,omitempty"`
}

func (s *Server) handleTrainingStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "Training stream is disabled",
			Kind:  string(apperr.KindInternal),
		})
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.deps.Events.Subscribe()
	defer func() {
		unsubscribe()
		s.logger.Debug("training stream closed",
			"subscribers", s.deps.Events.Subscribers(),
			"dropped_events", s.deps.Events.Dropped(),
		)
	}()

	// The client only sends control frames; reading is needed to see them.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	status := s.deps.Orchestrator.Status(r.Context())
	if err := s.writeFrame(conn, streamMessage{Type: "status", Status: &status}); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.writeFrame(conn, streamMessage{Type: "event", Event: e}); err != nil {
				s.logger.Debug("training stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, msg streamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}
