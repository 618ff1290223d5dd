package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vroute/pkg/router"
)

// streamBuffer is how many states may queue for one client. When it is
// full the oldest queued state is dropped; clients only need the latest.
const streamBuffer = 16

// StreamMessage is one frame of the state stream.
type StreamMessage struct {
	Type  string       `json:"type"`
	State router.State `json:"state"`
	Href  string       `json:"href"`
}

// handleStream serves GET /ws: the current state, then every settled
// state the router publishes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.WebSocketError("upgrade")
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.metrics.WebSocketOpened()
	defer s.metrics.WebSocketClosed()

	updates := make(chan router.State, streamBuffer)
	cancel := s.router.Subscribe(func(st router.State) {
		select {
		case updates <- st:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- st:
		default:
		}
	})
	defer cancel()

	// Client frames are ignored; reading detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("state stream opened", "remote", r.RemoteAddr)

	if err := s.sendState(conn, s.router.State()); err != nil {
		return
	}

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.logger.Debug("state stream closed", "remote", r.RemoteAddr)
			return

		case <-s.closing:
			deadline := time.Now().Add(s.config.WriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
			return

		case st := <-updates:
			if err := s.sendState(conn, st); err != nil {
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.metrics.WebSocketError("ping")
				return
			}
		}
	}
}

func (s *Server) sendState(conn *websocket.Conn, st router.State) error {
	msg := StreamMessage{
		Type:  "state",
		State: st,
		Href:  s.router.History().CreateHref(st.Location),
	}
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.metrics.WebSocketError("write")
		s.logger.Debug("state stream write failed", "error", err)
		return err
	}
	s.metrics.WebSocketSent()
	return nil
}
