package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/claude/lightweight/internal/live"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const liveWriteTimeout = 5 * time.Second

// wsOriginPatterns turns the configured CORS origin into websocket origin
// host patterns. Empty keeps the same-origin check; "*" admits any origin.
func wsOriginPatterns(corsOrigin string) []string {
	switch corsOrigin {
	case "":
		return nil
	case "*":
		return []string{"*"}
	}
	if u, err := url.Parse(corsOrigin); err == nil && u.Host != "" {
		return []string{u.Host}
	}
	return []string{corsOrigin}
}

// handleLive streams store changes as JSON messages until the client goes
// away or the broker closes. Client messages are ignored.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.wsOrigins,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	changes, cancel := s.broker.Subscribe(live.DefaultBuffer)
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	log := s.log.With("id", requestIDFromContext(r), "user", userInfoFromContext(r).Login)
	log.Debug("live subscriber connected")

	for {
		select {
		case <-ctx.Done():
			log.Debug("live subscriber gone", "reason", context.Cause(ctx))
			return
		case c, ok := <-changes:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, done := context.WithTimeout(ctx, liveWriteTimeout)
			err := wsjson.Write(wctx, conn, c)
			done()
			if err != nil {
				log.Debug("live write failed", "error", err)
				return
			}
		}
	}
}
