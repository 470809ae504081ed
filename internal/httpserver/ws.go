package httpserver

import (
	"net/http"
	"strings"
	"time"

	"papertrader/internal/auth"
	"papertrader/internal/marketdata"
	"papertrader/internal/sessions"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 5 * time.Second

// StreamHandler serves a session's event stream: trades, signals, auto trader
// transitions, liquidations and quotes, merged onto one socket. Transient
// display behavior (auto-expiring notifications) is the client's concern; the
// stream carries only the underlying events.
type StreamHandler struct {
	authSvc  *auth.Service
	mgr      *sessions.Manager
	feed     *marketdata.Feed
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewStreamHandler(authSvc *auth.Service, mgr *sessions.Manager, feed *marketdata.Feed, origin string, log *zap.Logger) *StreamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHandler{
		authSvc: authSvc,
		mgr:     mgr,
		feed:    feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
		log: log,
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	// Allow both localhost and 127.0.0.1 variants for development
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WS dials, so the token rides the query.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	sessionID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	s, ok := h.mgr.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := s.Bus.Subscribe()
	defer s.Bus.Unsubscribe(events)
	quotes := h.feed.Subscribe()
	defer h.feed.Unsubscribe(quotes)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-s.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if h.write(conn, evt) != nil {
				return
			}
		case t, ok := <-quotes:
			if !ok {
				return
			}
			if h.write(conn, marketdata.Event{Type: marketdata.EventQuote, Data: t}) != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, evt marketdata.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(evt)
}
