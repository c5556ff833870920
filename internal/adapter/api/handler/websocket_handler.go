package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"karsaz/internal/adapter/api/middleware"
	ws "karsaz/internal/infrastructure/websocket"
	"karsaz/internal/usecase"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
	"karsaz/pkg/response"
)

type WebSocketHandler struct {
	auth     middleware.Authenticator
	sessions *ws.MessageHandler
	upgrader gorillaws.Upgrader
}

// NewWebSocketHandler accepts upgrades from allowedOrigins only. An empty
// list accepts any origin.
func NewWebSocketHandler(auth middleware.Authenticator, sessions *ws.MessageHandler, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		auth:     auth,
		sessions: sessions,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(strings.ToLower(origin), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]
		if !ok {
			logger.Security("websocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		}
		return ok
	}
}

// HandleWebSocket authenticates the handshake before upgrading. Rejected
// handshakes get a plain 401 and never become sockets.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := middleware.HandshakeToken(c.Request())

	var session usecase.Authenticated
	switch s := h.auth.Authenticate(c.Request().Context(), token, c.RealIP()).(type) {
	case usecase.Authenticated:
		session = s
	case usecase.Unauthenticated:
		return response.Error(c, s.Err())
	default:
		return response.Error(c, errors.Unauthorized("Authentication failed", nil))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logger.Warn("websocket upgrade failed", "user_id", session.User.ID, "error", err)
		return nil
	}

	logger.Info("websocket connected", "user_id", session.User.ID, "remote_addr", c.RealIP())
	h.sessions.Serve(conn, session.User)
	return nil
}
