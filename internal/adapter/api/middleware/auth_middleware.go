package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"karsaz/internal/usecase"
	"karsaz/pkg/errors"
	"karsaz/pkg/response"
)

const ContextKeyUserID = "uid"

type Authenticator interface {
	Authenticate(ctx context.Context, token, remoteAddr string) usecase.Session
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved user on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header != "" && BearerToken(c.Request()) == "" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		switch s := m.auth.Authenticate(c.Request().Context(), BearerToken(c.Request()), c.RealIP()).(type) {
		case usecase.Authenticated:
			c.Set(ContextKeyUserID, s.User.ID)
			return next(c)
		case usecase.Unauthenticated:
			return response.Error(c, s.Err())
		default:
			return response.Error(c, errors.Unauthorized("Authentication failed", nil))
		}
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// HandshakeToken is BearerToken with a fallback to the token query
// parameter, which browsers have to use for WebSocket upgrades.
func HandshakeToken(r *http.Request) string {
	if token := BearerToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// UserID returns the authenticated user ID, or "" outside the middleware.
func UserID(c echo.Context) string {
	uid, _ := c.Get(ContextKeyUserID).(string)
	return uid
}
