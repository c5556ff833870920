package router

import (
	"github.com/labstack/echo/v4"

	"karsaz/internal/adapter/api/middleware"
	"karsaz/internal/infrastructure/ratelimit"
)

// Setup registers every route. handler.Setup must have run first.
func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, messageLimiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e)
	SetupWebSocketRouter(e)
	SetupChatRouter(e, authMiddleware, messageLimiter)
}
