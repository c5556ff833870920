package router

import (
	"github.com/labstack/echo/v4"

	"karsaz/internal/adapter/api/handler"
)

// The socket endpoint authenticates the handshake itself.
func SetupWebSocketRouter(e *echo.Echo) {
	e.GET("/ws", handler.GetWebSocketHandler().HandleWebSocket)
}
