package router

import (
	"github.com/labstack/echo/v4"

	"karsaz/internal/adapter/api/handler"
	"karsaz/internal/adapter/api/middleware"
	"karsaz/internal/infrastructure/ratelimit"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, messageLimiter *ratelimit.RateLimiter) {
	chatHandler := handler.GetChatHandler()

	messages := e.Group("/v1/messages")
	messages.Use(authMiddleware.Authenticate)

	messages.GET("/unread-count", chatHandler.UnreadCount)

	conversations := messages.Group("/conversations")
	conversations.GET("", chatHandler.ListConversations)
	conversations.POST("", chatHandler.StartConversation)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.PATCH("/:id/block", chatHandler.ToggleBlock)
	conversations.PATCH("/:id/read", chatHandler.MarkRead)
	conversations.GET("/:id/messages", chatHandler.ListMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage,
		middleware.RateLimit(messageLimiter, "Too many messages, please slow down"))
}
