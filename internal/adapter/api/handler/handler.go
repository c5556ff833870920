package handler

import (
	"karsaz/internal/adapter/api/middleware"
	ws "karsaz/internal/infrastructure/websocket"
	"karsaz/internal/usecase"
)

var (
	chatHandler      *ChatHandler
	webSocketHandler *WebSocketHandler
	healthHandler    *HealthHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	auth middleware.Authenticator,
	manager *ws.Manager,
	sessions *ws.MessageHandler,
	allowedOrigins []string,
) {
	chatHandler = NewChatHandler(chatUseCase)
	webSocketHandler = NewWebSocketHandler(auth, sessions, allowedOrigins)
	healthHandler = NewHealthHandler(manager)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
