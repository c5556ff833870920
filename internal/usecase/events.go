package usecase

import (
	"time"

	"karsaz/internal/domain/entity"
)

// Payloads of the server to client events.

type NewMessagePayload struct {
	Message        *MessageView `json:"message"`
	ConversationID string       `json:"conversationId"`
}

type NotificationMessage struct {
	ID        string              `json:"id"`
	Content   string              `json:"content"`
	Sender    *entity.UserSummary `json:"sender"`
	CreatedAt time.Time           `json:"createdAt"`
}

type NotificationAd struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MessageNotificationPayload struct {
	ConversationID string              `json:"conversationId"`
	Message        NotificationMessage `json:"message"`
	Ad             NotificationAd      `json:"ad"`
}

type MessagesReadPayload struct {
	ConversationID string   `json:"conversationId"`
	ReadBy         string   `json:"readBy"`
	MessageIDs     []string `json:"messageIds"`
}

type TypingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
