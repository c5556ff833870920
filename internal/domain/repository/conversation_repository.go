package repository

import (
	"context"
	"time"

	"karsaz/internal/domain/entity"
)

type MessagePage struct {
	// Before is the ID of the oldest message already held by the client.
	Before string
	Limit  int
}

type MarkReadInput struct {
	ConversationID string
	ReaderID       string
	ReaderRole     entity.Role
	// MessageIDs narrows the update; empty means every unread message
	// addressed to the reader.
	MessageIDs []string
	ReadAt     time.Time
}

type MarkReadResult struct {
	MessageIDs []string
	// Unread is the reader-side counter after the update, recomputed from
	// the messages still unread.
	Unread int
}

type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	FindByTriple(ctx context.Context, adID, buyerID, sellerID string) (*entity.Conversation, error)
	// GetOrCreate returns the conversation for the triple, creating it when
	// absent. created reports which happened.
	GetOrCreate(ctx context.Context, conversation *entity.Conversation) (result *entity.Conversation, created bool, err error)
	ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	SetBlocked(ctx context.Context, conversationID string, role entity.Role, blocked bool) error
	SumUnread(ctx context.Context, userID string) (int, error)

	// AppendMessage persists message and, in the same atomic step, points the
	// conversation's last message at it and increments the receiver counter.
	AppendMessage(ctx context.Context, message *entity.Message, receiverRole entity.Role) error
	MarkRead(ctx context.Context, input MarkReadInput) (*MarkReadResult, error)
	ListMessages(ctx context.Context, conversationID string, page MessagePage) ([]*entity.Message, error)
	GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
}
