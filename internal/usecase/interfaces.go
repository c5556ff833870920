package usecase

import "context"

// TokenVerifier checks a bearer credential and returns the user ID it was
// issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Server to client events.
const (
	EventNewMessage          = "new_message"
	EventMessageNotification = "message_notification"
	EventMessagesRead        = "messages_read"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
	EventPresenceUpdated     = "user_presence_updated"
	EventError               = "error"
)

type TargetKind int

const (
	TargetUser TargetKind = iota + 1
	TargetConversation
	TargetEveryone
)

// Target selects the connections an event is delivered to.
type Target struct {
	Kind TargetKind
	ID   string
	// ExceptConn skips one connection, usually the one that caused the event.
	ExceptConn string
}

func ToUser(userID string) Target {
	return Target{Kind: TargetUser, ID: userID}
}

func ToConversation(conversationID string) Target {
	return Target{Kind: TargetConversation, ID: conversationID}
}

func ToEveryone() Target {
	return Target{Kind: TargetEveryone}
}

func (t Target) Except(connID string) Target {
	t.ExceptConn = connID
	return t
}

// Publisher delivers server events to connected clients. The websocket hub
// implements it; use cases only ever see this port.
type Publisher interface {
	Publish(target Target, event string, payload any)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Target, string, any) {}
