package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"karsaz/internal/domain/entity"
	"karsaz/internal/usecase"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
	"karsaz/pkg/validation"
)

// Client to server events.
const (
	MessageTypePing              = "ping"
	MessageTypeJoinConversation  = "join_conversation"
	MessageTypeLeaveConversation = "leave_conversation"
	MessageTypeSendMessage       = "send_message"
	MessageTypeMarkMessagesRead  = "mark_messages_read"
	MessageTypeTypingStart       = "typing_start"
	MessageTypeTypingStop        = "typing_stop"
	MessageTypeUpdatePresence    = "update_presence"
)

// Server to client events that only the originating connection sees.
const (
	EventPong               = "pong"
	EventConversationJoined = "conversation_joined"
	EventConversationLeft   = "conversation_left"
)

const eventTimeout = 10 * time.Second

// ConversationRef is the payload of join/leave/typing events. A bare JSON
// string is accepted as the conversation ID.
type ConversationRef struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

func (r *ConversationRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ConversationID)
	}
	type plain ConversationRef
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode((*plain)(r))
}

type SendMessageData struct {
	ConversationID string              `json:"conversationId" validate:"required"`
	Content        string              `json:"content" validate:"required,max=2000"`
	MessageType    string              `json:"messageType,omitempty" validate:"omitempty,oneof=TEXT IMAGE DOCUMENT LOCATION CONTACT"`
	Attachments    []entity.Attachment `json:"attachments,omitempty"`
}

type MarkReadData struct {
	ConversationID string   `json:"conversationId" validate:"required"`
	MessageIDs     []string `json:"messageIds,omitempty" validate:"omitempty,dive,required"`
}

type PresenceData struct {
	Status string `json:"status" validate:"required,oneof=online away busy"`
}

// ChatService is what the socket layer needs from the message dispatcher.
type ChatService interface {
	JoinConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error)
	SendMessage(ctx context.Context, senderID string, input usecase.SendMessageInput) (*usecase.MessageView, error)
	MarkMessagesRead(ctx context.Context, readerID string, input usecase.MarkReadInput) (*usecase.ReadReceipt, error)
}

type PresenceService interface {
	Connected(ctx context.Context, userID, connID string)
	Disconnected(ctx context.Context, userID, connID string)
	UpdatePresence(userID, connID, status string) error
}

// MessageHandler runs the event loop of authenticated connections.
type MessageHandler struct {
	manager    *Manager
	chat       ChatService
	presence   PresenceService
	validate   *validator.Validate
	sendBuffer int
}

func NewMessageHandler(manager *Manager, chat ChatService, presence PresenceService, sendBuffer int) *MessageHandler {
	return &MessageHandler{
		manager:    manager,
		chat:       chat,
		presence:   presence,
		validate:   validation.New(),
		sendBuffer: sendBuffer,
	}
}

// Serve owns conn until it closes. The caller has already authenticated
// user; Serve blocks for the lifetime of the connection.
func (h *MessageHandler) Serve(conn *websocket.Conn, user *entity.User) {
	client := NewClient(user.ID, conn, h.sendBuffer)
	log := logger.With("conn_id", client.ID, "user_id", client.UserID)
	h.manager.Register(client)
	h.presence.Connected(context.Background(), client.UserID, client.ID)

	opened := time.Now()
	go client.WritePump()
	client.ReadPump(h.HandleMessage)

	if h.manager.Unregister(client) {
		h.presence.Disconnected(context.Background(), client.UserID, client.ID)
	}
	log.Info("websocket session closed", "duration", time.Since(opened).Round(time.Millisecond).String())
}

// HandleMessage decodes and dispatches one inbound frame. Every failure is
// reported to the originating connection only.
func (h *MessageHandler) HandleMessage(c *Client, raw []byte) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(c, "Invalid message format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch msg.Type {
	case MessageTypePing:
		h.manager.SendTo(c, EventPong, nil)
	case MessageTypeJoinConversation:
		h.handleJoin(ctx, c, msg.Data)
	case MessageTypeLeaveConversation:
		h.handleLeave(c, msg.Data)
	case MessageTypeSendMessage:
		h.handleSendMessage(ctx, c, msg.Data)
	case MessageTypeMarkMessagesRead:
		h.handleMarkRead(ctx, c, msg.Data)
	case MessageTypeTypingStart:
		h.handleTyping(c, msg.Data, usecase.EventUserTyping)
	case MessageTypeTypingStop:
		h.handleTyping(c, msg.Data, usecase.EventUserStoppedTyping)
	case MessageTypeUpdatePresence:
		h.handlePresence(c, msg.Data)
	default:
		logger.Debug("unknown websocket event", "conn_id", c.ID, "type", msg.Type)
		h.sendError(c, "Unknown event type: "+msg.Type)
	}
}

// decode strictly unmarshals data into dst and validates it.
func (h *MessageHandler) decode(c *Client, data json.RawMessage, dst any) bool {
	if len(data) == 0 {
		h.sendError(c, "Missing event payload")
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.sendError(c, "Invalid event payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.sendError(c, validation.Message(err))
		return false
	}
	return true
}

func (h *MessageHandler) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	var ref ConversationRef
	if !h.decode(c, data, &ref) {
		return
	}
	if _, err := h.chat.JoinConversation(ctx, c.UserID, ref.ConversationID); err != nil {
		h.fail(c, err, "Failed to join conversation")
		return
	}
	h.manager.JoinRoom(c, ref.ConversationID)
	h.manager.SendTo(c, EventConversationJoined, ref)
}

func (h *MessageHandler) handleLeave(c *Client, data json.RawMessage) {
	var ref ConversationRef
	if !h.decode(c, data, &ref) {
		return
	}
	h.manager.LeaveRoom(c, ref.ConversationID)
	h.manager.SendTo(c, EventConversationLeft, ref)
}

func (h *MessageHandler) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var in SendMessageData
	if !h.decode(c, data, &in) {
		return
	}
	_, err := h.chat.SendMessage(ctx, c.UserID, usecase.SendMessageInput{
		ConversationID: in.ConversationID,
		Content:        in.Content,
		MessageType:    entity.MessageType(in.MessageType),
		Attachments:    in.Attachments,
	})
	if err != nil {
		h.fail(c, err, "Failed to send message")
	}
}

func (h *MessageHandler) handleMarkRead(ctx context.Context, c *Client, data json.RawMessage) {
	var in MarkReadData
	if !h.decode(c, data, &in) {
		return
	}
	_, err := h.chat.MarkMessagesRead(ctx, c.UserID, usecase.MarkReadInput{
		ConversationID: in.ConversationID,
		MessageIDs:     in.MessageIDs,
	})
	if err != nil {
		h.fail(c, err, "Failed to mark messages as read")
	}
}

// handleTyping relays to the room, skipping the sender's own connection.
// Only connections that joined the room may signal typing in it.
func (h *MessageHandler) handleTyping(c *Client, data json.RawMessage, event string) {
	var ref ConversationRef
	if !h.decode(c, data, &ref) {
		return
	}
	if !h.manager.InRoom(c, ref.ConversationID) {
		h.sendError(c, "Join the conversation first")
		return
	}
	h.manager.Publish(usecase.ToConversation(ref.ConversationID).Except(c.ID), event, usecase.TypingPayload{
		UserID:         c.UserID,
		ConversationID: ref.ConversationID,
	})
}

func (h *MessageHandler) handlePresence(c *Client, data json.RawMessage) {
	var in PresenceData
	if !h.decode(c, data, &in) {
		return
	}
	if err := h.presence.UpdatePresence(c.UserID, c.ID, in.Status); err != nil {
		h.fail(c, err, "Failed to update presence")
	}
}

func (h *MessageHandler) fail(c *Client, err error, fallback string) {
	if appErr, ok := errors.As(err); !ok || appErr.Code == errors.CodeInternal {
		logger.Error(fallback, "conn_id", c.ID, "user_id", c.UserID, "error", err)
	}
	h.sendError(c, errors.Public(err, fallback))
}

func (h *MessageHandler) sendError(c *Client, message string) {
	h.manager.SendTo(c, usecase.EventError, usecase.ErrorPayload{Message: message})
}
