package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karsaz/internal/domain/entity"
	"karsaz/internal/usecase"
	"karsaz/pkg/errors"
)

type fakeChat struct {
	members map[string]string // conversationID -> allowed user
	sent    []usecase.SendMessageInput
	read    []usecase.MarkReadInput
	sendErr error
}

func (f *fakeChat) JoinConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	if f.members[conversationID] != userID {
		return nil, errors.NotFound("Conversation", nil).WithMessage("Conversation not found or access denied")
	}
	return &entity.Conversation{ID: conversationID}, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, senderID string, input usecase.SendMessageInput) (*usecase.MessageView, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, input)
	return &usecase.MessageView{Message: &entity.Message{ID: "m1"}}, nil
}

func (f *fakeChat) MarkMessagesRead(ctx context.Context, readerID string, input usecase.MarkReadInput) (*usecase.ReadReceipt, error) {
	f.read = append(f.read, input)
	return &usecase.ReadReceipt{}, nil
}

type fakePresence struct {
	statuses []string
}

func (f *fakePresence) Connected(ctx context.Context, userID, connID string)    {}
func (f *fakePresence) Disconnected(ctx context.Context, userID, connID string) {}
func (f *fakePresence) UpdatePresence(userID, connID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func next(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case raw := <-c.Send:
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	default:
		t.Fatal("no frame queued")
		return frame{}
	}
}

func errorMessage(t *testing.T, f frame) string {
	t.Helper()
	require.Equal(t, usecase.EventError, f.Type)
	var p usecase.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	return p.Message
}

func setup() (*MessageHandler, *Manager, *fakeChat, *fakePresence) {
	m := NewManager()
	chat := &fakeChat{members: map[string]string{"conv-1": "a"}}
	presence := &fakePresence{}
	return NewMessageHandler(m, chat, presence, 8), m, chat, presence
}

func TestJoinConversation(t *testing.T) {
	h, m, _, _ := setup()
	a := newTestClient(m, "a")
	stranger := newTestClient(m, "z")

	h.HandleMessage(a, []byte(`{"type":"join_conversation","data":"conv-1"}`))
	assert.Equal(t, EventConversationJoined, next(t, a).Type)
	assert.True(t, m.InRoom(a, "conv-1"))

	h.HandleMessage(stranger, []byte(`{"type":"join_conversation","data":{"conversationId":"conv-1"}}`))
	assert.Equal(t, "Conversation not found or access denied", errorMessage(t, next(t, stranger)))
	assert.False(t, m.InRoom(stranger, "conv-1"))
	assert.Equal(t, 1, m.RoomSize("conv-1"))

	other := newTestClient(m, "a")
	h.HandleMessage(other, []byte(`{"type":"join_conversation","data":{"conversationId":"conv-1","admin":true}}`))
	assert.Equal(t, "Invalid event payload", errorMessage(t, next(t, other)))
	assert.False(t, m.InRoom(other, "conv-1"))
}

func TestLeaveIsUnconditional(t *testing.T) {
	h, m, _, _ := setup()
	a := newTestClient(m, "a")
	m.JoinRoom(a, "conv-1")

	h.HandleMessage(a, []byte(`{"type":"leave_conversation","data":{"conversationId":"conv-1"}}`))
	assert.Equal(t, EventConversationLeft, next(t, a).Type)
	assert.False(t, m.InRoom(a, "conv-1"))

	h.HandleMessage(a, []byte(`{"type":"leave_conversation","data":"never-joined"}`))
	assert.Equal(t, EventConversationLeft, next(t, a).Type)
}

func TestSendMessageValidatesBeforeDispatch(t *testing.T) {
	h, m, chat, _ := setup()
	a := newTestClient(m, "a")

	tests := []struct {
		name    string
		frame   string
		message string
	}{
		{"missing content", `{"type":"send_message","data":{"conversationId":"conv-1"}}`, "content is required"},
		{"bad type", `{"type":"send_message","data":{"conversationId":"conv-1","content":"x","messageType":"VIDEO"}}`, "messageType must be one of: TEXT IMAGE DOCUMENT LOCATION CONTACT"},
		{"unknown field", `{"type":"send_message","data":{"conversationId":"conv-1","content":"x","admin":true}}`, "Invalid event payload"},
		{"no payload", `{"type":"send_message"}`, "Missing event payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.HandleMessage(a, []byte(tt.frame))
			assert.Equal(t, tt.message, errorMessage(t, next(t, a)))
		})
	}
	assert.Empty(t, chat.sent)

	h.HandleMessage(a, []byte(`{"type":"send_message","data":{"conversationId":"conv-1","content":"Hi"}}`))
	require.Len(t, chat.sent, 1)
	assert.Equal(t, "Hi", chat.sent[0].Content)
	assert.Empty(t, drain(t, a), "success is reported through the room broadcast")
}

func TestSendMessageErrorsAreScoped(t *testing.T) {
	h, m, chat, _ := setup()
	a := newTestClient(m, "a")
	b := newTestClient(m, "b")

	chat.sendErr = errors.Forbidden("You cannot send messages in this conversation", nil)
	h.HandleMessage(a, []byte(`{"type":"send_message","data":{"conversationId":"conv-1","content":"Hi"}}`))
	assert.Equal(t, "You cannot send messages in this conversation", errorMessage(t, next(t, a)))
	assert.Empty(t, drain(t, b))

	chat.sendErr = errors.Internal("Failed to send message", context.DeadlineExceeded)
	h.HandleMessage(a, []byte(`{"type":"send_message","data":{"conversationId":"conv-1","content":"Hi"}}`))
	assert.Equal(t, "Failed to send message", errorMessage(t, next(t, a)))
}

func TestTypingRequiresRoomAndSkipsSender(t *testing.T) {
	h, m, _, _ := setup()
	a := newTestClient(m, "a")
	aTab := newTestClient(m, "a")
	b := newTestClient(m, "b")

	h.HandleMessage(a, []byte(`{"type":"typing_start","data":{"conversationId":"conv-1"}}`))
	assert.Equal(t, "Join the conversation first", errorMessage(t, next(t, a)))

	m.JoinRoom(a, "conv-1")
	m.JoinRoom(aTab, "conv-1")
	m.JoinRoom(b, "conv-1")

	h.HandleMessage(a, []byte(`{"type":"typing_start","data":{"conversationId":"conv-1"}}`))
	assert.Empty(t, drain(t, a))
	assert.Equal(t, usecase.EventUserTyping, next(t, aTab).Type)
	f := next(t, b)
	assert.Equal(t, usecase.EventUserTyping, f.Type)
	var p usecase.TypingPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	assert.Equal(t, usecase.TypingPayload{UserID: "a", ConversationID: "conv-1"}, p)

	h.HandleMessage(a, []byte(`{"type":"typing_stop","data":{"conversationId":"conv-1"}}`))
	assert.Equal(t, usecase.EventUserStoppedTyping, next(t, b).Type)

	h.HandleMessage(a, []byte(`{"type":"typing_start","data":{"conversationId":"conv-1","extra":1}}`))
	assert.Equal(t, "Invalid event payload", errorMessage(t, next(t, a)))
	assert.Empty(t, drain(t, b))
}

func TestPresenceAndUnknownEvents(t *testing.T) {
	h, m, _, presence := setup()
	a := newTestClient(m, "a")

	h.HandleMessage(a, []byte(`{"type":"update_presence","data":{"status":"away"}}`))
	assert.Equal(t, []string{"away"}, presence.statuses)

	h.HandleMessage(a, []byte(`{"type":"update_presence","data":{"status":"invisible"}}`))
	assert.Equal(t, "status must be one of: online away busy", errorMessage(t, next(t, a)))

	h.HandleMessage(a, []byte(`{"type":"self_destruct","data":{}}`))
	assert.Equal(t, "Unknown event type: self_destruct", errorMessage(t, next(t, a)))

	h.HandleMessage(a, []byte(`not json`))
	assert.Equal(t, "Invalid message format", errorMessage(t, next(t, a)))

	h.HandleMessage(a, []byte(`{"type":"ping"}`))
	assert.Equal(t, EventPong, next(t, a).Type)
}

func TestMarkReadForwardsIDs(t *testing.T) {
	h, m, chat, _ := setup()
	a := newTestClient(m, "a")

	h.HandleMessage(a, []byte(`{"type":"mark_messages_read","data":{"conversationId":"conv-1","messageIds":["m1","m2"]}}`))
	require.Len(t, chat.read, 1)
	assert.Equal(t, []string{"m1", "m2"}, chat.read[0].MessageIDs)

	h.HandleMessage(a, []byte(`{"type":"mark_messages_read","data":{"conversationId":"conv-1","messageIds":[""]}}`))
	assert.Equal(t, usecase.EventError, next(t, a).Type)
}
