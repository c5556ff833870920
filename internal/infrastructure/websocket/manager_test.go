package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karsaz/internal/usecase"
)

func newTestClient(m *Manager, userID string) *Client {
	c := NewClient(userID, nil, 8)
	m.Register(c)
	return c
}

// drain returns the event types queued for c.
func drain(t *testing.T, c *Client) []string {
	t.Helper()
	var types []string
	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				return types
			}
			var msg WSMessage
			require.NoError(t, json.Unmarshal(frame, &msg))
			types = append(types, msg.Type)
		default:
			return types
		}
	}
}

func TestPublishToUserReachesEveryTab(t *testing.T) {
	m := NewManager()
	tab1 := newTestClient(m, "b")
	tab2 := newTestClient(m, "b")
	other := newTestClient(m, "a")

	m.Publish(usecase.ToUser("b"), usecase.EventMessageNotification, map[string]string{"x": "y"})

	assert.Equal(t, []string{usecase.EventMessageNotification}, drain(t, tab1))
	assert.Equal(t, []string{usecase.EventMessageNotification}, drain(t, tab2))
	assert.Empty(t, drain(t, other))
	assert.Equal(t, 2, m.ConnectionCount("b"))
	assert.Equal(t, 3, m.ConnectionCount(""))
}

func TestRoomsAndExclusion(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, "a")
	b := newTestClient(m, "b")
	outsider := newTestClient(m, "c")

	m.JoinRoom(a, "conv-1")
	m.JoinRoom(b, "conv-1")
	assert.True(t, m.InRoom(a, "conv-1"))
	assert.False(t, m.InRoom(outsider, "conv-1"))

	m.Publish(usecase.ToConversation("conv-1").Except(a.ID), usecase.EventUserTyping, nil)
	assert.Empty(t, drain(t, a))
	assert.Equal(t, []string{usecase.EventUserTyping}, drain(t, b))
	assert.Empty(t, drain(t, outsider))

	m.LeaveRoom(b, "conv-1")
	m.Publish(usecase.ToConversation("conv-1"), usecase.EventNewMessage, nil)
	assert.Equal(t, []string{usecase.EventNewMessage}, drain(t, a))
	assert.Empty(t, drain(t, b))

	m.Publish(usecase.ToEveryone().Except(outsider.ID), usecase.EventPresenceUpdated, nil)
	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)
	assert.Empty(t, drain(t, outsider))
}

func TestUnregisterDropsMemberships(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, "a")
	m.JoinRoom(a, "conv-1")

	assert.True(t, m.Unregister(a))
	assert.False(t, m.Unregister(a), "second unregister is a no-op")
	assert.Equal(t, 0, m.RoomSize("conv-1"))
	assert.Equal(t, 0, m.ConnectionCount("a"))

	_, open := <-a.Send
	assert.False(t, open)

	m.Publish(usecase.ToUser("a"), usecase.EventNewMessage, nil)
	m.JoinRoom(a, "conv-2")
	assert.Equal(t, 0, m.RoomSize("conv-2"), "gone clients cannot rejoin")
}

func TestSlowClientIsDropped(t *testing.T) {
	m := NewManager()
	slow := NewClient("s", nil, 1)
	m.Register(slow)

	m.Publish(usecase.ToUser("s"), usecase.EventNewMessage, nil)
	m.Publish(usecase.ToUser("s"), usecase.EventNewMessage, nil)

	assert.Equal(t, []string{usecase.EventNewMessage}, drain(t, slow))
	assert.False(t, slow.enqueue([]byte("{}")))
}
