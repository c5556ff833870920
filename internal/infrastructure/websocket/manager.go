package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"karsaz/internal/usecase"
	"karsaz/pkg/logger"
)

// WSMessage is the envelope of every frame, in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type outbound struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(outbound{
		Type:      event,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Manager tracks live connections, the personal channel of each user and the
// conversation rooms each connection has joined.
type Manager struct {
	mutex   sync.RWMutex
	clients map[string]*Client
	users   map[string]map[string]*Client
	rooms   map[string]map[string]*Client
}

var _ usecase.Publisher = (*Manager)(nil)

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		users:   make(map[string]map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register adds the client and subscribes it to its user's personal channel.
func (m *Manager) Register(c *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.clients[c.ID] = c
	if m.users[c.UserID] == nil {
		m.users[c.UserID] = make(map[string]*Client)
	}
	m.users[c.UserID][c.ID] = c
	logger.Debug("client registered", "conn_id", c.ID, "user_id", c.UserID)
}

// Unregister drops every membership of the client and closes its send
// channel. It reports false if the client was already gone.
func (m *Manager) Unregister(c *Client) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[c.ID]; !ok {
		return false
	}
	delete(m.clients, c.ID)

	if conns := m.users[c.UserID]; conns != nil {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(m.users, c.UserID)
		}
	}
	for room := range c.rooms {
		m.leaveLocked(c, room)
	}
	c.closeSend()
	logger.Debug("client unregistered", "conn_id", c.ID, "user_id", c.UserID)
	return true
}

func (m *Manager) JoinRoom(c *Client, conversationID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[c.ID]; !ok {
		return
	}
	if m.rooms[conversationID] == nil {
		m.rooms[conversationID] = make(map[string]*Client)
	}
	m.rooms[conversationID][c.ID] = c
	c.rooms[conversationID] = struct{}{}
}

func (m *Manager) LeaveRoom(c *Client, conversationID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.leaveLocked(c, conversationID)
}

func (m *Manager) leaveLocked(c *Client, conversationID string) {
	delete(c.rooms, conversationID)
	if members := m.rooms[conversationID]; members != nil {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

func (m *Manager) InRoom(c *Client, conversationID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := c.rooms[conversationID]
	return ok
}

// Publish implements usecase.Publisher.
func (m *Manager) Publish(target usecase.Target, event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		logger.Error("encode event", "event", event, "error", err)
		return
	}

	m.mutex.RLock()
	var members map[string]*Client
	switch target.Kind {
	case usecase.TargetUser:
		members = m.users[target.ID]
	case usecase.TargetConversation:
		members = m.rooms[target.ID]
	case usecase.TargetEveryone:
		members = m.clients
	}
	recipients := make([]*Client, 0, len(members))
	for id, c := range members {
		if id != target.ExceptConn {
			recipients = append(recipients, c)
		}
	}
	m.mutex.RUnlock()

	for _, c := range recipients {
		c.enqueue(frame)
	}
}

// SendTo delivers an event to a single connection.
func (m *Manager) SendTo(c *Client, event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		logger.Error("encode event", "event", event, "error", err)
		return
	}
	c.enqueue(frame)
}

// ConnectionCount returns the number of live connections, optionally for
// a single user.
func (m *Manager) ConnectionCount(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if userID == "" {
		return len(m.clients)
	}
	return len(m.users[userID])
}

// RoomSize returns the number of connections in a conversation room.
func (m *Manager) RoomSize(conversationID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms[conversationID])
}

// Run closes every connection once ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	<-ctx.Done()

	m.mutex.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mutex.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	logger.Info("websocket manager stopped", "closed", len(clients))
}
