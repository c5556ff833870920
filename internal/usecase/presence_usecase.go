package usecase

import (
	"context"
	"sync"
	"time"

	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
)

const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

// PresenceUseCase tracks how many live connections each user holds. Status
// changes are broadcast to everyone; only lastSeenAt is persisted.
type PresenceUseCase struct {
	userRepo  repository.UserRepository
	publisher Publisher
	now       func() time.Time

	mu          sync.Mutex
	connections map[string]int
}

func NewPresenceUseCase(userRepo repository.UserRepository, publisher Publisher) *PresenceUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &PresenceUseCase{
		userRepo:    userRepo,
		publisher:   publisher,
		now:         time.Now,
		connections: make(map[string]int),
	}
}

// Connected records a new connection for userID.
func (uc *PresenceUseCase) Connected(ctx context.Context, userID, connID string) {
	uc.mu.Lock()
	uc.connections[userID]++
	uc.mu.Unlock()

	uc.touch(ctx, userID)
	logger.Info("user connected", "user_id", userID, "conn_id", connID)
}

// Disconnected records a closed connection. When it was the user's last one
// every other connection is told the user went offline.
func (uc *PresenceUseCase) Disconnected(ctx context.Context, userID, connID string) {
	uc.mu.Lock()
	remaining := uc.connections[userID] - 1
	if remaining <= 0 {
		delete(uc.connections, userID)
		remaining = 0
	} else {
		uc.connections[userID] = remaining
	}
	uc.mu.Unlock()

	uc.touch(ctx, userID)
	logger.Info("user disconnected", "user_id", userID, "conn_id", connID, "remaining", remaining)

	if remaining == 0 {
		uc.publisher.Publish(ToEveryone().Except(connID), EventPresenceUpdated, PresencePayload{
			UserID: userID,
			Status: PresenceOffline,
		})
	}
}

// UpdatePresence relays a client-chosen status without storing it.
func (uc *PresenceUseCase) UpdatePresence(userID, connID, status string) error {
	switch status {
	case PresenceOnline, PresenceAway, PresenceBusy:
	default:
		return errors.Validation("status must be one of: online away busy", nil)
	}
	uc.publisher.Publish(ToEveryone().Except(connID), EventPresenceUpdated, PresencePayload{
		UserID: userID,
		Status: status,
	})
	return nil
}

// IsOnline reports whether userID has at least one live connection.
func (uc *PresenceUseCase) IsOnline(userID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.connections[userID] > 0
}

func (uc *PresenceUseCase) touch(ctx context.Context, userID string) {
	if err := uc.userRepo.TouchLastSeen(ctx, userID, uc.now()); err != nil {
		logger.Error("update last seen", "user_id", userID, "error", err)
	}
}
