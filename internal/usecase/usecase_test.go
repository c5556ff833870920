package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"karsaz/internal/adapter/repository/memory"
	"karsaz/internal/domain/entity"
)

type published struct {
	Target  Target
	Event   string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(target Target, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Target: target, Event: event, Payload: payload})
}

func (p *recordingPublisher) byEvent(event string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	conversations *memory.ConversationRepository
	users         *memory.UserRepository
	ads           *memory.AdRepository
	publisher     *recordingPublisher
	chat          *ChatUseCase
}

const (
	buyerID  = "user-a"
	sellerID = "user-b"
	adID     = "ad-x"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		conversations: memory.NewConversationRepository(),
		users: memory.NewUserRepository(
			&entity.User{ID: buyerID, FullName: "Ali"},
			&entity.User{ID: sellerID, FullName: "Bahar"},
			&entity.User{ID: "user-c", FullName: "Cyrus"},
		),
		ads: memory.NewAdRepository(
			&entity.Ad{ID: adID, Title: "Bicycle", UserID: sellerID, Status: entity.AdStatusActive},
		),
		publisher: &recordingPublisher{},
	}
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	f.conversations.SetClock(clock)
	f.chat = NewChatUseCase(f.conversations, f.users, f.ads, f.publisher)
	f.chat.now = clock
	return f
}

func (f *fixture) start(t *testing.T) *entity.Conversation {
	t.Helper()
	view, _, err := f.chat.StartConversation(context.Background(), buyerID, adID)
	require.NoError(t, err)
	return view.Conversation
}
