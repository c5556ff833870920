package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"karsaz/internal/domain/entity"
	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
)

// ConversationRepository keeps conversations and their messages in process
// memory. One mutex covers both so AppendMessage and MarkRead are atomic.
type ConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	now           func() time.Time
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		now:           time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (r *ConversationRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.conversations[id]; ok {
		return cloneConversation(c), nil
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *ConversationRepository) FindByTriple(ctx context.Context, adID, buyerID, sellerID string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.findTripleLocked(adID, buyerID, sellerID); c != nil {
		return cloneConversation(c), nil
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *ConversationRepository) findTripleLocked(adID, buyerID, sellerID string) *entity.Conversation {
	for _, c := range r.conversations {
		if c.AdID == adID && c.BuyerID == buyerID && c.SellerID == sellerID {
			return c
		}
	}
	return nil
}

func (r *ConversationRepository) GetOrCreate(ctx context.Context, conversation *entity.Conversation) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findTripleLocked(conversation.AdID, conversation.BuyerID, conversation.SellerID); existing != nil {
		return cloneConversation(existing), false, nil
	}

	c := cloneConversation(conversation)
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := r.now()
	c.Participants = []string{c.BuyerID, c.SellerID}
	c.CreatedAt = now
	c.UpdatedAt = now
	c.ActivityAt = now
	r.conversations[c.ID] = c
	return cloneConversation(c), true, nil
}

func (r *ConversationRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.RLock()
	var matched []*entity.Conversation
	for _, c := range r.conversations {
		if c.IsParticipant(userID) {
			matched = append(matched, cloneConversation(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ActivityAt.Equal(matched[j].ActivityAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].ActivityAt.After(matched[j].ActivityAt)
	})

	total := int64(len(matched))
	start := offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return matched[start:end], total, nil
}

func (r *ConversationRepository) SetBlocked(ctx context.Context, conversationID string, role entity.Role, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if role == entity.RoleBuyer {
		c.IsBlockedByBuyer = blocked
	} else {
		c.IsBlockedBySeller = blocked
	}
	c.UpdatedAt = r.now()
	return nil
}

func (r *ConversationRepository) SumUnread(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, c := range r.conversations {
		if role, ok := c.RoleOf(userID); ok {
			total += c.UnreadFor(role)
		}
	}
	return total, nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, message *entity.Message, receiverRole entity.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[message.ConversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.now()
	}

	r.messages[c.ID] = append(r.messages[c.ID], cloneMessage(message))

	at := message.CreatedAt
	c.LastMessageID = message.ID
	c.LastMessageAt = &at
	c.ActivityAt = at
	c.UpdatedAt = r.now()
	if receiverRole == entity.RoleBuyer {
		c.UnreadCountBuyer++
	} else {
		c.UnreadCountSeller++
	}
	return nil
}

func (r *ConversationRepository) MarkRead(ctx context.Context, input repository.MarkReadInput) (*repository.MarkReadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[input.ConversationID]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}

	wanted := make(map[string]bool, len(input.MessageIDs))
	for _, id := range input.MessageIDs {
		wanted[id] = true
	}

	result := &repository.MarkReadResult{MessageIDs: []string{}}
	for _, m := range r.messages[c.ID] {
		if m.ReceiverID != input.ReaderID || m.IsRead {
			continue
		}
		if len(wanted) > 0 && !wanted[m.ID] {
			result.Unread++
			continue
		}
		readAt := input.ReadAt
		m.IsRead = true
		m.ReadAt = &readAt
		result.MessageIDs = append(result.MessageIDs, m.ID)
	}

	if input.ReaderRole == entity.RoleBuyer {
		c.UnreadCountBuyer = result.Unread
	} else {
		c.UnreadCountSeller = result.Unread
	}
	c.UpdatedAt = r.now()
	return result, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, page repository.MessagePage) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.messages[conversationID]
	end := len(all)
	if page.Before != "" {
		end = -1
		for i, m := range all {
			if m.ID == page.Before {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, errors.NotFound("Cursor message", nil)
		}
	}
	start := 0
	if page.Limit > 0 && end-page.Limit > 0 {
		start = end - page.Limit
	}

	out := make([]*entity.Message, 0, end-start)
	for _, m := range all[start:end] {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (r *ConversationRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.messages[conversationID] {
		if m.ID == messageID {
			return cloneMessage(m), nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

// CountUnread counts messages addressed to userID that are still unread.
// Tests use it to check the stored counters against the message log.
func (r *ConversationRepository) CountUnread(conversationID, userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.messages[conversationID] {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		cp.LastMessageAt = &at
	}
	return &cp
}

func cloneMessage(m *entity.Message) *entity.Message {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Attachments = append([]entity.Attachment(nil), m.Attachments...)
	if m.ReadAt != nil {
		at := *m.ReadAt
		cp.ReadAt = &at
	}
	return &cp
}
