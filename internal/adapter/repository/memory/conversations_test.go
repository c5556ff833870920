package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karsaz/internal/domain/entity"
	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
)

var (
	_ repository.ConversationRepository = (*ConversationRepository)(nil)
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.AdRepository           = (*AdRepository)(nil)
)

func newRepo() *ConversationRepository {
	repo := NewConversationRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	return repo
}

func newConversation(t *testing.T, repo *ConversationRepository) *entity.Conversation {
	t.Helper()
	c, created, err := repo.GetOrCreate(context.Background(), &entity.Conversation{AdID: "ad-1", BuyerID: "buyer", SellerID: "seller"})
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func appendText(t *testing.T, repo *ConversationRepository, c *entity.Conversation, from, to string, role entity.Role) *entity.Message {
	t.Helper()
	m := &entity.Message{ConversationID: c.ID, AdID: c.AdID, SenderID: from, ReceiverID: to, Content: "hi", MessageType: entity.MessageTypeText}
	require.NoError(t, repo.AppendMessage(context.Background(), m, role))
	return m
}

func TestGetOrCreateIsUniquePerTriple(t *testing.T) {
	repo := newRepo()
	first := newConversation(t, repo)

	again, created, err := repo.GetOrCreate(context.Background(), &entity.Conversation{AdID: "ad-1", BuyerID: "buyer", SellerID: "seller"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	other, created, err := repo.GetOrCreate(context.Background(), &entity.Conversation{AdID: "ad-2", BuyerID: "buyer", SellerID: "seller"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, []string{"buyer", "seller"}, other.Participants)

	found, err := repo.FindByTriple(context.Background(), "ad-1", "buyer", "seller")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindByTriple(context.Background(), "ad-1", "seller", "buyer")
	assert.True(t, errors.Is(err, errors.CodeNotFound), "roles are part of the key")
}

func TestAppendMessageUpdatesConversation(t *testing.T) {
	repo := newRepo()
	c := newConversation(t, repo)

	m := appendText(t, repo, c, "buyer", "seller", entity.RoleSeller)
	require.NotEmpty(t, m.ID)

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.LastMessageID)
	assert.Equal(t, 1, got.UnreadCountSeller)
	assert.Equal(t, 0, got.UnreadCountBuyer)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(m.CreatedAt))
}

func TestMarkReadRecomputesCounter(t *testing.T) {
	repo := newRepo()
	c := newConversation(t, repo)
	m1 := appendText(t, repo, c, "buyer", "seller", entity.RoleSeller)
	m2 := appendText(t, repo, c, "buyer", "seller", entity.RoleSeller)
	appendText(t, repo, c, "seller", "buyer", entity.RoleBuyer)

	res, err := repo.MarkRead(context.Background(), repository.MarkReadInput{
		ConversationID: c.ID, ReaderID: "seller", ReaderRole: entity.RoleSeller,
		MessageIDs: []string{m1.ID}, ReadAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID}, res.MessageIDs)
	assert.Equal(t, 1, res.Unread)

	got, _ := repo.GetByID(context.Background(), c.ID)
	assert.Equal(t, 1, got.UnreadCountSeller)
	assert.Equal(t, 1, got.UnreadCountBuyer, "other side untouched")

	res, err = repo.MarkRead(context.Background(), repository.MarkReadInput{
		ConversationID: c.ID, ReaderID: "seller", ReaderRole: entity.RoleSeller, ReadAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{m2.ID}, res.MessageIDs)
	assert.Equal(t, 0, res.Unread)
	assert.Equal(t, 0, repo.CountUnread(c.ID, "seller"))

	read, err := repo.GetMessage(context.Background(), c.ID, m1.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)
}

func TestListMessagesCursor(t *testing.T) {
	repo := newRepo()
	c := newConversation(t, repo)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, appendText(t, repo, c, "buyer", "seller", entity.RoleSeller).ID)
	}

	page, err := repo.ListMessages(context.Background(), c.ID, repository.MessagePage{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[4], page[1].ID)

	page, err = repo.ListMessages(context.Background(), c.ID, repository.MessagePage{Limit: 2, Before: ids[3]})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	page, err = repo.ListMessages(context.Background(), c.ID, repository.MessagePage{Limit: 10, Before: ids[1]})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	_, err = repo.ListMessages(context.Background(), c.ID, repository.MessagePage{Limit: 2, Before: "nope"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestListByParticipantAndSumUnread(t *testing.T) {
	repo := newRepo()
	c1 := newConversation(t, repo)
	c2, _, err := repo.GetOrCreate(context.Background(), &entity.Conversation{AdID: "ad-2", BuyerID: "seller", SellerID: "third"})
	require.NoError(t, err)

	appendText(t, repo, c1, "buyer", "seller", entity.RoleSeller)
	appendText(t, repo, c2, "third", "seller", entity.RoleBuyer)
	appendText(t, repo, c2, "third", "seller", entity.RoleBuyer)

	list, total, err := repo.ListByParticipant(context.Background(), "seller", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, c2.ID, list[0].ID, "most recent activity first")

	sum, err := repo.SumUnread(context.Background(), "seller")
	require.NoError(t, err)
	assert.Equal(t, 3, sum)

	list, total, err = repo.ListByParticipant(context.Background(), "buyer", 10, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, list)
}

func TestSetBlocked(t *testing.T) {
	repo := newRepo()
	c := newConversation(t, repo)

	require.NoError(t, repo.SetBlocked(context.Background(), c.ID, entity.RoleSeller, true))
	got, _ := repo.GetByID(context.Background(), c.ID)
	assert.True(t, got.IsBlockedBySeller)
	assert.False(t, got.IsBlockedByBuyer)

	err := repo.SetBlocked(context.Background(), "missing", entity.RoleSeller, true)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
