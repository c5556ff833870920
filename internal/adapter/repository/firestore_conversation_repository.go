package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"karsaz/internal/domain/entity"
	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) conversations() *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection)
}

func (r *firestoreConversationRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.conversations().Doc(conversationID).Collection(messagesCollection)
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversations().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}
	return decodeConversation(doc)
}

func (r *firestoreConversationRepository) tripleQuery(adID, buyerID, sellerID string) firestore.Query {
	return r.conversations().
		Where("adId", "==", adID).
		Where("buyerId", "==", buyerID).
		Where("sellerId", "==", sellerID).
		Limit(1)
}

func (r *firestoreConversationRepository) FindByTriple(ctx context.Context, adID, buyerID, sellerID string) (*entity.Conversation, error) {
	docs, err := r.tripleQuery(adID, buyerID, sellerID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query conversation", err)
	}
	if len(docs) == 0 {
		return nil, errors.NotFound("Conversation", nil)
	}
	return decodeConversation(docs[0])
}

func (r *firestoreConversationRepository) GetOrCreate(ctx context.Context, conversation *entity.Conversation) (*entity.Conversation, bool, error) {
	var (
		result  *entity.Conversation
		created bool
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		docs, err := tx.Documents(r.tripleQuery(conversation.AdID, conversation.BuyerID, conversation.SellerID)).GetAll()
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			result, err = decodeConversation(docs[0])
			return err
		}

		c := *conversation
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		now := time.Now()
		c.Participants = []string{c.BuyerID, c.SellerID}
		c.CreatedAt = now
		c.UpdatedAt = now
		c.ActivityAt = now
		if err := tx.Create(r.conversations().Doc(c.ID), &c); err != nil {
			return err
		}
		result = &c
		created = true
		return nil
	})
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			return nil, false, appErr
		}
		return nil, false, errors.Internal("Failed to create conversation", err)
	}
	return result, created, nil
}

func (r *firestoreConversationRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	base := r.conversations().Where("participants", "array-contains", userID)

	total, err := countQuery(ctx, base)
	if err != nil {
		return nil, 0, errors.Internal("Failed to count conversations", err)
	}

	query := base.OrderBy("activityAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var conversations []*entity.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("iterate conversations", "user_id", userID, "error", err)
			return nil, 0, errors.Internal("Failed to iterate conversations", err)
		}
		c, err := decodeConversation(doc)
		if err != nil {
			return nil, 0, err
		}
		conversations = append(conversations, c)
	}
	return conversations, total, nil
}

func (r *firestoreConversationRepository) SetBlocked(ctx context.Context, conversationID string, role entity.Role, blocked bool) error {
	_, err := r.conversations().Doc(conversationID).Update(ctx, []firestore.Update{
		{Path: entity.BlockField(role), Value: blocked},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to update block state", err)
	}
	return nil
}

func (r *firestoreConversationRepository) SumUnread(ctx context.Context, userID string) (int, error) {
	total := 0
	for _, role := range []entity.Role{entity.RoleBuyer, entity.RoleSeller} {
		field := "buyerId"
		if role == entity.RoleSeller {
			field = "sellerId"
		}
		iter := r.conversations().Where(field, "==", userID).Select(entity.UnreadField(role)).Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return 0, errors.Internal("Failed to sum unread counters", err)
			}
			if v, err := doc.DataAt(entity.UnreadField(role)); err == nil {
				if n, ok := v.(int64); ok {
					total += int(n)
				}
			}
		}
		iter.Stop()
	}
	return total, nil
}

func (r *firestoreConversationRepository) AppendMessage(ctx context.Context, message *entity.Message, receiverRole entity.Role) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	convRef := r.conversations().Doc(message.ConversationID)
	msgRef := r.messages(message.ConversationID).Doc(message.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			return err
		}
		if err := tx.Create(msgRef, message); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessageId", Value: message.ID},
			{Path: "lastMessageAt", Value: message.CreatedAt},
			{Path: "activityAt", Value: message.CreatedAt},
			{Path: "updatedAt", Value: time.Now()},
			{Path: entity.UnreadField(receiverRole), Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to save message", err)
	}
	return nil
}

// maxReadBatch keeps one mark-read transaction under Firestore's 500 write
// limit, leaving room for the conversation update.
const maxReadBatch = 450

// MarkRead marks in batches of maxReadBatch, one transaction each. Every batch
// stores the counter of what is still unread, so a failure part way leaves the
// counter matching the messages.
func (r *firestoreConversationRepository) MarkRead(ctx context.Context, input repository.MarkReadInput) (*repository.MarkReadResult, error) {
	wanted := make(map[string]bool, len(input.MessageIDs))
	for _, id := range input.MessageIDs {
		wanted[id] = true
	}

	result := &repository.MarkReadResult{MessageIDs: []string{}}
	for {
		marked, unread, err := r.markReadBatch(ctx, input, wanted, maxReadBatch)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, errors.NotFound("Conversation", err)
			}
			return nil, errors.Internal("Failed to mark messages as read", err)
		}
		result.MessageIDs = append(result.MessageIDs, marked...)
		result.Unread = unread
		if len(marked) < maxReadBatch {
			return result, nil
		}
	}
}

func (r *firestoreConversationRepository) markReadBatch(ctx context.Context, input repository.MarkReadInput, wanted map[string]bool, limit int) ([]string, int, error) {
	convRef := r.conversations().Doc(input.ConversationID)
	unreadQuery := r.messages(input.ConversationID).
		Where("receiverId", "==", input.ReaderID).
		Where("isRead", "==", false)

	var marked []string
	var remaining int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			return err
		}
		docs, err := tx.Documents(unreadQuery).GetAll()
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(docs))
		for _, doc := range docs {
			ids = append(ids, doc.Ref.ID)
		}
		marked, remaining = planReadBatch(ids, wanted, limit)

		for _, id := range marked {
			if err := tx.Update(r.messages(input.ConversationID).Doc(id), []firestore.Update{
				{Path: "isRead", Value: true},
				{Path: "readAt", Value: input.ReadAt},
			}); err != nil {
				return err
			}
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: entity.UnreadField(input.ReaderRole), Value: remaining},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	return marked, remaining, err
}

// planReadBatch picks up to limit of the unread IDs to mark (all of them, or
// only the wanted ones) and counts what stays unread afterwards.
func planReadBatch(unread []string, wanted map[string]bool, limit int) (marked []string, remaining int) {
	marked = []string{}
	for _, id := range unread {
		if (len(wanted) > 0 && !wanted[id]) || len(marked) == limit {
			remaining++
			continue
		}
		marked = append(marked, id)
	}
	return marked, remaining
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, page repository.MessagePage) ([]*entity.Message, error) {
	query := r.messages(conversationID).OrderBy("createdAt", firestore.Desc)
	if page.Before != "" {
		cursor, err := r.messages(conversationID).Doc(page.Before).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, errors.NotFound("Cursor message", err)
			}
			return nil, errors.Internal("Failed to load cursor message", err)
		}
		query = query.StartAfter(cursor)
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("list messages", "conversation_id", conversationID, "error", err)
		return nil, errors.Internal("Failed to list messages", err)
	}

	// Newest first from the query, oldest first to the caller.
	messages := make([]*entity.Message, len(docs))
	for i, doc := range docs {
		var m entity.Message
		if err := doc.DataTo(&m); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages[len(docs)-1-i] = &m
	}
	return messages, nil
}

func (r *firestoreConversationRepository) GetMessage(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var c entity.Conversation
	if err := doc.DataTo(&c); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	if c.ID == "" {
		c.ID = doc.Ref.ID
	}
	return &c, nil
}

func countQuery(ctx context.Context, query firestore.Query) (int64, error) {
	res, err := query.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, nil
	}
	return v.GetIntegerValue(), nil
}
