package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"karsaz/internal/domain/entity"
	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
)

const (
	DefaultConversationLimit = 20
	MaxConversationLimit     = 50
	DefaultMessageLimit      = 50
	MaxMessageLimit          = 100
)

type ChatUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	adRepo           repository.AdRepository
	publisher        Publisher
	now              func() time.Time
}

func NewChatUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	adRepo repository.AdRepository,
	publisher Publisher,
) *ChatUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &ChatUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		adRepo:           adRepo,
		publisher:        publisher,
		now:              time.Now,
	}
}

type SendMessageInput struct {
	ConversationID string
	Content        string
	MessageType    entity.MessageType
	Attachments    []entity.Attachment
}

type MarkReadInput struct {
	ConversationID string
	MessageIDs     []string
}

type MessageView struct {
	*entity.Message
	Sender *entity.UserSummary `json:"sender,omitempty"`
}

type ConversationView struct {
	*entity.Conversation
	Role        entity.Role         `json:"role"`
	Ad          *entity.AdSummary   `json:"ad,omitempty"`
	OtherUser   *entity.UserSummary `json:"otherUser,omitempty"`
	LastMessage *MessageView        `json:"lastMessage,omitempty"`
	UnreadCount int                 `json:"unreadCount"`
}

type MessagePage struct {
	Messages   []*MessageView `json:"messages"`
	HasMore    bool           `json:"hasMore"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

type ReadReceipt struct {
	ConversationID string   `json:"conversationId"`
	ReadBy         string   `json:"readBy"`
	MessageIDs     []string `json:"messageIds"`
	MarkedCount    int      `json:"markedCount"`
	UnreadCount    int      `json:"unreadCount"`
}

func accessDenied() error {
	return errors.NotFound("Conversation", nil).WithMessage("Conversation not found or access denied")
}

// participant loads the conversation and the caller's role in it. Missing
// conversations and strangers get the same error.
func (uc *ChatUseCase) participant(ctx context.Context, userID, conversationID string) (*entity.Conversation, entity.Role, error) {
	if conversationID == "" {
		return nil, "", errors.BadRequest("Conversation ID is required", nil)
	}
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, "", accessDenied()
		}
		return nil, "", err
	}
	role, ok := conversation.RoleOf(userID)
	if !ok {
		return nil, "", accessDenied()
	}
	return conversation, role, nil
}

// JoinConversation authorizes userID for the conversation room.
func (uc *ChatUseCase) JoinConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conversation, _, err := uc.participant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	logger.Debug("conversation joined", "user_id", userID, "conversation_id", conversationID)
	return conversation, nil
}

func (input *SendMessageInput) normalize() error {
	if input.MessageType == "" {
		input.MessageType = entity.MessageTypeText
	}
	if !input.MessageType.Valid() {
		return errors.Validation("messageType must be one of: TEXT IMAGE DOCUMENT LOCATION CONTACT", nil)
	}
	n := utf8.RuneCountInString(input.Content)
	if n == 0 {
		return errors.Validation("Message content cannot be empty", nil)
	}
	if n > entity.MaxMessageLength {
		return errors.Validation("Message must be at most 2000 characters", nil)
	}
	if input.Attachments == nil {
		input.Attachments = []entity.Attachment{}
	}
	return nil
}

// SendMessage authorizes, persists and fans out one message. Nothing is
// published unless the message and the conversation update were stored.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*MessageView, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	conversation, senderRole, err := uc.participant(ctx, senderID, input.ConversationID)
	if err != nil {
		return nil, err
	}
	receiverID := conversation.Counterpart(senderRole)
	receiverRole := entity.RoleBuyer
	if senderRole == entity.RoleBuyer {
		receiverRole = entity.RoleSeller
	}

	if conversation.IsBlockedFor(senderRole) {
		logger.Info("message rejected by block", "conversation_id", conversation.ID, "sender_id", senderID)
		return nil, errors.Forbidden("You cannot send messages in this conversation", nil)
	}

	message := &entity.Message{
		ConversationID: conversation.ID,
		AdID:           conversation.AdID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        input.Content,
		MessageType:    input.MessageType,
		Attachments:    input.Attachments,
		IsRead:         false,
		CreatedAt:      uc.now(),
	}
	if err := uc.conversationRepo.AppendMessage(ctx, message, receiverRole); err != nil {
		logger.Error("persist message", "conversation_id", conversation.ID, "sender_id", senderID, "error", err)
		if errors.Is(err, errors.CodeNotFound) {
			return nil, accessDenied()
		}
		return nil, errors.Internal("Failed to send message", err)
	}

	view := &MessageView{Message: message, Sender: uc.userSummary(ctx, senderID)}

	uc.publisher.Publish(ToConversation(conversation.ID), EventNewMessage, NewMessagePayload{
		Message:        view,
		ConversationID: conversation.ID,
	})
	uc.publisher.Publish(ToUser(receiverID), EventMessageNotification, MessageNotificationPayload{
		ConversationID: conversation.ID,
		Message: NotificationMessage{
			ID:        message.ID,
			Content:   message.Content,
			Sender:    view.Sender,
			CreatedAt: message.CreatedAt,
		},
		Ad: uc.notificationAd(ctx, conversation.AdID),
	})

	logger.Info("message sent", "conversation_id", conversation.ID, "sender_id", senderID, "receiver_id", receiverID)
	return view, nil
}

// MarkMessagesRead marks the caller's unread messages (all of them, or only
// input.MessageIDs) as read and recomputes the caller-side counter.
func (uc *ChatUseCase) MarkMessagesRead(ctx context.Context, readerID string, input MarkReadInput) (*ReadReceipt, error) {
	conversation, role, err := uc.participant(ctx, readerID, input.ConversationID)
	if err != nil {
		return nil, err
	}

	result, err := uc.conversationRepo.MarkRead(ctx, repository.MarkReadInput{
		ConversationID: conversation.ID,
		ReaderID:       readerID,
		ReaderRole:     role,
		MessageIDs:     input.MessageIDs,
		ReadAt:         uc.now(),
	})
	if err != nil {
		logger.Error("mark messages read", "conversation_id", conversation.ID, "reader_id", readerID, "error", err)
		return nil, errors.Internal("Failed to mark messages as read", err)
	}

	uc.publisher.Publish(ToConversation(conversation.ID), EventMessagesRead, MessagesReadPayload{
		ConversationID: conversation.ID,
		ReadBy:         readerID,
		MessageIDs:     result.MessageIDs,
	})

	logger.Info("messages marked as read", "conversation_id", conversation.ID, "reader_id", readerID, "marked_count", len(result.MessageIDs))
	return &ReadReceipt{
		ConversationID: conversation.ID,
		ReadBy:         readerID,
		MessageIDs:     result.MessageIDs,
		MarkedCount:    len(result.MessageIDs),
		UnreadCount:    result.Unread,
	}, nil
}

// StartConversation returns the buyer's conversation about adID, creating it
// on first contact. created reports whether a new one was made.
func (uc *ChatUseCase) StartConversation(ctx context.Context, buyerID, adID string) (*ConversationView, bool, error) {
	adID = strings.TrimSpace(adID)
	if adID == "" {
		return nil, false, errors.BadRequest("Ad ID is required", nil)
	}

	ad, err := uc.adRepo.GetByID(ctx, adID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, false, errors.NotFound("Ad", err)
		}
		return nil, false, errors.Internal("Failed to load ad", err)
	}
	if !ad.Open() {
		return nil, false, errors.NotFound("Ad", nil)
	}
	if ad.UserID == buyerID {
		return nil, false, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	// Most starts reopen an existing conversation; only a miss pays for the
	// create transaction.
	created := false
	conversation, err := uc.conversationRepo.FindByTriple(ctx, ad.ID, buyerID, ad.UserID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			return nil, false, errors.Internal("Failed to start conversation", err)
		}
		conversation, created, err = uc.conversationRepo.GetOrCreate(ctx, &entity.Conversation{
			AdID:     ad.ID,
			BuyerID:  buyerID,
			SellerID: ad.UserID,
		})
		if err != nil {
			return nil, false, errors.Internal("Failed to start conversation", err)
		}
	}
	if created {
		logger.Info("conversation started", "conversation_id", conversation.ID, "ad_id", ad.ID, "buyer_id", buyerID, "seller_id", ad.UserID)
	}

	view := &ConversationView{
		Conversation: conversation,
		Role:         entity.RoleBuyer,
		Ad:           ad.Summary(),
		OtherUser:    uc.userSummary(ctx, ad.UserID),
		UnreadCount:  conversation.UnreadFor(entity.RoleBuyer),
	}
	return view, created, nil
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string, page, limit int) ([]*ConversationView, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultConversationLimit
	}
	if limit > MaxConversationLimit {
		limit = MaxConversationLimit
	}

	conversations, total, err := uc.conversationRepo.ListByParticipant(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list conversations", err)
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, c := range conversations {
		views = append(views, uc.view(ctx, userID, c))
	}
	return views, total, nil
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationView, error) {
	conversation, _, err := uc.participant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return uc.view(ctx, userID, conversation), nil
}

// ListMessages pages backwards through history. before is the ID of the
// oldest message the client already has; results are oldest first.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, conversationID, before string, limit int) (*MessagePage, error) {
	conversation, _, err := uc.participant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	messages, err := uc.conversationRepo.ListMessages(ctx, conversation.ID, repository.MessagePage{Before: before, Limit: limit})
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
		return nil, errors.Internal("Failed to list messages", err)
	}

	senders := map[string]*entity.UserSummary{
		conversation.BuyerID:  uc.userSummary(ctx, conversation.BuyerID),
		conversation.SellerID: uc.userSummary(ctx, conversation.SellerID),
	}
	page := &MessagePage{Messages: make([]*MessageView, 0, len(messages))}
	for _, m := range messages {
		page.Messages = append(page.Messages, &MessageView{Message: m, Sender: senders[m.SenderID]})
	}
	page.HasMore = len(messages) == limit
	if page.HasMore {
		page.NextCursor = messages[0].ID
	}
	return page, nil
}

// ToggleBlock sets the caller's own block flag. The other side is not told.
func (uc *ChatUseCase) ToggleBlock(ctx context.Context, userID, conversationID string, block bool) (*ConversationView, error) {
	conversation, role, err := uc.participant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := uc.conversationRepo.SetBlocked(ctx, conversation.ID, role, block); err != nil {
		return nil, errors.Internal("Failed to update conversation", err)
	}
	if role == entity.RoleBuyer {
		conversation.IsBlockedByBuyer = block
	} else {
		conversation.IsBlockedBySeller = block
	}
	logger.Info("conversation block updated", "conversation_id", conversation.ID, "user_id", userID, "blocked", block)
	return uc.view(ctx, userID, conversation), nil
}

func (uc *ChatUseCase) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := uc.conversationRepo.SumUnread(ctx, userID)
	if err != nil {
		return 0, errors.Internal("Failed to count unread messages", err)
	}
	return n, nil
}

func (uc *ChatUseCase) view(ctx context.Context, userID string, c *entity.Conversation) *ConversationView {
	role, _ := c.RoleOf(userID)
	v := &ConversationView{
		Conversation: c,
		Role:         role,
		OtherUser:    uc.userSummary(ctx, c.Counterpart(role)),
		UnreadCount:  c.UnreadFor(role),
	}
	if ad, err := uc.adRepo.GetByID(ctx, c.AdID); err == nil {
		v.Ad = ad.Summary()
	}
	if c.LastMessageID != "" {
		if m, err := uc.conversationRepo.GetMessage(ctx, c.ID, c.LastMessageID); err == nil {
			v.LastMessage = &MessageView{Message: m}
		}
	}
	return v
}

// userSummary never fails; an unreadable profile degrades to the bare ID.
func (uc *ChatUseCase) userSummary(ctx context.Context, userID string) *entity.UserSummary {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("load user summary", "user_id", userID, "error", err)
		}
		return &entity.UserSummary{ID: userID}
	}
	return user.Summary()
}

func (uc *ChatUseCase) notificationAd(ctx context.Context, adID string) NotificationAd {
	ad, err := uc.adRepo.GetByID(ctx, adID)
	if err != nil {
		return NotificationAd{ID: adID}
	}
	return NotificationAd{ID: ad.ID, Title: ad.Title}
}
