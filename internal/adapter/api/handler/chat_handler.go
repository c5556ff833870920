package handler

import (
	"github.com/labstack/echo/v4"

	"karsaz/internal/adapter/api/middleware"
	"karsaz/internal/domain/entity"
	"karsaz/internal/usecase"
	"karsaz/pkg/errors"
	"karsaz/pkg/response"
	"karsaz/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startConversationRequest struct {
	AdID string `json:"adId" validate:"required"`
}

type sendMessageRequest struct {
	Content     string              `json:"content" validate:"required,max=2000"`
	MessageType string              `json:"messageType,omitempty" validate:"omitempty,oneof=TEXT IMAGE DOCUMENT LOCATION CONTACT"`
	Attachments []entity.Attachment `json:"attachments,omitempty"`
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds,omitempty" validate:"omitempty,dive,required"`
}

type blockRequest struct {
	Block *bool `json:"block" validate:"required"`
}

// StartConversation opens (or reopens) the caller's conversation about an ad.
func (h *ChatHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	view, created, err := h.chatUseCase.StartConversation(c.Request().Context(), middleware.UserID(c), req.AdID)
	if err != nil {
		return response.Error(c, err)
	}
	if created {
		return response.Created(c, view)
	}
	return response.Success(c, view)
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	params := utils.GetPaginationParams(c, usecase.DefaultConversationLimit, usecase.MaxConversationLimit)

	views, total, err := h.chatUseCase.ListConversations(c.Request().Context(), middleware.UserID(c), params.Page, params.PageSize)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Paginated(c, views, total, params.Page, params.PageSize)
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	view, err := h.chatUseCase.GetConversation(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, view)
}

func (h *ChatHandler) ToggleBlock(c echo.Context) error {
	var req blockRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	view, err := h.chatUseCase.ToggleBlock(c.Request().Context(), middleware.UserID(c), c.Param("id"), *req.Block)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, view)
}

// ListMessages pages backwards with ?before=<messageId>&limit=N.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	before, limit := utils.GetCursorParams(c, usecase.DefaultMessageLimit, usecase.MaxMessageLimit)

	page, err := h.chatUseCase.ListMessages(c.Request().Context(), middleware.UserID(c), c.Param("id"), before, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.CursorPaginated(c, page.Messages, page.HasMore, page.NextCursor)
}

// SendMessage is the HTTP fallback of the send_message socket event. Live
// connections receive the same broadcasts.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	view, err := h.chatUseCase.SendMessage(c.Request().Context(), middleware.UserID(c), usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		MessageType:    entity.MessageType(req.MessageType),
		Attachments:    req.Attachments,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, view)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	var req markReadRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return response.Error(c, errors.BadRequest("Invalid request body", err))
		}
		if err := c.Validate(&req); err != nil {
			return response.Error(c, err)
		}
	}

	receipt, err := h.chatUseCase.MarkMessagesRead(c.Request().Context(), middleware.UserID(c), usecase.MarkReadInput{
		ConversationID: c.Param("id"),
		MessageIDs:     req.MessageIDs,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, receipt)
}

func (h *ChatHandler) UnreadCount(c echo.Context) error {
	n, err := h.chatUseCase.UnreadCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"unreadCount": n})
}
