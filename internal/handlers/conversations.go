package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"social-app-server/internal/chat"
	"social-app-server/internal/middleware"
	"social-app-server/internal/models"
	"social-app-server/internal/utils"
)

// ConversationHandler handles the messaging HTTP surface.
type ConversationHandler struct {
	Store    *chat.Store
	Pipeline *chat.Pipeline
	Notifier chat.Notifier
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(store *chat.Store, pipeline *chat.Pipeline, notifier chat.Notifier) *ConversationHandler {
	return &ConversationHandler{Store: store, Pipeline: pipeline, Notifier: notifier}
}

// CreateConversationRequest represents the request body for starting a conversation.
type CreateConversationRequest struct {
	TargetID string `json:"targetId" binding:"required,uuid"`
}

// CreateConversation creates (or returns) the conversation with the target user.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	conv, created, err := h.Store.CreateOrGetConversation(callerID, req.TargetID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if created {
		// New request: let the target know out of band. Failures stay in
		// the dispatcher, never here.
		go h.Notifier.Notify(req.TargetID, models.NotificationTypeConversationRequest,
			"New conversation request", "", map[string]string{"conversationId": conv.ID})
		utils.Created(c, "Conversation created", conv)
		return
	}
	utils.Success(c, "Conversation fetched", conv)
}

// ListConversations returns the caller's visible conversation list.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	previews, err := h.Store.ListConversations(callerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Conversations fetched successfully", previews)
}

// AcceptConversation transitions a pending conversation to accepted.
func (h *ConversationHandler) AcceptConversation(c *gin.Context) {
	h.resolveConversation(c, h.Store.Accept)
}

// DeclineConversation transitions a pending conversation to declined.
func (h *ConversationHandler) DeclineConversation(c *gin.Context) {
	h.resolveConversation(c, h.Store.Decline)
}

func (h *ConversationHandler) resolveConversation(c *gin.Context, resolve func(string, string) (models.ConversationStatus, error)) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	status, err := resolve(c.Param("id"), callerID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Conversation status", gin.H{"status": status})
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage handles sending a new message into a conversation.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	message, err := h.Pipeline.Send(c.Param("id"), callerID, req.Content)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Message sent successfully", message)
}

// ListMessages returns a newest-first page of the caller's visible messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid 'limit' value")
			return
		}
		limit = parsed
	}

	messages, nextCursor, err := h.Pipeline.ListMessages(c.Param("id"), callerID, c.Query("cursor"), limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", gin.H{
		"messages":   messages,
		"nextCursor": nextCursor,
	})
}

// MarkRead stamps every incoming message in the conversation as read.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Pipeline.MarkRead(c.Param("id"), callerID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Conversation marked read", nil)
}

// HideConversation removes the conversation from the caller's list.
func (h *ConversationHandler) HideConversation(c *gin.Context) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Store.Hide(c.Param("id"), callerID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Conversation hidden", nil)
}

// ClearConversation wipes the caller's visible history.
func (h *ConversationHandler) ClearConversation(c *gin.Context) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Store.Clear(c.Param("id"), callerID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Conversation cleared", nil)
}
