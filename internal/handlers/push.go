package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-app-server/internal/middleware"
	"social-app-server/internal/models"
	"social-app-server/internal/utils"
)

// PushSubscriptionHandler manages a device's web-push subscription records.
type PushSubscriptionHandler struct {
	DB *gorm.DB
}

// NewPushSubscriptionHandler creates a new PushSubscriptionHandler.
func NewPushSubscriptionHandler(db *gorm.DB) *PushSubscriptionHandler {
	return &PushSubscriptionHandler{DB: db}
}

// SubscribeRequest mirrors the browser PushSubscription shape.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// Subscribe registers (or re-registers) a device's push subscription. The
// endpoint is unique, so resubscribing the same device just reassigns it.
func (h *PushSubscriptionHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	sub := models.PushSubscription{
		UserID:   callerID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(&sub).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to store push subscription")
		return
	}
	utils.Created(c, "Push subscription stored", nil)
}

// UnsubscribeRequest identifies the subscription to remove by its endpoint.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
}

// Unsubscribe removes the caller's subscription for the given endpoint.
func (h *PushSubscriptionHandler) Unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	res := h.DB.Delete(&models.PushSubscription{}, "user_id = ? AND endpoint = ?", callerID, req.Endpoint)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to remove push subscription")
		return
	}
	utils.Success(c, "Push subscription removed", nil)
}
