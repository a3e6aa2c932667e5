package handlers

import (
	"github.com/gin-gonic/gin"

	"social-app-server/internal/config"
	"social-app-server/internal/middleware"
	"social-app-server/internal/utils"
)

// RealtimeHandler mints socket tickets for the WebSocket handshake.
type RealtimeHandler struct {
	Cfg *config.Config
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(cfg *config.Config) *RealtimeHandler {
	return &RealtimeHandler{Cfg: cfg}
}

// IssueTicket mints a short-lived signed ticket bound to the caller's HTTP
// session identity. The WebSocket handshake presents this ticket instead of a
// bare user id, so the socket cannot claim someone else's identity.
func (h *RealtimeHandler) IssueTicket(c *gin.Context) {
	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(c)

	ticket, err := utils.GenerateSocketTicket(callerID, role, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to issue socket ticket")
		return
	}
	utils.Success(c, "Socket ticket issued", gin.H{
		"ticket":    ticket,
		"expiresIn": h.Cfg.SocketTicketTTLSeconds,
	})
}
