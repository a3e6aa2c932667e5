package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"social-app-server/internal/chat"
	"social-app-server/internal/config"
	"social-app-server/internal/handlers"
	"social-app-server/internal/middleware"
	"social-app-server/internal/notify"
	"social-app-server/internal/realtime"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	// Wire the messaging core: store -> pipeline -> fan-out/notify side effects.
	registry := realtime.Default()
	dispatcher := notify.NewDispatcher(db, pushSender(db, cfg), cfg.AppURL)
	store := chat.NewStore(db)
	pipeline := chat.NewPipeline(db, store, registry, dispatcher)

	conversationHandler := handlers.NewConversationHandler(store, pipeline, dispatcher)
	realtimeHandler := handlers.NewRealtimeHandler(cfg)
	pushHandler := handlers.NewPushSubscriptionHandler(db)
	gateway := realtime.NewGateway(registry, cfg)

	// The WebSocket endpoint is outside the JWT middleware: its handshake
	// authenticates with a socket ticket minted by /realtime/ticket.
	router.GET("/ws", gateway.HandleWebSocket)

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		conversationRoutes := private.Group("/conversations")
		{
			conversationRoutes.POST("", conversationHandler.CreateConversation)
			conversationRoutes.GET("", conversationHandler.ListConversations)
			conversationRoutes.POST("/:id/accept", conversationHandler.AcceptConversation)
			conversationRoutes.POST("/:id/decline", conversationHandler.DeclineConversation)
			conversationRoutes.GET("/:id/messages", conversationHandler.ListMessages)
			conversationRoutes.POST("/:id/messages", conversationHandler.SendMessage)
			conversationRoutes.POST("/:id/read", conversationHandler.MarkRead)
			conversationRoutes.POST("/:id/hide", conversationHandler.HideConversation)
			conversationRoutes.POST("/:id/clear", conversationHandler.ClearConversation)
		}

		realtimeRoutes := private.Group("/realtime")
		{
			realtimeRoutes.POST("/ticket", realtimeHandler.IssueTicket)
		}

		pushRoutes := private.Group("/push")
		{
			pushRoutes.POST("/subscriptions", pushHandler.Subscribe)
			pushRoutes.DELETE("/subscriptions", pushHandler.Unsubscribe)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}

// pushSender keeps the nil-interface pitfall out of the dispatcher wiring: a
// nil *WebPushSender must become a nil PushSender, not a non-nil interface.
func pushSender(db *gorm.DB, cfg *config.Config) notify.PushSender {
	sender := notify.NewWebPushSender(db, cfg.WebPush)
	if sender == nil {
		return nil
	}
	return sender
}
