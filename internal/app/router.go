// internal/app/router.go
package app

import (
	authHandler "concierge-service/internal/handlers/auth"
	businessHandler "concierge-service/internal/handlers/business"
	channelHandler "concierge-service/internal/handlers/channel"
	conversationHandler "concierge-service/internal/handlers/conversation"
	guestHandler "concierge-service/internal/handlers/guest"
	knowledgeHandler "concierge-service/internal/handlers/knowledge"
	subscriptionHandler "concierge-service/internal/handlers/subscription"
	webhookHandler "concierge-service/internal/handlers/webhook"
	wsHandler "concierge-service/internal/handlers/websocket"
	widgetHandler "concierge-service/internal/handlers/widget"
	"concierge-service/internal/middleware"
	"concierge-service/internal/pkg/tier"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	BusinessHandler     *businessHandler.BusinessHandler
	ConversationHandler *conversationHandler.ConversationHandler
	WidgetHandler       *widgetHandler.WidgetHandler
	ChannelHandler      *channelHandler.ChannelHandler
	WebhookHandler      *webhookHandler.WebhookHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	KnowledgeHandler    *knowledgeHandler.KnowledgeHandler
	GuestHandler        *guestHandler.GuestHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	TierMiddleware      *middleware.TierMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/admin/login", h.AuthHandler.AdminLogin)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.BusinessAuth()...)
	{
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}

	// ==================== Pricing (public) ====================
	api.GET("/plans", h.SubscriptionHandler.ListPlans)

	// ==================== Widget (public, session-scoped) ====================
	widget := api.Group("/widget")
	{
		widget.GET("/conversations", h.WidgetHandler.GetConversation) // ?sessionId=
		widget.POST("/messages", h.WidgetHandler.PostMessage)
		widget.POST("/rate", h.WidgetHandler.Rate)
	}

	// ==================== Provider Webhooks (public) ====================
	webhooks := api.Group("/channels")
	{
		webhooks.POST("/sms/webhook", h.WebhookHandler.SMSInbound)
		webhooks.POST("/sms/status", h.WebhookHandler.SMSStatus)
		webhooks.POST("/whatsapp/webhook", h.WebhookHandler.WhatsAppInbound)
		webhooks.GET("/whatsapp/webhook", h.WebhookHandler.WhatsAppVerify)
	}

	// ==================== Business Profile ====================
	businessGroup := api.Group("/business")
	businessGroup.Use(h.AuthMiddleware.BusinessAuth()...)
	{
		businessGroup.GET("/profile", h.BusinessHandler.GetProfile)
		businessGroup.PUT("/profile", h.BusinessHandler.UpdateProfile)
	}

	// ==================== Conversations (inbox) ====================
	conversations := api.Group("/conversations")
	conversations.Use(h.AuthMiddleware.BusinessAuth()...)
	{
		conversations.GET("", h.ConversationHandler.List) // ?conversationId= for detail
		conversations.PATCH("", h.ConversationHandler.Patch)
	}

	// ==================== Knowledge Base ====================
	knowledge := api.Group("/knowledge")
	knowledge.Use(append(h.AuthMiddleware.BusinessAuth(), h.TierMiddleware.Require(tier.AreaKnowledgeBase))...)
	{
		knowledge.POST("", h.KnowledgeHandler.Create)
		knowledge.GET("", h.KnowledgeHandler.List)
		knowledge.PUT("/:id", h.KnowledgeHandler.Update)
		knowledge.DELETE("/:id", h.KnowledgeHandler.Delete)
	}

	// ==================== Channel Configuration ====================
	channels := api.Group("/channels")
	channels.Use(append(h.AuthMiddleware.BusinessAuth(), h.TierMiddleware.Require(tier.AreaMultiChannel))...)
	{
		channels.POST("", h.ChannelHandler.Create)
		channels.GET("", h.ChannelHandler.List)
		channels.PUT("/:id", h.ChannelHandler.Update)
		channels.DELETE("/:id", h.ChannelHandler.Delete)
	}

	// ==================== Guest Intelligence ====================
	guests := api.Group("/guests")
	guests.Use(append(h.AuthMiddleware.BusinessAuth(), h.TierMiddleware.Require(tier.AreaGuestIntelligence))...)
	{
		guests.GET("", h.GuestHandler.List)
	}

	// ==================== Subscription ====================
	subscriptions := api.Group("/subscription")
	subscriptions.Use(h.AuthMiddleware.BusinessAuth()...)
	{
		subscriptions.GET("", h.SubscriptionHandler.Get)
		subscriptions.PUT("/tier", h.SubscriptionHandler.ChangeTier)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/businesses", h.BusinessHandler.ListBusinesses)
		admin.DELETE("/businesses/:id", h.BusinessHandler.PurgeBusiness)
		admin.POST("/subscriptions/:id/payment-failed", h.SubscriptionHandler.PaymentFailed)
		admin.POST("/subscriptions/:id/payment-succeeded", h.SubscriptionHandler.PaymentSucceeded)
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
