// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"concierge-service/internal/config"
	"concierge-service/internal/db"
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
	"concierge-service/internal/pkg/jwt"
	"concierge-service/internal/pkg/session"
	"concierge-service/internal/repository/postgres"
	"concierge-service/internal/service/ai"
	authUsecase "concierge-service/internal/service/auth"
	businessUsecase "concierge-service/internal/service/business"
	channelUsecase "concierge-service/internal/service/channel"
	conversationUsecase "concierge-service/internal/service/conversation"
	"concierge-service/internal/service/email"
	knowledgeUsecase "concierge-service/internal/service/knowledge"
	"concierge-service/internal/service/messaging"
	subscriptionUsecase "concierge-service/internal/service/subscription"
	"concierge-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg         config.AppConfig
	engine      *gin.Engine
	logger      *zap.Logger
	authService *authUsecase.AuthService

	httpServer *http.Server
	hubCancel  context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Rate limiter & webhook dedup -----
	rateLimiter := session.NewRateLimiter(redisClient)
	deduper := session.NewDeduper(redisClient)

	// ----- Email -----
	emailSender := email.NewSender(
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
		s.cfg.SMTPUser,
		s.cfg.SMTPPass,
		s.cfg.SMTPFromName,
		s.cfg.SMTPSecure,
	)

	// ----- Repositories -----
	businessRepo := postgres.NewBusinessRepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	channelRepo := postgres.NewChannelConfigRepository(pool)
	conversationRepo := postgres.NewConversationRepository(pool)
	knowledgeRepo := postgres.NewKnowledgeRepository(pool)
	guestRepo := postgres.NewGuestRepository(pool)

	// ----- WebSocket hub -----
	hub := websocket.NewHub(jwtManager.Verifier)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	s.hubCancel = hubCancel
	go hub.Run(hubCtx)

	// ----- Assistant & outbound providers -----
	var responder ai.Responder
	if s.cfg.OpenAIAPIKey != "" {
		responder = ai.NewGPTResponder(
			s.cfg.OpenAIAPIKey,
			s.cfg.OpenAIModel,
			s.cfg.OpenAIMaxTokens,
			float32(s.cfg.OpenAITemperature),
			logger,
		)
	} else {
		logger.Warn("OPENAI_API_KEY not set, assistant replies disabled")
	}

	sender := messaging.NewProviderSender(messaging.ProviderConfig{
		SMSAPIURL:     s.cfg.SMSAPIURL,
		SMSAccountSID: s.cfg.SMSAccountSID,
		SMSAuthToken:  s.cfg.SMSAuthToken,
		WAAPIURL:      s.cfg.WAAPIURL,
		WAAccessToken: s.cfg.WAAccessToken,
	}, logger)

	// ----- Services -----
	authService := authUsecase.NewAuthService(
		businessRepo,
		adminRepo,
		subscriptionRepo,
		jwtManager.Generator,
		jwtManager.Verifier,
		rateLimiter,
		emailSender,
		logger,
	)
	s.authService = authService

	businessService := businessUsecase.NewBusinessService(businessRepo, logger)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(businessRepo, subscriptionRepo, emailSender, logger)
	channelService := channelUsecase.NewChannelService(channelRepo, logger)
	knowledgeService := knowledgeUsecase.NewKnowledgeService(knowledgeRepo, logger)
	conversationService := conversationUsecase.NewConversationService(
		conversationRepo,
		businessRepo,
		knowledgeRepo,
		guestRepo,
		responder,
		hub,
		logger,
	)
	dispatcher := messaging.NewDispatcher(
		channelRepo,
		conversationRepo,
		businessRepo,
		subscriptionService,
		knowledgeRepo,
		guestRepo,
		deduper,
		responder,
		sender,
		hub,
		s.cfg.WAVerifyToken,
		logger,
	)

	// ----- Seed super admin -----
	if err := s.initializeSuperAdmin(); err != nil {
		logger.Error("failed to initialize super admin", zap.Error(err))
	}

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(authService, businessService, logger),
		BusinessHandler:     businessHandler.NewBusinessHandler(businessService, logger),
		ConversationHandler: conversationHandler.NewConversationHandler(conversationService, logger),
		WidgetHandler:       widgetHandler.NewWidgetHandler(conversationService, logger),
		ChannelHandler:      channelHandler.NewChannelHandler(channelService, logger),
		WebhookHandler:      webhookHandler.NewWebhookHandler(dispatcher, logger),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService, logger),
		KnowledgeHandler:    knowledgeHandler.NewKnowledgeHandler(knowledgeService, logger),
		GuestHandler:        guestHandler.NewGuestHandler(guestRepo, logger),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(authService),
		TierMiddleware:      middleware.NewTierMiddleware(subscriptionService, logger),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hubCancel != nil {
		s.hubCancel()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// initializeSuperAdmin seeds the platform admin account on first boot.
func (s *Server) initializeSuperAdmin() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.cfg.SuperAdminEmail == "" || s.cfg.SuperAdminPassword == "" {
		s.logger.Warn("SUPER_ADMIN_EMAIL/SUPER_ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	if len(s.cfg.SuperAdminPassword) < 8 {
		return fmt.Errorf("super admin password must be at least 8 characters")
	}

	return s.authService.EnsureSuperAdminExists(ctx, s.cfg.SuperAdminEmail, s.cfg.SuperAdminPassword)
}
