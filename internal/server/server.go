package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"mango/internal/ai"
	"mango/internal/config"
	"mango/internal/handler"
	authHandler "mango/internal/handler/auth"
	"mango/internal/pkg/cache"
	"mango/internal/pkg/debito"
	"mango/internal/pkg/jwt"
	"mango/internal/pkg/mongodb"
	"mango/internal/pkg/storage"
	"mango/internal/pkg/storagefactory"
	"mango/internal/repository"
	authRepo "mango/internal/repository/auth"
	"mango/internal/server/middleware"
	"mango/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB (可选，缺失时对话不持久化、认证/订阅接口关闭)
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := s.engine.Group("/api/v1")

	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}

	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}

	refreshTokenExpiry := s.cfg.Auth.RefreshTokenExpiry
	if refreshTokenExpiry == 0 {
		refreshTokenExpiry = 7 * 24 * time.Hour
	}

	jwtUtil := jwt.NewJWT(jwtSecret, accessTokenExpiry)

	// 认证接口
	if s.mongo != nil {
		userRepo := authRepo.NewUserRepo(s.mongo.Database())
		refreshTokenRepo := authRepo.NewRefreshTokenRepo(s.mongo.Database())

		authSvc := service.NewAuthService(
			userRepo,
			refreshTokenRepo,
			jwtSecret,
			accessTokenExpiry,
			refreshTokenExpiry,
		)
		authHdl := authHandler.NewHandler(authSvc)

		v1.POST("/auth/register", authHdl.Register)
		v1.POST("/auth/login", authHdl.Login)
		v1.POST("/auth/refresh", authHdl.Refresh)
		v1.POST("/auth/logout", authHdl.Logout)
		v1.GET("/auth/me", middleware.Auth(jwtUtil), authHdl.GetMe)
	} else {
		log.Warn().Msg("MongoDB not configured, auth endpoints disabled")
	}

	// Chat / Conversation / Billing 接口
	if s.cfg.Gemini.APIKey == "" {
		log.Warn().Msg("Gemini API key not configured, chat endpoints disabled")
		return
	}
	if s.mongo == nil {
		log.Warn().Msg("MongoDB not configured, chat endpoints disabled")
		return
	}

	aiClient := ai.NewClient(&s.cfg.Gemini)

	// 标题链（可选，API Key 缺失时回退到本地截断标题）
	var titleChain *ai.TitleChain
	if s.cfg.Title.APIKey != "" {
		tc, err := ai.NewTitleChain(context.Background(), &s.cfg.Title)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize title chain, using fallback titles")
		} else {
			titleChain = tc
			log.Info().Str("provider", s.cfg.Title.Provider).Str("model", s.cfg.Title.Model).Msg("initialized title chain")
		}
	}

	// 对象存储（可选，缺失时生成的图片以 data URI 返回）
	var store storage.Storage
	if s.cfg.Storage.Type != "" {
		st, err := storagefactory.NewStorage(context.Background(), &s.cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize storage, keeping images inline")
		} else {
			store = st
			log.Info().Str("type", s.cfg.Storage.Type).Msg("initialized storage")
		}
	}

	convRepo := repository.NewConversationRepo(s.mongo.Database())
	chatSvc := service.NewChatService(convRepo, aiClient, titleChain, store)
	chatHdl := handler.NewChatHandler(chatSvc)
	convHdl := handler.NewConversationHandler(chatSvc)

	// 匿名可用，登录后才持久化
	v1.POST("/chat", middleware.OptionalAuth(jwtUtil), chatHdl.Chat)
	v1.POST("/chat/stream", middleware.OptionalAuth(jwtUtil), chatHdl.ChatStream)

	// 会话管理（需要登录）
	conv := v1.Group("/conversations", middleware.Auth(jwtUtil))
	{
		conv.GET("", convHdl.List)
		conv.GET("/:id", convHdl.Get)
		conv.DELETE("/:id", convHdl.Delete)
	}

	// 订阅（需要登录）
	subRepo := repository.NewSubscriptionRepo(s.mongo.Database())
	gateway := debito.NewClient(&s.cfg.Billing)
	billingSvc := service.NewBillingService(subRepo, gateway, s.redis)
	billingHdl := handler.NewBillingHandler(billingSvc)

	billing := v1.Group("/billing", middleware.Auth(jwtUtil))
	{
		billing.POST("/subscribe", billingHdl.Subscribe)
		billing.GET("/subscription", billingHdl.GetSubscription)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
