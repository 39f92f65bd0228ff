package apiserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/motortrade/salesd/pkg/apiserver/handlers"
	"github.com/motortrade/salesd/pkg/apiserver/middleware"
	"github.com/motortrade/salesd/pkg/auth"
	"github.com/motortrade/salesd/pkg/config"
	"github.com/motortrade/salesd/pkg/sales"
)

// Sweeper triggers one on-demand reconciliation pass.
type Sweeper = handlers.Sweeper

// WebhookLogReader exposes a sale's delivery-attempt history.
type WebhookLogReader = handlers.WebhookLogReader

type Server struct {
	router  *gin.Engine
	service *sales.Service
	sweeper Sweeper
	logs    WebhookLogReader
	tokens  *auth.TokenManager
	rdb     *redis.Client
	cfg     *config.Config
	logger  *zap.Logger
}

// NewServer wires the HTTP surface. rdb may be nil, in which case rate
// limiting is disabled.
func NewServer(service *sales.Service, sweeper Sweeper, logs WebhookLogReader, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		sweeper: sweeper,
		logs:    logs,
		tokens:  auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		rdb:     rdb,
		cfg:     cfg,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(""))
	r.Use(middleware.RateLimit(s.rdb, s.cfg.RateLimit.MaxRequests, s.cfg.RateLimit.Window, s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "salesd"})
	})

	saleHandler := handlers.NewSaleHandler(s.service, s.sweeper, s.logs, s.logger)

	api := r.Group("/api/v1")
	{
		api.POST("/sales", saleHandler.Create)
		api.GET("/sales/:id", saleHandler.Get)
		api.POST("/webhook/payment", saleHandler.PaymentCallback)

		authed := api.Group("")
		authed.Use(middleware.Auth(s.tokens))
		authed.GET("/sales", saleHandler.List)
		authed.GET("/admin/sales/:id/webhooks", saleHandler.WebhookLogs)
		authed.POST("/admin/webhook/process", saleHandler.ProcessWebhooks)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// noopSweeper satisfies Sweeper when no scheduler is wired (tests, tooling).
type noopSweeper struct{}

func (noopSweeper) RunOnce(context.Context) error { return nil }

func NoopSweeper() Sweeper {
	return noopSweeper{}
}
