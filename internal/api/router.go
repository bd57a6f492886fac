package api

import (
	"log/slog"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/handlers"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/response"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	apperrors "github.com/welldanyogia/webrana-infinimail-backend/internal/errors"
	seclog "github.com/welldanyogia/webrana-infinimail-backend/internal/logger"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/webhook"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/websocket"
	"gorm.io/gorm"
)

// RouterConfig holds the dependencies NewRouter wires into routes and
// middleware.
type RouterConfig struct {
	DB     *gorm.DB
	Store  repository.Store
	Bus    *bus.Bus
	Access *access.Controller

	Dispatcher *webhook.Dispatcher
	Hub        *websocket.Hub

	Logger *slog.Logger

	DomainName     string
	AuthDomain     string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// NewRouter creates and configures the Echo router with every route in
// spec.md §6's HTTP surface table.
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())

	if len(cfg.AllowedOrigins) > 0 {
		os.Setenv("ALLOWED_ORIGINS", strings.Join(cfg.AllowedOrigins, ","))
	}
	e.Use(middleware.SecureCORS())

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(cfg.RateLimit, cfg.RateBurst, cfg.Logger))
	} else {
		e.Use(middleware.RateLimiter(cfg.Logger))
	}

	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	e.Use(middleware.BearerAuth(cfg.Access, cfg.Logger))

	var security *seclog.SecurityLogger
	if cfg.Logger != nil {
		security = seclog.NewSecurityLoggerWithHandler(cfg.Logger.Handler())
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	mailboxHandler := handlers.NewMailboxHandler(cfg.Access, cfg.DomainName, security)
	emailHandler := handlers.NewEmailHandler(cfg.Store, cfg.Access, cfg.Bus, cfg.DomainName)
	webhookHandler := handlers.NewWebhookHandler(cfg.Store, cfg.Access, cfg.Dispatcher, cfg.DomainName)
	authHandler := handlers.NewAuthHandler(cfg.Access, cfg.Store, cfg.AuthDomain)

	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	apiGroup := e.Group("/api")

	mailbox := apiGroup.Group("/mailbox")
	mailbox.GET("/:address/status", mailboxHandler.Status)
	mailbox.POST("/:address/claim", mailboxHandler.Claim)
	mailbox.POST("/:address/release", mailboxHandler.Release)

	apiGroup.GET("/emails/:address", emailHandler.List)
	apiGroup.GET("/email/:id", emailHandler.Get)
	apiGroup.DELETE("/email/:id", emailHandler.Delete)
	apiGroup.GET("/search", emailHandler.Search)

	apiGroup.POST("/webhooks", webhookHandler.Create)
	apiGroup.GET("/webhooks/:address", webhookHandler.ListForMailbox)
	apiGroup.GET("/webhook/:id", webhookHandler.Get)
	apiGroup.PUT("/webhook/:id", webhookHandler.Update)
	apiGroup.DELETE("/webhook/:id", webhookHandler.Delete)
	apiGroup.POST("/webhook/:id/test", webhookHandler.Test)

	auth := apiGroup.Group("/auth")
	auth.GET("/status", authHandler.Status)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me)

	apiGroup.GET("/ws/:address", newWebSocketHandler(cfg))

	return e
}

// newWebSocketHandler upgrades GET /api/ws/:address, verifying the
// per-mailbox password as a query parameter before the upgrade completes
// so a rejected attempt maps to a plain HTTP status instead of an opened
// socket that immediately closes.
func newWebSocketHandler(cfg *RouterConfig) echo.HandlerFunc {
	upgrader := websocket.NewSecureUpgrader(cfg.Logger)

	return func(c echo.Context) error {
		addr := address.Normalize(c.Param("address"), cfg.DomainName)

		decision, err := cfg.Access.CheckMailboxAccess(c.Request().Context(), addr, c.QueryParam("password"))
		if err != nil {
			return response.InternalError(c, "failed to check mailbox access")
		}
		switch decision {
		case access.DecisionPasswordRequired:
			return response.Error(c, apperrors.ErrPasswordRequired)
		case access.DecisionWrongPassword:
			return response.Error(c, apperrors.ErrWrongPassword)
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			cfg.Logger.Warn("websocket upgrade failed", "address", addr, "error", err)
			return nil
		}

		client := websocket.NewClient(cfg.Hub, conn, addr, cfg.Logger)
		client.Run(cfg.Bus)
		return nil
	}
}
