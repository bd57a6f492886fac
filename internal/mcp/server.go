// Package mcp exposes a small HTTP tool surface over the same Storage
// Engine and Webhook Dispatcher the main API uses, so an MCP-capable
// client can list/read/delete/search mailbox emails and register
// webhooks without going through the mailbox-password-gated HTTP API.
// It is enabled only when MCP_ENABLED is set.
package mcp

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// Config holds the dependencies a tool Server is built from.
type Config struct {
	Store  repository.Store
	Domain string
	Logger *slog.Logger
}

// Server implements the MCP tool surface: a root capability document,
// a tool catalog, and a single call-tool endpoint that dispatches by name.
type Server struct {
	store  repository.Store
	domain string
	logger *slog.Logger
}

// NewServer creates a new Server.
func NewServer(cfg Config) *Server {
	return &Server{store: cfg.Store, domain: cfg.Domain, logger: cfg.Logger}
}

// NewRouter builds the Echo instance ListenAndServe-style callers run
// independently of the main API router, on its own port.
func NewRouter(cfg Config) *echo.Echo {
	s := NewServer(cfg)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	e.GET("/", s.handleRoot)
	e.GET("/tools", s.handleListTools)
	e.POST("/tools/:name", s.handleCallTool)
	e.GET("/resources", s.handleListResources)
	e.GET("/resources/:id", s.handleReadResource)

	return e
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":        "infinimail-mcp",
		"version":     "1.0.0",
		"description": "Email management MCP server",
		"capabilities": map[string]bool{
			"tools":     true,
			"resources": true,
		},
	})
}

func (s *Server) handleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"tools": toolCatalog})
}

// handleCallTool dispatches a named tool call. Every tool takes its
// arguments as a JSON object body and returns a JSON object result; errors
// map to the same HTTP status codes the spec's error taxonomy uses.
func (s *Server) handleCallTool(c echo.Context) error {
	var args map[string]any
	if err := c.Bind(&args); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	tool, ok := tools[c.Param("name")]
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("tool not found"))
	}
	return tool(s, c, args)
}

func (s *Server) handleListResources(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"resources": []map[string]string{
			{"uri": "email://*", "name": "Email", "description": "Email content resource", "mimeType": "application/json"},
			{"uri": "webhook://*", "name": "Webhook", "description": "Webhook configuration resource", "mimeType": "application/json"},
		},
	})
}

func (s *Server) handleReadResource(c echo.Context) error {
	id := c.Param("id")
	switch {
	case hasPrefix(id, "email://"):
		return s.readEmailResource(c, id[len("email://"):])
	case hasPrefix(id, "webhook://"):
		return s.readWebhookResource(c, id[len("webhook://"):])
	default:
		return c.JSON(http.StatusNotFound, errorBody("resource not found"))
	}
}

func (s *Server) readEmailResource(c echo.Context, id string) error {
	email, err := s.store.GetEmail(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorBody("email not found"))
	}
	return c.JSON(http.StatusOK, email)
}

func (s *Server) readWebhookResource(c echo.Context, id string) error {
	webhook, err := s.store.GetWebhook(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorBody("webhook not found"))
	}
	return c.JSON(http.StatusOK, webhook)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func (s *Server) normalize(mailbox string) string {
	return address.Normalize(mailbox, s.domain)
}
