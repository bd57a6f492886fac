package mcp

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// toolCatalog is what handleListTools returns: the JSON Schema-ish
// description of each tool's arguments, mirroring the shape clients expect
// from an MCP tool listing.
var toolCatalog = []map[string]any{
	{
		"name":        "list_emails",
		"description": "List emails for a specific mailbox",
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": map[string]any{"mailbox": map[string]string{"type": "string", "description": "Mailbox address or local part"}},
			"required":   []string{"mailbox"},
		},
	},
	{
		"name":        "get_email",
		"description": "Get a specific email by ID",
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": map[string]any{"email_id": map[string]string{"type": "string", "description": "Email ID"}},
			"required":   []string{"email_id"},
		},
	},
	{
		"name":        "delete_email",
		"description": "Delete a specific email by ID",
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": map[string]any{"email_id": map[string]string{"type": "string", "description": "Email ID"}},
			"required":   []string{"email_id"},
		},
	},
	{
		"name":        "search_emails",
		"description": "Full-text search across emails, optionally scoped to a mailbox",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]string{"type": "string", "description": "Search query"},
				"mailbox": map[string]string{"type": "string", "description": "Optional mailbox to scope the search to"},
			},
			"required": []string{"query"},
		},
	},
	{
		"name":        "create_webhook",
		"description": "Create a new webhook for a mailbox",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mailbox":     map[string]string{"type": "string", "description": "Mailbox address or local part"},
				"webhook_url": map[string]string{"type": "string", "description": "Webhook URL"},
				"events":      map[string]any{"type": "array", "items": map[string]string{"type": "string"}, "description": "Events to subscribe to"},
			},
			"required": []string{"mailbox", "webhook_url", "events"},
		},
	},
}

// toolFunc implements one callable tool. args is the call's raw JSON
// object body.
type toolFunc func(s *Server, c echo.Context, args map[string]any) error

var tools = map[string]toolFunc{
	"list_emails":    toolListEmails,
	"get_email":      toolGetEmail,
	"delete_email":   toolDeleteEmail,
	"search_emails":  toolSearchEmails,
	"create_webhook": toolCreateWebhook,
}

func toolListEmails(s *Server, c echo.Context, args map[string]any) error {
	mailbox, ok := stringArg(args, "mailbox")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("missing mailbox parameter"))
	}
	emails, err := s.store.ListByAddress(c.Request().Context(), s.normalize(mailbox), 0, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]any{"emails": emails, "count": len(emails)})
}

func toolGetEmail(s *Server, c echo.Context, args map[string]any) error {
	id, ok := stringArg(args, "email_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("missing email_id parameter"))
	}
	email, err := s.store.GetEmail(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorBody("email not found"))
	}
	return c.JSON(http.StatusOK, email)
}

func toolDeleteEmail(s *Server, c echo.Context, args map[string]any) error {
	id, ok := stringArg(args, "email_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("missing email_id parameter"))
	}
	_, err := s.store.DeleteEmail(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorBody("email not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": id})
}

func toolSearchEmails(s *Server, c echo.Context, args map[string]any) error {
	query, ok := stringArg(args, "query")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("missing query parameter"))
	}
	mailbox, _ := stringArg(args, "mailbox")
	if mailbox != "" {
		mailbox = s.normalize(mailbox)
	}
	results, err := s.store.SearchFullText(c.Request().Context(), query, mailbox, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func toolCreateWebhook(s *Server, c echo.Context, args map[string]any) error {
	mailbox, ok := stringArg(args, "mailbox")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("missing mailbox parameter"))
	}
	webhookURL, ok := stringArg(args, "webhook_url")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("missing webhook_url parameter"))
	}
	events, ok := stringSliceArg(args, "events")
	if !ok || len(events) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody("missing events parameter"))
	}

	webhook := &models.Webhook{
		MailboxAddress: s.normalize(mailbox),
		WebhookURL:     webhookURL,
		Events:         events,
		Enabled:        true,
	}
	if err := s.store.CreateWebhook(c.Request().Context(), webhook); err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, webhook)
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok && v != ""
}

func stringSliceArg(args map[string]any, key string) ([]string, bool) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
