package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-infinimail-backend/internal/errors"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/validator"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/webhook"
)

// WebhookHandler exposes webhook CRUD and the synthetic test-delivery
// endpoint over the same dispatcher used for live arrival/deletion events.
type WebhookHandler struct {
	store      repository.Store
	access     *access.Controller
	dispatcher *webhook.Dispatcher
	domain     string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(store repository.Store, accessController *access.Controller, dispatcher *webhook.Dispatcher, domain string) *WebhookHandler {
	return &WebhookHandler{store: store, access: accessController, dispatcher: dispatcher, domain: domain}
}

type createWebhookRequest struct {
	MailboxAddress string   `json:"mailbox_address"`
	WebhookURL     string   `json:"webhook_url"`
	Events         []string `json:"events"`
	Password       string   `json:"password"`
}

// Create handles POST /api/webhooks.
func (h *WebhookHandler) Create(c echo.Context) error {
	var req createWebhookRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.MailboxAddress == "" || req.WebhookURL == "" || len(req.Events) == 0 {
		return response.BadRequest(c, "mailbox_address, webhook_url, and events are required")
	}

	addr := address.Normalize(req.MailboxAddress, h.domain)
	if err := validator.ValidateEmail(addr); err != nil {
		return response.BadRequest(c, "invalid mailbox_address")
	}
	if err := h.checkAccess(c.Request().Context(), addr, req.Password); err != nil {
		return response.Error(c, err)
	}

	wh := &models.Webhook{
		MailboxAddress: addr,
		WebhookURL:     req.WebhookURL,
		Events:         req.Events,
		Enabled:        true,
	}
	if err := h.store.CreateWebhook(c.Request().Context(), wh); err != nil {
		return response.InternalError(c, "failed to create webhook")
	}

	return response.Created(c, wh)
}

// ListForMailbox handles GET /api/webhooks/:address.
func (h *WebhookHandler) ListForMailbox(c echo.Context) error {
	addr := address.Normalize(c.Param("address"), h.domain)
	if err := h.checkAccess(c.Request().Context(), addr, c.QueryParam("password")); err != nil {
		return response.Error(c, err)
	}

	webhooks, err := h.store.ListByMailbox(c.Request().Context(), addr)
	if err != nil {
		return response.InternalError(c, "failed to list webhooks")
	}
	return response.Success(c, map[string]interface{}{"webhooks": webhooks})
}

// Get handles GET /api/webhook/:id.
func (h *WebhookHandler) Get(c echo.Context) error {
	wh, err := h.store.GetWebhook(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return response.NotFound(c, "webhook not found")
		}
		return response.InternalError(c, "failed to get webhook")
	}
	if err := h.checkAccess(c.Request().Context(), wh.MailboxAddress, c.QueryParam("password")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, wh)
}

type updateWebhookRequest struct {
	WebhookURL string   `json:"webhook_url"`
	Events     []string `json:"events"`
	Enabled    *bool    `json:"enabled"`
	Password   string   `json:"password"`
}

// Update handles PUT /api/webhook/:id.
func (h *WebhookHandler) Update(c echo.Context) error {
	existing, err := h.store.GetWebhook(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return response.NotFound(c, "webhook not found")
		}
		return response.InternalError(c, "failed to get webhook")
	}

	var req updateWebhookRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := h.checkAccess(c.Request().Context(), existing.MailboxAddress, req.Password); err != nil {
		return response.Error(c, err)
	}

	if req.WebhookURL != "" {
		existing.WebhookURL = req.WebhookURL
	}
	if len(req.Events) > 0 {
		existing.Events = req.Events
	}
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := h.store.UpdateWebhook(c.Request().Context(), existing); err != nil {
		if err == repository.ErrNotFound {
			return response.NotFound(c, "webhook not found")
		}
		return response.InternalError(c, "failed to update webhook")
	}
	return response.Success(c, existing)
}

// Delete handles DELETE /api/webhook/:id.
func (h *WebhookHandler) Delete(c echo.Context) error {
	existing, err := h.store.GetWebhook(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return response.NotFound(c, "webhook not found")
		}
		return response.InternalError(c, "failed to get webhook")
	}
	if err := h.checkAccess(c.Request().Context(), existing.MailboxAddress, c.QueryParam("password")); err != nil {
		return response.Error(c, err)
	}

	if err := h.store.DeleteWebhook(c.Request().Context(), existing.ID); err != nil {
		if err == repository.ErrNotFound {
			return response.NotFound(c, "webhook not found")
		}
		return response.InternalError(c, "failed to delete webhook")
	}
	return response.NoContent(c)
}

// Test handles POST /api/webhook/:id/test, sending a synthetic event=test
// delivery with no retries and reporting whether it succeeded.
func (h *WebhookHandler) Test(c echo.Context) error {
	wh, err := h.store.GetWebhook(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return response.NotFound(c, "webhook not found")
		}
		return response.InternalError(c, "failed to get webhook")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	success := h.dispatcher.TestWebhook(ctx, wh)
	return c.JSON(http.StatusOK, map[string]bool{"success": success})
}

func (h *WebhookHandler) checkAccess(ctx context.Context, addr, password string) error {
	decision, err := h.access.CheckMailboxAccess(ctx, addr, password)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFatal, "failed to check mailbox access", err)
	}
	switch decision {
	case access.DecisionPasswordRequired:
		return apperrors.ErrPasswordRequired
	case access.DecisionWrongPassword:
		return apperrors.ErrWrongPassword
	default:
		return nil
	}
}
