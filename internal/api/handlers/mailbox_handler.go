package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/response"
	seclog "github.com/welldanyogia/webrana-infinimail-backend/internal/logger"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/validator"
)

// MailboxHandler exposes the claim/verify/release state machine over HTTP.
type MailboxHandler struct {
	access   *access.Controller
	domain   string
	security *seclog.SecurityLogger
}

// NewMailboxHandler creates a new MailboxHandler. security may be nil, in
// which case wrong-password and already-locked attempts go unlogged.
func NewMailboxHandler(accessController *access.Controller, domain string, security *seclog.SecurityLogger) *MailboxHandler {
	return &MailboxHandler{access: accessController, domain: domain, security: security}
}

// claimRequest is the body POST /api/mailbox/:address/claim accepts.
type claimRequest struct {
	Password string `json:"password"`
}

// Status handles GET /api/mailbox/:address/status. It is deliberately
// unauthenticated: knowing whether an address is claimed carries no
// sensitive information by itself.
func (h *MailboxHandler) Status(c echo.Context) error {
	addr := address.Normalize(c.Param("address"), h.domain)

	locked, err := h.access.IsLocked(c.Request().Context(), addr)
	if err != nil {
		return response.InternalError(c, "failed to check mailbox status")
	}

	return response.Success(c, map[string]interface{}{
		"address":   addr,
		"is_locked": locked,
	})
}

// Claim handles POST /api/mailbox/:address/claim.
func (h *MailboxHandler) Claim(c echo.Context) error {
	addr := address.Normalize(c.Param("address"), h.domain)
	if err := validator.ValidateEmail(addr); err != nil {
		return response.BadRequest(c, "invalid mailbox address")
	}

	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Password == "" {
		return response.BadRequest(c, "password is required")
	}

	decision, err := h.access.ClaimMailbox(c.Request().Context(), addr, req.Password)
	if err != nil {
		return response.InternalError(c, "failed to claim mailbox")
	}

	switch decision {
	case access.ClaimConflict:
		if h.security != nil {
			h.security.AlreadyLocked(c.RealIP(), addr)
		}
		return response.Conflict(c, "mailbox is already claimed")
	default:
		return response.Created(c, map[string]string{"address": addr})
	}
}

// Release handles POST /api/mailbox/:address/release.
func (h *MailboxHandler) Release(c echo.Context) error {
	addr := address.Normalize(c.Param("address"), h.domain)

	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := h.access.ReleaseMailbox(c.Request().Context(), addr, req.Password)
	if err != nil {
		return response.InternalError(c, "failed to release mailbox")
	}

	switch result {
	case models.NotClaimed:
		return response.NotFound(c, "mailbox is not claimed")
	case models.ReleaseWrongPassword:
		if h.security != nil {
			h.security.WrongPassword(c.RealIP(), addr)
		}
		return response.Unauthorized(c, "wrong password")
	default:
		return response.NoContent(c)
	}
}
