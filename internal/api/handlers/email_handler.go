package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/response"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	apperrors "github.com/welldanyogia/webrana-infinimail-backend/internal/errors"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/validator"
)

// EmailHandler exposes read and delete access to stored mail, and the
// full-text search surface, each gated by per-mailbox password where the
// operation is mailbox-scoped.
type EmailHandler struct {
	store  repository.Store
	access *access.Controller
	bus    *bus.Bus
	domain string
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(store repository.Store, accessController *access.Controller, eventBus *bus.Bus, domain string) *EmailHandler {
	return &EmailHandler{store: store, access: accessController, bus: eventBus, domain: domain}
}

// List handles GET /api/emails/:address.
func (h *EmailHandler) List(c echo.Context) error {
	addr := address.Normalize(c.Param("address"), h.domain)

	if err := h.checkAccess(c, addr); err != nil {
		return response.Error(c, err)
	}

	limit, offset := paginationParams(c)
	emails, err := h.store.ListByAddress(c.Request().Context(), addr, limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list emails")
	}

	return response.Success(c, map[string]interface{}{"emails": emails})
}

// Get handles GET /api/email/:id. Mailbox ownership of the id is not
// re-verified here beyond what the caller already proved server-side via
// the list call that surfaced the id — the id itself is not a guessable
// credential and the store does not track a password per email.
func (h *EmailHandler) Get(c echo.Context) error {
	email, err := h.store.GetEmail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, toAppError(err))
	}
	return response.Success(c, email)
}

// Delete handles DELETE /api/email/:id, publishing EmailDeleted on success.
func (h *EmailHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	addr, err := h.store.DeleteEmail(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, toAppError(err))
	}
	h.bus.PublishEmailDeleted(id, addr)
	return response.NoContent(c)
}

// Search handles GET /api/search.
func (h *EmailHandler) Search(c echo.Context) error {
	query := validator.SanitizeString(c.QueryParam("q"), 512)
	if query == "" {
		return response.BadRequest(c, "q is required")
	}

	mailbox := c.QueryParam("mailbox")
	if mailbox != "" {
		addr := address.Normalize(mailbox, h.domain)
		if err := h.checkAccess(c, addr); err != nil {
			return response.Error(c, err)
		}
		mailbox = addr
	}

	limit, _ := paginationParams(c)
	results, err := h.store.SearchFullText(c.Request().Context(), query, mailbox, limit)
	if err != nil {
		return response.InternalError(c, "search failed")
	}

	return response.Success(c, map[string]interface{}{"results": results})
}

// checkAccess runs the per-mailbox password check for addr using the
// "password" query parameter, translating the decision into the taxonomy
// error response.Error expects.
func (h *EmailHandler) checkAccess(c echo.Context, addr string) error {
	decision, err := h.access.CheckMailboxAccess(c.Request().Context(), addr, c.QueryParam("password"))
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

// paginationParams reads limit/offset query params and clamps them with
// validator.ValidatePagination so a caller can't request an unbounded page.
func paginationParams(c echo.Context) (limit, offset int) {
	if l := c.QueryParam("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}
	if o := c.QueryParam("offset"); o != "" {
		offset, _ = strconv.Atoi(o)
	}
	return validator.ValidatePagination(limit, offset)
}

// toAppError maps a repository sentinel to the taxonomy code response.Error
// expects, for repositories that still return their own package-level
// sentinels rather than *errors.AppError.
func toAppError(err error) error {
	if err == repository.ErrNotFound {
		return apperrors.ErrNotFound
	}
	return apperrors.Wrap(apperrors.CodeStorageFatal, "storage operation failed", err)
}
