package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/response"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// AuthHandler exposes the global user-auth surface: whether it is enabled,
// registration, login, and the identity of the caller's token.
type AuthHandler struct {
	access     *access.Controller
	store      repository.Store
	authDomain string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accessController *access.Controller, store repository.Store, authDomain string) *AuthHandler {
	return &AuthHandler{access: accessController, store: store, authDomain: authDomain}
}

// Status handles GET /api/auth/status.
func (h *AuthHandler) Status(c echo.Context) error {
	resp := map[string]interface{}{
		"auth_enabled":      h.access.AuthEnabled(),
		"registration_open": h.access.AuthEnabled(),
	}
	if h.authDomain != "" {
		resp["auth_domain"] = h.authDomain
	}
	return response.Success(c, resp)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	if err := h.access.Register(c.Request().Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "user already exists")
		}
		return response.InternalError(c, "failed to register user")
	}

	token, err := h.access.IssueToken(req.Email)
	if err != nil {
		return response.InternalError(c, "failed to issue token")
	}

	return response.Created(c, map[string]interface{}{
		"token": token,
		"user":  map[string]string{"email": req.Email},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	token, err := h.access.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return response.Unauthorized(c, "invalid email or password")
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  map[string]string{"email": req.Email},
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	userEmail, _ := c.Get("user_email").(string)
	if userEmail == "" {
		return response.Unauthorized(c, "unauthorized")
	}

	user, err := h.store.GetUser(c.Request().Context(), userEmail)
	if err != nil {
		return response.NotFound(c, "user not found")
	}
	return response.Success(c, map[string]string{"email": user.Email})
}
