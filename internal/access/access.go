// Package access implements the two independent, composable
// authorization mechanisms every mailbox-addressed entry point applies:
// an optional global bearer-token user auth, and the always-available
// per-mailbox password check. Neither mechanism knows about HTTP, IMAP,
// or WebSocket specifically — callers in those packages translate the
// results returned here into their own wire format.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// tokenTTL is how long an issued user-auth token remains valid.
const tokenTTL = 24 * time.Hour

// ErrInvalidToken is returned by VerifyToken for a malformed, expired, or
// wrongly-signed bearer token.
var ErrInvalidToken = errors.New("invalid or expired token")

// userClaims is the self-contained payload a token carries; tokens are
// stateless, so no server-side session store backs them.
type userClaims struct {
	UserEmail string `json:"user_email"`
	jwt.RegisteredClaims
}

// Controller composes global user auth with per-mailbox password
// verification, backed by a Store for both.
type Controller struct {
	store       repository.Store
	authEnabled bool
	secret      []byte
}

// New creates a Controller. authEnabled mirrors AUTH_ENABLED; when false,
// IssueToken/VerifyToken are never reached by callers because global auth
// is considered satisfied unconditionally.
func New(store repository.Store, authEnabled bool, secret string) *Controller {
	return &Controller{
		store:       store,
		authEnabled: authEnabled,
		secret:      []byte(secret),
	}
}

// AuthEnabled reports whether global user auth is configured.
func (c *Controller) AuthEnabled() bool {
	return c.authEnabled
}

// IssueToken mints a signed, stateless bearer token for userEmail.
func (c *Controller) IssueToken(userEmail string) (string, error) {
	now := time.Now()
	claims := userClaims{
		UserEmail: userEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a bearer token and returns the user_email it was
// issued for.
func (c *Controller) VerifyToken(tokenString string) (string, error) {
	claims := &userClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.UserEmail, nil
}

// Register creates a user principal. Neither Register nor its HTTP caller
// consults HasAnyUser: every call with a new email creates another user,
// and an email that is already registered fails with ErrDuplicateEntry.
func (c *Controller) Register(ctx context.Context, email, password string) error {
	return c.store.CreateUser(ctx, email, password)
}

// Login verifies email/password against the user store and, on success,
// issues a bearer token.
func (c *Controller) Login(ctx context.Context, email, password string) (string, error) {
	ok, err := c.store.VerifyUser(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("failed to verify user: %w", err)
	}
	if !ok {
		return "", ErrInvalidToken
	}
	return c.IssueToken(email)
}

// MailboxDecision is the outcome of checking a per-mailbox password,
// already translated into the failure-mapping taxonomy callers apply to
// their own protocol.
type MailboxDecision int

const (
	// DecisionAllowed means the call may proceed.
	DecisionAllowed MailboxDecision = iota
	// DecisionPasswordRequired maps to 401 password_protected.
	DecisionPasswordRequired
	// DecisionWrongPassword maps to 401 verification_error.
	DecisionWrongPassword
)

// CheckMailboxAccess runs VerifyMailbox(addr, pw) and translates the
// result into a MailboxDecision. It is called before any mailbox-scoped
// read or write; non-mailbox-scoped endpoints never call this.
func (c *Controller) CheckMailboxAccess(ctx context.Context, address, password string) (MailboxDecision, error) {
	result, err := c.store.VerifyMailbox(ctx, address, password)
	if err != nil {
		return DecisionWrongPassword, fmt.Errorf("failed to verify mailbox access: %w", err)
	}
	switch result {
	case models.Open, models.VerifyOk:
		return DecisionAllowed, nil
	case models.PasswordRequired:
		return DecisionPasswordRequired, nil
	case models.WrongPassword:
		return DecisionWrongPassword, nil
	default:
		return DecisionWrongPassword, fmt.Errorf("unexpected verify result %v", result)
	}
}

// ClaimDecision is the outcome of a claim attempt.
type ClaimDecision int

const (
	ClaimAccepted ClaimDecision = iota
	// ClaimConflict maps to 409: the mailbox is already claimed under a
	// different password. Per the no-reset policy, supplying the same
	// password a second time is the only idempotent retry path, and
	// ClaimMailbox handles that case itself by re-verifying the password
	// after the store reports AlreadyLocked.
	ClaimConflict
)

// ClaimMailbox sets address's password. A claim against an already-locked
// mailbox is idempotent only when password matches the password already
// bound — that case re-verifies rather than conflicting — any other
// password on an already-locked mailbox returns ClaimConflict.
func (c *Controller) ClaimMailbox(ctx context.Context, address, password string) (ClaimDecision, error) {
	result, err := c.store.ClaimMailbox(ctx, address, password)
	if err != nil {
		return ClaimConflict, fmt.Errorf("failed to claim mailbox: %w", err)
	}
	if result != models.AlreadyLocked {
		return ClaimAccepted, nil
	}

	verify, err := c.store.VerifyMailbox(ctx, address, password)
	if err != nil {
		return ClaimConflict, fmt.Errorf("failed to re-verify claimed mailbox: %w", err)
	}
	if verify == models.VerifyOk {
		return ClaimAccepted, nil
	}
	return ClaimConflict, nil
}

// IsLocked reports whether address currently has a password set, with no
// password check of its own — this backs the status endpoint, which is
// deliberately unauthenticated.
func (c *Controller) IsLocked(ctx context.Context, address string) (bool, error) {
	return c.store.IsLocked(ctx, address)
}

// ReleaseMailbox checks password and, on success, removes address's claim
// entirely. Stored mail is untouched; only the password and the row
// tracking it disappear.
func (c *Controller) ReleaseMailbox(ctx context.Context, address, password string) (models.ReleaseResult, error) {
	result, err := c.store.ReleaseMailbox(ctx, address, password)
	if err != nil {
		return result, fmt.Errorf("failed to release mailbox: %w", err)
	}
	return result, nil
}
