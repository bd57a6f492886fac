package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserRepository manages the global auth principals used when
// AUTH_ENABLED is set, independent of per-mailbox passwords.
type UserRepository interface {
	CreateUser(ctx context.Context, email, password string) error
	VerifyUser(ctx context.Context, email, password string) (bool, error)
	HasAnyUser(ctx context.Context) (bool, error)
	GetUser(ctx context.Context, email string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser registers a new user with a bcrypt-hashed password.
func (r *userRepository) CreateUser(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Email: email, PasswordHash: string(hash)}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("user %q already exists: %w", email, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// VerifyUser reports whether password matches email's stored hash. A
// missing user verifies as false rather than erroring, so callers can
// treat unknown users and wrong passwords identically.
func (r *userRepository) VerifyUser(ctx context.Context, email, password string) (bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", email, err)
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

// HasAnyUser reports whether at least one user has been registered. The
// HTTP auth endpoints do not call it: registration stays open whenever
// global auth is enabled, whether or not a user already exists.
func (r *userRepository) HasAnyUser(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) GetUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
