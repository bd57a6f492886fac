package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// bcryptCost mirrors the teacher's password-hashing cost choice, raised to
// the floor required for mailbox passwords.
const bcryptCost = 12

// MailboxRepository is the claim/verify/release half of the storage
// contract: mailboxes are never created explicitly, only claimed.
type MailboxRepository interface {
	ClaimMailbox(ctx context.Context, address, password string) (models.ClaimResult, error)
	VerifyMailbox(ctx context.Context, address, password string) (models.VerifyResult, error)
	ReleaseMailbox(ctx context.Context, address, password string) (models.ReleaseResult, error)
	IsLocked(ctx context.Context, address string) (bool, error)
}

// mailboxRepository implements MailboxRepository using GORM.
type mailboxRepository struct {
	db *gorm.DB
}

// NewMailboxRepository creates a new MailboxRepository instance.
func NewMailboxRepository(db *gorm.DB) MailboxRepository {
	return &mailboxRepository{db: db}
}

// ClaimMailbox sets a password on address. A mailbox row is created
// lazily here if none exists yet; if one exists and already has a
// password, the claim fails with AlreadyLocked rather than overwriting it
// — claiming is a one-time operation, not a password reset.
func (r *mailboxRepository) ClaimMailbox(ctx context.Context, address, password string) (models.ClaimResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.AlreadyLocked, fmt.Errorf("failed to hash password: %w", err)
	}

	var result models.ClaimResult
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mailbox models.Mailbox
		err := tx.First(&mailbox, "address = ?", address).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = models.Claimed
			return tx.Create(&models.Mailbox{
				Address:      address,
				PasswordHash: string(hash),
			}).Error
		case err != nil:
			return err
		case mailbox.IsLocked():
			result = models.AlreadyLocked
			return nil
		default:
			result = models.Claimed
			return tx.Model(&models.Mailbox{}).
				Where("address = ?", address).
				Update("password_hash", string(hash)).Error
		}
	})
	if err != nil {
		return models.AlreadyLocked, fmt.Errorf("failed to claim mailbox %s: %w", address, err)
	}
	return result, nil
}

// VerifyMailbox checks password against address's stored hash. An
// unclaimed mailbox verifies as Open regardless of the password supplied
// — there is nothing to check against.
func (r *mailboxRepository) VerifyMailbox(ctx context.Context, address, password string) (models.VerifyResult, error) {
	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).First(&mailbox, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Open, nil
	}
	if err != nil {
		return models.Open, fmt.Errorf("failed to look up mailbox %s: %w", address, err)
	}
	if !mailbox.IsLocked() {
		return models.Open, nil
	}
	if password == "" {
		return models.PasswordRequired, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(mailbox.PasswordHash), []byte(password)) != nil {
		return models.WrongPassword, nil
	}
	return models.VerifyOk, nil
}

// ReleaseMailbox checks password and, on success, removes the mailbox row
// entirely (not merely its password), returning the address to the
// implicitly-exists Open state. Stored mail is untouched.
func (r *mailboxRepository) ReleaseMailbox(ctx context.Context, address, password string) (models.ReleaseResult, error) {
	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).First(&mailbox, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NotClaimed, nil
	}
	if err != nil {
		return models.NotClaimed, fmt.Errorf("failed to look up mailbox %s: %w", address, err)
	}
	if !mailbox.IsLocked() {
		return models.NotClaimed, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(mailbox.PasswordHash), []byte(password)) != nil {
		return models.ReleaseWrongPassword, nil
	}
	err = r.db.WithContext(ctx).Delete(&models.Mailbox{}, "address = ?", address).Error
	if err != nil {
		return models.ReleaseWrongPassword, fmt.Errorf("failed to release mailbox %s: %w", address, err)
	}
	return models.ReleaseOk, nil
}

// IsLocked reports whether address currently has a password set.
func (r *mailboxRepository) IsLocked(ctx context.Context, address string) (bool, error) {
	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).First(&mailbox, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up mailbox %s: %w", address, err)
	}
	return mailbox.IsLocked(), nil
}
