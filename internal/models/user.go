package models

import "time"

// User is a global auth principal, independent of per-mailbox passwords.
// Only meaningful when AUTH_ENABLED is set.
type User struct {
	Email        string    `gorm:"primaryKey;size:320" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}
