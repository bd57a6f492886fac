package models

import "time"

// Mailbox is address-level metadata, not the emails themselves. It exists
// implicitly for any address that has ever received mail; the row is only
// persisted once a mailbox is claimed with a password.
type Mailbox struct {
	Address      string    `gorm:"primaryKey;size:320" json:"address"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Mailbox.
func (Mailbox) TableName() string {
	return "mailboxes"
}

// IsLocked reports whether a password has been set on the mailbox.
func (m Mailbox) IsLocked() bool {
	return m.PasswordHash != ""
}

// ClaimResult is the outcome of ClaimMailbox.
type ClaimResult int

const (
	Claimed ClaimResult = iota
	AlreadyLocked
)

// VerifyResult is the outcome of VerifyMailbox.
type VerifyResult int

const (
	Open VerifyResult = iota
	VerifyOk
	WrongPassword
	PasswordRequired
)

// ReleaseResult is the outcome of ReleaseMailbox.
type ReleaseResult int

const (
	ReleaseOk ReleaseResult = iota
	ReleaseWrongPassword
	NotClaimed
)
