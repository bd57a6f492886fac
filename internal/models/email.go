package models

import "time"

// Attachment is a single file carried inline on an Email. It is stored as
// part of the email row's attachments_json column, never as a separate
// table: the system keeps attachment bytes with the message they belong to
// so deletion of an email removes its attachments for free.
type Attachment struct {
	Filename        string `json:"filename"`
	ContentType     string `json:"content_type"`
	SizeBytes       int64  `json:"size_bytes"`
	ContentBase64   string `json:"content_base64"`
}

// Email is the immutable unit of ingestion. Once PutEmail has persisted a
// row, every field except its existence is read-only; DeleteEmail is the
// only mutation the system performs on it.
type Email struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	To          string       `gorm:"column:to_address;size:320;index:idx_to_timestamp,priority:1" json:"to"`
	From        string       `gorm:"column:from_address;size:320" json:"from"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Timestamp   time.Time    `gorm:"index:idx_to_timestamp,priority:2;index" json:"timestamp"`
	Raw         string       `json:"raw,omitempty"`
	Attachments []Attachment `gorm:"serializer:json;column:attachments_json" json:"attachments"`
}

// TableName returns the table name for Email.
func (Email) TableName() string {
	return "emails"
}

// SearchResult is one row of a SearchFullText response: a snippet of the
// matching email with hit markers inlined, not the full body.
type SearchResult struct {
	ID        string  `json:"id"`
	To        string  `json:"to"`
	From      string  `json:"from"`
	Subject   string  `json:"subject"`
	Snippet   string  `json:"snippet"`
	Timestamp string  `json:"timestamp"`
	Rank      float64 `json:"rank"`
}

// SnippetOpenTag and SnippetCloseTag wrap matched terms in a SearchResult's
// Snippet field. Callers render these however they like; the store never
// interprets them itself.
const (
	SnippetOpenTag  = "«hit»"
	SnippetCloseTag = "«/hit»"
)
