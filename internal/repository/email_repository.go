package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"gorm.io/gorm"
)

// EmailRepository is the addressable message store: §4.S's PutEmail,
// GetEmail, ListByAddress, DeleteEmail, DeleteOlderThan, and
// SearchFullText.
type EmailRepository interface {
	PutEmail(ctx context.Context, email *models.Email) error
	GetEmail(ctx context.Context, id string) (*models.Email, error)
	ListByAddress(ctx context.Context, address string, limit, offset int) ([]models.Email, error)
	DeleteEmail(ctx context.Context, id string) (address string, err error)
	DeleteOlderThan(ctx context.Context, hours int64) ([]DeletedEmail, error)
	SearchFullText(ctx context.Context, query string, address string, limit int) ([]models.SearchResult, error)
}

// DeletedEmail is one row removed by a retention sweep.
type DeletedEmail struct {
	ID      string
	Address string
}

type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new EmailRepository backed by db. Callers
// must have run database.Migrate beforehand so the emails_fts shadow
// table and its sync triggers exist.
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

// PutEmail persists email. On SQLite the emails_fts shadow table is kept
// in sync by triggers created during migration, so a plain insert is
// sufficient; on Postgres the FTS index is computed at query time from a
// generated tsvector expression, so there is nothing extra to maintain
// here either. Either way the insert is a single statement and therefore
// already atomic with respect to the index.
func (r *emailRepository) PutEmail(ctx context.Context, email *models.Email) error {
	if err := r.db.WithContext(ctx).Create(email).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("email %q already exists: %w", email.ID, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to put email: %w", err)
	}
	return nil
}

func (r *emailRepository) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	var email models.Email
	err := r.db.WithContext(ctx).First(&email, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &email, nil
}

// ListByAddress returns the newest-first ordered sequence of emails
// addressed to address, tie-breaking by id when timestamps collide.
func (r *emailRepository) ListByAddress(ctx context.Context, address string, limit, offset int) ([]models.Email, error) {
	var emails []models.Email
	q := r.db.WithContext(ctx).
		Where("to_address = ?", address).
		Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&emails).Error; err != nil {
		return nil, fmt.Errorf("failed to list emails for %s: %w", address, err)
	}
	return emails, nil
}

// DeleteEmail removes the row and returns the address it was addressed to
// so the caller can publish EmailDeleted.
func (r *emailRepository) DeleteEmail(ctx context.Context, id string) (string, error) {
	var email models.Email
	if err := r.db.WithContext(ctx).First(&email, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to look up email before delete: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&models.Email{}, "id = ?", id).Error; err != nil {
		return "", fmt.Errorf("failed to delete email: %w", err)
	}
	return email.To, nil
}

// DeleteOlderThan removes every email whose timestamp is more than hours
// old and returns the (id, address) pairs actually removed, for retention
// to publish as EmailDeleted events.
func (r *emailRepository) DeleteOlderThan(ctx context.Context, hours int64) ([]DeletedEmail, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var victims []models.Email
	var deleted []DeletedEmail

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("timestamp < ?", cutoff).Find(&victims).Error; err != nil {
			return err
		}
		if len(victims) == 0 {
			return nil
		}
		ids := make([]string, len(victims))
		for i, v := range victims {
			ids[i] = v.ID
			deleted = append(deleted, DeletedEmail{ID: v.ID, Address: v.To})
		}
		return tx.Delete(&models.Email{}, "id IN ?", ids).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run retention sweep: %w", err)
	}
	return deleted, nil
}

// SearchFullText runs the query grammar described in spec against the FTS
// shadow index (SQLite) or a tsvector expression (Postgres), scoped to
// address when non-empty.
func (r *emailRepository) SearchFullText(ctx context.Context, query string, address string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	switch dialectName(r.db) {
	case "sqlite":
		return r.searchSQLite(ctx, query, address, limit)
	case "postgres":
		return r.searchPostgres(ctx, query, address, limit)
	default:
		return nil, fmt.Errorf("full text search unsupported for dialect %q", dialectName(r.db))
	}
}

func (r *emailRepository) searchSQLite(ctx context.Context, query, address string, limit int) ([]models.SearchResult, error) {
	matchQuery := toFTS5MatchQuery(query)

	sql := `
		SELECT e.id, e.to_address AS to_addr, e.from_address AS from_addr, e.subject,
		       snippet(emails_fts, -1, ?, ?, '...', 32) AS snippet,
		       e.timestamp, bm25(emails_fts) AS rank
		FROM emails_fts
		JOIN emails e ON e.id = emails_fts.id
		WHERE emails_fts MATCH ?`
	args := []interface{}{models.SnippetOpenTag, models.SnippetCloseTag, matchQuery}

	if address != "" {
		sql += " AND e.to_address = ?"
		args = append(args, address)
	}
	sql += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	var rows []struct {
		ID        string
		ToAddr    string `gorm:"column:to_addr"`
		FromAddr  string `gorm:"column:from_addr"`
		Subject   string
		Snippet   string
		Timestamp time.Time
		Rank      float64
	}
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("full text search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.SearchResult{
			ID:        row.ID,
			To:        row.ToAddr,
			From:      row.FromAddr,
			Subject:   row.Subject,
			Snippet:   row.Snippet,
			Timestamp: row.Timestamp.UTC().Format(time.RFC3339),
			Rank:      row.Rank,
		})
	}
	return results, nil
}

func (r *emailRepository) searchPostgres(ctx context.Context, query, address string, limit int) ([]models.SearchResult, error) {
	tsquery := toPostgresTSQuery(query)

	sql := `
		SELECT e.id, e.to_address AS to_addr, e.from_address AS from_addr, e.subject,
		       ts_headline(e.body, to_tsquery(?), 'StartSel=' || ? || ', StopSel=' || ?) AS snippet,
		       e.timestamp,
		       ts_rank(to_tsvector(e.to_address || ' ' || e.from_address || ' ' || e.subject || ' ' || e.body), to_tsquery(?)) AS rank
		FROM emails e
		WHERE to_tsvector(e.to_address || ' ' || e.from_address || ' ' || e.subject || ' ' || e.body) @@ to_tsquery(?)`
	args := []interface{}{tsquery, models.SnippetOpenTag, models.SnippetCloseTag, tsquery, tsquery}

	if address != "" {
		sql += " AND e.to_address = ?"
		args = append(args, address)
	}
	sql += " ORDER BY rank DESC LIMIT ?"
	args = append(args, limit)

	var rows []struct {
		ID        string
		ToAddr    string `gorm:"column:to_addr"`
		FromAddr  string `gorm:"column:from_addr"`
		Subject   string
		Snippet   string
		Timestamp time.Time
		Rank      float64
	}
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("full text search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.SearchResult{
			ID:        row.ID,
			To:        row.ToAddr,
			From:      row.FromAddr,
			Subject:   row.Subject,
			Snippet:   row.Snippet,
			Timestamp: row.Timestamp.UTC().Format(time.RFC3339),
			Rank:      row.Rank,
		})
	}
	return results, nil
}

func dialectName(db *gorm.DB) string {
	return db.Dialector.Name()
}
