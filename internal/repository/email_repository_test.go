package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type EmailRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo EmailRepository
}

func (s *EmailRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), db.AutoMigrate(&models.Email{}))

	// Mirrors the FTS5 shadow table database.Migrate creates in production,
	// scoped down to what these tests exercise.
	require.NoError(s.T(), db.Exec(`
		CREATE VIRTUAL TABLE emails_fts USING fts5(
			id UNINDEXED, to_address, from_address, subject, body
		)
	`).Error)
	require.NoError(s.T(), db.Exec(`
		CREATE TRIGGER emails_fts_insert AFTER INSERT ON emails BEGIN
			INSERT INTO emails_fts(id, to_address, from_address, subject, body)
			VALUES (new.id, new.to_address, new.from_address, new.subject, new.body);
		END
	`).Error)
	require.NoError(s.T(), db.Exec(`
		CREATE TRIGGER emails_fts_delete AFTER DELETE ON emails BEGIN
			DELETE FROM emails_fts WHERE id = old.id;
		END
	`).Error)

	s.db = db
	s.repo = NewEmailRepository(db)
}

func (s *EmailRepositoryTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func (s *EmailRepositoryTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM emails")
}

func TestEmailRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(EmailRepositoryTestSuite))
}

func newTestEmail(id, to, from, subject, body string, ts time.Time) *models.Email {
	return &models.Email{
		ID:        id,
		To:        to,
		From:      from,
		Subject:   subject,
		Body:      body,
		Timestamp: ts,
	}
}

func (s *EmailRepositoryTestSuite) TestPutAndGetEmail() {
	ctx := context.Background()
	email := newTestEmail("id-1", "alice@test.com", "bob@sender.com", "Hello", "body text", time.Now())

	require.NoError(s.T(), s.repo.PutEmail(ctx, email))

	got, err := s.repo.GetEmail(ctx, "id-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@test.com", got.To)
	assert.Equal(s.T(), "Hello", got.Subject)
}

func (s *EmailRepositoryTestSuite) TestGetEmail_NotFound() {
	_, err := s.repo.GetEmail(context.Background(), "missing")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *EmailRepositoryTestSuite) TestPutEmail_DuplicateID() {
	ctx := context.Background()
	email := newTestEmail("dup-1", "alice@test.com", "bob@sender.com", "Hello", "body", time.Now())
	require.NoError(s.T(), s.repo.PutEmail(ctx, email))

	err := s.repo.PutEmail(ctx, newTestEmail("dup-1", "alice@test.com", "bob@sender.com", "Again", "body2", time.Now()))
	assert.ErrorIs(s.T(), err, ErrDuplicateEntry)
}

func (s *EmailRepositoryTestSuite) TestListByAddress_NewestFirst() {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	require.NoError(s.T(), s.repo.PutEmail(ctx, newTestEmail("old", "list@test.com", "a@x.com", "Old", "b", base)))
	require.NoError(s.T(), s.repo.PutEmail(ctx, newTestEmail("new", "list@test.com", "a@x.com", "New", "b", base.Add(time.Minute))))

	emails, err := s.repo.ListByAddress(ctx, "list@test.com", 10, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), emails, 2)
	assert.Equal(s.T(), "new", emails[0].ID)
	assert.Equal(s.T(), "old", emails[1].ID)
}

func (s *EmailRepositoryTestSuite) TestDeleteEmail_ReturnsAddress() {
	ctx := context.Background()
	require.NoError(s.T(), s.repo.PutEmail(ctx, newTestEmail("todel", "del@test.com", "a@x.com", "Subj", "b", time.Now())))

	address, err := s.repo.DeleteEmail(ctx, "todel")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "del@test.com", address)

	_, err = s.repo.GetEmail(ctx, "todel")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *EmailRepositoryTestSuite) TestDeleteEmail_NotFound() {
	_, err := s.repo.DeleteEmail(context.Background(), "missing")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *EmailRepositoryTestSuite) TestDeleteOlderThan_RemovesOnlyExpired() {
	ctx := context.Background()
	old := newTestEmail("expired", "ret@test.com", "a@x.com", "old", "body", time.Now().Add(-48*time.Hour))
	recent := newTestEmail("fresh", "ret@test.com", "a@x.com", "new", "body", time.Now())
	require.NoError(s.T(), s.repo.PutEmail(ctx, old))
	require.NoError(s.T(), s.repo.PutEmail(ctx, recent))

	deleted, err := s.repo.DeleteOlderThan(ctx, 24)
	require.NoError(s.T(), err)
	require.Len(s.T(), deleted, 1)
	assert.Equal(s.T(), "expired", deleted[0].ID)
	assert.Equal(s.T(), "ret@test.com", deleted[0].Address)

	remaining, err := s.repo.ListByAddress(ctx, "ret@test.com", 10, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), remaining, 1)
	assert.Equal(s.T(), "fresh", remaining[0].ID)
}

func (s *EmailRepositoryTestSuite) TestSearchFullText_MatchesSubject() {
	ctx := context.Background()
	require.NoError(s.T(), s.repo.PutEmail(ctx, newTestEmail("search-1", "search@test.com", "a@x.com", "Invoice attached", "see attached invoice", time.Now())))
	require.NoError(s.T(), s.repo.PutEmail(ctx, newTestEmail("search-2", "search@test.com", "a@x.com", "Newsletter", "unrelated content", time.Now())))

	results, err := s.repo.SearchFullText(ctx, "subject:invoice", "search@test.com", 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), results, 1)
	assert.Equal(s.T(), "search-1", results[0].ID)
}
