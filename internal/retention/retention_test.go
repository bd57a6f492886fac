package retention

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

type fakeStore struct {
	toDelete []repository.DeletedEmail
	calls    int
	err      error
}

func (s *fakeStore) PutEmail(ctx context.Context, email *models.Email) error { panic("not implemented") }
func (s *fakeStore) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	panic("not implemented")
}
func (s *fakeStore) ListByAddress(ctx context.Context, address string, limit, offset int) ([]models.Email, error) {
	panic("not implemented")
}
func (s *fakeStore) DeleteEmail(ctx context.Context, id string) (string, error) {
	panic("not implemented")
}
func (s *fakeStore) DeleteOlderThan(ctx context.Context, hours int64) ([]repository.DeletedEmail, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.toDelete, nil
}
func (s *fakeStore) SearchFullText(ctx context.Context, query, address string, limit int) ([]models.SearchResult, error) {
	panic("not implemented")
}

func (s *fakeStore) ClaimMailbox(ctx context.Context, address, password string) (models.ClaimResult, error) {
	panic("not implemented")
}
func (s *fakeStore) VerifyMailbox(ctx context.Context, address, password string) (models.VerifyResult, error) {
	panic("not implemented")
}
func (s *fakeStore) ReleaseMailbox(ctx context.Context, address, password string) (models.ReleaseResult, error) {
	panic("not implemented")
}
func (s *fakeStore) IsLocked(ctx context.Context, address string) (bool, error) {
	panic("not implemented")
}

func (s *fakeStore) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	panic("not implemented")
}
func (s *fakeStore) GetWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	panic("not implemented")
}
func (s *fakeStore) ListByMailbox(ctx context.Context, address string) ([]models.Webhook, error) {
	panic("not implemented")
}
func (s *fakeStore) ListActiveForEvent(ctx context.Context, address string, event models.WebhookEvent) ([]models.Webhook, error) {
	panic("not implemented")
}
func (s *fakeStore) UpdateWebhook(ctx context.Context, webhook *models.Webhook) error {
	panic("not implemented")
}
func (s *fakeStore) DeleteWebhook(ctx context.Context, id string) error { panic("not implemented") }

func (s *fakeStore) CreateUser(ctx context.Context, email, password string) error {
	panic("not implemented")
}
func (s *fakeStore) VerifyUser(ctx context.Context, email, password string) (bool, error) {
	panic("not implemented")
}
func (s *fakeStore) HasAnyUser(ctx context.Context) (bool, error) { panic("not implemented") }
func (s *fakeStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	panic("not implemented")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(noopWriter{}, nil))
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRun_DisabledWhenHoursIsZero(t *testing.T) {
	store := &fakeStore{}
	task := New(store, bus.New(testLogger()), 0, testLogger())

	done := make(chan struct{})
	go func() {
		task.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return immediately when retention is disabled")
	}
	assert.Equal(t, 0, store.calls)
}

func TestSweepSafely_PublishesEmailDeletedPerVictim(t *testing.T) {
	store := &fakeStore{toDelete: []repository.DeletedEmail{
		{ID: "e1", Address: "bob@test.local"},
		{ID: "e2", Address: "alice@test.local"},
	}}
	b := bus.New(testLogger())
	events, unsubscribe := b.SubscribeAll()
	defer unsubscribe()

	task := New(store, b, 24, testLogger())
	task.sweepSafely(context.Background())

	seen := map[string]string{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-events:
			require.Equal(t, bus.EmailDeleted, e.Kind)
			seen[e.EmailID] = e.Address
		case <-time.After(time.Second):
			t.Fatal("expected two EmailDeleted events")
		}
	}
	assert.Equal(t, "bob@test.local", seen["e1"])
	assert.Equal(t, "alice@test.local", seen["e2"])
}

func TestSweepSafely_LogsAndContinuesOnError(t *testing.T) {
	store := &fakeStore{err: assert.AnError}
	task := New(store, bus.New(testLogger()), 24, testLogger())

	assert.NotPanics(t, func() {
		task.sweepSafely(context.Background())
	})
	assert.Equal(t, 1, store.calls)
}
