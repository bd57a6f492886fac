package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// MockStore implements repository.Store for handler- and dispatcher-level
// tests that want full control over storage behavior without a database.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) PutEmail(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockStore) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

func (m *MockStore) ListByAddress(ctx context.Context, address string, limit, offset int) ([]models.Email, error) {
	args := m.Called(ctx, address, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Email), args.Error(1)
}

func (m *MockStore) DeleteEmail(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockStore) DeleteOlderThan(ctx context.Context, hours int64) ([]repository.DeletedEmail, error) {
	args := m.Called(ctx, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DeletedEmail), args.Error(1)
}

func (m *MockStore) SearchFullText(ctx context.Context, query, address string, limit int) ([]models.SearchResult, error) {
	args := m.Called(ctx, query, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

func (m *MockStore) ClaimMailbox(ctx context.Context, address, password string) (models.ClaimResult, error) {
	args := m.Called(ctx, address, password)
	return args.Get(0).(models.ClaimResult), args.Error(1)
}

func (m *MockStore) VerifyMailbox(ctx context.Context, address, password string) (models.VerifyResult, error) {
	args := m.Called(ctx, address, password)
	return args.Get(0).(models.VerifyResult), args.Error(1)
}

func (m *MockStore) ReleaseMailbox(ctx context.Context, address, password string) (models.ReleaseResult, error) {
	args := m.Called(ctx, address, password)
	return args.Get(0).(models.ReleaseResult), args.Error(1)
}

func (m *MockStore) IsLocked(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	args := m.Called(ctx, webhook)
	return args.Error(0)
}

func (m *MockStore) GetWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Webhook), args.Error(1)
}

func (m *MockStore) ListByMailbox(ctx context.Context, address string) ([]models.Webhook, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Webhook), args.Error(1)
}

func (m *MockStore) ListActiveForEvent(ctx context.Context, address string, event models.WebhookEvent) ([]models.Webhook, error) {
	args := m.Called(ctx, address, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Webhook), args.Error(1)
}

func (m *MockStore) UpdateWebhook(ctx context.Context, webhook *models.Webhook) error {
	args := m.Called(ctx, webhook)
	return args.Error(0)
}

func (m *MockStore) DeleteWebhook(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) CreateUser(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockStore) VerifyUser(ctx context.Context, email, password string) (bool, error) {
	args := m.Called(ctx, email, password)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) HasAnyUser(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
