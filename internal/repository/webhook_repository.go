package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"gorm.io/gorm"
)

// WebhookRepository manages per-mailbox HTTP subscriptions.
type WebhookRepository interface {
	CreateWebhook(ctx context.Context, webhook *models.Webhook) error
	GetWebhook(ctx context.Context, id string) (*models.Webhook, error)
	ListByMailbox(ctx context.Context, address string) ([]models.Webhook, error)
	ListActiveForEvent(ctx context.Context, address string, event models.WebhookEvent) ([]models.Webhook, error)
	UpdateWebhook(ctx context.Context, webhook *models.Webhook) error
	DeleteWebhook(ctx context.Context, id string) error
}

type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new WebhookRepository instance.
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// CreateWebhook persists webhook, assigning it an ID if it does not
// already have one.
func (r *webhookRepository) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	if webhook.ID == "" {
		webhook.ID = uuid.NewString()
	}
	if len(webhook.Events) == 0 {
		return fmt.Errorf("webhook must subscribe to at least one event: %w", ErrInvalidInput)
	}
	if err := r.db.WithContext(ctx).Create(webhook).Error; err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

func (r *webhookRepository) GetWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	var webhook models.Webhook
	err := r.db.WithContext(ctx).First(&webhook, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return &webhook, nil
}

func (r *webhookRepository) ListByMailbox(ctx context.Context, address string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := r.db.WithContext(ctx).
		Where("mailbox_address = ?", address).
		Order("created_at ASC").
		Find(&webhooks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks for %s: %w", address, err)
	}
	return webhooks, nil
}

// ListActiveForEvent returns every enabled webhook on address subscribed
// to event, the set the dispatcher fans a single event out to.
func (r *webhookRepository) ListActiveForEvent(ctx context.Context, address string, event models.WebhookEvent) ([]models.Webhook, error) {
	all, err := r.ListByMailbox(ctx, address)
	if err != nil {
		return nil, err
	}
	matched := make([]models.Webhook, 0, len(all))
	for _, w := range all {
		if w.Enabled && w.HasEvent(event) {
			matched = append(matched, w)
		}
	}
	return matched, nil
}

func (r *webhookRepository) UpdateWebhook(ctx context.Context, webhook *models.Webhook) error {
	result := r.db.WithContext(ctx).Model(&models.Webhook{}).
		Where("id = ?", webhook.ID).
		Updates(map[string]interface{}{
			"webhook_url": webhook.WebhookURL,
			"events_json": webhook.Events,
			"enabled":     webhook.Enabled,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update webhook: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *webhookRepository) DeleteWebhook(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Webhook{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete webhook: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
