package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motortrade/salesd/pkg/model"
)

type WebhookLogRepository struct {
	db *gorm.DB
}

func NewWebhookLogRepository(db *gorm.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Append inserts one attempt row. Existing rows are never updated.
func (r *WebhookLogRepository) Append(ctx context.Context, log *model.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *WebhookLogRepository) ListBySale(ctx context.Context, saleID uuid.UUID) ([]model.WebhookLog, error) {
	var logs []model.WebhookLog
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("attempted_at ASC").
		Find(&logs).Error
	return logs, err
}
