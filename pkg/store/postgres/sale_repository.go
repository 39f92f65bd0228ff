package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motortrade/salesd/pkg/model"
	"github.com/motortrade/salesd/pkg/sales"
)

type SaleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *SaleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.ErrSaleNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (r *SaleRepository) GetByPaymentCode(ctx context.Context, code string) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).First(&sale, "payment_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.ErrSaleNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (r *SaleRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) ListByTaxID(ctx context.Context, taxID string) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("buyer_tax_id = ?", taxID).
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Sale, error) {
	if limit <= 0 {
		limit = 50
	}
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sales).Error
	return sales, err
}

// UpdateStatus sets the sale status and, when approvedAt is non-nil, the
// approval timestamp in the same write.
func (r *SaleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SaleStatus, approvedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if approvedAt != nil {
		updates["approved_at"] = approvedAt
	}
	return r.db.WithContext(ctx).
		Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *SaleRepository) ListPending(ctx context.Context, limit int) ([]model.Sale, error) {
	if limit <= 0 {
		limit = 20
	}
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SalePending).
		Order("created_at ASC").
		Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) ListApprovedUnnotified(ctx context.Context, limit, maxAttempts int) ([]model.Sale, error) {
	if limit <= 0 {
		limit = 50
	}
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("status = ? AND webhook_notified = ? AND webhook_attempts < ?",
			model.SaleApproved, false, maxAttempts).
		Order("approved_at ASC").
		Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) IncrementWebhookAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"webhook_attempts": gorm.Expr("webhook_attempts + 1"),
			"updated_at":       time.Now(),
		}).Error
}

func (r *SaleRepository) MarkWebhookNotified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"webhook_notified": true,
			"updated_at":       time.Now(),
		}).Error
}
