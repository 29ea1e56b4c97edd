package persistence

import (
	"context"

	"github.com/pesaflow/backend/internal/domain/finance"
	"gorm.io/gorm"
)

// GormNotificationLogRepository implements finance.NotificationLogRepository using GORM
type GormNotificationLogRepository struct {
	db *gorm.DB
}

// NewGormNotificationLogRepository creates a new GormNotificationLogRepository
func NewGormNotificationLogRepository(db *gorm.DB) *GormNotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

// Create persists a new log row
func (r *GormNotificationLogRepository) Create(ctx context.Context, log *finance.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Save records the outcome update
func (r *GormNotificationLogRepository) Save(ctx context.Context, log *finance.NotificationLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// FindByReceiptNumber lists log rows for a receipt, newest first
func (r *GormNotificationLogRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) ([]finance.NotificationLog, error) {
	var logs []finance.NotificationLog
	if err := r.db.WithContext(ctx).
		Where("receipt_number = ?", receiptNumber).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListUnprocessed lists failed, non-duplicate rows for manual reprocessing
func (r *GormNotificationLogRepository) ListUnprocessed(ctx context.Context, limit int) ([]finance.NotificationLog, error) {
	var logs []finance.NotificationLog
	query := r.db.WithContext(ctx).
		Where("processed = ? AND duplicate = ?", false, false).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Ensure GormNotificationLogRepository implements NotificationLogRepository
var _ finance.NotificationLogRepository = (*GormNotificationLogRepository)(nil)
