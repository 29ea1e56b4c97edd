package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create persists a new pending payment. The unique index on
// receipt_number makes this the authoritative duplicate check: the loser
// of a concurrent race gets shared.ErrAlreadyExists here.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	if err := r.db.WithContext(ctx).Omit("Allocations").Create(payment).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindByReceiptNumber finds a payment by its receipt number
func (r *GormPaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("receipt_number = ?", receiptNumber).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// Save persists status changes to an existing payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	return r.db.WithContext(ctx).Omit("Allocations").Save(payment).Error
}

// SaveAllocations persists the allocation records of a payment
func (r *GormPaymentRepository) SaveAllocations(ctx context.Context, allocations []finance.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&allocations).Error
}

// SumCompletedByCustomerBetween sums COMPLETED payment amounts for the
// customer with transaction timestamps in [from, to)
func (r *GormPaymentRepository) SumCompletedByCustomerBetween(ctx context.Context, customerID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&finance.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("customer_id = ? AND status = ? AND transaction_at >= ? AND transaction_at < ?",
			customerID, finance.PaymentStatusCompleted, from, to).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// SumUnallocatedByCustomer sums credit held across the customer's
// completed payments
func (r *GormPaymentRepository) SumUnallocatedByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&finance.Payment{}).
		Select("COALESCE(SUM(payments.amount), 0) - COALESCE(SUM(alloc.allocated), 0)").
		Joins("LEFT JOIN (SELECT payment_id, SUM(amount) AS allocated FROM payment_allocations GROUP BY payment_id) alloc ON alloc.payment_id = payments.id").
		Where("payments.customer_id = ? AND payments.status = ?", customerID, finance.PaymentStatusCompleted).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
