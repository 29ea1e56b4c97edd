package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
)

func newTestPayment(t *testing.T, receipt string, customerID uuid.UUID, amount float64, at time.Time) *finance.Payment {
	t.Helper()
	p, err := finance.NewPayment(receipt, "", customerID,
		valueobject.NewMoneyKESFromFloat(amount), "+254700000001", "ACME", at)
	require.NoError(t, err)
	return p
}

func TestGormPaymentRepository_Create(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormPaymentRepository(db)
	customerID := uuid.New()

	t.Run("creates payment", func(t *testing.T) {
		p := newTestPayment(t, "RCP001", customerID, 100, time.Now())
		require.NoError(t, repo.Create(ctx, p))

		found, err := repo.FindByReceiptNumber(ctx, "RCP001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, p.ID, found.ID)
		assert.Equal(t, finance.PaymentStatusPending, found.Status)
	})

	t.Run("duplicate receipt number is rejected", func(t *testing.T) {
		p := newTestPayment(t, "RCP001", customerID, 100, time.Now())
		err := repo.Create(ctx, p)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("absent receipt returns nil", func(t *testing.T) {
		found, err := repo.FindByReceiptNumber(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormPaymentRepository_Allocations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormPaymentRepository(db)
	customerID := uuid.New()

	p := newTestPayment(t, "RCP002", customerID, 500, time.Now())
	require.NoError(t, p.AddAllocation(uuid.New(), decimal.NewFromInt(300)))
	require.NoError(t, p.AddAllocation(uuid.New(), decimal.NewFromInt(200)))

	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.SaveAllocations(ctx, p.Allocations))

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Allocations, 2)
	assert.Equal(t, "500.00", found.AllocatedTotal().StringFixed(2))
}

func TestGormPaymentRepository_SumCompletedByCustomerBetween(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormPaymentRepository(db)
	customerID := uuid.New()

	dayStart := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	inWindow := newTestPayment(t, "RCP010", customerID, 300, dayStart.Add(10*time.Hour))
	require.NoError(t, inWindow.Complete())
	require.NoError(t, repo.Create(ctx, inWindow))
	require.NoError(t, repo.Save(ctx, inWindow))

	pending := newTestPayment(t, "RCP011", customerID, 999, dayStart.Add(11*time.Hour))
	require.NoError(t, repo.Create(ctx, pending))

	previousDay := newTestPayment(t, "RCP012", customerID, 999, dayStart.Add(-time.Hour))
	require.NoError(t, previousDay.Complete())
	require.NoError(t, repo.Create(ctx, previousDay))
	require.NoError(t, repo.Save(ctx, previousDay))

	otherCustomer := newTestPayment(t, "RCP013", uuid.New(), 999, dayStart.Add(10*time.Hour))
	require.NoError(t, otherCustomer.Complete())
	require.NoError(t, repo.Create(ctx, otherCustomer))
	require.NoError(t, repo.Save(ctx, otherCustomer))

	sum, err := repo.SumCompletedByCustomerBetween(ctx, customerID, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, "300.00", sum.StringFixed(2))
}

func TestGormPaymentRepository_SumUnallocatedByCustomer(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormPaymentRepository(db)
	customerID := uuid.New()

	t.Run("no payments is zero", func(t *testing.T) {
		sum, err := repo.SumUnallocatedByCustomer(ctx, customerID)
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})

	// 500 received, 300 allocated, 200 held as credit.
	p := newTestPayment(t, "RCP020", customerID, 500, time.Now())
	require.NoError(t, p.AddAllocation(uuid.New(), decimal.NewFromInt(300)))
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.SaveAllocations(ctx, p.Allocations))
	require.NoError(t, p.Complete())
	require.NoError(t, repo.Save(ctx, p))

	// Fully allocated payment contributes nothing.
	q := newTestPayment(t, "RCP021", customerID, 100, time.Now())
	require.NoError(t, q.AddAllocation(uuid.New(), decimal.NewFromInt(100)))
	require.NoError(t, repo.Create(ctx, q))
	require.NoError(t, repo.SaveAllocations(ctx, q.Allocations))
	require.NoError(t, q.Complete())
	require.NoError(t, repo.Save(ctx, q))

	sum, err := repo.SumUnallocatedByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", sum.StringFixed(2))
}
