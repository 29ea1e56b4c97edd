package persistence

import (
	"context"

	"github.com/pesaflow/backend/internal/application/ports"
	"gorm.io/gorm"
)

// GormUnitOfWork implements ports.UnitOfWork over a GORM transaction.
// Each Execute call opens one database transaction and hands the body a
// repository set bound to it, so every write inside the body commits or
// rolls back together.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a transaction. Returning an error rolls back.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos ports.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepos(tx))
	})
}

// NewRepos builds a repository set bound to the given GORM handle, which
// may be a root connection or a transaction.
func NewRepos(db *gorm.DB) ports.Repos {
	return ports.Repos{
		Customers:     NewGormCustomerRepository(db),
		Invoices:      NewGormInvoiceRepository(db),
		Payments:      NewGormPaymentRepository(db),
		Ledger:        NewGormLedgerRepository(db),
		Notifications: NewGormNotificationLogRepository(db),
	}
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ ports.UnitOfWork = (*GormUnitOfWork)(nil)
