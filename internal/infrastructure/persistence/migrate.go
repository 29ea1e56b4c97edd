package persistence

import (
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/partner"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for all persisted aggregates.
// The unique index on payments.receipt_number is the storage guarantee the
// deduplication gate depends on; it comes from the struct tags here.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&partner.Customer{},
		&billing.Invoice{},
		&finance.Payment{},
		&finance.Allocation{},
		&finance.LedgerEntry{},
		&finance.NotificationLog{},
	)
}
