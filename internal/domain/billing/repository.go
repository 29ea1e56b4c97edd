package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	// Create persists a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// FindByID finds an invoice by internal id, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its human-readable number, nil when absent
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindOpenByCustomer returns the customer's UNPAID and PARTIALLY_PAID
	// invoices ordered by issue time ascending. Implementations take row
	// locks when called inside a settlement transaction.
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)

	// Save persists changes to an existing invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SumOpenBalancesByCustomer returns Σ balance over the customer's
	// non-cancelled invoices, used by the balance reconciliation check.
	SumOpenBalancesByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
}
