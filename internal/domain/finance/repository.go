package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines persistence operations for payments and their
// allocations.
type PaymentRepository interface {
	// Create persists a new pending payment. Returns
	// shared.ErrAlreadyExists when the receipt number is already taken,
	// the storage-level uniqueness guarantee behind the deduplication gate.
	Create(ctx context.Context, payment *Payment) error

	// FindByID finds a payment by internal id, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByReceiptNumber finds a payment by its receipt number, nil when absent
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Payment, error)

	// Save persists status changes to an existing payment
	Save(ctx context.Context, payment *Payment) error

	// SaveAllocations persists the allocation records of a payment
	SaveAllocations(ctx context.Context, allocations []Allocation) error

	// SumCompletedByCustomerBetween sums COMPLETED payment amounts for the
	// customer with transaction timestamps in [from, to).
	SumCompletedByCustomerBetween(ctx context.Context, customerID uuid.UUID, from, to time.Time) (decimal.Decimal, error)

	// SumUnallocatedByCustomer sums credit held across the customer's
	// completed payments, used by the balance reconciliation check.
	SumUnallocatedByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
}

// LedgerRepository defines persistence operations for ledger entries.
// Entries are append-only; there is deliberately no update or delete.
type LedgerRepository interface {
	// SaveEntries appends the entries of one balanced transaction
	SaveEntries(ctx context.Context, entries []LedgerEntry) error

	// FindByTransactionRef returns all entries under one reference
	FindByTransactionRef(ctx context.Context, ref uuid.UUID) ([]LedgerEntry, error)

	// HasReversalOf reports whether any entry reverses the given reference
	HasReversalOf(ctx context.Context, ref uuid.UUID) (bool, error)

	// FindByInvoice returns all entries referencing one invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]LedgerEntry, error)

	// SumByAccount returns total debits and credits for one account,
	// optionally bounded to entries dated on or before asOf.
	SumByAccount(ctx context.Context, accountCode string, asOf *time.Time) (debits, credits decimal.Decimal, err error)

	// TransactionTotals returns per-reference debit and credit totals for
	// integrity verification.
	TransactionTotals(ctx context.Context) ([]TransactionTotals, error)
}

// TransactionTotals aggregates one transaction reference
type TransactionTotals struct {
	TransactionRef uuid.UUID
	DebitTotal     decimal.Decimal
	CreditTotal    decimal.Decimal
}

// NotificationLogRepository defines persistence operations for the
// notification audit trail.
type NotificationLogRepository interface {
	// Create persists a new log row on arrival
	Create(ctx context.Context, log *NotificationLog) error

	// Save records the single outcome update
	Save(ctx context.Context, log *NotificationLog) error

	// FindByReceiptNumber lists log rows for a receipt, newest first
	FindByReceiptNumber(ctx context.Context, receiptNumber string) ([]NotificationLog, error)

	// ListUnprocessed lists failed, non-duplicate rows for manual reprocessing
	ListUnprocessed(ctx context.Context, limit int) ([]NotificationLog, error)
}
