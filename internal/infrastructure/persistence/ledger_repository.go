package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerRepository implements finance.LedgerRepository using GORM.
// Entries are append-only; the repository exposes no update or delete.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// SaveEntries appends the entries of one balanced transaction
func (r *GormLedgerRepository) SaveEntries(ctx context.Context, entries []finance.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindByTransactionRef returns all entries under one reference
func (r *GormLedgerRepository) FindByTransactionRef(ctx context.Context, ref uuid.UUID) ([]finance.LedgerEntry, error) {
	var entries []finance.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("transaction_ref = ?", ref).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HasReversalOf reports whether any entry reverses the given reference
func (r *GormLedgerRepository) HasReversalOf(ctx context.Context, ref uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&finance.LedgerEntry{}).
		Where("reversal_of = ?", ref).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByInvoice returns all entries referencing one invoice
func (r *GormLedgerRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]finance.LedgerEntry, error) {
	var entries []finance.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByAccount returns total debits and credits for one account
func (r *GormLedgerRepository) SumByAccount(ctx context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, decimal.Decimal, error) {
	type sums struct {
		Debits  decimal.NullDecimal
		Credits decimal.NullDecimal
	}
	var row sums

	query := r.db.WithContext(ctx).
		Model(&finance.LedgerEntry{}).
		Select(
			"COALESCE(SUM(CASE WHEN side = ? THEN amount ELSE 0 END), 0) AS debits, "+
				"COALESCE(SUM(CASE WHEN side = ? THEN amount ELSE 0 END), 0) AS credits",
			finance.EntrySideDebit, finance.EntrySideCredit,
		).
		Where("account_code = ?", accountCode)
	if asOf != nil {
		query = query.Where("transaction_date <= ?", *asOf)
	}
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	debits, credits := decimal.Zero, decimal.Zero
	if row.Debits.Valid {
		debits = row.Debits.Decimal
	}
	if row.Credits.Valid {
		credits = row.Credits.Decimal
	}
	return debits, credits, nil
}

// TransactionTotals returns per-reference debit and credit totals
func (r *GormLedgerRepository) TransactionTotals(ctx context.Context) ([]finance.TransactionTotals, error) {
	type row struct {
		TransactionRef uuid.UUID
		DebitTotal     decimal.Decimal
		CreditTotal    decimal.Decimal
	}
	var rows []row

	if err := r.db.WithContext(ctx).
		Model(&finance.LedgerEntry{}).
		Select(
			"transaction_ref, "+
				"COALESCE(SUM(CASE WHEN side = ? THEN amount ELSE 0 END), 0) AS debit_total, "+
				"COALESCE(SUM(CASE WHEN side = ? THEN amount ELSE 0 END), 0) AS credit_total",
			finance.EntrySideDebit, finance.EntrySideCredit,
		).
		Group("transaction_ref").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make([]finance.TransactionTotals, len(rows))
	for i, r := range rows {
		totals[i] = finance.TransactionTotals{
			TransactionRef: r.TransactionRef,
			DebitTotal:     r.DebitTotal,
			CreditTotal:    r.CreditTotal,
		}
	}
	return totals, nil
}

// Ensure GormLedgerRepository implements LedgerRepository
var _ finance.LedgerRepository = (*GormLedgerRepository)(nil)
