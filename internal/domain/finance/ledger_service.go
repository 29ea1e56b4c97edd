package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReversalDescriptionPrefix marks entries that offset an earlier transaction
const ReversalDescriptionPrefix = "REVERSAL: "

// LedgerService owns the ledger invariants: it refuses unbalanced postings,
// re-emits reversals with flipped sides, and derives balances by aggregation.
// It runs against whatever repository it is constructed with, so callers can
// scope it to an open storage transaction.
type LedgerService struct {
	repo LedgerRepository
}

// NewLedgerService creates a ledger service over the given repository
func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

// Post validates and persists a balanced transaction. Nothing is written
// when validation fails.
func (s *LedgerService) Post(ctx context.Context, txn *LedgerTransaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	return s.repo.SaveEntries(ctx, txn.Entries)
}

// Reverse re-emits all entries of originalRef under a new reference with
// DEBIT and CREDIT flipped and the description prefixed. It fails with
// NOT_FOUND when the original reference has no entries, and also once the
// reference has already been reversed. The original entries are no longer
// reversible, so a second attempt finds nothing to act on.
func (s *LedgerService) Reverse(ctx context.Context, originalRef uuid.UUID, date time.Time, reason string) (uuid.UUID, error) {
	originals, err := s.repo.FindByTransactionRef(ctx, originalRef)
	if err != nil {
		return uuid.Nil, err
	}
	if len(originals) == 0 {
		return uuid.Nil, ErrLedgerTransactionNotFound
	}

	reversed, err := s.repo.HasReversalOf(ctx, originalRef)
	if err != nil {
		return uuid.Nil, err
	}
	if reversed {
		return uuid.Nil, ErrLedgerTransactionNotFound
	}

	if date.IsZero() {
		date = time.Now()
	}

	newRef := uuid.New()
	origRef := originalRef
	mirrored := make([]LedgerEntry, 0, len(originals))
	for _, e := range originals {
		description := ReversalDescriptionPrefix + e.Description
		if reason != "" {
			description = fmt.Sprintf("%s%s (%s)", ReversalDescriptionPrefix, e.Description, reason)
		}
		mirrored = append(mirrored, LedgerEntry{
			ID:              uuid.New(),
			TransactionRef:  newRef,
			AccountCode:     e.AccountCode,
			AccountCategory: e.AccountCategory,
			Side:            e.Side.Opposite(),
			Amount:          e.Amount,
			Description:     description,
			TransactionDate: date,
			ReversalOf:      &origRef,
			PaymentID:       e.PaymentID,
			InvoiceID:       e.InvoiceID,
			CustomerID:      e.CustomerID,
			CreatedAt:       time.Now(),
		})
	}

	txn := &LedgerTransaction{Ref: newRef, Date: date, Entries: mirrored}
	if err := txn.Validate(); err != nil {
		return uuid.Nil, err
	}
	if err := s.repo.SaveEntries(ctx, mirrored); err != nil {
		return uuid.Nil, err
	}
	return newRef, nil
}

// BalanceOf derives the signed balance of one account, optionally bounded to
// entries dated on or before asOf. Debit-normal accounts (assets, expenses)
// report debits minus credits; the rest report credits minus debits.
func (s *LedgerService) BalanceOf(ctx context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	debits, credits, err := s.repo.SumByAccount(ctx, accountCode, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	category, ok := AccountCategoryFor(accountCode)
	if !ok {
		// Accounts outside the chart still aggregate; treat as debit-normal
		category = AccountCategoryAsset
	}
	if category.DebitNormal() {
		return debits.Sub(credits), nil
	}
	return credits.Sub(debits), nil
}

// IntegrityReport is the outcome of a full ledger verification
type IntegrityReport struct {
	Valid          bool
	CheckedRefs    int
	UnbalancedRefs []UnbalancedRef
}

// UnbalancedRef identifies a transaction whose sides disagree
type UnbalancedRef struct {
	TransactionRef uuid.UUID
	DebitTotal     decimal.Decimal
	CreditTotal    decimal.Decimal
}

// VerifyIntegrity groups all entries by transaction reference and reports
// every group whose debit and credit totals disagree beyond the rounding
// tolerance. Read-only.
func (s *LedgerService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	totals, err := s.repo.TransactionTotals(ctx)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{Valid: true, CheckedRefs: len(totals)}
	for _, t := range totals {
		if !valueobject.WithinTolerance(t.DebitTotal, t.CreditTotal) {
			report.Valid = false
			report.UnbalancedRefs = append(report.UnbalancedRefs, UnbalancedRef{
				TransactionRef: t.TransactionRef,
				DebitTotal:     t.DebitTotal,
				CreditTotal:    t.CreditTotal,
			})
		}
	}
	return report, nil
}
