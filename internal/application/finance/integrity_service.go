package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/application/ports"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IntegrityService runs the read-only checks operators lean on: ledger
// balance verification, per-account balances, and the customer-balance
// reconciliation against open invoices and held credit.
type IntegrityService struct {
	repos  ports.Repos
	ledger *finance.LedgerService
	logger *zap.Logger
}

// NewIntegrityService creates an integrity service
func NewIntegrityService(repos ports.Repos, logger *zap.Logger) *IntegrityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrityService{
		repos:  repos,
		ledger: finance.NewLedgerService(repos.Ledger),
		logger: logger,
	}
}

// VerifyLedger reports every transaction reference whose sides disagree
func (s *IntegrityService) VerifyLedger(ctx context.Context) (*finance.IntegrityReport, error) {
	report, err := s.ledger.VerifyIntegrity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ledger: %w", err)
	}
	if !report.Valid {
		s.logger.Error("ledger integrity check failed",
			zap.Int("unbalanced_refs", len(report.UnbalancedRefs)))
	}
	return report, nil
}

// AccountBalance derives one account's balance, optionally as of a date
func (s *IntegrityService) AccountBalance(ctx context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, error) {
	return s.ledger.BalanceOf(ctx, accountCode, asOf)
}

// TrialBalanceLine is one account's totals in a trial balance
type TrialBalanceLine struct {
	AccountCode string
	Category    finance.AccountCategory
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Balance     decimal.Decimal
}

// TrialBalance holds per-account totals across the whole chart. Balanced
// means total debits equal total credits within the rounding tolerance.
type TrialBalance struct {
	AsOf        *time.Time
	Lines       []TrialBalanceLine
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Balanced    bool
}

// ComputeTrialBalance totals every account in the chart, optionally bounded
// to entries dated on or before asOf.
func (s *IntegrityService) ComputeTrialBalance(ctx context.Context, asOf *time.Time) (*TrialBalance, error) {
	tb := &TrialBalance{
		AsOf:        asOf,
		DebitTotal:  decimal.Zero,
		CreditTotal: decimal.Zero,
	}

	for _, code := range finance.AccountCodes() {
		debits, credits, err := s.repos.Ledger.SumByAccount(ctx, code, asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to sum account %s: %w", code, err)
		}
		category, _ := finance.AccountCategoryFor(code)

		balance := debits.Sub(credits)
		if !category.DebitNormal() {
			balance = credits.Sub(debits)
		}

		tb.Lines = append(tb.Lines, TrialBalanceLine{
			AccountCode: code,
			Category:    category,
			DebitTotal:  debits,
			CreditTotal: credits,
			Balance:     balance,
		})
		tb.DebitTotal = tb.DebitTotal.Add(debits)
		tb.CreditTotal = tb.CreditTotal.Add(credits)
	}

	tb.Balanced = valueobject.WithinTolerance(tb.DebitTotal, tb.CreditTotal)
	if !tb.Balanced {
		s.logger.Error("trial balance out of balance",
			zap.String("debits", tb.DebitTotal.StringFixed(2)),
			zap.String("credits", tb.CreditTotal.StringFixed(2)))
	}
	return tb, nil
}

// CustomerReconciliation compares a customer's stored balance to the value
// derived from invoices and held credit.
type CustomerReconciliation struct {
	CustomerID      uuid.UUID
	StoredBalance   decimal.Decimal
	OpenInvoiceSum  decimal.Decimal
	UnallocatedSum  decimal.Decimal
	DerivedBalance  decimal.Decimal
	Consistent      bool
}

// ReconcileCustomer checks Customer.balance == Σ open invoice balances −
// unallocated payment credit, within the rounding tolerance. Read-only; a
// discrepancy is reported, never auto-corrected.
func (s *IntegrityService) ReconcileCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerReconciliation, error) {
	customer, err := s.repos.Customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return nil, shared.ErrNotFound
	}

	invoiceSum, err := s.repos.Invoices.SumOpenBalancesByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum invoice balances: %w", err)
	}
	unallocated, err := s.repos.Payments.SumUnallocatedByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum unallocated credit: %w", err)
	}

	derived := invoiceSum.Sub(unallocated)
	rec := &CustomerReconciliation{
		CustomerID:     customerID,
		StoredBalance:  customer.Balance,
		OpenInvoiceSum: invoiceSum,
		UnallocatedSum: unallocated,
		DerivedBalance: derived,
		Consistent:     valueobject.WithinTolerance(customer.Balance, derived),
	}

	if !rec.Consistent {
		s.logger.Warn("customer balance out of reconciliation",
			zap.String("customer_id", customerID.String()),
			zap.String("stored", rec.StoredBalance.StringFixed(2)),
			zap.String("derived", rec.DerivedBalance.StringFixed(2)))
	}
	return rec, nil
}
