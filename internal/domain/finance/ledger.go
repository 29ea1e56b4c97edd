package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AccountCategory classifies a ledger account
type AccountCategory string

const (
	AccountCategoryAsset     AccountCategory = "ASSET"
	AccountCategoryLiability AccountCategory = "LIABILITY"
	AccountCategoryEquity    AccountCategory = "EQUITY"
	AccountCategoryRevenue   AccountCategory = "REVENUE"
	AccountCategoryExpense   AccountCategory = "EXPENSE"
)

// IsValid checks if the category is a valid AccountCategory
func (c AccountCategory) IsValid() bool {
	switch c {
	case AccountCategoryAsset, AccountCategoryLiability, AccountCategoryEquity,
		AccountCategoryRevenue, AccountCategoryExpense:
		return true
	}
	return false
}

// DebitNormal returns true for categories whose balance grows with debits
func (c AccountCategory) DebitNormal() bool {
	return c == AccountCategoryAsset || c == AccountCategoryExpense
}

// EntrySide is the side of a double-entry posting
type EntrySide string

const (
	EntrySideDebit  EntrySide = "DEBIT"
	EntrySideCredit EntrySide = "CREDIT"
)

// Opposite returns the flipped side, used when reversing a transaction
func (s EntrySide) Opposite() EntrySide {
	if s == EntrySideDebit {
		return EntrySideCredit
	}
	return EntrySideDebit
}

// Chart of accounts used by the settlement core
const (
	AccountCodeCash               = "1000"
	AccountCodeAccountsReceivable = "1100"
	AccountCodeSalesRevenue       = "4000"
)

// AccountCodes lists every account in the chart, in statement order
func AccountCodes() []string {
	return []string{AccountCodeCash, AccountCodeAccountsReceivable, AccountCodeSalesRevenue}
}

// AccountCategoryFor returns the category of a known account code
func AccountCategoryFor(accountCode string) (AccountCategory, bool) {
	switch accountCode {
	case AccountCodeCash, AccountCodeAccountsReceivable:
		return AccountCategoryAsset, true
	case AccountCodeSalesRevenue:
		return AccountCategoryRevenue, true
	}
	return "", false
}

// LedgerEntry is one immutable row of a balanced posting. Entries sharing a
// TransactionRef form one logical transaction and must balance. Rows are
// never updated or deleted; corrections are reversal entries.
type LedgerEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TransactionRef  uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode     string          `gorm:"type:varchar(20);not null;index"`
	AccountCategory AccountCategory `gorm:"type:varchar(20);not null"`
	Side            EntrySide       `gorm:"type:varchar(10);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description     string          `gorm:"type:text"`
	TransactionDate time.Time       `gorm:"not null;index"`
	ReversalOf      *uuid.UUID      `gorm:"type:uuid;index"` // Transaction ref this entry reverses
	PaymentID       *uuid.UUID      `gorm:"type:uuid;index"`
	InvoiceID       *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerID      *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// EntryInput describes one side of a posting before it is persisted
type EntryInput struct {
	AccountCode string
	Side        EntrySide
	Amount      decimal.Decimal
	Description string
	PaymentID   *uuid.UUID
	InvoiceID   *uuid.UUID
	CustomerID  *uuid.UUID
}

// LedgerTransaction is a group of entries that will be posted atomically
// under one transaction reference.
type LedgerTransaction struct {
	Ref     uuid.UUID
	Date    time.Time
	Entries []LedgerEntry
}

// NewLedgerTransaction builds a transaction from entry inputs, deriving
// account categories from the chart of accounts. It fails when an input
// references an unknown account or carries a non-positive amount; balance is
// checked separately by Validate so callers can report OUT_OF_BALANCE
// distinctly.
func NewLedgerTransaction(ref uuid.UUID, date time.Time, inputs []EntryInput) (*LedgerTransaction, error) {
	if ref == uuid.Nil {
		ref = uuid.New()
	}
	if date.IsZero() {
		date = time.Now()
	}

	entries := make([]LedgerEntry, 0, len(inputs))
	for _, in := range inputs {
		category, ok := AccountCategoryFor(in.AccountCode)
		if !ok {
			return nil, shared.NewDomainError("UNKNOWN_ACCOUNT", fmt.Sprintf("Unknown account code %s", in.AccountCode))
		}
		if !in.Amount.IsPositive() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Ledger entry amount must be positive")
		}
		if in.Side != EntrySideDebit && in.Side != EntrySideCredit {
			return nil, shared.NewDomainError("INVALID_SIDE", "Ledger entry side must be DEBIT or CREDIT")
		}

		entries = append(entries, LedgerEntry{
			ID:              uuid.New(),
			TransactionRef:  ref,
			AccountCode:     in.AccountCode,
			AccountCategory: category,
			Side:            in.Side,
			Amount:          in.Amount,
			Description:     in.Description,
			TransactionDate: date,
			PaymentID:       in.PaymentID,
			InvoiceID:       in.InvoiceID,
			CustomerID:      in.CustomerID,
			CreatedAt:       time.Now(),
		})
	}

	return &LedgerTransaction{Ref: ref, Date: date, Entries: entries}, nil
}

// Validate enforces the balance invariant: entries non-empty and total
// debits equal to total credits within the rounding tolerance.
func (t *LedgerTransaction) Validate() error {
	if len(t.Entries) == 0 {
		return ErrEmptyTransaction
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		if e.Side == EntrySideDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}

	if !valueobject.WithinTolerance(debits, credits) {
		return shared.NewDomainError("OUT_OF_BALANCE",
			fmt.Sprintf("Transaction %s does not balance: debits %s, credits %s",
				t.Ref, debits.StringFixed(2), credits.StringFixed(2)))
	}
	return nil
}

// Ledger errors
var (
	ErrEmptyTransaction          = shared.NewDomainError("EMPTY_TRANSACTION", "A ledger transaction requires at least one entry")
	ErrLedgerTransactionNotFound = shared.NewDomainError("NOT_FOUND", "No entries exist under that transaction reference")
)

// PaymentReceivedPosting builds the canonical posting for money received:
// DEBIT Cash / CREDIT Accounts Receivable, both equal to the payment amount.
// It is posted even for payments against a bare customer account, where it
// pre-reduces a future receivable.
func PaymentReceivedPosting(payment *Payment, primaryInvoiceID *uuid.UUID, date time.Time) []EntryInput {
	customerID := payment.CustomerID
	description := fmt.Sprintf("Payment received, receipt %s", payment.ReceiptNumber)
	return []EntryInput{
		{
			AccountCode: AccountCodeCash,
			Side:        EntrySideDebit,
			Amount:      payment.Amount,
			Description: description,
			PaymentID:   &payment.ID,
			InvoiceID:   primaryInvoiceID,
			CustomerID:  &customerID,
		},
		{
			AccountCode: AccountCodeAccountsReceivable,
			Side:        EntrySideCredit,
			Amount:      payment.Amount,
			Description: description,
			PaymentID:   &payment.ID,
			InvoiceID:   primaryInvoiceID,
			CustomerID:  &customerID,
		},
	}
}

// InvoiceIssuedPosting builds the canonical posting for invoice issuance:
// DEBIT Accounts Receivable / CREDIT Sales Revenue, both equal to the
// invoice amount.
func InvoiceIssuedPosting(invoiceID, customerID uuid.UUID, invoiceNumber string, amount decimal.Decimal) []EntryInput {
	description := fmt.Sprintf("Invoice %s issued", invoiceNumber)
	return []EntryInput{
		{
			AccountCode: AccountCodeAccountsReceivable,
			Side:        EntrySideDebit,
			Amount:      amount,
			Description: description,
			InvoiceID:   &invoiceID,
			CustomerID:  &customerID,
		},
		{
			AccountCode: AccountCodeSalesRevenue,
			Side:        EntrySideCredit,
			Amount:      amount,
			Description: description,
			InvoiceID:   &invoiceID,
			CustomerID:  &customerID,
		},
	}
}
