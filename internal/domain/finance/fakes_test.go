package finance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/partner"
)

// In-memory repository fakes for exercising domain services without storage.

type memoryLedgerRepository struct {
	entries []LedgerEntry
	saveErr error
}

func (m *memoryLedgerRepository) SaveEntries(_ context.Context, entries []LedgerEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memoryLedgerRepository) FindByTransactionRef(_ context.Context, ref uuid.UUID) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range m.entries {
		if e.TransactionRef == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryLedgerRepository) HasReversalOf(_ context.Context, ref uuid.UUID) (bool, error) {
	for _, e := range m.entries {
		if e.ReversalOf != nil && *e.ReversalOf == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLedgerRepository) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range m.entries {
		if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryLedgerRepository) SumByAccount(_ context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, decimal.Decimal, error) {
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range m.entries {
		if e.AccountCode != accountCode {
			continue
		}
		if asOf != nil && e.TransactionDate.After(*asOf) {
			continue
		}
		if e.Side == EntrySideDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits, nil
}

func (m *memoryLedgerRepository) TransactionTotals(_ context.Context) ([]TransactionTotals, error) {
	byRef := make(map[uuid.UUID]*TransactionTotals)
	order := make([]uuid.UUID, 0)
	for _, e := range m.entries {
		totals, ok := byRef[e.TransactionRef]
		if !ok {
			totals = &TransactionTotals{
				TransactionRef: e.TransactionRef,
				DebitTotal:     decimal.Zero,
				CreditTotal:    decimal.Zero,
			}
			byRef[e.TransactionRef] = totals
			order = append(order, e.TransactionRef)
		}
		if e.Side == EntrySideDebit {
			totals.DebitTotal = totals.DebitTotal.Add(e.Amount)
		} else {
			totals.CreditTotal = totals.CreditTotal.Add(e.Amount)
		}
	}
	out := make([]TransactionTotals, 0, len(byRef))
	for _, ref := range order {
		out = append(out, *byRef[ref])
	}
	return out, nil
}

type memoryCustomerRepository struct {
	customers []*partner.Customer
}

func (m *memoryCustomerRepository) Create(_ context.Context, customer *partner.Customer) error {
	m.customers = append(m.customers, customer)
	return nil
}

func (m *memoryCustomerRepository) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memoryCustomerRepository) FindByCode(_ context.Context, code string) (*partner.Customer, error) {
	for _, c := range m.customers {
		if c.Code == strings.ToUpper(code) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memoryCustomerRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	return m.FindByID(ctx, id)
}

func (m *memoryCustomerRepository) Save(_ context.Context, _ *partner.Customer) error {
	return nil
}

type memoryInvoiceRepository struct {
	invoices []*billing.Invoice
}

func (m *memoryInvoiceRepository) Create(_ context.Context, invoice *billing.Invoice) error {
	m.invoices = append(m.invoices, invoice)
	return nil
}

func (m *memoryInvoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, nil
}

func (m *memoryInvoiceRepository) FindByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.Number == strings.ToUpper(number) {
			return inv, nil
		}
	}
	return nil, nil
}

func (m *memoryInvoiceRepository) FindOpenByCustomer(_ context.Context, customerID uuid.UUID) ([]*billing.Invoice, error) {
	var out []*billing.Invoice
	for _, inv := range m.invoices {
		if inv.CustomerID == customerID && inv.IsOpen() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryInvoiceRepository) Save(_ context.Context, _ *billing.Invoice) error {
	return nil
}

func (m *memoryInvoiceRepository) SumOpenBalancesByCustomer(_ context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, inv := range m.invoices {
		if inv.CustomerID == customerID && inv.Status != billing.InvoiceStatusCancelled {
			sum = sum.Add(inv.Balance)
		}
	}
	return sum, nil
}

type memoryPaymentRepository struct {
	payments []*Payment
}

func (m *memoryPaymentRepository) Create(_ context.Context, payment *Payment) error {
	m.payments = append(m.payments, payment)
	return nil
}

func (m *memoryPaymentRepository) FindByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memoryPaymentRepository) FindByReceiptNumber(_ context.Context, receiptNumber string) (*Payment, error) {
	for _, p := range m.payments {
		if p.ReceiptNumber == receiptNumber {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memoryPaymentRepository) Save(_ context.Context, _ *Payment) error {
	return nil
}

func (m *memoryPaymentRepository) SaveAllocations(_ context.Context, _ []Allocation) error {
	return nil
}

func (m *memoryPaymentRepository) SumCompletedByCustomerBetween(_ context.Context, customerID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.CustomerID != customerID || p.Status != PaymentStatusCompleted {
			continue
		}
		if p.TransactionAt.Before(from) || !p.TransactionAt.Before(to) {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (m *memoryPaymentRepository) SumUnallocatedByCustomer(_ context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.CustomerID == customerID && p.Status == PaymentStatusCompleted {
			sum = sum.Add(p.UnallocatedAmount())
		}
	}
	return sum, nil
}
