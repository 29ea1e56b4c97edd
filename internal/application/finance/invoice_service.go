package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/application/ports"
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService issues and cancels invoices. Issuance raises the customer
// balance and posts DEBIT Accounts Receivable / CREDIT Sales Revenue, the
// receivable the settlement pipeline's payment leg later relieves.
type InvoiceService struct {
	uow    ports.UnitOfWork
	repos  ports.Repos
	logger *zap.Logger
}

// NewInvoiceService creates an invoice service
func NewInvoiceService(uow ports.UnitOfWork, repos ports.Repos, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{uow: uow, repos: repos, logger: logger}
}

// IssueInvoiceRequest carries the inputs for invoice issuance
type IssueInvoiceRequest struct {
	Number     string
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	IssuedAt   time.Time
	SaleID     *uuid.UUID
	SaleNumber string
}

// IssueInvoice creates the invoice, raises the customer balance and posts
// the issuance ledger transaction as one atomic unit.
func (s *InvoiceService) IssueInvoice(ctx context.Context, req IssueInvoiceRequest) (*billing.Invoice, error) {
	amount, err := valueobject.NewMoney(req.Amount, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	var invoice *billing.Invoice
	err = s.uow.Execute(ctx, func(ctx context.Context, repos ports.Repos) error {
		customer, err := repos.Customers.FindByIDForUpdate(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to lock customer: %w", err)
		}
		if customer == nil {
			return shared.ErrNotFound
		}

		invoice, err = billing.NewInvoice(req.Number, customer.ID, amount, req.IssuedAt)
		if err != nil {
			return err
		}
		if req.SaleID != nil {
			invoice.LinkSale(*req.SaleID, req.SaleNumber)
		}
		if err := repos.Invoices.Create(ctx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		if err := customer.AddReceivable(req.Amount); err != nil {
			return err
		}
		if err := repos.Customers.Save(ctx, customer); err != nil {
			return fmt.Errorf("failed to save customer balance: %w", err)
		}

		ledger := finance.NewLedgerService(repos.Ledger)
		posting, err := finance.NewLedgerTransaction(uuid.Nil, invoice.IssuedAt,
			finance.InvoiceIssuedPosting(invoice.ID, customer.ID, invoice.Number, invoice.Amount))
		if err != nil {
			return err
		}
		return ledger.Post(ctx, posting)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice issued",
		zap.String("invoice_number", invoice.Number),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.String("amount", invoice.Amount.String()))

	return invoice, nil
}

// CancelInvoice cancels an unpaid invoice, lowers the customer balance and
// reverses the issuance posting, all atomically.
func (s *InvoiceService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) error {
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ports.Repos) error {
		invoice, err := repos.Invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if invoice == nil {
			return shared.ErrNotFound
		}

		customer, err := repos.Customers.FindByIDForUpdate(ctx, invoice.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to lock customer: %w", err)
		}
		if customer == nil {
			return shared.ErrNotFound
		}

		if err := invoice.Cancel(reason); err != nil {
			return err
		}
		if err := repos.Invoices.Save(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		if err := customer.ReverseReceivable(invoice.Amount); err != nil {
			return err
		}
		if err := repos.Customers.Save(ctx, customer); err != nil {
			return fmt.Errorf("failed to save customer balance: %w", err)
		}

		issuanceRef, err := s.issuancePostingRef(ctx, repos.Ledger, invoice.ID)
		if err != nil {
			return err
		}

		ledger := finance.NewLedgerService(repos.Ledger)
		if _, err := ledger.Reverse(ctx, issuanceRef, time.Now(), reason); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("invoice cancelled",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("reason", reason))
	return nil
}

// issuancePostingRef locates the original issuance transaction for the
// invoice: its entries reference the invoice, are not reversals, and carry
// no payment.
func (s *InvoiceService) issuancePostingRef(ctx context.Context, ledger finance.LedgerRepository, invoiceID uuid.UUID) (uuid.UUID, error) {
	entries, err := ledger.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load ledger entries for invoice: %w", err)
	}
	for _, e := range entries {
		if e.ReversalOf == nil && e.PaymentID == nil {
			return e.TransactionRef, nil
		}
	}
	return uuid.Nil, finance.ErrLedgerTransactionNotFound
}
