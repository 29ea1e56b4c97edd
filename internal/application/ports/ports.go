package ports

import (
	"context"

	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/partner"
)

// Repos bundles the repositories the application services work over. The
// unit of work hands a transaction-scoped copy to each atomic body.
type Repos struct {
	Customers     partner.CustomerRepository
	Invoices      billing.InvoiceRepository
	Payments      finance.PaymentRepository
	Ledger        finance.LedgerRepository
	Notifications finance.NotificationLogRepository
}

// UnitOfWork executes fn atomically: every repository write inside fn
// commits or rolls back as one storage transaction.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
