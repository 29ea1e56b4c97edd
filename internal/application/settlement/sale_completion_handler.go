package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SaleCompleter closes the sale record behind a fully paid invoice. The sale
// subsystem itself lives outside this service; this is its port.
type SaleCompleter interface {
	CompleteSale(ctx context.Context, saleID uuid.UUID) error
}

// SaleCompletionHandler propagates invoice payment to the originating sale
// record. Subscribed to billing.invoice.paid.
type SaleCompletionHandler struct {
	sales  SaleCompleter
	logger *zap.Logger
}

// NewSaleCompletionHandler creates a sale completion handler
func NewSaleCompletionHandler(sales SaleCompleter, logger *zap.Logger) *SaleCompletionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleCompletionHandler{sales: sales, logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *SaleCompletionHandler) EventTypes() []string {
	return []string{billing.EventTypeInvoicePaid}
}

// Handle closes the sale linked to a paid invoice, if any
func (h *SaleCompletionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	paid, ok := event.(*billing.InvoicePaidEvent)
	if !ok {
		return nil
	}
	if paid.SaleID == nil {
		return nil
	}

	if err := h.sales.CompleteSale(ctx, *paid.SaleID); err != nil {
		h.logger.Error("failed to complete sale for paid invoice",
			zap.String("invoice_number", paid.Number),
			zap.String("sale_id", paid.SaleID.String()),
			zap.Error(err))
		return err
	}

	h.logger.Info("sale completed for paid invoice",
		zap.String("invoice_number", paid.Number),
		zap.String("sale_id", paid.SaleID.String()))
	return nil
}

// Ensure SaleCompletionHandler implements EventHandler
var _ shared.EventHandler = (*SaleCompletionHandler)(nil)
