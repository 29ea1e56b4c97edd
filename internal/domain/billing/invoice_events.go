package billing

import (
	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the billing context
const (
	EventTypeInvoiceCreated       = "billing.invoice.created"
	EventTypeInvoicePartiallyPaid = "billing.invoice.partially_paid"
	EventTypeInvoicePaid          = "billing.invoice.paid"
	EventTypeInvoiceCancelled     = "billing.invoice.cancelled"
)

// InvoiceCreatedEvent is raised when an invoice is issued
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", inv.ID),
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		Amount:          inv.Amount,
	}
}

// InvoicePartiallyPaidEvent is raised when a payment covers part of an invoice
type InvoicePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	Number        string          `json:"number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	Balance       decimal.Decimal `json:"balance"`
}

// NewInvoicePartiallyPaidEvent creates a new InvoicePartiallyPaidEvent
func NewInvoicePartiallyPaidEvent(inv *Invoice, applied decimal.Decimal) *InvoicePartiallyPaidEvent {
	return &InvoicePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePartiallyPaid, "Invoice", inv.ID),
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		AmountApplied:   applied,
		Balance:         inv.Balance,
	}
}

// InvoicePaidEvent is raised when an invoice balance reaches zero.
// SaleID lets the sale-completion handler close the originating sale.
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	Number     string     `json:"number"`
	CustomerID uuid.UUID  `json:"customer_id"`
	SaleID     *uuid.UUID `json:"sale_id,omitempty"`
	SaleNumber string     `json:"sale_number,omitempty"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, "Invoice", inv.ID),
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		SaleID:          inv.SaleID,
		SaleNumber:      inv.SaleNumber,
	}
}

// InvoiceCancelledEvent is raised when an unpaid invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice, reason string) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, "Invoice", inv.ID),
		Number:          inv.Number,
		Reason:          reason,
	}
}
