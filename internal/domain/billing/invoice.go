package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "UNPAID"         // No payment applied yet
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // 0 < amount paid < amount
	InvoiceStatusPaid          InvoiceStatus = "PAID"           // Balance within rounding tolerance of zero
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"      // Cancelled before any payment
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOpen returns true if payments can still be applied in this status
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusUnpaid || s == InvoiceStatusPartiallyPaid
}

// Invoice represents an amount owed by a customer. It is the aggregate root
// for invoice operations.
//
// Amount is immutable after creation. AmountPaid only ever grows, and
// Balance must always equal Amount - AmountPaid. IssuedAt is the FIFO key
// used by the allocation engine.
type Invoice struct {
	shared.BaseAggregateRoot
	Number       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountPaid   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status       InvoiceStatus   `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	IssuedAt     time.Time       `gorm:"not null;index"`
	SaleID       *uuid.UUID      `gorm:"type:uuid;index"` // Originating sale record, if any
	SaleNumber   string          `gorm:"type:varchar(50)"`
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new unpaid invoice
func NewInvoice(number string, customerID uuid.UUID, amount valueobject.Money, issuedAt time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		CustomerID:        customerID,
		Amount:            amount.Amount(),
		AmountPaid:        decimal.Zero,
		Balance:           amount.Amount(),
		Status:            InvoiceStatusUnpaid,
		IssuedAt:          issuedAt,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// LinkSale attaches the originating sale record
func (inv *Invoice) LinkSale(saleID uuid.UUID, saleNumber string) {
	inv.SaleID = &saleID
	inv.SaleNumber = saleNumber
}

// Apply applies a payment portion to the invoice. The amount must not exceed
// the open balance; the allocation engine guarantees that by construction.
// The invoice closes to PAID once the balance is inside the rounding
// tolerance of zero.
func (inv *Invoice) Apply(amount decimal.Decimal) error {
	if !inv.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to invoice in %s status", inv.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}
	if amount.GreaterThan(inv.Balance) {
		return shared.NewDomainError("EXCEEDS_BALANCE", fmt.Sprintf("Applied amount %s exceeds invoice balance %s", amount.StringFixed(2), inv.Balance.StringFixed(2)))
	}

	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.Balance = inv.Amount.Sub(inv.AmountPaid)

	if inv.Balance.LessThanOrEqual(valueobject.RoundingTolerance) {
		inv.Status = InvoiceStatusPaid
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	} else {
		inv.Status = InvoiceStatusPartiallyPaid
		inv.AddDomainEvent(NewInvoicePartiallyPaidEvent(inv, amount))
	}

	inv.touch()

	return nil
}

// Cancel cancels the invoice. Only permitted while nothing has been paid.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already cancelled")
	}
	if !inv.AmountPaid.IsZero() {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel an invoice that has received payment")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.touch()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv, reason))

	return nil
}

// IsOpen returns true if the invoice can still receive payments
func (inv *Invoice) IsOpen() bool {
	return inv.Status.IsOpen()
}

// CheckConsistency verifies the stored balance matches the derived one
func (inv *Invoice) CheckConsistency() error {
	if !valueobject.WithinTolerance(inv.AmountPaid.Add(inv.Balance), inv.Amount) {
		return shared.NewDomainError("INCONSISTENT_INVOICE",
			fmt.Sprintf("Invoice %s: paid %s + balance %s != amount %s",
				inv.Number, inv.AmountPaid.StringFixed(2), inv.Balance.StringFixed(2), inv.Amount.StringFixed(2)))
	}
	if inv.AmountPaid.IsNegative() {
		return shared.NewDomainError("INCONSISTENT_INVOICE",
			fmt.Sprintf("Invoice %s: negative amount paid %s", inv.Number, inv.AmountPaid.StringFixed(2)))
	}
	return nil
}

func (inv *Invoice) touch() {
	inv.Touch()
	inv.IncrementVersion()
}
