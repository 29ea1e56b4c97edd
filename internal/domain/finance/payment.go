package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // Created, settlement in progress
	PaymentStatusCompleted PaymentStatus = "COMPLETED" // Settlement committed
	PaymentStatusFailed    PaymentStatus = "FAILED"    // Settlement failed after creation
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Payment represents one accepted mobile-money notification. The receipt
// number is the external idempotency key: the unique index on it is what
// actually guarantees at most one payment per real-world transaction.
type Payment struct {
	shared.BaseAggregateRoot
	ReceiptNumber    string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	CorrelationID    string          `gorm:"type:varchar(64);not null;index"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Phone            string          `gorm:"type:varchar(50);not null"`
	AccountReference string          `gorm:"type:varchar(100);not null"`
	Status           PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TransactionAt    time.Time       `gorm:"not null;index"`
	Allocations      []Allocation    `gorm:"foreignKey:PaymentID"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a pending payment for a freshly admitted notification
func NewPayment(receiptNumber, correlationID string, customerID uuid.UUID, amount valueobject.Money, phone, accountReference string, transactionAt time.Time) (*Payment, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone number cannot be empty")
	}
	if correlationID == "" {
		correlationID = receiptNumber
	}
	if transactionAt.IsZero() {
		transactionAt = time.Now()
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		CorrelationID:     correlationID,
		CustomerID:        customerID,
		Amount:            amount.Amount(),
		Phone:             phone,
		AccountReference:  accountReference,
		Status:            PaymentStatusPending,
		TransactionAt:     transactionAt,
	}, nil
}

// AddAllocation records the portion applied to one invoice
func (p *Payment) AddAllocation(invoiceID uuid.UUID, amount decimal.Decimal) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Allocations can only be added to a pending payment")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	allocated := p.AllocatedTotal().Add(amount)
	if allocated.GreaterThan(p.Amount.Add(valueobject.RoundingTolerance)) {
		return shared.NewDomainError("OVER_ALLOCATED", "Allocations exceed the payment amount")
	}

	p.Allocations = append(p.Allocations, NewAllocation(p.ID, invoiceID, amount))
	return nil
}

// AllocatedTotal returns the sum of allocation amounts
func (p *Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// UnallocatedAmount returns the remainder held as customer credit
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedTotal())
}

// Complete transitions the payment to COMPLETED
func (p *Payment) Complete() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only a pending payment can complete")
	}
	p.Status = PaymentStatusCompleted
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Fail transitions the payment to FAILED
func (p *Payment) Fail() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only a pending payment can fail")
	}
	p.Status = PaymentStatusFailed
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Allocation links a payment to an invoice. Immutable once created.
type Allocation struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "payment_allocations"
}

// NewAllocation creates an allocation record
func NewAllocation(paymentID, invoiceID uuid.UUID, amount decimal.Decimal) Allocation {
	return Allocation{
		ID:        uuid.New(),
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}
