package partner

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer represents a paying account holder. It is the aggregate root for
// customer-related operations.
//
// Balance is signed: positive means the customer owes the business, negative
// means the customer holds credit (payments received beyond open invoices).
// Only invoice issuance and payment settlement move it.
type Customer struct {
	shared.BaseAggregateRoot
	Code    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name    string          `gorm:"type:varchar(200);not null"`
	Phone   string          `gorm:"type:varchar(50);index"`
	Status  CustomerStatus  `gorm:"type:varchar(20);not null;default:'active'"`
	Balance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

var customerCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidCustomerCode reports whether code is an acceptable customer code.
// The HTTP layer uses it for request validation before the aggregate is built.
func ValidCustomerCode(code string) bool {
	return validateCustomerCode(code) == nil
}

// NewCustomer creates a new customer with required fields
func NewCustomer(code, name, phone string) (*Customer, error) {
	if err := validateCustomerCode(code); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Phone:             phone,
		Status:            CustomerStatusActive,
		Balance:           decimal.Zero,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// AddReceivable raises the customer's balance when an invoice is issued
func (c *Customer) AddReceivable(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	oldBalance := c.Balance
	c.Balance = c.Balance.Add(amount)
	c.touch()

	c.AddDomainEvent(NewCustomerBalanceChangedEvent(c, oldBalance, c.Balance, "invoice"))

	return nil
}

// ApplyPayment lowers the customer's balance by the full payment amount.
// Any portion beyond open invoices drives the balance negative, which is the
// customer's credit. Reducing below zero is therefore allowed.
func (c *Customer) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	oldBalance := c.Balance
	c.Balance = c.Balance.Sub(amount)
	c.touch()

	c.AddDomainEvent(NewCustomerBalanceChangedEvent(c, oldBalance, c.Balance, "payment"))

	return nil
}

// ReverseReceivable lowers the balance when an unpaid invoice is cancelled
func (c *Customer) ReverseReceivable(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	oldBalance := c.Balance
	c.Balance = c.Balance.Sub(amount)
	c.touch()

	c.AddDomainEvent(NewCustomerBalanceChangedEvent(c, oldBalance, c.Balance, "invoice_cancelled"))

	return nil
}

// CreditHeld returns the credit the customer currently holds, zero when the
// customer owes money.
func (c *Customer) CreditHeld() decimal.Decimal {
	if c.Balance.IsNegative() {
		return c.Balance.Neg()
	}
	return decimal.Zero
}

// Deactivate marks the customer inactive. Customers are never deleted.
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Customer is already inactive")
	}
	c.Status = CustomerStatusInactive
	c.touch()
	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

func (c *Customer) touch() {
	c.Touch()
	c.IncrementVersion()
}

func validateCustomerCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_CODE", "Customer code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CUSTOMER_CODE", "Customer code cannot exceed 50 characters")
	}
	if !customerCodePattern.MatchString(code) {
		return shared.NewDomainError("INVALID_CUSTOMER_CODE", "Customer code may only contain letters, digits, underscore and hyphen")
	}
	return nil
}

// ParseCustomerID attempts to interpret a raw reference as an internal
// customer id.
func ParseCustomerID(reference string) (uuid.UUID, bool) {
	id, err := uuid.Parse(reference)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
