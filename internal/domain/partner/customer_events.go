package partner

import (
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the partner context
const (
	EventTypeCustomerCreated        = "partner.customer.created"
	EventTypeCustomerBalanceChanged = "partner.customer.balance_changed"
)

// CustomerCreatedEvent is raised when a customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, "Customer", c.ID),
		Code:            c.Code,
		Name:            c.Name,
	}
}

// CustomerBalanceChangedEvent is raised whenever the running balance moves
type CustomerBalanceChangedEvent struct {
	shared.BaseDomainEvent
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        string          `json:"reason"`
}

// NewCustomerBalanceChangedEvent creates a new CustomerBalanceChangedEvent
func NewCustomerBalanceChangedEvent(c *Customer, before, after decimal.Decimal, reason string) *CustomerBalanceChangedEvent {
	return &CustomerBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerBalanceChanged, "Customer", c.ID),
		BalanceBefore:   before,
		BalanceAfter:    after,
		Reason:          reason,
	}
}
