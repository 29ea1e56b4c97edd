package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines persistence operations for customers
type CustomerRepository interface {
	// Create persists a new customer
	Create(ctx context.Context, customer *Customer) error

	// FindByID finds a customer by internal id, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByCode finds a customer by external customer code, nil when absent
	FindByCode(ctx context.Context, code string) (*Customer, error)

	// FindByIDForUpdate loads the customer row under an exclusive row lock.
	// Settlements against the same customer serialize here.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Customer, error)

	// Save persists changes to an existing customer
	Save(ctx context.Context, customer *Customer) error
}
