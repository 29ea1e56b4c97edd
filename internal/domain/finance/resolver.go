package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/partner"
	"github.com/pesaflow/backend/internal/domain/shared"
)

// TargetKind tags what an account reference resolved to
type TargetKind string

const (
	TargetKindInvoice TargetKind = "INVOICE" // Reference named a specific invoice
	TargetKindAccount TargetKind = "ACCOUNT" // Reference named a customer account
)

// ResolvedTarget is the two-variant result of resolving an account
// reference. Invoice is nil for the ACCOUNT variant; Customer is always set.
type ResolvedTarget struct {
	Kind     TargetKind
	Customer *partner.Customer
	Invoice  *billing.Invoice
}

// NewUnresolvedReferenceError builds the caller-data error carrying the raw
// reference for the notification log.
func NewUnresolvedReferenceError(reference string) *shared.DomainError {
	return shared.NewDomainError("UNRESOLVED_ACCOUNT_REFERENCE",
		fmt.Sprintf("Account reference %q matches no invoice or customer", reference))
}

// TargetResolver maps an opaque account reference to an invoice or a
// customer account. Invoices are tried first: paying a specific invoice is
// the more specific intent and must not be shadowed by a customer-id
// collision.
type TargetResolver struct {
	invoices  billing.InvoiceRepository
	customers partner.CustomerRepository
}

// NewTargetResolver creates a target resolver over the given repositories
func NewTargetResolver(invoices billing.InvoiceRepository, customers partner.CustomerRepository) *TargetResolver {
	return &TargetResolver{invoices: invoices, customers: customers}
}

// Resolve tries the reference against invoice identifiers (internal id, then
// number), then customer identifiers (internal id, then code). References
// are trimmed; invoice numbers and customer codes are matched
// case-insensitively via their stored upper-case form.
func (r *TargetResolver) Resolve(ctx context.Context, accountReference string) (*ResolvedTarget, error) {
	reference := strings.TrimSpace(accountReference)
	if reference == "" {
		return nil, NewUnresolvedReferenceError(accountReference)
	}

	if invoice, err := r.findInvoice(ctx, reference); err != nil {
		return nil, err
	} else if invoice != nil {
		customer, err := r.customers.FindByID(ctx, invoice.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, shared.NewDomainError("ORPHANED_INVOICE",
				fmt.Sprintf("Invoice %s has no customer %s", invoice.Number, invoice.CustomerID))
		}
		return &ResolvedTarget{Kind: TargetKindInvoice, Customer: customer, Invoice: invoice}, nil
	}

	if customer, err := r.findCustomer(ctx, reference); err != nil {
		return nil, err
	} else if customer != nil {
		return &ResolvedTarget{Kind: TargetKindAccount, Customer: customer}, nil
	}

	return nil, NewUnresolvedReferenceError(accountReference)
}

func (r *TargetResolver) findInvoice(ctx context.Context, reference string) (*billing.Invoice, error) {
	if id, err := uuid.Parse(reference); err == nil {
		invoice, err := r.invoices.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if invoice != nil {
			return invoice, nil
		}
	}
	return r.invoices.FindByNumber(ctx, strings.ToUpper(reference))
}

func (r *TargetResolver) findCustomer(ctx context.Context, reference string) (*partner.Customer, error) {
	if id, ok := partner.ParseCustomerID(reference); ok {
		customer, err := r.customers.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			return customer, nil
		}
	}
	return r.customers.FindByCode(ctx, strings.ToUpper(reference))
}
