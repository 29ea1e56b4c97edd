package billing

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationEntry records the portion of a payment applied to one invoice
type AllocationEntry struct {
	InvoiceID     uuid.UUID       // Invoice the amount was applied to
	InvoiceNumber string          // Number for display and logging
	Amount        decimal.Decimal // Amount applied to that invoice
}

// AllocationOutcome is the complete result of running the allocation engine
type AllocationOutcome struct {
	Entries          []AllocationEntry // One entry per invoice touched
	TotalAllocated   decimal.Decimal   // Sum of entry amounts
	Remaining        decimal.Decimal   // Amount left unallocated (becomes customer credit)
	InvoicesPaid     []uuid.UUID       // Invoices that closed to PAID
	PrimaryInvoiceID *uuid.UUID        // First invoice allocated to, used to tag the ledger posting
}

// Allocate distributes a payment amount across the given open invoices,
// oldest first by issue time, mutating each touched invoice as it goes.
//
// When targetInvoiceID is set the candidate set shrinks to that invoice
// alone, so any excess over its balance stays unallocated rather than
// cascading to other invoices. An unallocated remainder is not an error.
func Allocate(invoices []*Invoice, amount decimal.Decimal, targetInvoiceID *uuid.UUID) (*AllocationOutcome, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	candidates := make([]*Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if !inv.IsOpen() {
			continue
		}
		if targetInvoiceID != nil && inv.ID != *targetInvoiceID {
			continue
		}
		candidates = append(candidates, inv)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].IssuedAt.Before(candidates[j].IssuedAt)
	})

	outcome := &AllocationOutcome{
		Entries:        make([]AllocationEntry, 0, len(candidates)),
		TotalAllocated: decimal.Zero,
		Remaining:      amount,
	}

	for _, inv := range candidates {
		if !outcome.Remaining.IsPositive() {
			break
		}

		applied := decimal.Min(outcome.Remaining, inv.Balance)
		if !applied.IsPositive() {
			continue
		}

		if err := inv.Apply(applied); err != nil {
			return nil, err
		}

		outcome.Entries = append(outcome.Entries, AllocationEntry{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			Amount:        applied,
		})
		outcome.TotalAllocated = outcome.TotalAllocated.Add(applied)
		outcome.Remaining = outcome.Remaining.Sub(applied)

		if outcome.PrimaryInvoiceID == nil {
			id := inv.ID
			outcome.PrimaryInvoiceID = &id
		}
		if inv.Status == InvoiceStatusPaid {
			outcome.InvoicesPaid = append(outcome.InvoicesPaid, inv.ID)
		}
	}

	return outcome, nil
}
