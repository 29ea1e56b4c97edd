package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SettlementRules holds the configured ceilings enforced before any
// mutation. Both values come from configuration, never constants.
type SettlementRules struct {
	// MaxTransactionAmount is the ceiling for one payment
	MaxTransactionAmount decimal.Decimal
	// MaxDailyAmount caps a customer's COMPLETED payments per business day
	MaxDailyAmount decimal.Decimal
	// Location defines the business-day boundary
	Location *time.Location
}

// RuleValidator enforces per-transaction and per-customer-per-day ceilings
type RuleValidator struct {
	rules    SettlementRules
	payments PaymentRepository
}

// NewRuleValidator creates a rule validator
func NewRuleValidator(rules SettlementRules, payments PaymentRepository) *RuleValidator {
	if rules.Location == nil {
		rules.Location = time.Local
	}
	return &RuleValidator{rules: rules, payments: payments}
}

// Validate checks the amount against both ceilings as of the given time.
// A violation aborts the settlement before any mutation occurs.
func (v *RuleValidator) Validate(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, asOf time.Time) error {
	if v.rules.MaxTransactionAmount.IsPositive() && amount.GreaterThan(v.rules.MaxTransactionAmount) {
		return shared.NewDomainError("LIMIT_EXCEEDED",
			fmt.Sprintf("Amount %s exceeds the per-transaction limit %s",
				amount.StringFixed(2), v.rules.MaxTransactionAmount.StringFixed(2)))
	}

	if v.rules.MaxDailyAmount.IsPositive() {
		dayStart, dayEnd := v.businessDay(asOf)
		completed, err := v.payments.SumCompletedByCustomerBetween(ctx, customerID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("failed to sum completed payments: %w", err)
		}
		if completed.Add(amount).GreaterThan(v.rules.MaxDailyAmount) {
			return shared.NewDomainError("LIMIT_EXCEEDED",
				fmt.Sprintf("Amount %s plus %s already received today exceeds the daily limit %s",
					amount.StringFixed(2), completed.StringFixed(2), v.rules.MaxDailyAmount.StringFixed(2)))
		}
	}

	return nil
}

// businessDay returns the [start, end) bounds of the calendar day containing
// asOf in the configured location.
func (v *RuleValidator) businessDay(asOf time.Time) (time.Time, time.Time) {
	local := asOf.In(v.rules.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, v.rules.Location)
	return start, start.AddDate(0, 0, 1)
}
