package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/application/ports"
	"github.com/pesaflow/backend/internal/domain/billing"
	"github.com/pesaflow/backend/internal/domain/finance"
	"github.com/pesaflow/backend/internal/domain/shared"
	"github.com/pesaflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OutcomeKind tags the definite result of one settlement attempt
type OutcomeKind string

const (
	OutcomeSettled           OutcomeKind = "SETTLED"
	OutcomeDuplicateRejected OutcomeKind = "DUPLICATE_REJECTED"
	OutcomeValidationFailed  OutcomeKind = "VALIDATION_FAILED"
	OutcomeResolutionFailed  OutcomeKind = "RESOLUTION_FAILED"
)

// Outcome is the definite result returned to the transport layer. Internal
// failures are returned as errors instead; the transport still acknowledges
// those upstream and the notification log carries the truth.
type Outcome struct {
	Kind                     OutcomeKind
	PaymentID                *uuid.UUID
	ExistingPaymentID        *uuid.UUID
	Allocations              []billing.AllocationEntry
	RemainingCustomerBalance decimal.Decimal
	Reason                   string
}

// Request carries one inbound payment notification into the core
type Request struct {
	ReceiptNumber    string
	CorrelationID    string
	AccountReference string
	Amount           decimal.Decimal
	Phone            string
	TransactionAt    time.Time
	RawPayload       string
}

// Service is the settlement orchestrator. It composes the deduplication
// gate, target resolver, rule validator, allocation engine and ledger into
// one atomic unit of work per notification.
type Service struct {
	uow         ports.UnitOfWork
	repos       ports.Repos
	resolver    *finance.TargetResolver
	validator   *finance.RuleValidator
	dedupCache  shared.IdempotencyStore
	dedupConfig shared.IdempotencyConfig
	events      shared.EventPublisher
	logger      *zap.Logger
}

// Config holds the orchestrator's collaborators
type Config struct {
	UnitOfWork ports.UnitOfWork
	Repos      ports.Repos
	Rules      finance.SettlementRules
	// DedupCache is an optional fast path in front of the database unique
	// constraint; settlement is correct without it.
	DedupCache  shared.IdempotencyStore
	DedupConfig shared.IdempotencyConfig
	Events      shared.EventPublisher
	Logger      *zap.Logger
}

// NewService creates a settlement orchestrator
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dedupConfig := cfg.DedupConfig
	if dedupConfig.TTL == 0 {
		dedupConfig = shared.DefaultIdempotencyConfig()
	}
	return &Service{
		uow:         cfg.UnitOfWork,
		repos:       cfg.Repos,
		resolver:    finance.NewTargetResolver(cfg.Repos.Invoices, cfg.Repos.Customers),
		validator:   finance.NewRuleValidator(cfg.Rules, cfg.Repos.Payments),
		dedupCache:  cfg.DedupCache,
		dedupConfig: dedupConfig,
		events:      cfg.Events,
		logger:      logger,
	}
}

// Settle processes one notification end to end. A non-nil Outcome is always
// a definite result; a non-nil error means an internal failure whose true
// outcome is recorded in the notification log and nowhere else.
func (s *Service) Settle(ctx context.Context, req Request) (*Outcome, error) {
	if req.ReceiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt number is required")
	}
	if req.CorrelationID == "" {
		req.CorrelationID = req.ReceiptNumber
	}

	// Every notification leaves an audit row, whatever happens next.
	log := finance.NewNotificationLog(req.ReceiptNumber, req.CorrelationID, req.RawPayload)
	if err := s.repos.Notifications.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to record notification: %w", err)
	}

	if outcome := s.admit(ctx, req, log); outcome != nil {
		return outcome, nil
	}

	settled, verdict, err := s.process(ctx, req)
	if err != nil {
		s.forgetReceipt(ctx, req.ReceiptNumber)
		s.recordFailure(ctx, log, err)
		return nil, err
	}
	if verdict != nil {
		if verdict.Kind == OutcomeDuplicateRejected {
			log.MarkDuplicate(verdict.ExistingPaymentID)
		} else {
			// Nothing settled, so the receipt may legitimately come back
			// once the cause is fixed. Only settled receipts stay marked.
			s.forgetReceipt(ctx, req.ReceiptNumber)
			log.MarkFailed(verdict.Reason)
		}
		s.saveLog(ctx, log)
		return verdict, nil
	}

	log.MarkProcessed(*settled.outcome.PaymentID)
	s.saveLog(ctx, log)
	s.publishEvents(ctx, settled.events)

	s.logger.Info("payment settled",
		zap.String("receipt_number", req.ReceiptNumber),
		zap.String("payment_id", settled.outcome.PaymentID.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("allocations", len(settled.outcome.Allocations)))

	return settled.outcome, nil
}

// RecordMalformed writes the audit row for a notification that could not be
// decoded into a settlement request. These never reach Settle, so the row is
// created already failed and ListUnprocessed surfaces it for follow-up.
func (s *Service) RecordMalformed(ctx context.Context, receiptNumber, rawPayload, errorText string) {
	if receiptNumber == "" {
		receiptNumber = "UNPARSEABLE"
	}
	log := finance.NewNotificationLog(receiptNumber, receiptNumber, rawPayload)
	log.MarkFailed(errorText)
	if err := s.repos.Notifications.Create(ctx, log); err != nil {
		s.logger.Error("failed to record malformed notification",
			zap.String("receipt_number", receiptNumber), zap.Error(err))
	}
}

// admit is the deduplication gate. It returns a DuplicateRejected outcome
// when the receipt has been seen, nil when the notification is fresh.
func (s *Service) admit(ctx context.Context, req Request, log *finance.NotificationLog) *Outcome {
	if s.dedupCache != nil && s.dedupConfig.Enabled {
		fresh, err := s.dedupCache.MarkProcessed(ctx, req.ReceiptNumber, s.dedupConfig.TTL)
		if err != nil {
			// The fast path is advisory; the unique constraint still holds.
			s.logger.Warn("dedup cache unavailable, relying on storage constraint",
				zap.String("receipt_number", req.ReceiptNumber), zap.Error(err))
		} else if !fresh {
			return s.rejectDuplicate(ctx, req.ReceiptNumber, log)
		}
	}

	existing, err := s.repos.Payments.FindByReceiptNumber(ctx, req.ReceiptNumber)
	if err != nil {
		s.logger.Warn("duplicate pre-check failed, relying on storage constraint",
			zap.String("receipt_number", req.ReceiptNumber), zap.Error(err))
		return nil
	}
	if existing != nil {
		return s.rejectDuplicate(ctx, req.ReceiptNumber, log)
	}
	return nil
}

func (s *Service) rejectDuplicate(ctx context.Context, receiptNumber string, log *finance.NotificationLog) *Outcome {
	var existingID *uuid.UUID
	if existing, err := s.repos.Payments.FindByReceiptNumber(ctx, receiptNumber); err == nil && existing != nil {
		id := existing.ID
		existingID = &id
	}
	log.MarkDuplicate(existingID)
	s.saveLog(ctx, log)

	s.logger.Info("duplicate notification rejected",
		zap.String("receipt_number", receiptNumber))

	return &Outcome{
		Kind:              OutcomeDuplicateRejected,
		ExistingPaymentID: existingID,
		Reason:            "receipt already settled",
	}
}

type settledResult struct {
	outcome *Outcome
	events  []shared.DomainEvent
}

// process resolves, validates and runs the atomic settlement unit. It
// returns exactly one of: a settled result, a definite rejection verdict, or
// an internal error.
func (s *Service) process(ctx context.Context, req Request) (*settledResult, *Outcome, error) {
	target, err := s.resolver.Resolve(ctx, req.AccountReference)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "UNRESOLVED_ACCOUNT_REFERENCE" {
			s.logger.Info("account reference unresolved",
				zap.String("receipt_number", req.ReceiptNumber),
				zap.String("account_reference", req.AccountReference))
			return nil, &Outcome{Kind: OutcomeResolutionFailed, Reason: domainErr.Message}, nil
		}
		return nil, nil, fmt.Errorf("failed to resolve account reference: %w", err)
	}

	if err := s.validator.Validate(ctx, target.Customer.ID, req.Amount, req.TransactionAt); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "LIMIT_EXCEEDED" {
			s.logger.Info("settlement rejected by limit rule",
				zap.String("receipt_number", req.ReceiptNumber),
				zap.String("customer_id", target.Customer.ID.String()),
				zap.String("reason", domainErr.Message))
			return nil, &Outcome{Kind: OutcomeValidationFailed, Reason: domainErr.Message}, nil
		}
		return nil, nil, fmt.Errorf("failed to validate settlement rules: %w", err)
	}

	var targetInvoiceID *uuid.UUID
	if target.Kind == finance.TargetKindInvoice {
		id := target.Invoice.ID
		targetInvoiceID = &id
	}

	var result settledResult
	var duplicate *Outcome

	err = s.uow.Execute(ctx, func(ctx context.Context, repos ports.Repos) error {
		// Serialize settlements for this customer at the row level.
		customer, err := repos.Customers.FindByIDForUpdate(ctx, target.Customer.ID)
		if err != nil {
			return fmt.Errorf("failed to lock customer: %w", err)
		}
		if customer == nil {
			return shared.ErrNotFound
		}

		amount, err := valueobject.NewMoney(req.Amount, valueobject.DefaultCurrency)
		if err != nil {
			return err
		}
		payment, err := finance.NewPayment(req.ReceiptNumber, req.CorrelationID,
			customer.ID, amount, req.Phone, req.AccountReference, req.TransactionAt)
		if err != nil {
			return err
		}

		// The unique index on the receipt number closes the race two
		// concurrent deliveries cannot lose: exactly one insert wins.
		if err := repos.Payments.Create(ctx, payment); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				duplicate = &Outcome{Kind: OutcomeDuplicateRejected, Reason: "receipt already settled"}
				return err
			}
			return fmt.Errorf("failed to create payment: %w", err)
		}

		invoices, err := repos.Invoices.FindOpenByCustomer(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("failed to load open invoices: %w", err)
		}

		allocation, err := billing.Allocate(invoices, req.Amount, targetInvoiceID)
		if err != nil {
			return err
		}

		for _, entry := range allocation.Entries {
			if err := payment.AddAllocation(entry.InvoiceID, entry.Amount); err != nil {
				return err
			}
		}

		for _, inv := range invoices {
			for _, entry := range allocation.Entries {
				if inv.ID == entry.InvoiceID {
					if err := repos.Invoices.Save(ctx, inv); err != nil {
						return fmt.Errorf("failed to save invoice %s: %w", inv.Number, err)
					}
					result.events = append(result.events, inv.GetDomainEvents()...)
					inv.ClearDomainEvents()
					break
				}
			}
		}

		if len(payment.Allocations) > 0 {
			if err := repos.Payments.SaveAllocations(ctx, payment.Allocations); err != nil {
				return fmt.Errorf("failed to save allocations: %w", err)
			}
		}

		// One balance move covers both the allocated portion and any
		// credit remainder.
		if err := customer.ApplyPayment(req.Amount); err != nil {
			return err
		}
		if err := repos.Customers.Save(ctx, customer); err != nil {
			return fmt.Errorf("failed to save customer balance: %w", err)
		}

		ledger := finance.NewLedgerService(repos.Ledger)
		posting, err := finance.NewLedgerTransaction(uuid.Nil, req.TransactionAt,
			finance.PaymentReceivedPosting(payment, allocation.PrimaryInvoiceID, req.TransactionAt))
		if err != nil {
			return err
		}
		if err := ledger.Post(ctx, posting); err != nil {
			// An unbalanced canonical posting is a defect, never expected.
			s.logger.Error("ledger posting failed, aborting settlement",
				zap.String("receipt_number", req.ReceiptNumber), zap.Error(err))
			return err
		}

		if err := payment.Complete(); err != nil {
			return err
		}
		if err := repos.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}

		paymentID := payment.ID
		result.outcome = &Outcome{
			Kind:                     OutcomeSettled,
			PaymentID:                &paymentID,
			Allocations:              allocation.Entries,
			RemainingCustomerBalance: customer.Balance,
		}
		return nil
	})

	if err != nil {
		if duplicate != nil {
			// Lost the insert race: the other delivery settled first.
			if existing, ferr := s.repos.Payments.FindByReceiptNumber(ctx, req.ReceiptNumber); ferr == nil && existing != nil {
				id := existing.ID
				duplicate.ExistingPaymentID = &id
			}
			return nil, duplicate, nil
		}
		return nil, nil, err
	}
	return &result, nil, nil
}

func (s *Service) recordFailure(ctx context.Context, log *finance.NotificationLog, cause error) {
	log.MarkFailed(cause.Error())
	s.saveLog(ctx, log)
	s.logger.Error("settlement failed",
		zap.String("receipt_number", log.ReceiptNumber),
		zap.Error(cause))
}

func (s *Service) saveLog(ctx context.Context, log *finance.NotificationLog) {
	if err := s.repos.Notifications.Save(ctx, log); err != nil {
		s.logger.Error("failed to update notification log",
			zap.String("receipt_number", log.ReceiptNumber), zap.Error(err))
	}
}

// forgetReceipt clears the cache mark so a retry of a failed settlement is
// admitted as fresh again.
func (s *Service) forgetReceipt(ctx context.Context, receiptNumber string) {
	if s.dedupCache == nil || !s.dedupConfig.Enabled {
		return
	}
	if err := s.dedupCache.Forget(ctx, receiptNumber); err != nil {
		s.logger.Warn("failed to clear dedup mark",
			zap.String("receipt_number", receiptNumber), zap.Error(err))
	}
}

func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish settlement events", zap.Error(err))
	}
}
