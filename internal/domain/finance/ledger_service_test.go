package finance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balancedPosting(t *testing.T, svc *LedgerService, amount int64) *LedgerTransaction {
	t.Helper()
	txn, err := NewLedgerTransaction(uuid.Nil, time.Now(), []EntryInput{
		{AccountCode: AccountCodeCash, Side: EntrySideDebit, Amount: decimal.NewFromInt(amount), Description: "Payment received"},
		{AccountCode: AccountCodeAccountsReceivable, Side: EntrySideCredit, Amount: decimal.NewFromInt(amount), Description: "Payment received"},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(context.Background(), txn))
	return txn
}

func TestLedgerServicePost(t *testing.T) {
	t.Run("persists a balanced posting", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)

		balancedPosting(t, svc, 100)
		assert.Len(t, repo.entries, 2)
	})

	t.Run("writes nothing when validation fails", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)

		txn, err := NewLedgerTransaction(uuid.Nil, time.Now(), []EntryInput{
			{AccountCode: AccountCodeCash, Side: EntrySideDebit, Amount: decimal.NewFromInt(100)},
			{AccountCode: AccountCodeAccountsReceivable, Side: EntrySideCredit, Amount: decimal.NewFromInt(50)},
		})
		require.NoError(t, err)

		require.Error(t, svc.Post(context.Background(), txn))
		assert.Empty(t, repo.entries)
	})
}

func TestLedgerServiceReverse(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors entries with flipped sides", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)
		original := balancedPosting(t, svc, 300)

		newRef, err := svc.Reverse(ctx, original.Ref, time.Now(), "late cancellation")
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, newRef)

		mirrored, err := repo.FindByTransactionRef(ctx, newRef)
		require.NoError(t, err)
		require.Len(t, mirrored, 2)

		for i, e := range mirrored {
			assert.Equal(t, original.Entries[i].Side.Opposite(), e.Side)
			assert.True(t, e.Amount.Equal(original.Entries[i].Amount))
			assert.Equal(t, original.Entries[i].AccountCode, e.AccountCode)
			require.NotNil(t, e.ReversalOf)
			assert.Equal(t, original.Ref, *e.ReversalOf)
			assert.True(t, strings.HasPrefix(e.Description, ReversalDescriptionPrefix))
			assert.Contains(t, e.Description, "late cancellation")
		}
	})

	t.Run("reversal cancels the account balance", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)
		original := balancedPosting(t, svc, 300)

		_, err := svc.Reverse(ctx, original.Ref, time.Now(), "")
		require.NoError(t, err)

		balance, err := svc.BalanceOf(ctx, AccountCodeCash, nil)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("unknown reference fails with NOT_FOUND", func(t *testing.T) {
		svc := NewLedgerService(&memoryLedgerRepository{})
		_, err := svc.Reverse(ctx, uuid.New(), time.Now(), "")
		assert.ErrorIs(t, err, ErrLedgerTransactionNotFound)
	})

	t.Run("second reversal of the same reference fails", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)
		original := balancedPosting(t, svc, 300)

		_, err := svc.Reverse(ctx, original.Ref, time.Now(), "")
		require.NoError(t, err)

		_, err = svc.Reverse(ctx, original.Ref, time.Now(), "")
		assert.ErrorIs(t, err, ErrLedgerTransactionNotFound)
	})
}

func TestLedgerServiceBalanceOf(t *testing.T) {
	ctx := context.Background()
	repo := &memoryLedgerRepository{}
	svc := NewLedgerService(repo)

	invoiceDate := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	paymentDate := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)

	issuance, err := NewLedgerTransaction(uuid.Nil, invoiceDate,
		InvoiceIssuedPosting(uuid.New(), uuid.New(), "INV-001", decimal.NewFromInt(1000)))
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, issuance))

	paymentTxn, err := NewLedgerTransaction(uuid.Nil, paymentDate, []EntryInput{
		{AccountCode: AccountCodeCash, Side: EntrySideDebit, Amount: decimal.NewFromInt(400)},
		{AccountCode: AccountCodeAccountsReceivable, Side: EntrySideCredit, Amount: decimal.NewFromInt(400)},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, paymentTxn))

	t.Run("debit-normal account", func(t *testing.T) {
		balance, err := svc.BalanceOf(ctx, AccountCodeAccountsReceivable, nil)
		require.NoError(t, err)
		assert.Equal(t, "600.00", balance.StringFixed(2))
	})

	t.Run("credit-normal account", func(t *testing.T) {
		balance, err := svc.BalanceOf(ctx, AccountCodeSalesRevenue, nil)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", balance.StringFixed(2))
	})

	t.Run("as-of date excludes later entries", func(t *testing.T) {
		asOf := invoiceDate.Add(24 * time.Hour)
		balance, err := svc.BalanceOf(ctx, AccountCodeAccountsReceivable, &asOf)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", balance.StringFixed(2))
	})

	t.Run("account with no entries is zero", func(t *testing.T) {
		balance, err := svc.BalanceOf(ctx, AccountCodeCash, &invoiceDate)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})
}

func TestLedgerServiceVerifyIntegrity(t *testing.T) {
	ctx := context.Background()

	t.Run("all balanced", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)
		balancedPosting(t, svc, 100)
		balancedPosting(t, svc, 200)

		report, err := svc.VerifyIntegrity(ctx)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, 2, report.CheckedRefs)
		assert.Empty(t, report.UnbalancedRefs)
	})

	t.Run("flags a corrupted reference", func(t *testing.T) {
		repo := &memoryLedgerRepository{}
		svc := NewLedgerService(repo)
		balancedPosting(t, svc, 100)

		// Simulate a half-written posting bypassing the service.
		badRef := uuid.New()
		repo.entries = append(repo.entries, LedgerEntry{
			ID:              uuid.New(),
			TransactionRef:  badRef,
			AccountCode:     AccountCodeCash,
			AccountCategory: AccountCategoryAsset,
			Side:            EntrySideDebit,
			Amount:          decimal.NewFromInt(75),
			TransactionDate: time.Now(),
			CreatedAt:       time.Now(),
		})

		report, err := svc.VerifyIntegrity(ctx)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		require.Len(t, report.UnbalancedRefs, 1)
		assert.Equal(t, badRef, report.UnbalancedRefs[0].TransactionRef)
		assert.Equal(t, "75.00", report.UnbalancedRefs[0].DebitTotal.StringFixed(2))
		assert.True(t, report.UnbalancedRefs[0].CreditTotal.IsZero())
	})
}
