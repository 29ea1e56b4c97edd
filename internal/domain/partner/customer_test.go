package partner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	t.Run("creates active customer with upper-cased code", func(t *testing.T) {
		c, err := NewCustomer("acme-01", "Acme Traders", "+254700000001")
		require.NoError(t, err)

		assert.Equal(t, "ACME-01", c.Code)
		assert.Equal(t, "Acme Traders", c.Name)
		assert.Equal(t, CustomerStatusActive, c.Status)
		assert.True(t, c.Balance.IsZero())
		assert.True(t, c.IsActive())
		assert.Len(t, c.GetDomainEvents(), 1)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewCustomer("", "Acme", "")
		assert.Error(t, err)
	})

	t.Run("rejects code with invalid characters", func(t *testing.T) {
		_, err := NewCustomer("acme 01", "Acme", "")
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewCustomer("ACME", "", "")
		assert.Error(t, err)
	})
}

func TestCustomerBalanceMoves(t *testing.T) {
	newCustomer := func(t *testing.T) *Customer {
		c, err := NewCustomer("ACME", "Acme Traders", "")
		require.NoError(t, err)
		return c
	}

	t.Run("invoice raises balance", func(t *testing.T) {
		c := newCustomer(t)
		require.NoError(t, c.AddReceivable(decimal.NewFromInt(500)))
		assert.Equal(t, "500.00", c.Balance.StringFixed(2))
	})

	t.Run("payment lowers balance", func(t *testing.T) {
		c := newCustomer(t)
		require.NoError(t, c.AddReceivable(decimal.NewFromInt(500)))
		require.NoError(t, c.ApplyPayment(decimal.NewFromInt(300)))
		assert.Equal(t, "200.00", c.Balance.StringFixed(2))
	})

	t.Run("overpayment drives balance negative", func(t *testing.T) {
		c := newCustomer(t)
		require.NoError(t, c.AddReceivable(decimal.NewFromInt(100)))
		require.NoError(t, c.ApplyPayment(decimal.NewFromInt(250)))

		assert.Equal(t, "-150.00", c.Balance.StringFixed(2))
		assert.Equal(t, "150.00", c.CreditHeld().StringFixed(2))
	})

	t.Run("credit held is zero while owing", func(t *testing.T) {
		c := newCustomer(t)
		require.NoError(t, c.AddReceivable(decimal.NewFromInt(100)))
		assert.True(t, c.CreditHeld().IsZero())
	})

	t.Run("cancellation reverses receivable", func(t *testing.T) {
		c := newCustomer(t)
		require.NoError(t, c.AddReceivable(decimal.NewFromInt(400)))
		require.NoError(t, c.ReverseReceivable(decimal.NewFromInt(400)))
		assert.True(t, c.Balance.IsZero())
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		c := newCustomer(t)
		assert.Error(t, c.AddReceivable(decimal.Zero))
		assert.Error(t, c.ApplyPayment(decimal.NewFromInt(-1)))
		assert.Error(t, c.ReverseReceivable(decimal.Zero))
	})
}

func TestCustomerDeactivate(t *testing.T) {
	c, err := NewCustomer("ACME", "Acme Traders", "")
	require.NoError(t, err)

	require.NoError(t, c.Deactivate())
	assert.False(t, c.IsActive())
	assert.Error(t, c.Deactivate())
}

func TestParseCustomerID(t *testing.T) {
	id := uuid.New()

	parsed, ok := ParseCustomerID(id.String())
	assert.True(t, ok)
	assert.Equal(t, id, parsed)

	_, ok = ParseCustomerID("CUST-001")
	assert.False(t, ok)
}
