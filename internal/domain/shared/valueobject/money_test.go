package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), KES)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
		assert.Equal(t, KES, m.Currency())
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
	})
}

func TestNewMoneyKESFromString(t *testing.T) {
	t.Run("parses decimal string", func(t *testing.T) {
		m, err := NewMoneyKESFromString("1234.56")
		require.NoError(t, err)
		assert.Equal(t, "1234.56", m.Amount().StringFixed(2))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NewMoneyKESFromString("not-a-number")
		assert.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoneyKESFromFloat(100.50)
	b := NewMoneyKESFromFloat(49.50)

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, "150.00", sum.Amount().StringFixed(2))
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.Equal(t, "51.00", diff.Amount().StringFixed(2))
	})

	t.Run("add rejects currency mismatch", func(t *testing.T) {
		usd, err := NewMoney(decimal.NewFromInt(10), USD)
		require.NoError(t, err)
		_, err = a.Add(usd)
		assert.Error(t, err)
	})

	t.Run("negate and abs", func(t *testing.T) {
		neg := a.Negate()
		assert.True(t, neg.IsNegative())
		assert.True(t, neg.Abs().Equals(a))
	})
}

func TestMoneyComparisons(t *testing.T) {
	small := NewMoneyKESFromFloat(10)
	big := NewMoneyKESFromFloat(20)

	less, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := big.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, small.Equals(NewMoneyKESFromFloat(10)))
	assert.False(t, small.Equals(big))
}

func TestMoneyIsNegligible(t *testing.T) {
	assert.True(t, ZeroKES().IsNegligible())
	assert.True(t, NewMoneyKESFromFloat(0.01).IsNegligible())
	assert.True(t, NewMoneyKESFromFloat(-0.01).IsNegligible())
	assert.False(t, NewMoneyKESFromFloat(0.02).IsNegligible())
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name string
		a    decimal.Decimal
		b    decimal.Decimal
		want bool
	}{
		{"equal", decimal.NewFromInt(100), decimal.NewFromInt(100), true},
		{"inside epsilon", decimal.NewFromFloat(100.00), decimal.NewFromFloat(100.01), true},
		{"on epsilon from below", decimal.NewFromFloat(99.99), decimal.NewFromFloat(100.00), true},
		{"outside epsilon", decimal.NewFromFloat(100.00), decimal.NewFromFloat(100.02), false},
		{"far apart", decimal.NewFromInt(1), decimal.NewFromInt(2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinTolerance(tt.a, tt.b))
		})
	}
}
