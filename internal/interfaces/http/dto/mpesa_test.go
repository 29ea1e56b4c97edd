package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestC2BNotificationAmount(t *testing.T) {
	t.Run("parses decimal amounts", func(t *testing.T) {
		n := C2BNotification{TransAmount: "1234.56"}
		amount, err := n.Amount()
		require.NoError(t, err)
		assert.Equal(t, "1234.56", amount.StringFixed(2))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		n := C2BNotification{TransAmount: " 100 "}
		amount, err := n.Amount()
		require.NoError(t, err)
		assert.Equal(t, "100.00", amount.StringFixed(2))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		n := C2BNotification{TransAmount: "banana"}
		_, err := n.Amount()
		assert.Error(t, err)
	})
}

func TestC2BNotificationTime(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	t.Run("parses in the given location", func(t *testing.T) {
		n := C2BNotification{TransTime: "20260615143005"}
		ts, err := n.Time(loc)
		require.NoError(t, err)

		assert.Equal(t, 2026, ts.Year())
		assert.Equal(t, time.June, ts.Month())
		assert.Equal(t, 15, ts.Day())
		assert.Equal(t, 14, ts.Hour())
		assert.Equal(t, 30, ts.Minute())
		assert.Equal(t, 5, ts.Second())
		assert.Equal(t, loc, ts.Location())
	})

	t.Run("rejects malformed timestamps", func(t *testing.T) {
		for _, bad := range []string{"", "2026-06-15 14:30:05", "2026061514"} {
			n := C2BNotification{TransTime: bad}
			_, err := n.Time(loc)
			assert.Error(t, err, bad)
		}
	})
}

func TestC2BNotificationReference(t *testing.T) {
	t.Run("prefers BillRefNumber", func(t *testing.T) {
		n := C2BNotification{BillRefNumber: "INV-001", InvoiceNumber: "INV-002"}
		assert.Equal(t, "INV-001", n.Reference())
	})

	t.Run("falls back to InvoiceNumber", func(t *testing.T) {
		n := C2BNotification{BillRefNumber: "  ", InvoiceNumber: "INV-002"}
		assert.Equal(t, "INV-002", n.Reference())
	})

	t.Run("empty when neither is set", func(t *testing.T) {
		n := C2BNotification{}
		assert.Equal(t, "", n.Reference())
	})
}

func TestC2BResponses(t *testing.T) {
	accepted := NewC2BAccepted()
	assert.Equal(t, "0", accepted.ResultCode)

	rejected := NewC2BRejected(C2BResultInvalidAccount, "Account reference not found")
	assert.Equal(t, "C2B00012", rejected.ResultCode)
	assert.Equal(t, "Account reference not found", rejected.ResultDesc)
}
