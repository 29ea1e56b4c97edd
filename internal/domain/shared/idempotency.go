package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores receipt identifiers that have entered processing so
// repeated deliveries can be rejected cheaply before touching the database.
// The database unique constraint on the receipt number remains the authority;
// this store is only a fast path.
type IdempotencyStore interface {
	// MarkProcessed marks a receipt as seen with a TTL.
	// Returns true if the receipt was newly marked, false if already present.
	MarkProcessed(ctx context.Context, receiptID string, ttl time.Duration) (bool, error)

	// Forget removes a receipt so a later retry is admitted again.
	// Used when a settlement aborts after the mark was taken.
	Forget(ctx context.Context, receiptID string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for seen receipt identifiers
	TTL time.Duration

	// Enabled determines whether the fast path is used at all
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
