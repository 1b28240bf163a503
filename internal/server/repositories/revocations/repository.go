// Package revocations declares the durable side of the token revocation
// ledger. Rows carry their own expiry and are swept once it passes.
package revocations

import (
	"context"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

// Repository stores revoked token digests.
type Repository interface {
	// Create records a revocation. Recording the same digest twice is not an error.
	Create(ctx context.Context, entry *models.RevokedToken) error

	// Find looks up an entry by token digest. Implementations return
	// common.ErrorNotFound when the digest is absent.
	Find(ctx context.Context, tokenHash string) (*models.RevokedToken, error)

	// LatestAllDevices returns the newest unexpired logout-all sentinel of an account.
	LatestAllDevices(ctx context.Context, accountID string, now time.Time) (*models.RevokedToken, error)

	// DeleteExpired removes entries whose expiry is not after now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
