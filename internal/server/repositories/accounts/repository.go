// Package accounts declares the credential store contract: one account
// identity per email, with password hash and status flags.
package accounts

import (
	"context"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

// Repository persists account identities. Lookups of absent rows return
// common.ErrorNotFound; duplicate emails return *common.ConflictError.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// UpdateEmail renames the account and clears its verified flag, since the
	// new address has not been confirmed.
	UpdateEmail(ctx context.Context, id string, email string) error
	// SwapPasswordHash replaces the hash only if it still equals oldHash and
	// reports whether the swap happened.
	SwapPasswordHash(ctx context.Context, id string, oldHash string, newHash string) (bool, error)
	SetActive(ctx context.Context, id string, active int) error
	MarkVerified(ctx context.Context, email string, at time.Time) error
	LinkRestaurant(ctx context.Context, id string, restaurantID string) error
}
