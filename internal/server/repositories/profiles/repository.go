// Package profiles declares the storage contract for profile records, the
// display-side twin of an account keyed by the same email.
package profiles

import (
	"context"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	// FindActiveByContact returns active profiles using the contact number.
	FindActiveByContact(ctx context.Context, contactNumber string) ([]*models.Profile, error)
	// Update rewrites the editable fields and the verified flag of the
	// profile currently stored under email. profile.Email may differ to
	// rename it.
	Update(ctx context.Context, email string, profile *models.Profile) error
	SetActive(ctx context.Context, email string, active int) error
	MarkVerified(ctx context.Context, email string, at time.Time) error
	SetRestaurantName(ctx context.Context, email string, name string) error
}
