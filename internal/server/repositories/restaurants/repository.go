// Package restaurants declares storage for restaurant tenants.
package restaurants

import (
	"context"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error)
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	// FindByContactOrEmail returns any restaurant already using the contact
	// number or (when non-nil) the email.
	FindByContactOrEmail(ctx context.Context, contactNumber string, email *string) (*models.Restaurant, error)
	List(ctx context.Context) ([]*models.Restaurant, error)
}
