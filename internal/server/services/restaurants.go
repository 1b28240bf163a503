package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/dbx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/repomanager"
)

// RestaurantInput describes a restaurant being registered.
type RestaurantInput struct {
	Name          string  `json:"restaurantName"`
	ContactNumber string  `json:"restaurantContactNumber"`
	Address       string  `json:"address"`
	Email         *string `json:"restaurantEmail"`
	LogoURL       string  `json:"logoUrl"`
	MinOrderTime  int     `json:"minOrderTime"`
	MaxOrderTime  int     `json:"maxOrderTime"`
	StaffCount    int     `json:"staffCount"`
	Cuisine       string  `json:"cuisine"`
	GPSAddress    string  `json:"gpsAddress"`
}

func (in RestaurantInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.ContactNumber, validation.Required),
		validation.Field(&in.Address, validation.Required),
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&in.MinOrderTime, validation.Min(0)),
		validation.Field(&in.MaxOrderTime, validation.Min(in.MinOrderTime)),
		validation.Field(&in.StaffCount, validation.Min(0)),
	)
}

// RestaurantService registers restaurants and links them to their owner.
type RestaurantService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRestaurantService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *RestaurantService {
	return &RestaurantService{db: db, repomanager: m, logger: l.With("module", "restaurants")}
}

// Register creates the restaurant, marks the owner's account as set up and
// copies the restaurant name onto the profile, all in one transaction.
func (s *RestaurantService) Register(ctx context.Context, ownerID string, in RestaurantInput) (*models.Restaurant, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.Address = strings.TrimSpace(in.Address)
	trimPtr(in.Email)
	if in.Email != nil && *in.Email == "" {
		in.Email = nil
	}

	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	var created *models.Restaurant
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)
		restaurants := s.repomanager.Restaurants(tx)

		owner, err := accounts.GetByIDForUpdate(ctx, ownerID)
		if err != nil {
			return err
		}
		if !owner.IsActive() {
			return common.ErrAccountInactive
		}

		existing, err := restaurants.FindByContactOrEmail(ctx, in.ContactNumber, in.Email)
		switch {
		case err == nil && existing.ContactNumber == in.ContactNumber:
			return &common.ConflictError{Field: "restaurantContactNumber"}
		case err == nil:
			return &common.ConflictError{Field: "restaurantEmail"}
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		rest, err := restaurants.Create(ctx, &models.Restaurant{
			Name:          in.Name,
			ContactNumber: in.ContactNumber,
			Address:       in.Address,
			Email:         in.Email,
			LogoURL:       in.LogoURL,
			MinOrderTime:  in.MinOrderTime,
			MaxOrderTime:  in.MaxOrderTime,
			StaffCount:    in.StaffCount,
			Cuisine:       in.Cuisine,
			GPSAddress:    in.GPSAddress,
			Active:        true,
		})
		if err != nil {
			return err
		}

		if err := accounts.LinkRestaurant(ctx, owner.ID, rest.ID); err != nil {
			return err
		}
		if err := s.repomanager.Profiles(tx).SetRestaurantName(ctx, owner.Email, rest.Name); err != nil {
			return err
		}

		created = rest
		return nil
	})
	if err != nil {
		return nil, s.translate(ctx, "register restaurant", err)
	}

	s.logger.Info(ctx, "restaurant registered", "id", created.ID, "owner", ownerID)
	return created, nil
}

// List returns every restaurant.
func (s *RestaurantService) List(ctx context.Context) ([]*models.Restaurant, error) {
	list, err := s.repomanager.Restaurants(s.db).List(ctx)
	if err != nil {
		return nil, s.translate(ctx, "list restaurants", err)
	}
	return list, nil
}

// Mine returns the restaurant linked to account ownerID.
func (s *RestaurantService) Mine(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	owner, err := s.repomanager.Accounts(s.db).GetByID(ctx, ownerID)
	if err != nil {
		return nil, s.translate(ctx, "get restaurant", err)
	}
	if owner.RestaurantID == nil {
		return nil, common.ErrRestaurantNotFound
	}
	rest, err := s.repomanager.Restaurants(s.db).GetByID(ctx, *owner.RestaurantID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrRestaurantNotFound
	}
	if err != nil {
		return nil, s.translate(ctx, "get restaurant", err)
	}
	return rest, nil
}

func (s *RestaurantService) translate(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrAccountInactive):
		return err
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}
