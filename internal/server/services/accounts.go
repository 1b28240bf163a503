package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/dbx"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/auth"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/repomanager"
)

// minPasswordLength applies to password changes only; registration accepts
// any non-empty password.
const minPasswordLength = 6

// TokenIssuer signs session tokens for accounts.
type TokenIssuer interface {
	Issue(account *models.Account) (string, *auth.Claims, error)
}

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ContactNumber  string `json:"contactNumber"`
	Password       string `json:"password"`
	RestaurantName string `json:"restaurantName"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.ContactNumber, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// RegisterResult is the created profile plus the id used for later lookups.
type RegisterResult struct {
	User    *models.Profile `json:"user"`
	LoginID string          `json:"loginId"`
}

// LoginResult carries a fresh session token and the redacted account.
type LoginResult struct {
	Token string              `json:"token"`
	User  *models.AccountView `json:"user"`
}

// ProfileUpdate is a partial profile edit; nil fields are left untouched.
type ProfileUpdate struct {
	FullName       *string `json:"fullName"`
	Email          *string `json:"email"`
	ContactNumber  *string `json:"contactNumber"`
	RestaurantName *string `json:"restaurantName"`
}

func (u ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.FullName, validation.NilOrNotEmpty),
		validation.Field(&u.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&u.ContactNumber, validation.NilOrNotEmpty),
	)
}

// PasswordChange is the payload of a password update.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (p PasswordChange) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CurrentPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.Length(minPasswordLength, 0)),
		validation.Field(&p.ConfirmPassword, validation.Required),
	)
}

// AccountService runs the account lifecycle: registration, login, profile
// and password edits, and status changes. The account and its profile are
// always written together.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	logger      logging.Logger

	bcryptCost           int
	requireVerifiedLogin bool
	now                  func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenIssuer, cfg *config.Config, l logging.Logger) *AccountService {
	return &AccountService{
		db:                   db,
		repomanager:          m,
		tokens:               tokens,
		logger:               l.With("module", "accounts"),
		bcryptCost:           max(cfg.BcryptCost, config.MinBcryptCost),
		requireVerifiedLogin: cfg.RequireVerifiedLogin,
		now:                  time.Now,
	}
}

func (s *AccountService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// burnCompare spends the same time as a real password check so unknown
// emails are not distinguishable by latency.
func (s *AccountService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

// Register creates the profile and the account in one transaction.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.RestaurantName = strings.TrimSpace(in.RestaurantName)

	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	var res *RegisterResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)
		profiles := s.repomanager.Profiles(tx)

		if _, err := accounts.GetByEmail(ctx, in.Email); err == nil {
			return &common.ConflictError{Field: "email"}
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if _, err := profiles.GetByEmail(ctx, in.Email); err == nil {
			return &common.ConflictError{Field: "email"}
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		profile, err := profiles.Create(ctx, &models.Profile{
			FullName:       in.Name,
			Email:          in.Email,
			ContactNumber:  in.ContactNumber,
			RestaurantName: in.RestaurantName,
			Active:         models.AccountActive,
		})
		if err != nil {
			return err
		}

		account, err := accounts.Create(ctx, &models.Account{
			Email:        in.Email,
			PasswordHash: hash,
			Active:       models.AccountActive,
		})
		if err != nil {
			return err
		}

		res = &RegisterResult{User: profile, LoginID: account.ID}
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}

	s.logger.Info(ctx, "account registered", "id", res.LoginID)
	return res, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords yield the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &common.ValidationError{Fields: map[string]string{
			"email":    "email and password required",
			"password": "email and password required",
		}}
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		s.burnCompare(password)
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}
	if !account.IsActive() {
		return nil, common.ErrAccountInactive
	}
	if s.requireVerifiedLogin && !account.Verified {
		return nil, common.ErrAccountNotVerified
	}

	token, _, err := s.tokens.Issue(account)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}

	return &LoginResult{Token: token, User: account.View()}, nil
}

// CurrentUser returns the redacted account for an authenticated caller.
func (s *AccountService) CurrentUser(ctx context.Context, id string) (*models.AccountView, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, "current user", err)
	}
	if !account.IsActive() {
		return nil, common.ErrAccountInactive
	}
	return account.View(), nil
}

// GetProfile returns the profile of account id.
func (s *AccountService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, "get profile", err)
	}
	profile, err := s.repomanager.Profiles(s.db).GetByEmail(ctx, account.Email)
	if err != nil {
		return nil, s.internal(ctx, "get profile", err)
	}
	return profile, nil
}

// UpdateProfile applies a partial edit. Changing the email renames both the
// account and the profile and marks both unverified until the new address
// passes an OTP check. Deactivated accounts are reported as not found.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.Profile, error) {
	trimPtr(upd.FullName)
	trimPtr(upd.Email)
	trimPtr(upd.ContactNumber)
	trimPtr(upd.RestaurantName)

	if err := upd.Validate(); err != nil {
		return nil, validationError(err)
	}

	var updated *models.Profile
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)
		profiles := s.repomanager.Profiles(tx)

		account, err := accounts.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !account.IsActive() {
			return common.ErrorNotFound
		}

		profile, err := profiles.GetByEmail(ctx, account.Email)
		if err != nil {
			return err
		}
		oldEmail := profile.Email

		if upd.Email != nil && *upd.Email != oldEmail {
			if _, err := accounts.GetByEmail(ctx, *upd.Email); err == nil {
				return &common.ConflictError{Field: "email"}
			} else if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			if err := accounts.UpdateEmail(ctx, account.ID, *upd.Email); err != nil {
				return err
			}
			profile.Email = *upd.Email
			profile.Verified = false
			profile.VerifiedAt = nil
		}

		if upd.ContactNumber != nil && *upd.ContactNumber != profile.ContactNumber {
			others, err := profiles.FindActiveByContact(ctx, *upd.ContactNumber)
			if err != nil {
				return err
			}
			for _, o := range others {
				if o.ID != profile.ID {
					return &common.ConflictError{Field: "contactNumber"}
				}
			}
			profile.ContactNumber = *upd.ContactNumber
		}

		if upd.FullName != nil {
			profile.FullName = *upd.FullName
		}
		if upd.RestaurantName != nil {
			profile.RestaurantName = *upd.RestaurantName
		}

		if err := profiles.Update(ctx, oldEmail, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, "update profile", err)
	}
	return updated, nil
}

// UpdatePassword replaces the password after checking the current one. The
// account row is locked for the check and the swap only succeeds if the
// stored hash is still the one that was checked.
func (s *AccountService) UpdatePassword(ctx context.Context, id string, p PasswordChange) error {
	if err := p.Validate(); err != nil {
		return validationError(err)
	}
	if p.NewPassword != p.ConfirmPassword {
		return common.NewValidationError("confirmPassword", "passwords do not match")
	}

	newHash, err := s.hash(p.NewPassword)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return common.ErrorInternal
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)

		account, err := accounts.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(p.CurrentPassword)); err != nil {
			return common.ErrInvalidCredentials
		}

		swapped, err := accounts.SwapPasswordHash(ctx, id, account.PasswordHash, newHash)
		if err != nil {
			return err
		}
		if !swapped {
			return common.ErrPasswordChanged
		}
		return nil
	})
	if err != nil {
		return s.internal(ctx, "update password", err)
	}

	s.logger.Info(ctx, "password updated", "id", id)
	return nil
}

// SetStatus moves the account and its profile to the given activity state.
func (s *AccountService) SetStatus(ctx context.Context, id string, active int) (*models.AccountView, error) {
	err := validation.Validate(active, validation.In(models.AccountDisabled, models.AccountActive, models.AccountAutoDisabled))
	if err != nil {
		return nil, common.NewValidationError("isActive", err.Error())
	}

	var view *models.AccountView
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repomanager.Accounts(tx)

		account, err := accounts.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := accounts.SetActive(ctx, id, active); err != nil {
			return err
		}
		if err := s.repomanager.Profiles(tx).SetActive(ctx, account.Email, active); err != nil {
			return err
		}
		account.Active = active
		view = account.View()
		return nil
	})
	if err != nil {
		return nil, s.internal(ctx, "set status", err)
	}

	s.logger.Info(ctx, "account status changed", "id", id, "active", active)
	return view, nil
}

// Deactivate disables the account without deleting it.
func (s *AccountService) Deactivate(ctx context.Context, id string) (*models.AccountView, error) {
	return s.SetStatus(ctx, id, models.AccountDisabled)
}

// internal passes domain errors through and hides everything else behind
// common.ErrorInternal.
func (s *AccountService) internal(ctx context.Context, op string, err error) error {
	for _, known := range []error{
		common.ErrorNotFound,
		common.ErrValidation,
		common.ErrConflict,
		common.ErrInvalidCredentials,
		common.ErrAccountInactive,
		common.ErrAccountNotVerified,
		common.ErrPasswordChanged,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
