// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account activity states. Accounts are never deleted, only moved between
// these values.
const (
	AccountDisabled     = 0
	AccountActive       = 1
	AccountAutoDisabled = 2
)

// Account is the credential record: one per email.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	Verified      bool
	VerifiedAt    *time.Time
	Active        int
	SetupComplete bool
	RestaurantID  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool { return a.Active == AccountActive }

// View returns the redacted representation handed to clients.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:            a.ID,
		Email:         a.Email,
		Verified:      a.Verified,
		Active:        a.Active,
		SetupComplete: a.SetupComplete,
		RestaurantID:  a.RestaurantID,
	}
}

// AccountView is an Account without its password hash.
type AccountView struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Verified      bool    `json:"isVerified"`
	Active        int     `json:"isActive"`
	SetupComplete bool    `json:"isSetup"`
	RestaurantID  *string `json:"resId"`
}
