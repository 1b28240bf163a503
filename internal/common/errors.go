// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	// ErrRestaurantNotFound matches ErrorNotFound as well.
	ErrRestaurantNotFound = fmt.Errorf("restaurant %w", ErrorNotFound)

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrPasswordChanged = errors.New("password was changed concurrently")

	// Input and uniqueness errors.
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")

	// Account state errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountNotVerified = errors.New("account not verified")

	ErrRateLimited = errors.New("rate limited")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrTokenNotYetValid = errors.New("token not valid yet")
	ErrTokenRevoked     = errors.New("token revoked")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// OTP errors.
	ErrOTPNotFound         = errors.New("otp not found")
	ErrOTPExpired          = errors.New("otp expired")
	ErrOTPMismatch         = errors.New("otp mismatch")
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")
)
