package services

import (
	"context"
	"errors"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/auth"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
)

// RevocationChecker answers whether a parsed token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string, claims *auth.Claims) (bool, error)
}

// TokenService issues and validates session tokens.
//
// Validation runs signature, then expiry, then revocation. A token that
// fails any step never becomes valid again.
type TokenService struct {
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	revocations                 RevocationChecker
	now                         func() time.Time
}

func NewTokenService(cfg *config.Config, revocations RevocationChecker) *TokenService {
	return &TokenService{
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		revocations:                 revocations,
		now:                         time.Now,
	}
}

// Issue signs a token for the account.
func (s *TokenService) Issue(account *models.Account) (string, *auth.Claims, error) {
	token, claims, err := auth.GenerateToken(account.ID, account.Email, s.jwtSecret, s.now(), s.accessTokenValidityDuration)
	if err != nil {
		return "", nil, common.ErrorInternal
	}
	return token, claims, nil
}

// Decode checks signature and expiry only.
func (s *TokenService) Decode(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, s.jwtSecret, s.now())
}

// Validate decodes the token and rejects it with common.ErrTokenRevoked when
// the revocation ledger holds it.
func (s *TokenService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.Decode(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, token, claims)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}

	return claims, nil
}

// LogoutStatus reports whether the token can no longer be used because it
// was revoked or has expired. Forged or malformed tokens are an error.
func (s *TokenService) LogoutStatus(ctx context.Context, token string) (bool, error) {
	_, err := s.Validate(ctx, token)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, common.ErrTokenRevoked), errors.Is(err, common.ErrTokenExpired):
		return true, nil
	default:
		return false, err
	}
}
