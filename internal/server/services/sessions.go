package services

import (
	"context"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
)

// SessionService ends sessions by putting tokens on the revocation ledger.
type SessionService struct {
	tokens *TokenService
	ledger *RevocationLedger
	logger logging.Logger
}

func NewSessionService(tokens *TokenService, ledger *RevocationLedger, l logging.Logger) *SessionService {
	return &SessionService{tokens: tokens, ledger: ledger, logger: l.With("module", "sessions")}
}

// Logout revokes token. A token that is already revoked is rejected by
// Validate, so a second logout reports common.ErrTokenRevoked.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.ledger.Revoke(ctx, token, claims.UserID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.logger.Info(ctx, "logged out", "id", claims.UserID)
	return nil
}

// LogoutAll records a logout-all entry for the token's account and revokes
// the token itself.
func (s *SessionService) LogoutAll(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.ledger.RevokeAll(ctx, claims.UserID, token, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.logger.Info(ctx, "logged out from all devices", "id", claims.UserID)
	return nil
}

// LogoutStatus reports whether token is no longer usable.
func (s *SessionService) LogoutStatus(ctx context.Context, token string) (bool, error) {
	return s.tokens.LogoutStatus(ctx, token)
}
