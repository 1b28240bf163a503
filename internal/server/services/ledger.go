package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/auth"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/models"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/repomanager"
)

// RevocationLedger records tokens invalidated before their natural expiry.
//
// Entries live in a process-local set, checked first, and in the
// revoked_tokens table, which survives restarts. A miss in memory falls
// through to the table and re-populates the set. Every entry expires
// together with the token it blacklists.
type RevocationLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger

	tokenValidity    time.Duration
	enforceWatermark bool
	now              func() time.Time

	mu         sync.RWMutex
	revoked    map[string]time.Time // token digest -> expiry
	watermarks map[string]watermark // account id -> newest logout-all
}

type watermark struct {
	at        time.Time
	expiresAt time.Time
}

func NewRevocationLedger(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *RevocationLedger {
	return &RevocationLedger{
		db:               db,
		repomanager:      m,
		logger:           l.With("module", "revocation_ledger"),
		tokenValidity:    cfg.AccessTokenValidityDuration,
		enforceWatermark: cfg.EnforceLogoutAllWatermark,
		now:              time.Now,
		revoked:          make(map[string]time.Time),
		watermarks:       make(map[string]watermark),
	}
}

// TokenDigest is the key under which a raw token is stored.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Revoke blacklists token until expiresAt. Revoking an already revoked
// token succeeds. The in-memory entry is recorded even if the durable
// write fails; the error is still returned.
func (l *RevocationLedger) Revoke(ctx context.Context, token, accountID string, expiresAt time.Time) error {
	now := l.now()
	if !expiresAt.After(now) {
		return nil
	}

	digest := TokenDigest(token)

	l.mu.Lock()
	l.revoked[digest] = expiresAt
	l.mu.Unlock()

	entry := &models.RevokedToken{TokenHash: digest, AccountID: accountID, ExpiresAt: expiresAt, RevokedAt: now}
	if err := l.repomanager.Revocations(l.db).Create(ctx, entry); err != nil {
		l.logger.Error(ctx, "persisting revocation failed", "id", accountID, "error", err)
		return common.ErrorInternal
	}
	return nil
}

// RevokeAll writes a logout-all sentinel for the account and revokes the
// caller's current token.
//
// Other tokens of the account stay valid unless watermark enforcement is
// enabled, in which case every token issued before the sentinel is
// rejected by IsRevoked.
func (l *RevocationLedger) RevokeAll(ctx context.Context, accountID, currentToken string, currentExpiresAt time.Time) error {
	now := l.now()

	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return common.ErrorInternal
	}

	sentinel := &models.RevokedToken{
		TokenHash:  TokenDigest("all-devices:" + accountID + ":" + nonce),
		AccountID:  accountID,
		ExpiresAt:  now.Add(l.tokenValidity),
		RevokedAt:  now,
		AllDevices: true,
	}

	l.mu.Lock()
	if wm, ok := l.watermarks[accountID]; !ok || now.After(wm.at) {
		l.watermarks[accountID] = watermark{at: now, expiresAt: sentinel.ExpiresAt}
	}
	l.mu.Unlock()

	if err := l.repomanager.Revocations(l.db).Create(ctx, sentinel); err != nil {
		l.logger.Error(ctx, "persisting logout-all sentinel failed", "id", accountID, "error", err)
		return common.ErrorInternal
	}

	return l.Revoke(ctx, currentToken, accountID, currentExpiresAt)
}

// IsRevoked reports whether token (already parsed into claims) is on the ledger.
func (l *RevocationLedger) IsRevoked(ctx context.Context, token string, claims *auth.Claims) (bool, error) {
	now := l.now()
	digest := TokenDigest(token)

	l.mu.RLock()
	exp, ok := l.revoked[digest]
	l.mu.RUnlock()
	if ok && exp.After(now) {
		return true, nil
	}

	if l.enforceWatermark {
		revoked, err := l.beforeWatermark(ctx, claims, now)
		if err != nil || revoked {
			return revoked, err
		}
	}

	entry, err := l.repomanager.Revocations(l.db).Find(ctx, digest)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		l.logger.Error(ctx, "revocation lookup failed", "error", err)
		return false, err
	}
	if !entry.ExpiresAt.After(now) {
		return false, nil
	}

	l.mu.Lock()
	l.revoked[digest] = entry.ExpiresAt
	l.mu.Unlock()

	return true, nil
}

// beforeWatermark reports whether the token was issued before the newest
// logout-all of its account. Token iat has second precision, so the
// watermark is truncated to the second as well.
func (l *RevocationLedger) beforeWatermark(ctx context.Context, claims *auth.Claims, now time.Time) (bool, error) {
	if claims == nil || claims.IssuedAt == nil {
		return false, nil
	}

	l.mu.RLock()
	wm, ok := l.watermarks[claims.UserID]
	l.mu.RUnlock()

	if !ok || !wm.expiresAt.After(now) {
		entry, err := l.repomanager.Revocations(l.db).LatestAllDevices(ctx, claims.UserID, now)
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		if err != nil {
			l.logger.Error(ctx, "logout-all lookup failed", "error", err)
			return false, err
		}
		wm = watermark{at: entry.RevokedAt, expiresAt: entry.ExpiresAt}

		l.mu.Lock()
		l.watermarks[claims.UserID] = wm
		l.mu.Unlock()
	}

	return claims.IssuedAt.Time.Before(wm.at.Truncate(time.Second)), nil
}

// Sweep drops expired entries from memory and from the table. It returns
// the number of memory entries evicted and table rows deleted.
func (l *RevocationLedger) Sweep(ctx context.Context) (int, int64, error) {
	now := l.now()

	evicted := 0
	l.mu.Lock()
	for digest, exp := range l.revoked {
		if !exp.After(now) {
			delete(l.revoked, digest)
			evicted++
		}
	}
	for id, wm := range l.watermarks {
		if !wm.expiresAt.After(now) {
			delete(l.watermarks, id)
		}
	}
	l.mu.Unlock()

	deleted, err := l.repomanager.Revocations(l.db).DeleteExpired(ctx, now)
	if err != nil {
		return evicted, 0, err
	}
	return evicted, deleted, nil
}

// Size returns the number of in-memory revocations.
func (l *RevocationLedger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.revoked)
}

// Close clears the process-local state.
func (l *RevocationLedger) Close() {
	l.mu.Lock()
	l.revoked = make(map[string]time.Time)
	l.watermarks = make(map[string]watermark)
	l.mu.Unlock()
}
