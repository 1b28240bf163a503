package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/auth"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/notify"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/repomanager"
)

const (
	otpCodeMin = 100000
	otpCodeMax = 999999

	otpPurposeVerifyEmail = "verify-email"
)

// TokenValidator resolves a session token into its claims.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.Claims, error)
}

type otpRecord struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// OTPDispatch is returned after a code has been handed to the notifier.
type OTPDispatch struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPVerification is the outcome of a successful code check. Persisted is
// false when the code matched but the verified flag could not be stored on
// both the account and the profile.
type OTPVerification struct {
	Email      string    `json:"email"`
	Verified   bool      `json:"isVerified"`
	Persisted  bool      `json:"persisted"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// OTPService issues and checks email verification codes. At most one code
// exists per email; records live only in process memory.
type OTPService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenValidator
	notifier    notify.Notifier
	logger      logging.Logger

	ttl          time.Duration
	sendWindow   time.Duration
	resendWindow time.Duration
	maxAttempts  int

	now      func() time.Time
	generate func() (string, error)

	mu      sync.Mutex
	records map[string]*otpRecord
}

func NewOTPService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenValidator, n notify.Notifier, cfg *config.Config, l logging.Logger) *OTPService {
	return &OTPService{
		db:           db,
		repomanager:  m,
		tokens:       tokens,
		notifier:     n,
		logger:       l.With("module", "otp"),
		ttl:          cfg.OTPValidityDuration,
		sendWindow:   cfg.OTPSendWindow,
		resendWindow: cfg.OTPResendWindow,
		maxAttempts:  cfg.OTPMaxAttempts,
		now:          time.Now,
		generate: func() (string, error) {
			return common.RandomNumericCode(otpCodeMin, otpCodeMax)
		},
		records: make(map[string]*otpRecord),
	}
}

// recipient resolves token to the account's current email. The email claim
// is not used: it is frozen at login and goes stale after a profile edit.
func (s *OTPService) recipient(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return "", err
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, claims.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "otp account lookup failed", "id", claims.UserID, "error", err)
		return "", common.ErrorInternal
	}
	return account.Email, nil
}

// Send issues a code for the token's account.
func (s *OTPService) Send(ctx context.Context, token string) (*OTPDispatch, error) {
	return s.issue(ctx, token, s.sendWindow)
}

// Resend replaces any outstanding code, subject to its own window.
func (s *OTPService) Resend(ctx context.Context, token string) (*OTPDispatch, error) {
	return s.issue(ctx, token, s.resendWindow)
}

func (s *OTPService) issue(ctx context.Context, token string, window time.Duration) (*OTPDispatch, error) {
	email, err := s.recipient(ctx, token)
	if err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		s.logger.Error(ctx, "otp generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now()
	rec := &otpRecord{code: code, expiresAt: now.Add(s.ttl)}

	s.mu.Lock()
	prev, hadPrev := s.records[email]
	if hadPrev {
		// The issue time is not stored; it is recovered from the expiry.
		issuedAt := prev.expiresAt.Add(-s.ttl)
		if elapsed := now.Sub(issuedAt); elapsed < window {
			s.mu.Unlock()
			return nil, &common.RateLimitError{RetryAfter: window - elapsed}
		}
	}
	s.records[email] = rec
	s.mu.Unlock()

	msg := notify.OTPMessage{
		Email:     email,
		Code:      code,
		Purpose:   otpPurposeVerifyEmail,
		IssuedAt:  now,
		ExpiresAt: rec.expiresAt,
	}
	if err := s.notifier.SendOTP(ctx, msg); err != nil {
		// Put back the code that was outstanding before, if any.
		s.mu.Lock()
		if s.records[email] == rec {
			if hadPrev {
				s.records[email] = prev
			} else {
				delete(s.records, email)
			}
		}
		s.mu.Unlock()

		s.logger.Error(ctx, "otp dispatch failed", "email", MaskEmail(email), "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "otp dispatched", "email", MaskEmail(email))
	return &OTPDispatch{Email: MaskEmail(email), ExpiresAt: rec.expiresAt}, nil
}

// Verify checks code against the outstanding record for the account's
// current email. A code sent to an address the account no longer uses is
// not found.
func (s *OTPService) Verify(ctx context.Context, token, code string) (*OTPVerification, error) {
	email, err := s.recipient(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()

	s.mu.Lock()
	rec, ok := s.records[email]
	switch {
	case !ok:
		s.mu.Unlock()
		return nil, common.ErrOTPNotFound
	case now.After(rec.expiresAt):
		delete(s.records, email)
		s.mu.Unlock()
		return nil, common.ErrOTPExpired
	case rec.attempts >= s.maxAttempts:
		delete(s.records, email)
		s.mu.Unlock()
		return nil, common.ErrOTPAttemptsExceeded
	case subtle.ConstantTimeCompare([]byte(rec.code), []byte(strings.TrimSpace(code))) != 1:
		rec.attempts++
		remaining := s.maxAttempts - rec.attempts
		s.mu.Unlock()
		return nil, &common.OTPMismatchError{Remaining: remaining}
	}
	delete(s.records, email)
	s.mu.Unlock()

	res := &OTPVerification{Email: email, Verified: true, VerifiedAt: now}
	if err := s.persistVerified(ctx, email, now); err != nil {
		s.logger.Error(ctx, "otp verified but flag not stored", "email", MaskEmail(email), "error", err)
		return res, nil
	}
	res.Persisted = true
	return res, nil
}

// persistVerified marks the account and the profile verified in parallel.
// Both writes are attempted even if one fails.
func (s *OTPService) persistVerified(ctx context.Context, email string, at time.Time) error {
	ctx = context.WithoutCancel(ctx)

	var (
		wg                     sync.WaitGroup
		accountErr, profileErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		accountErr = s.repomanager.Accounts(s.db).MarkVerified(ctx, email, at)
	}()
	go func() {
		defer wg.Done()
		profileErr = s.repomanager.Profiles(s.db).MarkVerified(ctx, email, at)
	}()
	wg.Wait()

	return multierr.Combine(accountErr, profileErr)
}

// Sweep drops expired records and returns how many were removed.
func (s *OTPService) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for email, rec := range s.records {
		if now.After(rec.expiresAt) {
			delete(s.records, email)
			n++
		}
	}
	return n
}

// Size returns the number of outstanding codes.
func (s *OTPService) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close forgets every outstanding code.
func (s *OTPService) Close() {
	s.mu.Lock()
	s.records = make(map[string]*otpRecord)
	s.mu.Unlock()
}

// MaskEmail hides the local part of an address, keeping its first and last
// characters: "alice@x.io" becomes "a***e@x.io".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + domain
}
