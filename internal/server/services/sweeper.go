package services

import (
	"context"
	"time"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
)

// Cleaner is any process-local store that can drop its expired entries,
// such as the in-process rate limiter.
type Cleaner interface {
	Cleanup() int
}

// Sweeper periodically removes expired OTP records and revocations.
type Sweeper struct {
	otp      *OTPService
	ledger   *RevocationLedger
	extra    []Cleaner
	interval time.Duration
	logger   logging.Logger
}

func NewSweeper(otp *OTPService, ledger *RevocationLedger, interval time.Duration, l logging.Logger) *Sweeper {
	return &Sweeper{otp: otp, ledger: ledger, interval: interval, logger: l.With("module", "sweeper")}
}

// Also registers additional stores swept on every pass.
func (s *Sweeper) Also(c ...Cleaner) *Sweeper {
	s.extra = append(s.extra, c...)
	return s
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single cleanup pass.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	codes := s.otp.Sweep()

	evicted, deleted, err := s.ledger.Sweep(ctx)
	if err != nil {
		s.logger.Warn(ctx, "revocation sweep failed", "error", err)
	}

	other := 0
	for _, c := range s.extra {
		other += c.Cleanup()
	}

	if codes > 0 || evicted > 0 || deleted > 0 || other > 0 {
		s.logger.Debug(ctx, "sweep finished", "otp", codes, "revoked_memory", evicted, "revoked_rows", deleted, "other", other)
	}
}
