// Package database establishes the shared PostgreSQL connection lazily,
// with bounded exponential backoff, and runs migrations once it is up.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
)

// MigrateFunc prepares the schema on a freshly reachable database.
type MigrateFunc func(ctx context.Context, db *sql.DB) error

// Connector guards the first use of a *sql.DB. Concurrent callers that
// arrive while a connection attempt is running wait for that attempt
// instead of starting their own.
type Connector struct {
	db        *sql.DB
	migrate   MigrateFunc
	retries   uint64
	baseDelay time.Duration
	logger    logging.Logger

	ready atomic.Bool
	group singleflight.Group
}

func NewConnector(db *sql.DB, migrate MigrateFunc, retries int, baseDelay time.Duration, l logging.Logger) *Connector {
	if retries < 0 {
		retries = 0
	}
	return &Connector{
		db:        db,
		migrate:   migrate,
		retries:   uint64(retries),
		baseDelay: baseDelay,
		logger:    l.With("module", "database"),
	}
}

// DB returns the guarded handle.
func (c *Connector) DB() *sql.DB { return c.db }

// Ready reports whether a connection has been established.
func (c *Connector) Ready() bool { return c.ready.Load() }

// Ensure makes sure the database is reachable and migrated. Once it has
// succeeded it returns immediately. A failed attempt is retried by the next
// caller.
func (c *Connector) Ensure(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}
		// The attempt is shared, so one caller going away must not cancel it.
		return nil, c.connect(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connector) connect(ctx context.Context) error {
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.baseDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := c.db.PingContext(ctx); err != nil {
			c.logger.Warn(ctx, "database not reachable", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error(ctx, "database connection failed", "attempts", attempt, "error", err)
		return fmt.Errorf("connect database: %w", err)
	}

	if c.migrate != nil {
		if err := c.migrate(ctx, c.db); err != nil {
			c.logger.Error(ctx, "migrations failed", "error", err)
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	c.ready.Store(true)
	c.logger.Info(ctx, "database connected", "attempts", attempt)
	return nil
}
