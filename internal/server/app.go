// Package server wires configuration, storage, services and the HTTP API
// together and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/config"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/database"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/notify"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/ratelimit"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/repositories/repomanager"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/rest"
	"github.com/Flutter-Harsaaa/restaurantmenu/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db       *sql.DB
	redis    *redis.Client
	notifier notify.Notifier
	ledger   *services.RevocationLedger
	otp      *services.OTPService
	sweeper  *services.Sweeper
	server   *rest.Server
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	// sql.Open does not connect; the connector does that on first use.
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	connector := database.NewConnector(db, rm.RunMigrations, c.DBConnectRetries, c.DBConnectBaseDelay, logger)

	app := &App{config: c, logger: logger, db: db}

	if len(c.KafkaBrokers) > 0 {
		app.notifier = notify.NewKafkaNotifier(c.KafkaBrokers, c.KafkaTopic)
	} else {
		logger.Warn(context.Background(), "no kafka brokers configured, otp codes are logged")
		app.notifier = notify.NewLogNotifier(logger)
	}

	var (
		limiter   ratelimit.Limiter
		localOnly []services.Cleaner
	)
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		limiter = ratelimit.NewRedisLimiter(app.redis, "restaurantmenu:auth", c.RateLimitRequests, c.RateLimitWindow)
	} else {
		mem := ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow)
		limiter, localOnly = mem, append(localOnly, mem)
	}

	app.ledger = services.NewRevocationLedger(db, rm, c, logger)
	tokens := services.NewTokenService(c, app.ledger)
	app.otp = services.NewOTPService(db, rm, tokens, app.notifier, c, logger)
	app.sweeper = services.NewSweeper(app.otp, app.ledger, c.SweepInterval, logger).Also(localOnly...)

	handler := rest.NewHandler(rest.Deps{
		Accounts:    services.NewAccountService(db, rm, tokens, c, logger),
		Sessions:    services.NewSessionService(tokens, app.ledger, logger),
		Tokens:      tokens,
		OTP:         app.otp,
		Restaurants: services.NewRestaurantService(db, rm, logger),
		Database:    connector,
		Limiter:     limiter,
	}, logger)

	app.server = rest.NewServer(c.EndpointAddrHTTP, rest.NewRouter(handler, c.CORSAllowedOrigins), logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "shutdown", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases process-local state and external connections.
func (app *App) Close() error {
	app.otp.Close()
	app.ledger.Close()

	err := app.notifier.Close()
	if app.redis != nil {
		err = multierr.Append(err, app.redis.Close())
	}
	return multierr.Append(err, app.db.Close())
}
