package server

import (
	"context"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/internal/database"
	"github.com/MarkoPoloResearchLab/rental/internal/events"
	"github.com/MarkoPoloResearchLab/rental/internal/lock/redislock"
	"github.com/MarkoPoloResearchLab/rental/internal/oplog"
	"github.com/MarkoPoloResearchLab/rental/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/rental/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is a rental store that can report its reachability.
type Store interface {
	rental.Store
	Ping(ctx context.Context) error
}

// Runtime holds the wired domain services shared by every command.
type Runtime struct {
	Store    Store
	Ledger   *rental.Ledger
	Bookings *rental.BookingService
	Catalog  *rental.Catalog
	Accounts *auth.Accounts
	Clock    func() time.Time

	closers []func() error
	logger  *zap.Logger
}

// NewRuntime opens the store, migrates its schema, and wires the domain services.
// cfg must already be validated.
func NewRuntime(ctx context.Context, cfg Config, logger *zap.Logger) (*Runtime, error) {
	runtime := &Runtime{Clock: time.Now, logger: logger}
	if err := runtime.openStore(ctx, cfg); err != nil {
		runtime.Close()
		return nil, err
	}
	if err := runtime.wireServices(cfg); err != nil {
		runtime.Close()
		return nil, err
	}
	return runtime, nil
}

func (runtime *Runtime) openStore(ctx context.Context, cfg Config) error {
	if cfg.StoreBackend == StoreBackendPgx {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("pgx pool: %w", err)
		}
		runtime.closers = append(runtime.closers, func() error { pool.Close(); return nil })
		store := pgstore.New(pool)
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("database ping: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		runtime.Store = store
		return nil
	}
	handle, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	runtime.closers = append(runtime.closers, handle.Close)
	if err := database.Migrate(ctx, handle); err != nil {
		return err
	}
	runtime.Store = gormstore.New(handle.DB)
	return nil
}

func (runtime *Runtime) wireServices(cfg Config) error {
	operationLogger := oplog.NewZapLogger(runtime.logger)
	policies, err := rental.ParseConflictPolicies(cfg.ConflictPolicy)
	if err != nil {
		return err
	}
	defaultHourly, err := rental.NewAmountCents(cfg.DefaultHourlyRateCents)
	if err != nil {
		return err
	}
	ledgerOptions := []rental.LedgerOption{
		rental.WithLedgerOperationLogger(operationLogger),
		rental.WithConflictPolicies(policies...),
	}
	if cfg.RedisURL != "" {
		locker, client, err := redislock.NewFromURL(cfg.RedisURL, redislock.WithTTL(cfg.LockTTL), redislock.WithLogger(runtime.logger))
		if err != nil {
			return fmt.Errorf("redis locker: %w", err)
		}
		runtime.closers = append(runtime.closers, client.Close)
		ledgerOptions = append(ledgerOptions, rental.WithLocker(locker))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		runtime.closers = append(runtime.closers, publisher.Close)
		ledgerOptions = append(ledgerOptions, rental.WithEventPublisher(publisher))
	}

	runtime.Ledger, err = rental.NewLedger(runtime.Store, runtime.Clock, rental.NewPricingEngine(defaultHourly), ledgerOptions...)
	if err != nil {
		return err
	}
	index, err := rental.NewAvailabilityIndex(runtime.Store)
	if err != nil {
		return err
	}
	runtime.Bookings, err = rental.NewBookingService(runtime.Store, runtime.Ledger, index,
		rental.WithOperationLogger(operationLogger),
		rental.WithAvailabilityPrecheck(cfg.AvailabilityPrecheck),
	)
	if err != nil {
		return err
	}
	runtime.Catalog, err = rental.NewCatalog(runtime.Store, rental.WithCatalogOperationLogger(operationLogger))
	if err != nil {
		return err
	}
	runtime.Accounts, err = auth.NewAccounts(runtime.Store, auth.NewBcryptProvider(cfg.BcryptCost))
	return err
}

// Close releases every resource in reverse order of acquisition.
func (runtime *Runtime) Close() {
	for index := len(runtime.closers) - 1; index >= 0; index-- {
		if err := runtime.closers[index](); err != nil {
			runtime.logger.Warn("close failed", zap.Error(err))
		}
	}
	runtime.closers = nil
}
