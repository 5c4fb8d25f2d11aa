package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	ordercache "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/cache"
	orderevents "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/events"
	ordermemory "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/memory"
	orderpostgres "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/storefront-orders/internal/domains/orders/application"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
	"github.com/Apurer/storefront-orders/internal/platform/migrations"
	platformpostgres "github.com/Apurer/storefront-orders/internal/platform/postgres"
	platformredis "github.com/Apurer/storefront-orders/internal/platform/redis"
)

// Components are the infrastructure adapters behind the orders service. Close releases
// every connection that was opened.
type Components struct {
	Store       ports.Store
	Idempotency ports.IdempotencyStore
	Locker      ports.OrderLocker
	Events      ports.EventPublisher
	// Shared reports whether Store is visible to other processes. Work handed to the
	// Temporal worker only makes sense when it is.
	Shared bool

	closers []func() error
}

// Close releases connections in reverse order of acquisition.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// ErrStoreUnavailable is returned by BuildDurableComponents when Postgres cannot serve as
// the order store.
var ErrStoreUnavailable = errors.New("postgres order store unavailable")

// BuildComponents selects Postgres or memory storage, Redis or in-process locking, and
// Kafka or log publishing. Unreachable backends degrade to the local variant with a warning.
func BuildComponents(ctx context.Context, cfg Config, logger *slog.Logger) *Components {
	c, _ := buildComponents(ctx, cfg, logger, false)
	return c
}

// BuildDurableComponents is BuildComponents for processes that must share the API's order
// store, like the worker and the audit job. It fails instead of falling back to memory.
func BuildDurableComponents(ctx context.Context, cfg Config, logger *slog.Logger) (*Components, error) {
	return buildComponents(ctx, cfg, logger, true)
}

func buildComponents(ctx context.Context, cfg Config, logger *slog.Logger, requireStore bool) (*Components, error) {
	c := &Components{}
	opts := platformpostgres.Options{
		MaxOpenConns: cfg.PostgresMaxConns,
		MaxIdleConns: cfg.PostgresMaxConns,
		SlowQuery:    cfg.SlowQuery(),
		Logger:       logger,
	}

	var db *gorm.DB
	cleanupDB := func() {}
	if requireStore {
		var err error
		db, cleanupDB, err = platformpostgres.OpenStrict(ctx, cfg.PostgresDSN, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if err := migrations.Run(db); err != nil {
			cleanupDB()
			return nil, fmt.Errorf("%w: migrate: %w", ErrStoreUnavailable, err)
		}
	} else {
		db, cleanupDB = platformpostgres.Open(ctx, cfg.PostgresDSN, opts)
		if db != nil {
			if err := migrations.Run(db); err != nil {
				logger.Warn("failed to migrate postgres, falling back to in-memory order store", slog.String("error", err.Error()))
				cleanupDB()
				db = nil
			}
		}
	}
	if db != nil {
		c.closers = append(c.closers, func() error { cleanupDB(); return nil })
		c.Store = orderpostgres.NewRepository(db)
		c.Idempotency = orderpostgres.NewIdempotencyStore(db)
		c.Shared = true
		logger.Info("order store configured with postgres")
	} else {
		c.Store = ordermemory.NewRepository()
		c.Idempotency = ordermemory.NewIdempotencyStore()
	}

	c.Locker = ordermemory.NewLocker()
	if cfg.RedisURL != "" {
		client, err := platformredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-process order locks", slog.String("error", err.Error()))
		} else {
			c.closers = append(c.closers, client.Close)
			c.Locker = ordercache.NewRedisLocker(client, cfg.LockTTL(),
				ordercache.WithMaxWait(cfg.LockWait()),
				ordercache.WithLogger(logger),
			)
			logger.Info("order locks configured with redis")
		}
	}

	c.Events = orderevents.NewLogPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := orderevents.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warn("kafka publisher unavailable, logging order events instead", slog.String("error", err.Error()))
		} else {
			c.closers = append(c.closers, publisher.Close)
			c.Events = publisher
			logger.Info("order events published to kafka", slog.String("topic", cfg.KafkaTopic))
		}
	}
	return c, nil
}

// NewOrderService builds the core application service over c.
func NewOrderService(cfg Config, c *Components, logger *slog.Logger) *ordersapp.Service {
	return ordersapp.NewService(
		c.Store,
		ordersapp.WithLocker(c.Locker),
		ordersapp.WithIdempotencyStore(c.Idempotency),
		ordersapp.WithEventPublisher(c.Events),
		ordersapp.WithLogger(logger),
		ordersapp.WithBulkConcurrency(cfg.BulkConcurrency),
		ordersapp.WithMaxBulkItems(cfg.BulkMaxItems),
		ordersapp.WithCumulativeRefundCap(cfg.RefundCumulativeCap),
	)
}
