package bootstrap

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kitgore/lyrictype-sub002/common/config"
	"github.com/kitgore/lyrictype-sub002/common/db"
	"github.com/kitgore/lyrictype-sub002/common/logger"
	"github.com/kitgore/lyrictype-sub002/common/redis"
	"github.com/kitgore/lyrictype-sub002/common/store"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize record store (if not skipped)
	if !options.skipStore {
		st, err := newStore(ctx, components)
		if err != nil {
			return nil, err
		}
		components.Store = st

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing record store")
			return st.Close()
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := st.Ping(pingCtx); err != nil {
			components.Shutdown(ctx) // Cleanup what we've initialized
			return nil, fmt.Errorf("record store unreachable: %w", err)
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"store", components.Store != nil,
	)

	return components, nil
}

// newStore builds the configured store backend.
func newStore(ctx context.Context, c *Components) (store.Store, error) {
	backend := c.Config.Store.Backend
	c.Logger.Info("initializing record store", "backend", backend)

	switch backend {
	case "memory":
		return store.NewMemoryStore(), nil

	case "redis":
		rc := goredis.NewClient(&goredis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		return store.NewRedisStore(redis.NewClient(rc, c.Logger)), nil

	case "postgres":
		database, err := db.New(ctx, c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		pg := store.NewPostgresStore(database)
		if err := pg.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return pg, nil

	case "badger":
		return store.NewBadgerStore(c.Config.Badger.Path)

	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
