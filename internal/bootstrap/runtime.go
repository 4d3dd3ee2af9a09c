// Package bootstrap opens the process-wide connections shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"huellas/internal/cache"
	"huellas/internal/config"
	"huellas/internal/database"
	"huellas/internal/events"
	"huellas/internal/middleware"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipRedis leaves Redis unconnected, for commands that never cache.
	SkipRedis bool
	// SkipNATS leaves the event publisher without a connection.
	SkipNATS bool
}

// Runtime holds the connections of one process.
type Runtime struct {
	DB        *gorm.DB
	Redis     *redis.Client
	NATS      *nats.Conn
	Publisher *events.Publisher
}

// InitRuntime connects to Postgres, applying the schema policy, and to Redis
// and NATS when configured. Only the database is required.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db, Publisher: events.NewPublisher(nil)}

	if !opts.SkipRedis && cfg.RedisURL != "" {
		rt.Redis = cache.ConnectOptional(ctx, cfg.RedisURL)
	}

	if !opts.SkipNATS {
		nc, err := events.Connect(cfg.NATSURL)
		switch {
		case err != nil:
			middleware.Logger.Warn("NATS unavailable, domain events disabled", slog.String("error", err.Error()))
		case nc != nil:
			rt.NATS = nc
			rt.Publisher = events.NewPublisher(nc)
			middleware.Logger.Info("NATS connected", slog.String("url", nc.ConnectedUrlRedacted()))
		}
	}
	return rt, nil
}

// Close drains NATS and closes Redis and the database.
func (rt *Runtime) Close() {
	if rt.NATS != nil {
		if err := rt.NATS.Drain(); err != nil {
			middleware.Logger.Warn("draining nats", slog.String("error", err.Error()))
		}
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			middleware.Logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	database.Close()
}
