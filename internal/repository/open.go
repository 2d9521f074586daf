package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"labbook/internal/config"
	"labbook/internal/database"
	"labbook/internal/domain"
)

// Stores is the opened store stack. SQLite and Redis are set when configured
// as either side, for backups and readiness checks.
type Stores struct {
	*FailoverStore
	SQLite *database.SQLiteStore
	Redis  *redis.Client
}

// Open builds the primary and fallback stores named in cfg and wraps them in
// a FailoverStore. The primary must be reachable at startup.
func Open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Stores, error) {
	out := &Stores{}

	open := func(kind string) (domain.BookingStore, error) {
		switch kind {
		case "postgres":
			return database.NewPostgresStore(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, logger)
		case "sqlite":
			s, err := database.NewSQLiteStore(cfg.SQLite.Path, logger)
			if err != nil {
				return nil, err
			}
			out.SQLite = s
			return s, nil
		case "redis":
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			out.Redis = rdb
			return NewRedisStore(rdb, cfg.Redis.KeyPrefix, logger), nil
		}
		return nil, fmt.Errorf("unknown store %q", kind)
	}

	primary, err := open(cfg.Store.Primary)
	if err != nil {
		return nil, fmt.Errorf("open primary store %s: %w", cfg.Store.Primary, err)
	}

	var fallback domain.BookingStore
	if cfg.Store.Fallback != "" && cfg.Store.Fallback != "none" {
		fallback, err = open(cfg.Store.Fallback)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("open fallback store %s: %w", cfg.Store.Fallback, err)
		}
		if err := fallback.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("store", cfg.Store.Fallback).Msg("fallback store not reachable at startup")
		}
	}

	logger.Info().
		Str("primary", cfg.Store.Primary).
		Str("fallback", cfg.Store.Fallback).
		Msg("booking store ready")

	out.FailoverStore = NewFailoverStore(primary, fallback, cfg.RecoveryInterval(), logger)
	return out, nil
}
