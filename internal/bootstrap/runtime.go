// Package bootstrap wires the process-wide dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/middleware"
	"atelier/internal/repository"
	"atelier/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations or AutoMigrate according to DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedCategories ensures the default preset's categories exist.
	SeedCategories bool
}

// InitRuntime connects to the database and Redis. Redis is optional: when it
// is unreachable the returned client is nil and caching and events are off.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedCategories {
		if err := ensureCategories(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
	}

	return db, r, nil
}

func ensureCategories(ctx context.Context, db *gorm.DB) error {
	preset, err := seed.LoadPreset("")
	if err != nil {
		return err
	}
	categories, err := seed.Categories(ctx, repository.NewStore(db), preset.Categories)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "categories ensured", slog.Int("count", len(categories)))
	return nil
}
