package main

import (
	"context"
	"fmt"
	"os"

	"catalog_system/internal/config"
	"catalog_system/internal/db"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "catalogctl",
	Short:        "Catalog maintenance CLI",
	Long:         "catalogctl imports products and manages accounts of the catalog database.",
	SilenceUsage: true,
}

func init() {
	// Catalog
	rootCmd.AddCommand(importCmd)

	// Accounts
	rootCmd.AddCommand(seedUsersCmd)
	rootCmd.AddCommand(setRoleCmd)
}

// bootDB loads config, opens the database connection and migrates it.
func bootDB() (*config.Config, *gorm.DB, error) {
	cfg := config.LoadConfig()
	database, err := db.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to DB: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return nil, nil, fmt.Errorf("migrate DB: %w", err)
	}
	return cfg, database, nil
}

// redisClient returns nil when no cache is configured or it does not answer.
func redisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "redis unavailable, cache not invalidated: %v\n", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
