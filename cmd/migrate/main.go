// Command migrate applies the schema to the configured database.
package main

import (
	"context"
	"os"
	"time"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
	"github.com/inteldesk/inteldesk/internal/store"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := store.Open(dsn, 2, 1, time.Minute)
	if err != nil {
		logger.Error("connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := store.Migrate(ctx, db); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("schema up to date")
}
