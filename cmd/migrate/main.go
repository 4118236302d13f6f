package main

import (
	"context"

	"github.com/bellapacxx/guba-backend/config"
	"github.com/bellapacxx/guba-backend/utils/logger"
)

// Prepares the configured store's schema (tables or indexes) and exits.
func main() {
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("[FATAL] Invalid configuration: %v", err)
	}

	ctx := context.Background()
	st, err := config.SetupDatabase(ctx, cfg) // connects + migrates
	if err != nil {
		logger.Fatalf("[FATAL] Migration failed: %v", err)
	}
	defer st.Close(ctx)

	logger.Infof("✅ %s schema is up to date", cfg.StoreDriver)
}
