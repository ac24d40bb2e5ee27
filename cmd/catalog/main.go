package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, "catalog", cfg.LogLevel)

	path := cfg.CatalogFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	log.Info().
		Str("file", path).
		Int("workers", cfg.CatalogWorkers).
		Msg("catalog import starting")

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("open catalog failed")
	}
	entries, err := app.ReadCatalog(f)
	_ = f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("read catalog failed")
	}

	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rc.Close()

	store, closeStore, err := shared.OpenStore(ctx, cfg, redisad.NewNotifier(rc))
	if err != nil {
		log.Fatal().Err(err).Msg("open document store failed")
	}
	defer closeStore()

	// cached hotel entries are dropped as each one is written
	hotels := app.NewHotelService(store, redisad.NewCache(rc), cfg.CacheTTL)

	start := time.Now()
	res, err := app.ImportCatalog(ctx, hotels, entries, cfg.CatalogWorkers)
	if err != nil {
		log.Error().Err(err).Msg("catalog import aborted")
	}
	log.Info().
		Int("imported", res.Imported).
		Int("failed", res.Failed).
		Dur("took", time.Since(start)).
		Msg("catalog import completed")
}
