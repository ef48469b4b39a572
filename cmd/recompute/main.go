// Command recompute refreshes travel-time estimates for every stored
// property. Meant to be run from cron on the server after the reference
// address changes or periodically to keep estimates current.
package main

import (
	"context"
	"database/sql"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"

	"github.com/outrigger999/rental-recon/internal/adapters/googlemaps"
	"github.com/outrigger999/rental-recon/internal/adapters/nominatim"
	"github.com/outrigger999/rental-recon/internal/adapters/observability"
	redisad "github.com/outrigger999/rental-recon/internal/adapters/redis"
	"github.com/outrigger999/rental-recon/internal/app"
	"github.com/outrigger999/rental-recon/internal/domain"
	"github.com/outrigger999/rental-recon/internal/shared"
	sqliterepo "github.com/outrigger999/rental-recon/internal/storage/sqlite"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("db", cfg.DBPath).
		Int("workers", cfg.Workers).
		Msg("recompute starting")

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	if err := sqliterepo.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("schema init failed")
	}

	repo := sqliterepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	geo := nominatim.New(cfg.GeoBase)

	var routes domain.RouteProvider
	if cfg.MapsKey != "" {
		client, err := googlemaps.New(cfg.MapsBase, cfg.MapsKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize maps client")
		}
		routes = client
	}
	travel := app.NewTravelTimeService(routes, geo, cfg.RangeDiscountPct, cfg.FallbackSpeedKmh)
	cmds := app.NewCommandService(repo, travel, cache)

	props, err := repo.ListProperties(ctx, domain.PropertiesQuery{Limit: 500})
	if err != nil {
		log.Fatal().Err(err).Msg("listing properties failed")
	}

	// The maps client rate-limits itself; the semaphore just keeps the
	// number of in-flight recomputes bounded.
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, pv := range props {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(id int64, addr string) {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := cmds.RecomputeTravelTimes(ctx, id); err != nil {
				log.Warn().Int64("id", id).Str("address", addr).Err(err).Msg("recompute failed")
				return
			}
			log.Info().Int64("id", id).Str("address", addr).Msg("recompute ok")
		}(pv.ID, pv.Address)
	}

	wg.Wait()
	log.Info().Msg("recompute completed")
}
