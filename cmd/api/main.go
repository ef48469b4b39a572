package main

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/outrigger999/rental-recon/internal/adapters/googlemaps"
	server "github.com/outrigger999/rental-recon/internal/adapters/http_server"
	"github.com/outrigger999/rental-recon/internal/adapters/nominatim"
	"github.com/outrigger999/rental-recon/internal/adapters/observability"
	redisad "github.com/outrigger999/rental-recon/internal/adapters/redis"
	"github.com/outrigger999/rental-recon/internal/app"
	"github.com/outrigger999/rental-recon/internal/shared"
	sqliterepo "github.com/outrigger999/rental-recon/internal/storage/sqlite"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("creating db directory failed")
		}
	}
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
	log.Info().Str("path", cfg.DBPath).Msg("database ready")

	// deps
	repo := sqliterepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	geo := nominatim.New(cfg.GeoBase)

	var routes *googlemaps.Client
	if cfg.MapsKey != "" {
		routes, err = googlemaps.New(cfg.MapsBase, cfg.MapsKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize maps client")
		}
	}
	travel := newTravelService(routes, geo, cfg)

	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	c := app.NewCommandService(repo, travel, cache)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c, DiscountPct: cfg.RangeDiscountPct})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// A nil *googlemaps.Client must become a nil interface, otherwise the
// estimator would call through a typed nil.
func newTravelService(routes *googlemaps.Client, geo *nominatim.Client, cfg shared.Config) *app.TravelTimeService {
	if routes == nil {
		return app.NewTravelTimeService(nil, geo, cfg.RangeDiscountPct, cfg.FallbackSpeedKmh)
	}
	return app.NewTravelTimeService(routes, geo, cfg.RangeDiscountPct, cfg.FallbackSpeedKmh)
}
