package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	DBPath      string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	MapsBase string
	MapsKey  string
	GeoBase  string

	// Range derivation: lower bound = upper discounted by this percentage.
	// Tunable; the value itself is a heuristic, not derived from anything.
	RangeDiscountPct int
	// Average speed assumed when converting fallback straight-line
	// distance to a duration.
	FallbackSpeedKmh float64

	Workers  int
	CacheTTL time.Duration
}

// Load reads configuration. The local env file is applied with Overload so
// its values take precedence over anything already in the ambient
// environment: the deployment rule is that the API credential lives in the
// env file next to the binary, and a stale ambient GOOGLE_MAPS_API_KEY must
// never win over it.
func Load() Config {
	envFile := env("ENV_FILE", ".env")
	if err := godotenv.Overload(envFile); err != nil {
		log.Warn().Str("file", envFile).Msg("no env file found, using ambient environment")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}

	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MetricsAddr:      env("METRICS_ADDR", ""),
		DBPath:           env("DB_PATH", "data/rental_recon.db"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		MapsBase:         env("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
		MapsKey:          env("GOOGLE_MAPS_API_KEY", ""),
		GeoBase:          env("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		RangeDiscountPct: atoi("RANGE_DISCOUNT_PCT", 35),
		FallbackSpeedKmh: atof("FALLBACK_SPEED_KMH", 40),
		Workers:          atoi("RECOMPUTE_WORKERS", 4),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.MapsKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY is empty; estimates will use the distance fallback")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
