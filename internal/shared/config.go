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
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string // mysql | memory
	MySQLDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret       string
	SessionTTL      time.Duration
	SignInPerMinute int

	CacheTTL      time.Duration
	SweepInterval time.Duration

	MailerBase string
	MailerKey  string
	MailerRPS  int

	CatalogFile    string
	CatalogWorkers int
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	seconds := func(k string, def int) time.Duration { return time.Duration(atoi(k, def)) * time.Second }

	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "info"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ""),
		StoreDriver:     env("STORE_DRIVER", "mysql"),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/staybook?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		JWTSecret:       env("JWT_SECRET", ""),
		SessionTTL:      seconds("SESSION_TTL_SECONDS", 7*24*3600),
		SignInPerMinute: atoi("SIGNIN_PER_MINUTE", 10),
		CacheTTL:        seconds("CACHE_TTL_SECONDS", 900),
		SweepInterval:   seconds("SWEEP_INTERVAL_SECONDS", 300),
		MailerBase:      env("MAILER_BASE_URL", ""),
		MailerKey:       env("MAILER_API_KEY", ""),
		MailerRPS:       atoi("MAILER_RPS", 5),
		CatalogFile:     env("CATALOG_FILE", "catalog.json"),
		CatalogWorkers:  atoi("CATALOG_WORKERS", 8),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	if c.MailerKey == "" {
		log.Warn().Msg("MAILER_API_KEY is empty, password reset emails will only be logged")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
