package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries all process configuration. The auth secret is required:
// without it the service must not start, since every access token it would
// mint or verify depends on it.
type Config struct {
	Server struct {
		Addr         string        `envconfig:"SERVER_ADDR" default:":8080"`
		ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
		IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	}
	Database struct {
		DSN             string        `envconfig:"PG_DSN"`
		MaxOpenConns    int           `envconfig:"PG_MAX_OPEN_CONNS" default:"50"`
		MaxIdleConns    int           `envconfig:"PG_MAX_IDLE_CONNS" default:"25"`
		ConnMaxLifetime time.Duration `envconfig:"PG_CONN_MAX_LIFETIME" default:"15m"`
		ConnMaxIdleTime time.Duration `envconfig:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	}
	Auth struct {
		Secret     string        `envconfig:"AUTH_SECRET" required:"true"`
		Issuer     string        `envconfig:"AUTH_ISSUER" default:"plantita"`
		AccessTTL  time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"30m"`
		RefreshTTL time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"168h"`
	}
	HTTP struct {
		MaxBodyBytes   int64    `envconfig:"HTTP_MAX_BODY_BYTES" default:"1048576"`
		RateLimitRPS   int      `envconfig:"HTTP_RATE_LIMIT_RPS" default:"20"`
		RateLimitBurst int      `envconfig:"HTTP_RATE_LIMIT_BURST" default:"40"`
		CORSOrigins    []string `envconfig:"HTTP_CORS_ORIGINS"`
	}
}

// Load reads configuration from the environment, after sourcing an optional
// .env file for local development.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments configure the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PLANTITA", &cfg); err != nil {
		return nil, fmt.Errorf("process config: %w", err)
	}
	return &cfg, nil
}
