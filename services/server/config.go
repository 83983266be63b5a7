package server

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration, loaded from the environment. The
// object-store settings live in pkg/s3 and are read separately.
type Config struct {
	Addr        string `env:"POSD_ADDR, default=:8080"`
	DatabaseURL string `env:"DATABASE_URL, required"`
	NATSURL     string `env:"NATS_URL"`

	JWTKey string        `env:"POSD_JWT_KEY, required"`
	JWTTTL time.Duration `env:"POSD_JWT_TTL, default=8h"`

	UndoWindow  time.Duration `env:"POSD_UNDO_WINDOW, default=30m"`
	MaxPageSize int           `env:"POSD_MAX_PAGE_SIZE, default=100"`

	CacheCapacity int           `env:"POSD_CACHE_CAPACITY, default=4096"`
	CacheTTL      time.Duration `env:"POSD_CACHE_TTL, default=30s"`

	CORSOrigins    []string      `env:"POSD_CORS_ORIGINS, default=*"`
	RequestTimeout time.Duration `env:"POSD_REQUEST_TIMEOUT, default=30s"`
	RateLimit      int           `env:"POSD_RATE_LIMIT, default=120"`

	S3Bucket     string `env:"POSD_S3_BUCKET"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	ShutdownGrace time.Duration `env:"POSD_SHUTDOWN_GRACE, default=15s"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.UndoWindow <= 0 {
		return errors.New("POSD_UNDO_WINDOW must be positive")
	}
	if c.MaxPageSize <= 0 {
		return errors.New("POSD_MAX_PAGE_SIZE must be positive")
	}
	if c.RateLimit <= 0 {
		return errors.New("POSD_RATE_LIMIT must be positive")
	}
	return nil
}
