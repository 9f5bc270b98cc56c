package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth      AuthConfig
	Store     StoreConfig
	Mongo     MongoConfig
	SQL       SQLConfig
	Broadcast BroadcastConfig
	Redis     RedisConfig
	NATS      NATSConfig
}

type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET, required"`
	JWTTTL           time.Duration `env:"JWT_TTL,    default=24h"`
	JWTIssuer        string        `env:"JWT_ISSUER, default=coordinates-registry"`
	AllowAdminSignup bool          `env:"AUTH_ALLOW_ADMIN_SIGNUP, default=false"`
	// RateLimit is the per-client request rate allowed on /auth routes, per second.
	RateLimit float64 `env:"AUTH_RATE_LIMIT, default=5"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"` // mongo | postgres | sqlite
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=coordinates_registry"`
}

type SQLConfig struct {
	DSN string `env:"SQL_DSN, default=file:coordinates.db?_foreign_keys=on"`
}

type BroadcastConfig struct {
	Driver  string `env:"BROADCAST_DRIVER,  default=local"` // local | redis | nats
	Workers int    `env:"BROADCAST_WORKERS, default=2"`
	Buffer  int    `env:"BROADCAST_BUFFER,  default=256"`
	Channel string `env:"BROADCAST_CHANNEL, default=coordinates.changes"`
}

type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR,         default=localhost:6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE,    default=10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT, default=5s"`
}

type NATSConfig struct {
	URL string `env:"NATS_URL, default=nats://localhost:4222"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from l and checks the enumerated settings.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "mongo", "postgres", "sqlite":
	default:
		return fmt.Errorf("STORE_DRIVER: unsupported value %q", c.Store.Driver)
	}
	switch c.Broadcast.Driver {
	case "local", "redis", "nats":
	default:
		return fmt.Errorf("BROADCAST_DRIVER: unsupported value %q", c.Broadcast.Driver)
	}
	return nil
}
