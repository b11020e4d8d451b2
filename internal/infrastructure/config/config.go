package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// LogComponentLevels overrides LOG_LEVEL per component, e.g. "realtime:debug,guard:warn".
	LogComponentLevels map[string]string `env:"LOG_COMPONENT_LEVELS"`
	// JWTSecret enables HS256 verification of access tokens when set; otherwise
	// only the exp claim is read.
	JWTSecret string `env:"JWT_SECRET"`
	// StaticDir holds the client bundle served under /static.
	StaticDir       string        `env:"STATIC_DIR"`
	Swagger         bool          `env:"SWAGGER_ENABLED,  default=true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	Backend  BackendConfig
	Realtime RealtimeConfig
	Session  SessionConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type BackendConfig struct {
	URL       string        `env:"BACKEND_URL,        default=http://localhost:3000/api"`
	Timeout   time.Duration `env:"BACKEND_TIMEOUT,    default=10s"`
	RateLimit float64       `env:"BACKEND_RATE_LIMIT, default=50"`
	Burst     int           `env:"BACKEND_BURST,      default=100"`
}

type RealtimeConfig struct {
	URL              string        `env:"REALTIME_URL,               default=ws://localhost:3001/ws"`
	MaxAttempts      int           `env:"REALTIME_MAX_ATTEMPTS,      default=5"`
	HandshakeTimeout time.Duration `env:"REALTIME_HANDSHAKE_TIMEOUT, default=10s"`
	Workers          int           `env:"REALTIME_WORKERS,           default=8"`
}

type SessionConfig struct {
	// IdleTTL closes session scopes without requests for this long.
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL,       default=30m"`
	EvictInterval time.Duration `env:"SESSION_EVICT_INTERVAL, default=1m"`
	// CookieSecure forces the Secure attribute even behind plain HTTP.
	CookieSecure     bool          `env:"COOKIE_SECURE,     default=false"`
	DashboardPath    string        `env:"DASHBOARD_PATH,    default=/dashboard"`
	DefaultLocale    string        `env:"DEFAULT_LOCALE,    default=en"`
	SupportedLocales []string      `env:"SUPPORTED_LOCALES, default=en,es,pt"`
	UserCacheTTL     time.Duration `env:"USER_CACHE_TTL, default=5m"`
	DraftTTL         time.Duration `env:"DRAFT_TTL,      default=720h"`
}

type MongoConfig struct {
	URI         string        `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string        `env:"MONGO_DB,            default=marketplace_web"`
	MaxPoolSize uint64        `env:"MONGO_MAX_POOL_SIZE, default=50"`
	Timeout     time.Duration `env:"MONGO_TIMEOUT,       default=10s"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	PoolSize int           `env:"REDIS_POOL_SIZE, default=20"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,   default=5s"`
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is applied first when present.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Session.DashboardPath, "/") {
		return fmt.Errorf("config: DASHBOARD_PATH %q must start with /", c.Session.DashboardPath)
	}
	if len(c.Session.SupportedLocales) == 0 {
		return errors.New("config: SUPPORTED_LOCALES must not be empty")
	}
	found := false
	for _, l := range c.Session.SupportedLocales {
		if l == c.Session.DefaultLocale {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: DEFAULT_LOCALE %q is not in SUPPORTED_LOCALES", c.Session.DefaultLocale)
	}
	return nil
}
