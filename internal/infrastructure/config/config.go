package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Engine   EngineConfig
	Identity IdentityConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

// IdentityConfig tunes the reference identity provider.
type IdentityConfig struct {
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=1h"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	// RequireConfirmation withholds the session on sign-up until the account
	// is confirmed.
	RequireConfirmation bool `env:"REQUIRE_CONFIRMATION, default=false"`
}

// EngineConfig carries the session engine's timing knobs. Defaults match
// the values the mobile app shipped with.
type EngineConfig struct {
	BootstrapTimeout     time.Duration `env:"BOOTSTRAP_TIMEOUT,      default=5s"`
	DebounceWindow       time.Duration `env:"EVENT_DEBOUNCE_WINDOW,  default=3s"`
	LoopGuardWindow      time.Duration `env:"LOOP_GUARD_WINDOW,      default=10s"`
	LoopGuardMaxEvents   int           `env:"LOOP_GUARD_MAX_EVENTS,  default=10"`
	ProfileLookupTimeout time.Duration `env:"PROFILE_LOOKUP_TIMEOUT, default=500ms"`
	RoleLookupTimeout    time.Duration `env:"ROLE_LOOKUP_TIMEOUT,    default=2s"`
	SignOutTimeout       time.Duration `env:"SIGNOUT_TIMEOUT,        default=2s"`
	ProfileCreateTimeout time.Duration `env:"PROFILE_CREATE_TIMEOUT, default=2s"`
	// AdminEmail seeds the bootstrap admin account. Leave empty in
	// production to disable the heuristic tier.
	AdminEmail string `env:"ADMIN_EMAIL, default=admin@carrent.com"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=carrent_auth"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
