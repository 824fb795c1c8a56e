package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aussiebroadwan/webauth/pkg/httpx"
)

// Store drivers.
const (
	StoreMemory  = "memory"
	StoreSQLite  = "sqlite"
	StoreFile    = "file"
	StoreKeyring = "keyring"
)

// Surface modes.
const (
	// SurfaceBrowser opens visible flows in the system browser and runs
	// hidden flows headless.
	SurfaceBrowser = "browser"
	// SurfaceHeadless only supports hidden flows.
	SurfaceHeadless = "headless"
)

type Config struct {
	Env       string `env:"WEBAUTH_ENV"        envDefault:"dev"`
	LogLevel  string `env:"WEBAUTH_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"WEBAUTH_LOG_FORMAT" envDefault:"json"`

	Addr                string        `env:"WEBAUTH_ADDR"                  envDefault:"127.0.0.1:8080"`
	ShutdownGracePeriod time.Duration `env:"WEBAUTH_SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// BridgeToken, when set, must be presented as a bearer token on the
	// token operations
	BridgeToken string `env:"WEBAUTH_BRIDGE_TOKEN"`

	Store          string `env:"WEBAUTH_STORE"           envDefault:"memory"`
	DatabaseFile   string `env:"WEBAUTH_DATABASE_FILE"   envDefault:"webauth.db"`
	TokenFile      string `env:"WEBAUTH_TOKEN_FILE"      envDefault:"webauth-tokens.json"`
	KeyringService string `env:"WEBAUTH_KEYRING_SERVICE" envDefault:"webauth"`

	// MasterKey or MasterKeyPath seal persisted tokens. With neither, the
	// keyring driver keeps its key in the keychain and the other drivers use
	// an ephemeral key.
	MasterKey     string `env:"WEBAUTH_MASTER_KEY"`
	MasterKeyPath string `env:"WEBAUTH_MASTER_KEY_PATH"`

	Surface               string        `env:"WEBAUTH_SURFACE"                 envDefault:"browser"`
	NonInteractiveTimeout time.Duration `env:"WEBAUTH_NON_INTERACTIVE_TIMEOUT" envDefault:"1s"`
	HousekeepingInterval  time.Duration `env:"WEBAUTH_HOUSEKEEPING_INTERVAL"   envDefault:"1h"`

	RateLimitRequests int           `env:"WEBAUTH_RATELIMIT_REQUESTS" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"WEBAUTH_RATELIMIT_WINDOW"   envDefault:"1m"`
	RateLimitBurst    int           `env:"WEBAUTH_RATELIMIT_BURST"    envDefault:"20"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreMemory, StoreSQLite, StoreFile, StoreKeyring:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.Surface {
	case SurfaceBrowser, SurfaceHeadless:
	default:
		errs = append(errs, fmt.Errorf("unknown surface %q", c.Surface))
	}
	if c.Store == StoreSQLite && c.DatabaseFile == "" {
		errs = append(errs, errors.New("sqlite store needs a database file"))
	}
	if c.Store == StoreFile && c.TokenFile == "" {
		errs = append(errs, errors.New("file store needs a token file"))
	}
	if c.NonInteractiveTimeout <= 0 {
		errs = append(errs, errors.New("non-interactive timeout must be positive"))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// TokenLimit is the rate limit applied to the token operations.
func (c Config) TokenLimit() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		RequestsPerWindow: c.RateLimitRequests,
		Window:            c.RateLimitWindow,
		Burst:             c.RateLimitBurst,
	}
}
