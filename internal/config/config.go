package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	appenv "github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/env"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port         string             `env:"PORT" envDefault:"8080"`
	Env          appenv.Environment `env:"ENV" envDefault:"development"`
	BaseURL      string             `env:"BASE_URL,required"`
	MaxBodyBytes int64              `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	Database     Database           `envPrefix:"DATABASE_"`
	Redis        Redis              `envPrefix:"REDIS_"`
	Salla        Salla              `envPrefix:"SALLA_"`
	FunnerLife   FunnerLife         `envPrefix:"FUNNERLIFE_"`
	Fulfillment  Fulfillment        `envPrefix:"FULFILLMENT_"`
	Catalog      Catalog            `envPrefix:"CATALOG_"`
	Admin        Admin              `envPrefix:"ADMIN_"`
	RateLimit    RateLimit          `envPrefix:"RATE_"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"postgres"`
	URL    string `env:"URL,required"`
}

// Redis is optional. Without a URL the server keeps its rate limits and
// catalog cache in process, and ctl catalog sync has no cache to clear.
type Redis struct {
	URL string `env:"URL"`
}

type Salla struct {
	ClientID         string        `env:"CLIENT_ID"`
	ClientSecret     string        `env:"CLIENT_SECRET"`
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	RequireSignature bool          `env:"REQUIRE_SIGNATURE" envDefault:"true"`
	APIBaseURL       string        `env:"API_BASE_URL" envDefault:"https://api.salla.dev/admin/v2/"`
	TokenURL         string        `env:"TOKEN_URL" envDefault:"https://accounts.salla.sa/oauth2/token"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type FunnerLife struct {
	APIBaseURL   string        `env:"API_BASE,required"`
	APIKey       string        `env:"API_KEY,required"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
	CallbackPath string        `env:"CALLBACK_PATH" envDefault:"/api/funnerlife/callback"`
}

type Fulfillment struct {
	PayableStatuses []string `env:"PAYABLE_STATUSES" envDefault:"paid,processing,under_review"`
	ZoneCategories  []string `env:"ZONE_CATEGORIES" envDefault:"Mobile Legends"`
	Concurrency     int      `env:"CONCURRENCY" envDefault:"4"`
}

type Catalog struct {
	TTL               time.Duration `env:"TTL" envDefault:"120h"`
	CacheTTL          time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	AllowedCategories []string      `env:"ALLOWED_CATEGORIES" envDefault:"Free Fire,Mobile Legends,PUBG Mobile,Roblox,Honor of Kings,Marvel Rivals"`
}

type Admin struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER"`
}

type RateLimit struct {
	Limit float64 `env:"LIMIT" envDefault:"10"`
	Burst int     `env:"BURST" envDefault:"20"`
}

// CallbackURL is the absolute URL FunnerLife posts transaction updates to.
func (c Config) CallbackURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.FunnerLife.CallbackPath, "/")
}

func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver))
	}
	if c.Salla.RequireSignature && c.Salla.WebhookSecret == "" {
		errs = append(errs, errors.New("SALLA_WEBHOOK_SECRET is required when SALLA_REQUIRE_SIGNATURE is true"))
	}
	if c.Fulfillment.Concurrency < 1 {
		errs = append(errs, errors.New("FULFILLMENT_CONCURRENCY must be at least 1"))
	}
	if c.Env.IsProduction() && c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("ADMIN_JWT_SECRET is required in production"))
	}
	return errors.Join(errs...)
}

func Read() (Config, error) {
	return parse(env.Options{})
}

// ReadFrom parses configuration from the given variables instead of the
// process environment.
func ReadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
