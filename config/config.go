package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/embld/contentcore/cache"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver   = errors.New("config: unknown store driver")
	ErrMissingStoreURL = errors.New("config: postgres driver requires store.url")
	ErrTTLOrder        = errors.New("config: cache.default_ttl exceeds cache.max_ttl")
	ErrNoVerifier      = errors.New("config: auth.jwt_secret or auth.jwks_url is required")
	ErrMissingAddr     = errors.New("config: http.addr is required")
)

// Config aggregates configuration for the service.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Observe ObserveConfig `mapstructure:"observe"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
	// Migrate applies embedded migrations on startup.
	Migrate bool `mapstructure:"migrate"`
	// RetryAttempts bounds read retries on transient errors.
	RetryAttempts int           `mapstructure:"retry_attempts"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// BreakerThreshold consecutive backend failures stop store calls for
	// BreakerCooldown.
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// CacheConfig mirrors cache.Policy. FetchTimeout bounds a shared cache fill.
type CacheConfig struct {
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	MaxTTL       time.Duration `mapstructure:"max_ttl"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// Policy returns the cache policy for c.
func (c CacheConfig) Policy() cache.Policy {
	return cache.Policy{DefaultTTL: c.DefaultTTL, MaxTTL: c.MaxTTL}
}

// AuthConfig configures session token verification. JWTSecret selects HMAC
// verification; JWKSURL selects RSA keys fetched from a key set. JWKSURL wins
// when both are set.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWKSURL   string        `mapstructure:"jwks_url"`
	Issuer    string        `mapstructure:"issuer"`
	Audience  string        `mapstructure:"audience"`
	Leeway    time.Duration `mapstructure:"leeway"`
	// AdminTable and AdminColumn locate the administrator flag.
	AdminTable  string `mapstructure:"admin_table"`
	AdminColumn string `mapstructure:"admin_column"`
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	ServiceName     string  `mapstructure:"service_name"`
	LogLevel        string  `mapstructure:"log_level"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplePct       float64 `mapstructure:"sample_pct"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	policy := cache.DefaultPolicy()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:        DriverMemory,
			RetryAttempts:    3,
			Timeout:          5 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  10 * time.Second,
		},
		Cache: CacheConfig{
			DefaultTTL:   policy.DefaultTTL,
			MaxTTL:       policy.MaxTTL,
			FetchTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			Leeway:      5 * time.Second,
			AdminTable:  "users",
			AdminColumn: "is_admin",
		},
		Observe: ObserveConfig{
			ServiceName:     "contentcore",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1,
			MetricsExporter: "prometheus",
		},
	}
}

// Load reads configuration from config.yaml and the environment, resolves
// secret references and validates the result.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, ".", NewSecretResolver(EnvProvider{}, FileProvider{}))
}

func load(ctx context.Context, dir string, secrets *SecretResolver) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("CONTENTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	var err error
	if cfg.Auth.JWTSecret, err = secrets.Resolve(ctx, cfg.Auth.JWTSecret); err != nil {
		return nil, fmt.Errorf("config: auth.jwt_secret: %w", err)
	}
	if cfg.Store.URL, err = secrets.Resolve(ctx, cfg.Store.URL); err != nil {
		return nil, fmt.Errorf("config: store.url: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return ErrMissingAddr
	}
	if !slices.Contains([]string{DriverMemory, DriverPostgres}, c.Store.Driver) {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}
	if c.Store.Driver == DriverPostgres && c.Store.URL == "" {
		return ErrMissingStoreURL
	}
	if c.Cache.MaxTTL > 0 && c.Cache.DefaultTTL > c.Cache.MaxTTL {
		return fmt.Errorf("%w: %s > %s", ErrTTLOrder, c.Cache.DefaultTTL, c.Cache.MaxTTL)
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		return ErrNoVerifier
	}
	return nil
}

// bindEnvs registers every leaf key of cfg so viper consults the matching
// environment variable during Unmarshal.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := range typ.NumField() {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(slices.Clone(parts), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
