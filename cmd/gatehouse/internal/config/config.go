package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable (GATEHOUSE_DATABASE_URL).
const EnvPrefix = "GATEHOUSE"

// Environment names with special handling.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the application configuration
type Config struct {
	ServiceName string
	Version     string
	// Environment is development, staging or production. Development exposes
	// internal error details in responses.
	Environment string

	// Server bind address (host:port)
	ServerAddr string

	// Database connection string (DSN)
	DatabaseURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	CORS            CORSConfig
	SecurityHeaders bool
	RequestTracking bool

	Worker        WorkerConfig
	Session       SessionConfig
	Membership    MembershipConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// CORSConfig controls cross-origin handling.
type CORSConfig struct {
	Enabled        bool
	AllowedOrigins []string
}

// WorkerConfig holds the shared secret trusted for service-to-service calls.
// An empty Secret disables worker trust entirely.
type WorkerConfig struct {
	Secret string
	Issuer string
}

// SessionConfig names the session cookie.
type SessionConfig struct {
	CookieName string
}

// MembershipConfig bounds organization membership lookups. Zero values mean
// "inherit the request deadline" and "no cache".
type MembershipConfig struct {
	LookupTimeout time.Duration
	CacheTTL      time.Duration
	CacheSize     int
}

// RateLimitConfig holds per-preset request limits for one window.
type RateLimitConfig struct {
	// RedisAddr selects the Redis counter store; empty uses process memory.
	RedisAddr string
	Window    time.Duration
	Presets   map[string]int
}

// ObservabilityConfig holds OpenTelemetry exporter settings.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// IsDevelopment reports whether internal error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProduction reports whether production-only validation applies.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// DefaultRateLimitPresets are the per-window limits applied when none are configured.
func DefaultRateLimitPresets() map[string]int {
	return map[string]int{
		"web":     300,
		"api":     120,
		"auth":    10,
		"webhook": 1000,
	}
}

// SetDefaults registers every key with viper so environment variables are
// recognized for nested keys too.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "gatehouse")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("database_url", "")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("security_headers.enabled", true)
	v.SetDefault("request_tracking.enabled", true)

	v.SetDefault("worker.secret", "")
	v.SetDefault("worker.issuer", "gatehouse-worker")
	v.SetDefault("session.cookie_name", "gatehouse.session")

	v.SetDefault("membership.lookup_timeout", time.Duration(0))
	v.SetDefault("membership.cache_ttl", time.Duration(0))
	v.SetDefault("membership.cache_size", 1024)

	v.SetDefault("rate_limit.redis_addr", "")
	v.SetDefault("rate_limit.window", time.Minute)
	for name, limit := range DefaultRateLimitPresets() {
		v.SetDefault("rate_limit.presets."+name, limit)
	}

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_insecure", false)
}

// Load reads configuration from the global viper instance: flags and config
// file bound by the CLI, then GATEHOUSE_* environment variables, then defaults.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	origins, err := stringSlice(v.Get("cors.allowed_origins"))
	if err != nil {
		return nil, fmt.Errorf("cors.allowed_origins: %w", err)
	}
	presets, err := rateLimitPresets(v)
	if err != nil {
		return nil, err
	}

	// Nested keys are read with explicit Get calls: Unmarshal does not see
	// environment overrides for keys missing from the config file.
	cfg := &Config{
		ServiceName:      v.GetString("service_name"),
		Version:          v.GetString("version"),
		Environment:      strings.ToLower(v.GetString("environment")),
		ServerAddr:       v.GetString("server_addr"),
		DatabaseURL:      v.GetString("database_url"),
		MaxDBConnections: v.GetInt("max_db_connections"),
		Debug:            v.GetBool("debug"),
		CORS: CORSConfig{
			Enabled:        v.GetBool("cors.enabled"),
			AllowedOrigins: origins,
		},
		SecurityHeaders: v.GetBool("security_headers.enabled"),
		RequestTracking: v.GetBool("request_tracking.enabled"),
		Worker: WorkerConfig{
			Secret: v.GetString("worker.secret"),
			Issuer: v.GetString("worker.issuer"),
		},
		Session: SessionConfig{
			CookieName: v.GetString("session.cookie_name"),
		},
		Membership: MembershipConfig{
			LookupTimeout: v.GetDuration("membership.lookup_timeout"),
			CacheTTL:      v.GetDuration("membership.cache_ttl"),
			CacheSize:     v.GetInt("membership.cache_size"),
		},
		RateLimit: RateLimitConfig{
			RedisAddr: v.GetString("rate_limit.redis_addr"),
			Window:    v.GetDuration("rate_limit.window"),
			Presets:   presets,
		},
	}
	cfg.Observability = ObservabilityConfig{
		OTLPEndpoint:   v.GetString("observability.otlp_endpoint"),
		OTLPInsecure:   v.GetBool("observability.otlp_insecure"),
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and production-only constraints.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.membershipNegative() {
		return fmt.Errorf("membership.lookup_timeout and membership.cache_ttl must not be negative")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	for name, limit := range c.RateLimit.Presets {
		if limit <= 0 {
			return fmt.Errorf("rate_limit.presets.%s must be positive", name)
		}
	}
	if c.IsProduction() {
		if c.Worker.Secret == "" {
			return fmt.Errorf("worker.secret is required in production")
		}
		for _, o := range c.CORS.AllowedOrigins {
			if o == "*" {
				return fmt.Errorf("cors.allowed_origins must not contain \"*\" in production")
			}
		}
	}
	return nil
}

// membershipNegative reports a negative timeout or TTL.
func (c *Config) membershipNegative() bool {
	return c.Membership.LookupTimeout < 0 || c.Membership.CacheTTL < 0
}

// PresetNames returns the configured rate limit preset names, sorted.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.RateLimit.Presets))
	for name := range c.RateLimit.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func rateLimitPresets(v *viper.Viper) (map[string]int, error) {
	names := make(map[string]struct{})
	for name := range DefaultRateLimitPresets() {
		names[name] = struct{}{}
	}
	for name := range v.GetStringMap("rate_limit.presets") {
		names[name] = struct{}{}
	}

	out := make(map[string]int, len(names))
	for name := range names {
		var limit int
		if err := mapstructure.WeakDecode(v.Get("rate_limit.presets."+name), &limit); err != nil {
			return nil, fmt.Errorf("rate_limit.presets.%s: %w", name, err)
		}
		out[name] = limit
	}
	return out, nil
}

// stringSlice decodes a list from YAML or a comma-separated env value.
func stringSlice(raw any) ([]string, error) {
	var out []string
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	cleaned := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned, nil
}
