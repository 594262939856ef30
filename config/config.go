// Package config loads and validates app config from env and an optional
// .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kpgate/kpgate/security"
)

// Timeout bounds enforced on the two expiry clocks, in seconds.
const (
	minTimeoutSeconds = 300   // 5 minutes
	maxTimeoutSeconds = 86400 // 24 hours
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// ListenAddr is the address the HTTP server listens on (e.g. :8000).
	ListenAddr string `mapstructure:"KPGATE_LISTEN_ADDR"`
	// SecretKey signs tokens and derives the password-envelope key. Must be
	// at least 32 characters; rotating it invalidates all sessions.
	SecretKey string `mapstructure:"KPGATE_SECRET_KEY"`
	// SessionTimeoutSecs is how long a session lives without a refresh.
	SessionTimeoutSecs int `mapstructure:"KPGATE_SESSION_TIMEOUT"`
	// MaxPasswordAgeSecs bounds how long a password envelope may still be
	// opened, independent of session liveness. Typically <= session timeout.
	MaxPasswordAgeSecs int `mapstructure:"KPGATE_MAX_PASSWORD_AGE"`

	// CLIPath locates the keepassxc-cli executable.
	CLIPath string `mapstructure:"KPGATE_KEEPASSXC_CLI_PATH"`
	// CommandTimeoutSecs is the hard wall-clock budget per CLI invocation.
	CommandTimeoutSecs int `mapstructure:"KPGATE_KEEPASSXC_COMMAND_TIMEOUT"`

	// CacheBackend selects "memory" or "redis".
	CacheBackend string `mapstructure:"KPGATE_CACHE_BACKEND"`
	// RedisURL is the redis:// connection URL when CacheBackend is redis.
	RedisURL string `mapstructure:"KPGATE_REDIS_URL"`
	// CacheKeyPrefix namespaces keys on a shared Redis.
	CacheKeyPrefix string `mapstructure:"KPGATE_CACHE_KEY_PREFIX"`

	// LoginRateLimit / LoginRateWindowSecs bound login attempts per client.
	LoginRateLimit      int `mapstructure:"KPGATE_LOGIN_RATE_LIMIT"`
	LoginRateWindowSecs int `mapstructure:"KPGATE_LOGIN_RATE_WINDOW"`
	// APIRateLimit / APIRateWindowSecs bound general API calls per client.
	APIRateLimit      int `mapstructure:"KPGATE_API_RATE_LIMIT"`
	APIRateWindowSecs int `mapstructure:"KPGATE_API_RATE_WINDOW"`

	// CORSOrigins is a comma-separated allowlist of browser origins.
	CORSOrigins string `mapstructure:"KPGATE_CORS_ORIGINS"`
	// TrustedProxies is a comma-separated list of CIDR ranges (or bare
	// addresses) whose proxy headers are believed when resolving the client
	// IP. Empty means no proxy headers are ever trusted.
	TrustedProxies string `mapstructure:"KPGATE_TRUSTED_PROXIES"`
	// CleanupIntervalSecs is how often the expired-session sweeper runs.
	CleanupIntervalSecs int `mapstructure:"KPGATE_CLEANUP_INTERVAL"`
	// AuditDBPath enables the persistent audit trail when non-empty. Only
	// non-sensitive event records are ever written there.
	AuditDBPath string `mapstructure:"KPGATE_AUDIT_DB_PATH"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `mapstructure:"KPGATE_LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env. Invalid config is fatal at startup.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	v.AutomaticEnv()

	v.SetDefault("KPGATE_LISTEN_ADDR", ":8000")
	v.SetDefault("KPGATE_SECRET_KEY", "")
	v.SetDefault("KPGATE_SESSION_TIMEOUT", 1800)
	v.SetDefault("KPGATE_MAX_PASSWORD_AGE", 3600)
	v.SetDefault("KPGATE_KEEPASSXC_CLI_PATH", "keepassxc-cli")
	v.SetDefault("KPGATE_KEEPASSXC_COMMAND_TIMEOUT", 30)
	v.SetDefault("KPGATE_CACHE_BACKEND", "memory")
	v.SetDefault("KPGATE_REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("KPGATE_CACHE_KEY_PREFIX", "kpgate:")
	v.SetDefault("KPGATE_LOGIN_RATE_LIMIT", 5)
	v.SetDefault("KPGATE_LOGIN_RATE_WINDOW", 60)
	v.SetDefault("KPGATE_API_RATE_LIMIT", 100)
	v.SetDefault("KPGATE_API_RATE_WINDOW", 60)
	v.SetDefault("KPGATE_CORS_ORIGINS", "")
	v.SetDefault("KPGATE_TRUSTED_PROXIES", "")
	v.SetDefault("KPGATE_CLEANUP_INTERVAL", 300)
	v.SetDefault("KPGATE_AUDIT_DB_PATH", "")
	v.SetDefault("KPGATE_LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the construction-time preconditions.
func (c *Config) Validate() error {
	if len(c.SecretKey) < security.MinSecretLength {
		return fmt.Errorf("config: KPGATE_SECRET_KEY must be at least %d characters (run `kpgate genkey`)", security.MinSecretLength)
	}
	if c.SessionTimeoutSecs < minTimeoutSeconds || c.SessionTimeoutSecs > maxTimeoutSeconds {
		return fmt.Errorf("config: KPGATE_SESSION_TIMEOUT must be within [%d, %d] seconds", minTimeoutSeconds, maxTimeoutSeconds)
	}
	if c.MaxPasswordAgeSecs < minTimeoutSeconds || c.MaxPasswordAgeSecs > maxTimeoutSeconds {
		return fmt.Errorf("config: KPGATE_MAX_PASSWORD_AGE must be within [%d, %d] seconds", minTimeoutSeconds, maxTimeoutSeconds)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: KPGATE_CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend)
	}
	if c.CacheBackend == "redis" && c.RedisURL == "" {
		return errors.New("config: KPGATE_REDIS_URL must be set when the cache backend is redis")
	}
	if c.LoginRateLimit <= 0 || c.APIRateLimit <= 0 {
		return errors.New("config: rate limits must be positive")
	}
	if c.LoginRateWindowSecs <= 0 || c.APIRateWindowSecs <= 0 {
		return errors.New("config: rate-limit windows must be positive")
	}
	if c.CommandTimeoutSecs <= 0 {
		return errors.New("config: KPGATE_KEEPASSXC_COMMAND_TIMEOUT must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// SessionTimeout returns the session timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSecs) * time.Second
}

// MaxPasswordAge returns the envelope freshness window as a duration.
func (c *Config) MaxPasswordAge() time.Duration {
	return time.Duration(c.MaxPasswordAgeSecs) * time.Second
}

// CommandTimeout returns the per-CLI-command budget as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSecs) * time.Second
}

// CleanupInterval returns the sweeper cadence as a duration.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSecs) * time.Second
}

// LoginRateWindow returns the login rate-limit window as a duration.
func (c *Config) LoginRateWindow() time.Duration {
	return time.Duration(c.LoginRateWindowSecs) * time.Second
}

// APIRateWindow returns the general rate-limit window as a duration.
func (c *Config) APIRateWindow() time.Duration {
	return time.Duration(c.APIRateWindowSecs) * time.Second
}

// TrustedProxyPrefixes parses the trusted-proxy list into CIDR prefixes.
// A bare address is treated as a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	if c.TrustedProxies == "" {
		return nil, nil
	}
	parts := strings.Split(c.TrustedProxies, ",")
	prefixes := make([]netip.Prefix, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			addr, err := netip.ParseAddr(s)
			if err != nil {
				return nil, fmt.Errorf("config: invalid trusted proxy %q in KPGATE_TRUSTED_PROXIES", s)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("config: invalid trusted proxy %q in KPGATE_TRUSTED_PROXIES", s)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

// CORSOriginList splits the comma-separated origin allowlist.
func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
