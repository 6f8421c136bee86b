// Package config loads the application configuration. Values come from an
// optional TOML file named by CONFIG_FILE, then from the environment (a .env
// file is loaded first when present); environment variables win.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	log "github.com/sirupsen/logrus"

	"Tune-Rater-Go/pkg/db"
	"Tune-Rater-Go/pkg/session"
)

const devSessionSecret = "dev-secret-not-for-production"

// Config represents a complete configuration
type Config struct {
	Port        string              `toml:"port"`
	Environment string              `toml:"environment"`
	FrontendURL string              `toml:"frontend_url"`
	Origins     string              `toml:"allowed_origins"`
	Spotify     SpotifyConfig       `toml:"spotify"`
	Session     SessionConfig       `toml:"session"`
	Database    DatabaseConfig      `toml:"database"`
	Redis       session.RedisConfig `toml:"redis"`
	Log         LogConfig           `toml:"log"`
	// LoginRateLimit is the number of token exchanges allowed per client IP
	// and minute.
	LoginRateLimit int `toml:"login_rate_limit"`
	// TrustProxy makes the server take client IPs from forwarding headers.
	TrustProxy bool `toml:"trust_proxy"`
}

// SpotifyConfig holds the OAuth client registration.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret string `toml:"secret"`
	// TTL is a Go duration string such as "24h".
	TTL string `toml:"ttl"`
}

// DatabaseConfig selects the feedback database.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
}

// LogConfig represents a configuration for the global logger
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads the configuration and applies defaults. It does not validate;
// call Validate before using the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}

	c := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(f, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	override(&c.Port, "PORT")
	override(&c.Environment, "ENVIRONMENT")
	override(&c.FrontendURL, "FRONTEND_URL")
	override(&c.Origins, "ALLOWED_ORIGINS")
	override(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	override(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	override(&c.Spotify.RedirectURL, "SPOTIFY_REDIRECT_URL")
	override(&c.Session.Secret, "SESSION_SECRET")
	override(&c.Session.TTL, "SESSION_TTL")
	override(&c.Database.Driver, "DATABASE_DRIVER")
	override(&c.Database.URL, "DATABASE_URL")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Username, "REDIS_USERNAME")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Log.Level, "LOG_LEVEL")
	override(&c.Log.Format, "LOG_FORMAT")
	if err := overrideInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		return nil, err
	}
	if err := overrideInt(&c.LoginRateLimit, "LOGIN_RATE_LIMIT"); err != nil {
		return nil, err
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUST_PROXY: %w", err)
		}
		c.TrustProxy = b
	}

	c.setDefaults()
	return c, nil
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func (c *Config) setDefaults() {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	def(&c.Port, "8080")
	def(&c.Environment, "development")
	def(&c.FrontendURL, "http://localhost:5173/")
	def(&c.Spotify.RedirectURL, "http://127.0.0.1:5173/")
	def(&c.Session.TTL, "24h")
	def(&c.Database.Driver, db.SQLite)
	def(&c.Database.URL, "tune-rater.db")
	def(&c.Log.Level, "info")
	def(&c.Log.Format, "text")
	if c.Origins == "" {
		if u, err := url.Parse(c.FrontendURL); err == nil && u.Host != "" {
			c.Origins = u.Scheme + "://" + u.Host
		}
	}
	if c.LoginRateLimit == 0 {
		c.LoginRateLimit = 10
	}
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set")
	}
	if c.Database.Driver != db.SQLite && c.Database.Driver != db.Postgres {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if ttl, err := time.ParseDuration(c.Session.TTL); err != nil || ttl <= 0 {
		return fmt.Errorf("invalid SESSION_TTL %q", c.Session.TTL)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.LoginRateLimit < 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must not be negative")
	}

	if c.IsProduction() {
		if c.Session.Secret == "" || c.Session.Secret == devSessionSecret {
			return fmt.Errorf("SESSION_SECRET must be set to a strong random value in production")
		}
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production (got %d)", len(c.Session.Secret))
		}
		if !strings.HasPrefix(c.FrontendURL, "https://") {
			log.Warn("FRONTEND_URL does not use HTTPS in production")
		}
	} else if c.Session.Secret == "" {
		c.Session.Secret = devSessionSecret
		log.Warn("using default SESSION_SECRET for development")
	}
	return nil
}

// SessionTTL returns the parsed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	ttl, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return ttl
}

// AllowedOrigins returns the origins allowed to make credentialed requests.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Origins, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// SecureCookies reports whether cookies must carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.IsProduction() || strings.HasPrefix(c.FrontendURL, "https://")
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// SetupLogger sets up the global logger configuration
func (c *Config) SetupLogger() {
	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.Debugf("log level set to %s", strings.ToUpper(level.String()))
	if level >= log.DebugLevel {
		log.SetReportCaller(true)
	}
}
