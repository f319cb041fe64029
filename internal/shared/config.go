package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig is the process-wide credential set used for every upstream exchange.
type SpotifyConfig struct {
	ClientID            string `toml:"client_id"`
	ClientSecret        string `toml:"client_secret"`
	RedirectURI         string `toml:"redirect_uri"`
	ServiceRefreshToken string `toml:"service_refresh_token"`
	AccountsURL         string `toml:"accounts_url"`
	APIURL              string `toml:"api_url"`
}

// DemoAvailable reports whether a service refresh token is configured.
func (s SpotifyConfig) DemoAvailable() bool {
	return s.ServiceRefreshToken != ""
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	StaticDir string `toml:"static_dir"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig contains HTTP session settings.
type SessionConfig struct {
	Store          string `toml:"store"`
	Secret         string `toml:"secret"`
	LifetimeHours  int    `toml:"lifetime_hours"`
	CookieSecure   bool   `toml:"cookie_secure"`
	CleanupMinutes int    `toml:"cleanup_minutes"`
}

// Lifetime returns the absolute session lifetime.
func (s SessionConfig) Lifetime() time.Duration {
	if s.LifetimeHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.LifetimeHours) * time.Hour
}

// CleanupInterval returns how often expired sessions are swept from persistent stores.
func (s SessionConfig) CleanupInterval() time.Duration {
	if s.CleanupMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.CleanupMinutes) * time.Minute
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// UpstreamConfig bounds calls to the Spotify Web API.
type UpstreamConfig struct {
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	SearchConcurrency int     `toml:"search_concurrency"`
}

// Timeout returns the per-request upstream timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	if u.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load resolves the effective configuration: embedded defaults, then the file at path when it exists, then the
// process environment.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with environment variables resolved through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("CLIENT_ID", &c.Credentials.Spotify.ClientID)
	str("CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	str("REDIRECT_URI", &c.Credentials.Spotify.RedirectURI)
	str("SERVICE_REFRESH_TOKEN", &c.Credentials.Spotify.ServiceRefreshToken)
	str("SESSION_SECRET", &c.Session.Secret)
	str("SESSION_STORE", &c.Session.Store)
	str("HOST", &c.Server.Host)
	str("STATIC_DIR", &c.Server.StaticDir)
	str("DATABASE_PATH", &c.Database.Path)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%w: PORT must be a valid port number, got %q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	if v, ok := lookup("COOKIE_SECURE"); ok && v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: COOKIE_SECURE must be a boolean, got %q", ErrInvalidConfig, v)
		}
		c.Session.CookieSecure = secure
	}

	return nil
}

// Validate checks that the credential set is complete. The server must refuse to start otherwise.
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "CLIENT_SECRET")
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		missing = append(missing, "REDIRECT_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	switch c.Session.Store {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("%w: unknown session store %q", ErrInvalidConfig, c.Session.Store)
	}

	return nil
}

// Redacted returns a copy of the config with secrets masked, safe for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Credentials.Spotify.ClientSecret = Redact(c.Credentials.Spotify.ClientSecret)
	out.Credentials.Spotify.ServiceRefreshToken = Redact(c.Credentials.Spotify.ServiceRefreshToken)
	out.Session.Secret = Redact(c.Session.Secret)
	return out
}

// Redact masks all but the last four characters of a secret.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
