package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Session.Store != "memory" {
			t.Errorf("expected memory session store, got %s", config.Session.Store)
		}
		if config.Credentials.Spotify.AccountsURL != "https://accounts.spotify.com" {
			t.Errorf("unexpected accounts url %s", config.Credentials.Spotify.AccountsURL)
		}
		if config.Upstream.Timeout() != 10*time.Second {
			t.Errorf("expected 10s upstream timeout, got %v", config.Upstream.Timeout())
		}
		if config.Session.Lifetime() != 24*time.Hour {
			t.Errorf("expected 24h session lifetime, got %v", config.Session.Lifetime())
		}
		if config.Credentials.Spotify.DemoAvailable() {
			t.Error("demo mode should be unavailable without a service refresh token")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[server]
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("expected default redirect uri to survive partial file, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		config := DefaultConfig()
		err := config.ApplyEnv(envMap(map[string]string{
			"CLIENT_ID":             "env-id",
			"CLIENT_SECRET":         "env-secret",
			"REDIRECT_URI":          "http://example.com/callback",
			"SERVICE_REFRESH_TOKEN": "service-refresh",
			"SESSION_SECRET":        "s3cret",
			"PORT":                  "4000",
			"COOKIE_SECURE":         "true",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		spotify := config.Credentials.Spotify
		if spotify.ClientID != "env-id" || spotify.ClientSecret != "env-secret" {
			t.Errorf("expected credentials from env, got %+v", spotify)
		}
		if !spotify.DemoAvailable() {
			t.Error("expected demo mode to be available")
		}
		if config.Server.Port != 4000 {
			t.Errorf("expected port 4000, got %d", config.Server.Port)
		}
		if !config.Session.CookieSecure {
			t.Error("expected secure cookies")
		}
		if config.Session.Secret != "s3cret" {
			t.Errorf("expected session secret from env, got %s", config.Session.Secret)
		}
	})

	t.Run("ApplyEnv Invalid Values", func(t *testing.T) {
		tests := []struct {
			name string
			env  map[string]string
		}{
			{name: "non-numeric port", env: map[string]string{"PORT": "abc"}},
			{name: "port out of range", env: map[string]string{"PORT": "70000"}},
			{name: "bad cookie flag", env: map[string]string{"COOKIE_SECURE": "sometimes"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := DefaultConfig().ApplyEnv(envMap(tt.env))
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("missing credentials", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.RedirectURI = ""

			err := config.Validate()
			if !errors.Is(err, ErrMissingConfig) {
				t.Fatalf("expected ErrMissingConfig, got %v", err)
			}
			for _, name := range []string{"CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI"} {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("expected error to name %s, got %v", name, err)
				}
			}
		})

		t.Run("complete credentials", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"

			if err := config.Validate(); err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
		})

		t.Run("unknown session store", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"
			config.Session.Store = "redis"

			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("Redacted", func(t *testing.T) {
		config := DefaultConfig()
		config.Credentials.Spotify.ClientSecret = "abcdefghijkl"
		config.Credentials.Spotify.ServiceRefreshToken = "xyz"

		redacted := config.Redacted()
		if redacted.Credentials.Spotify.ClientSecret != "********ijkl" {
			t.Errorf("unexpected redaction %s", redacted.Credentials.Spotify.ClientSecret)
		}
		if redacted.Credentials.Spotify.ServiceRefreshToken != "****" {
			t.Errorf("unexpected redaction %s", redacted.Credentials.Spotify.ServiceRefreshToken)
		}
		if config.Credentials.Spotify.ClientSecret != "abcdefghijkl" {
			t.Error("redaction must not modify the original config")
		}
	})
}
