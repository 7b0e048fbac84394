// Package config loads the process-wide relay configuration.
//
// Values come from the environment, optionally seeded from a .env file in the
// working directory. The resulting Config is immutable and passed explicitly
// to every component that needs it; nothing reads the environment after
// startup.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Zoom     ZoomConfig
	Attendee AttendeeConfig
	Session  SessionConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int `env:"PORT" envDefault:"5005"`
}

type ZoomConfig struct {
	ClientID     string `env:"ZOOM_CLIENT_ID"`
	ClientSecret string `env:"ZOOM_CLIENT_SECRET"`
	// RedirectURI is the externally visible callback URL registered with
	// Zoom. When empty it is derived from the listening port.
	RedirectURI string `env:"REDIRECT_URI"`
}

type AttendeeConfig struct {
	APIKey  string `env:"ATTENDEE_API_KEY"`
	BaseURL string `env:"ATTENDEE_API_URL" envDefault:"https://app.attendee.dev"`
	// Capability flags forwarded verbatim on the connection-create call.
	LocalRecordingTokenSupported bool `env:"IS_LOCAL_RECORDING_TOKEN_SUPPORTED" envDefault:"false"`
	OnbehalfTokenSupported       bool `env:"IS_ONBEHALF_TOKEN_SUPPORTED" envDefault:"false"`
}

type SessionConfig struct {
	Secret string `env:"SESSION_SECRET"`
}

type StorageConfig struct {
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// DefaultSessionSecret is used when SESSION_SECRET is unset. Serve logs a
// warning when it is in effect; never deploy with it.
const DefaultSessionSecret = "dev-session-secret-change-in-production"

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	for _, section := range []any{
		&cfg.Server, &cfg.Zoom, &cfg.Attendee,
		&cfg.Session, &cfg.Storage, &cfg.Log,
	} {
		if err := env.Parse(section); err != nil {
			return Config{}, fmt.Errorf("parsing environment: %w", err)
		}
	}

	if cfg.Zoom.RedirectURI == "" {
		cfg.Zoom.RedirectURI = fmt.Sprintf("http://localhost:%d/zoom_oauth_callback", cfg.Server.Port)
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = DefaultSessionSecret
	}
	cfg.Attendee.BaseURL = strings.TrimRight(cfg.Attendee.BaseURL, "/")

	var missing []string
	if cfg.Zoom.ClientID == "" {
		missing = append(missing, "ZOOM_CLIENT_ID")
	}
	if cfg.Zoom.ClientSecret == "" {
		missing = append(missing, "ZOOM_CLIENT_SECRET")
	}
	if cfg.Attendee.APIKey == "" {
		missing = append(missing, "ATTENDEE_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required config: %s (set via environment or .env)", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// UsingDefaultSessionSecret reports whether the insecure development secret
// is in effect.
func (c Config) UsingDefaultSessionSecret() bool {
	return c.Session.Secret == DefaultSessionSecret
}
