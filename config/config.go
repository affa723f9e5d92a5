package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSessionSecret is the placeholder session secret; deployments with a password must change it.
const DefaultSessionSecret = "change-this-session-secret"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Health      HealthConfig      `mapstructure:"health"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig gates the HTTP API. An empty password hash disables the gate.
type AuthConfig struct {
	PasswordHash  string `mapstructure:"password_hash"` // bcrypt
	SessionSecret string `mapstructure:"session_secret"`
}

type SyncConfig struct {
	Interval     int    `mapstructure:"interval"`      // seconds between periodic syncs
	TriggerLimit int    `mapstructure:"trigger_limit"` // minimum seconds between on-demand syncs
	Timezone     string `mapstructure:"timezone"`      // IANA name, empty = system local
}

// HealthConfig selects the step source.
type HealthConfig struct {
	Provider  string `mapstructure:"provider"` // "none", "bridge" or "googlefit"
	BridgeURL string `mapstructure:"bridge_url"`
	Timeout   int    `mapstructure:"timeout"` // seconds

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRefreshToken string `mapstructure:"google_refresh_token"`
}

type LeaderboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
	Limit   int    `mapstructure:"limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// InsecureSecret reports a password-protected setup still signing sessions with the placeholder
// or an empty secret.
func (c AuthConfig) InsecureSecret() bool {
	return c.PasswordHash != "" && (c.SessionSecret == "" || c.SessionSecret == DefaultSessionSecret)
}

func (c SyncConfig) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c SyncConfig) TriggerLimitDuration() time.Duration {
	return time.Duration(c.TriggerLimit) * time.Second
}

// Location resolves the configured timezone, falling back to time.Local.
func (c SyncConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c HealthConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})

	v.SetDefault("database.path", "./stride.db")

	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.session_secret", DefaultSessionSecret)

	v.SetDefault("sync.interval", 900)
	v.SetDefault("sync.trigger_limit", 30)
	v.SetDefault("sync.timezone", "")

	v.SetDefault("health.provider", "none")
	v.SetDefault("health.bridge_url", "http://localhost:8765")
	v.SetDefault("health.timeout", 20)
	v.SetDefault("health.google_client_id", "")
	v.SetDefault("health.google_client_secret", "")
	v.SetDefault("health.google_refresh_token", "")

	v.SetDefault("leaderboard.enabled", false)
	v.SetDefault("leaderboard.dsn", "")
	v.SetDefault("leaderboard.limit", 50)

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from . or ./config, then .env, then STRIDE_* environment variables.
// A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("STRIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
