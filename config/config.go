package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/monthwrap/integrations/domain"
	"github.com/monthwrap/integrations/internal/providers"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"` // empty means in-memory caches
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	UpstreamTimeoutSec int `mapstructure:"UPSTREAM_TIMEOUT_SEC"`
	WrapCacheTTLMin    int `mapstructure:"WRAP_CACHE_TTL_MIN"`

	StravaClientID      string `mapstructure:"STRAVA_CLIENT_ID"`
	StravaClientSecret  string `mapstructure:"STRAVA_CLIENT_SECRET"`
	StravaRedirectURI   string `mapstructure:"STRAVA_REDIRECT_URI"`
	SpotifyClientID     string `mapstructure:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `mapstructure:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string `mapstructure:"SPOTIFY_REDIRECT_URI"`
	GoogleClientID      string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI   string `mapstructure:"GOOGLE_REDIRECT_URI"`
}

// UpstreamTimeout returns the per-call timeout for provider HTTP calls.
func (c *ServerConfig) UpstreamTimeout() time.Duration {
	if c.UpstreamTimeoutSec <= 0 {
		return providers.DefaultTimeout
	}
	return time.Duration(c.UpstreamTimeoutSec) * time.Second
}

// WrapCacheTTL returns how long wrap summaries stay cached.
func (c *ServerConfig) WrapCacheTTL() time.Duration {
	if c.WrapCacheTTLMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.WrapCacheTTLMin) * time.Minute
}

// ProviderCredentials returns the OAuth client credentials configured
// for the given provider. Missing credentials are not an error here;
// the adapter reports a configuration error when actually used.
func (c *ServerConfig) ProviderCredentials(p domain.Provider) (providers.Credentials, error) {
	switch p {
	case domain.ProviderStrava:
		return providers.Credentials{
			ClientID:     c.StravaClientID,
			ClientSecret: c.StravaClientSecret,
			RedirectURI:  c.StravaRedirectURI,
		}, nil
	case domain.ProviderSpotify:
		return providers.Credentials{
			ClientID:     c.SpotifyClientID,
			ClientSecret: c.SpotifyClientSecret,
			RedirectURI:  c.SpotifyRedirectURI,
		}, nil
	case domain.ProviderGoogleCalendar:
		return providers.Credentials{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURI:  c.GoogleRedirectURI,
		}, nil
	default:
		return providers.Credentials{}, fmt.Errorf("unknown provider %q", p)
	}
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/monthwrap/")
	v.AddConfigPath("$HOME/.monthwrap")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/monthwrap_dev")
	v.SetDefault("MONGO_DB_NAME", "monthwrap_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("UPSTREAM_TIMEOUT_SEC", 20)
	v.SetDefault("WRAP_CACHE_TTL_MIN", 60)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults and env.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
