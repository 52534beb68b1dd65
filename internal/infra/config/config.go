// Package config provides configuration loading from YAML files.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Auth     AuthConfig     `yaml:"auth"`
	Player   PlayerConfig   `yaml:"player"`
	Location LocationConfig `yaml:"location"`
	Control  ControlConfig  `yaml:"control"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	LastFM   LastFMConfig   `yaml:"lastfm"`
	Messages MessagesConfig `yaml:"messages"`
}

// BackendConfig represents the REST backend connection.
type BackendConfig struct {
	URL       string `yaml:"url" default:"http://localhost:8000" validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
}

// AuthConfig represents credential storage.
type AuthConfig struct {
	TokenFile string `yaml:"token_file" default:".tunemap/token.yaml" validate:"required"`
}

// PlayerConfig represents playback configuration.
type PlayerConfig struct {
	// MediaBaseURL is joined with backend-relative track paths. Defaults to Backend.URL.
	MediaBaseURL      string `yaml:"media_base_url" validate:"omitempty,url"`
	InitialVolume     int    `yaml:"initial_volume" default:"80" validate:"gte=0,lte=100"`
	SeekSuppressionMs int    `yaml:"seek_suppression_ms" default:"100" validate:"gte=0,lte=5000"`
	PollIntervalMs    int    `yaml:"poll_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	AudioDevice       string `yaml:"audio_device"`
}

// LocationConfig represents location lookup and discovery configuration.
type LocationConfig struct {
	DefaultLatitude  float64        `yaml:"default_latitude" default:"51.505" validate:"gte=-90,lte=90"`
	DefaultLongitude float64        `yaml:"default_longitude" default:"-0.09" validate:"gte=-180,lte=180"`
	TimeoutMs        int            `yaml:"timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
	RadiusKm         float64        `yaml:"radius_km" default:"10" validate:"gt=0,lte=20000"`
	Genres           []string       `yaml:"genres"`
	Provider         ProviderConfig `yaml:"provider"`
}

// ProviderConfig represents a location provider and its type-specific settings.
type ProviderConfig struct {
	Type     string         `yaml:"type" default:"ipapi" validate:"required,oneof=static ipapi"`
	Settings map[string]any `yaml:"settings"`
}

// ControlConfig represents the player control API.
type ControlConfig struct {
	Addr  string `yaml:"addr" default:"127.0.0.1:7700" validate:"required,hostname_port"`
	URL   string `yaml:"url" default:"http://127.0.0.1:7700" validate:"required,url"`
	Token string `yaml:"token"`
}

// SpotifyConfig represents optional Spotify catalog access.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required_with=ClientSecret"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// LastFMConfig represents optional genre lookup for imported tracks.
type LastFMConfig struct {
	APIKey string `yaml:"api_key"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	LocationFallback string `yaml:"location_fallback" default:"Unable to get your location. Using default location."`
	NearbyFailed     string `yaml:"nearby_failed" default:"Failed to load nearby users. Please try again."`
	SessionExpired   string `yaml:"session_expired" default:"Your session has expired. Please log in again."`
	DefaultError     string `yaml:"default_error" default:"Something went wrong. Please try again."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is present.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if cfg.Player.MediaBaseURL == "" {
		cfg.Player.MediaBaseURL = cfg.Backend.URL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TUNEMAP_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("TUNEMAP_CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return errors.Wrap(err, "failed to parse backend url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("backend url scheme must be http or https, got %q", u.Scheme)
	}

	return nil
}

// BackendTimeout returns the backend request timeout.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutMs) * time.Millisecond
}

// LocationTimeout returns the location lookup timeout.
func (c *Config) LocationTimeout() time.Duration {
	return time.Duration(c.Location.TimeoutMs) * time.Millisecond
}

// SeekSuppression returns how long time updates are ignored after a seek.
func (c *Config) SeekSuppression() time.Duration {
	return time.Duration(c.Player.SeekSuppressionMs) * time.Millisecond
}

// PollInterval returns the engine polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Player.PollIntervalMs) * time.Millisecond
}

// SpotifyEnabled reports whether Spotify credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// LastFMEnabled reports whether a Last.fm API key is configured.
func (c *Config) LastFMEnabled() bool {
	return c.LastFM.APIKey != ""
}
