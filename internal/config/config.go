package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Enrichment    EnrichmentConfig    `yaml:"enrichment"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Backup        BackupConfig        `yaml:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// APIToken is required on every API call except health. Empty disables
	// authentication.
	APIToken  string          `yaml:"api_token"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds how often one client may trigger catalog calls.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// MaintenanceInterval is how often PRAGMA optimize runs. Zero disables it.
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// ProvidersConfig holds credentials and pacing for the external catalogs.
type ProvidersConfig struct {
	UserAgent string        `yaml:"user_agent"`
	LastFM    KeyConfig     `yaml:"lastfm"`
	AudioDB   KeyConfig     `yaml:"audiodb"`
	Spotify   SpotifyConfig `yaml:"spotify"`
	// MinDelay overrides the minimum gap between two calls to the named
	// provider, e.g. {"musicbrainz": "1100ms"}.
	MinDelay map[string]time.Duration `yaml:"min_delay"`
	// BaseURLs points a provider at a mirror, e.g. a local MusicBrainz.
	BaseURLs map[string]string `yaml:"base_urls"`
}

// KeyConfig holds a single API key.
type KeyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SpotifyConfig holds client-credentials for the Spotify Web API.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// EnrichmentConfig holds enrichment pipeline tuning.
type EnrichmentConfig struct {
	CacheTTL        time.Duration  `yaml:"cache_ttl"`
	MaxRetries      int            `yaml:"max_retries"`
	RetryDelay      time.Duration  `yaml:"retry_delay"`
	Workers         int            `yaml:"workers"`
	BatchSize       int            `yaml:"batch_size"`
	Interval        time.Duration  `yaml:"interval"`
	MaxPreviewBytes int64          `yaml:"max_preview_bytes"`
	Matching        MatchingConfig `yaml:"matching"`
	// SecondaryMatching gates the secondary catalog search, whose scores
	// are popularity. Its score floors default to zero.
	SecondaryMatching MatchingConfig `yaml:"secondary_matching"`
}

// MatchingConfig holds the candidate acceptance thresholds.
type MatchingConfig struct {
	StrictMinScore  int     `yaml:"strict_min_score"`
	StrictMinTitle  float64 `yaml:"strict_min_title"`
	RelaxedMinScore int     `yaml:"relaxed_min_score"`
	RelaxedMinTitle float64 `yaml:"relaxed_min_title"`
}

// NotificationsConfig lists outbound webhooks.
type NotificationsConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig is one outbound webhook. Type is generic, discord, slack,
// or gotify; Events defaults to enrichment.batch_completed.
type WebhookConfig struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Type   string   `yaml:"type"`
	Events []string `yaml:"events"`
}

// BackupConfig controls scheduled database snapshots. An empty Dir means a
// "backups" directory next to the database.
type BackupConfig struct {
	Dir        string        `yaml:"dir"`
	Interval   time.Duration `yaml:"interval"`
	Retention  int           `yaml:"retention"`
	MaxAgeDays int           `yaml:"max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 30,
				Burst:             10,
			},
		},
		Database: DatabaseConfig{
			Path:                "/data/earmark.db",
			MaintenanceInterval: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			FileMaxSizeMB:  100,
			FileMaxFiles:   3,
			FileMaxAgeDays: 30,
		},
		Providers: ProvidersConfig{
			MinDelay: map[string]time.Duration{},
			BaseURLs: map[string]string{},
		},
		Enrichment: EnrichmentConfig{
			CacheTTL:        30 * 24 * time.Hour,
			MaxRetries:      5,
			RetryDelay:      750 * time.Millisecond,
			Workers:         1,
			BatchSize:       50,
			Interval:        15 * time.Minute,
			MaxPreviewBytes: 5 << 20,
			Matching: MatchingConfig{
				StrictMinScore:  80,
				StrictMinTitle:  0.85,
				RelaxedMinScore: 65,
				RelaxedMinTitle: 0.70,
			},
			SecondaryMatching: MatchingConfig{
				StrictMinTitle:  0.85,
				RelaxedMinTitle: 0.70,
			},
		},
		Backup: BackupConfig{
			Retention: 7,
		},
	}
}

// Load reads config from a YAML file (if it exists), then a dotenv file (if
// it exists, without overriding variables already set), and finally applies
// environment variables. Environment variables take precedence.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("EM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("EM_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("EM_API_TOKEN"); v != "" {
		c.Server.APIToken = v
	}
	if v := os.Getenv("EM_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("EM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EM_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("EM_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("EM_USER_AGENT"); v != "" {
		c.Providers.UserAgent = v
	}
	if v := os.Getenv("EM_LASTFM_API_KEY"); v != "" {
		c.Providers.LastFM.APIKey = v
	}
	if v := os.Getenv("EM_AUDIODB_API_KEY"); v != "" {
		c.Providers.AudioDB.APIKey = v
	}
	if v := os.Getenv("EM_SPOTIFY_CLIENT_ID"); v != "" {
		c.Providers.Spotify.ClientID = v
	}
	if v := os.Getenv("EM_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Providers.Spotify.ClientSecret = v
	}
	if v := os.Getenv("EM_MUSICBRAINZ_URL"); v != "" {
		if c.Providers.BaseURLs == nil {
			c.Providers.BaseURLs = map[string]string{}
		}
		c.Providers.BaseURLs["musicbrainz"] = v
	}
	if v := os.Getenv("EM_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Enrichment.CacheTTL = d
		}
	}
	if v := os.Getenv("EM_ENRICH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Enrichment.Workers = n
		}
	}
	if v := os.Getenv("EM_ENRICH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Enrichment.Interval = d
		}
	}
	if v := os.Getenv("EM_ENRICH_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Enrichment.BatchSize = n
		}
	}
	if v := os.Getenv("EM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Enrichment.MaxRetries = n
		}
	}
	if v := os.Getenv("EM_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
	if v := os.Getenv("EM_BACKUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backup.Interval = d
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.MaintenanceInterval < 0 {
		return fmt.Errorf("database.maintenance_interval must not be negative")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("base path must start with /: %q", c.Server.BasePath)
	}
	if c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	for name, raw := range c.Providers.BaseURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("providers.base_urls.%s: invalid url %q", name, raw)
		}
		c.Providers.BaseURLs[name] = strings.TrimRight(raw, "/")
	}
	for name, d := range c.Providers.MinDelay {
		if d < 0 {
			return fmt.Errorf("providers.min_delay.%s must not be negative", name)
		}
	}

	e := &c.Enrichment
	if e.CacheTTL <= 0 {
		return fmt.Errorf("enrichment.cache_ttl must be positive")
	}
	if e.Workers < 1 {
		e.Workers = 1
	}
	if e.BatchSize < 1 {
		return fmt.Errorf("enrichment.batch_size must be at least 1")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("enrichment.max_retries must not be negative")
	}
	if e.MaxPreviewBytes <= 0 {
		return fmt.Errorf("enrichment.max_preview_bytes must be positive")
	}

	if err := e.Matching.validate(); err != nil {
		return fmt.Errorf("enrichment.matching: %w", err)
	}
	if err := e.SecondaryMatching.validate(); err != nil {
		return fmt.Errorf("enrichment.secondary_matching: %w", err)
	}

	b := &c.Backup
	if b.Interval < 0 || b.Retention < 0 || b.MaxAgeDays < 0 {
		return fmt.Errorf("backup settings must not be negative")
	}
	if b.Dir == "" {
		b.Dir = filepath.Join(filepath.Dir(c.Database.Path), "backups")
	}
	return nil
}

func (m MatchingConfig) validate() error {
	if m.StrictMinScore < m.RelaxedMinScore || m.StrictMinTitle < m.RelaxedMinTitle {
		return fmt.Errorf("strict thresholds must not be looser than relaxed ones")
	}
	if m.RelaxedMinScore < 0 || m.StrictMinScore > 100 {
		return fmt.Errorf("score thresholds must be within [0,100]")
	}
	if m.StrictMinTitle > 1 || m.RelaxedMinTitle < 0 {
		return fmt.Errorf("title similarity thresholds must be within [0,1]")
	}
	return nil
}
