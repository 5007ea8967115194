package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Search     SearchConfig     `mapstructure:"search"`
	Agents     []AgentConfig    `mapstructure:"agents"`
	Feeds      FeedsConfig      `mapstructure:"feeds"`
	Sequel     SequelConfig     `mapstructure:"sequel"`
	Review     ReviewConfig     `mapstructure:"review"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
	Model      ModelConfig      `mapstructure:"model"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// CatalogConfig holds catalog metadata provider configuration.
type CatalogConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CacheTTLMin  int    `mapstructure:"cache_ttl_min"`
}

// MonitorConfig holds orchestrator configuration.
type MonitorConfig struct {
	RecheckIntervalMin   int  `mapstructure:"recheck_interval_min"`
	MinSearchIntervalMin int  `mapstructure:"min_search_interval_min"`
	AutoGrab             bool `mapstructure:"auto_grab"`
}

// SearchConfig holds search aggregation configuration.
type SearchConfig struct {
	AgentTimeoutSec int `mapstructure:"agent_timeout_sec"`
	CacheTTLMin     int `mapstructure:"cache_ttl_min"`
}

// AgentConfig holds one search agent definition. Agents missing required
// fields are skipped at startup with a logged configuration error.
type AgentConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"` // "torznab" or "mock"
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
	Category string `mapstructure:"category"`
}

// FeedConfig holds configuration for a single passive feed monitor.
type FeedConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	IntervalMin int    `mapstructure:"interval_min"`
}

// FeedsConfig holds passive feed monitor configuration.
// The match thresholds are deliberately configuration, not constants:
// they are tuned heuristics, not principled rules.
type FeedsConfig struct {
	Repack            FeedConfig `mapstructure:"repack"`
	Scene             FeedConfig `mapstructure:"scene"`
	SeenCap           int        `mapstructure:"seen_cap"`
	FirstRunWindowHrs int        `mapstructure:"first_run_window_hrs"`
	WordMatchPercent  int        `mapstructure:"word_match_percent"`
}

// SequelConfig holds sequel filter configuration.
type SequelConfig struct {
	CacheTTLHrs    int    `mapstructure:"cache_ttl_hrs"`
	HeuristicsPath string `mapstructure:"heuristics_path"` // overrides the embedded heuristics file
}

// ReviewConfig holds review queue configuration.
type ReviewConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// DownloaderConfig holds download client configuration.
type DownloaderConfig struct {
	Type     string `mapstructure:"type"` // "qbittorrent", "mock", or "" for none
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseSSL   bool   `mapstructure:"use_ssl"`
	Category string `mapstructure:"category"`
}

// ModelConfig holds match model configuration.
type ModelConfig struct {
	Path         string  `mapstructure:"path"`
	MinPrecision float64 `mapstructure:"min_precision"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ludarr")
	}

	v.SetEnvPrefix("LUDARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/ludarr.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("catalog.base_url", "https://api.igdb.com/v4")
	v.SetDefault("catalog.cache_ttl_min", 60)

	v.SetDefault("monitor.recheck_interval_min", 30)
	v.SetDefault("monitor.min_search_interval_min", 15)
	v.SetDefault("monitor.auto_grab", true)

	v.SetDefault("search.agent_timeout_sec", 30)
	v.SetDefault("search.cache_ttl_min", 10)

	v.SetDefault("feeds.repack.enabled", false)
	v.SetDefault("feeds.repack.interval_min", 20)
	v.SetDefault("feeds.scene.enabled", false)
	v.SetDefault("feeds.scene.interval_min", 30)
	v.SetDefault("feeds.seen_cap", 2000)
	v.SetDefault("feeds.first_run_window_hrs", 24)
	v.SetDefault("feeds.word_match_percent", 90)

	v.SetDefault("sequel.cache_ttl_hrs", 24)

	v.SetDefault("review.data_dir", "./data")
	v.SetDefault("review.retention_days", 7)

	v.SetDefault("downloader.type", "")
	v.SetDefault("downloader.port", 8080)

	v.SetDefault("model.path", "./data/match_model.json")
	v.SetDefault("model.min_precision", 0.0)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RecheckInterval returns the periodic re-check interval as a duration.
func (c *MonitorConfig) RecheckInterval() time.Duration {
	return time.Duration(c.RecheckIntervalMin) * time.Minute
}

// MinSearchInterval returns the per-title minimum re-search interval.
func (c *MonitorConfig) MinSearchInterval() time.Duration {
	return time.Duration(c.MinSearchIntervalMin) * time.Minute
}

// AgentTimeout returns the per-agent outbound call timeout.
func (c *SearchConfig) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutSec) * time.Second
}
