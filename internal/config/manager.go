package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Metadata store backends
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Config represents the complete application configuration
type Config struct {
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	CDN           CDNConfig           `yaml:"cdn" mapstructure:"cdn"`
	MetadataStore MetadataStoreConfig `yaml:"metadata_store" mapstructure:"metadata_store"`
	API           APIConfig           `yaml:"api" mapstructure:"api"`
	Warming       WarmingConfig       `yaml:"warming" mapstructure:"warming"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// CacheConfig represents the on-disk asset cache configuration
type CacheConfig struct {
	Dir                  string        `yaml:"dir" mapstructure:"dir"`
	MetadataKey          string        `yaml:"metadata_key" mapstructure:"metadata_key"`
	VersionCheckInterval time.Duration `yaml:"version_check_interval" mapstructure:"version_check_interval"`
	MaxAge               time.Duration `yaml:"max_age" mapstructure:"max_age"`
	PreloadBatchSize     int           `yaml:"preload_batch_size" mapstructure:"preload_batch_size"`
	PreloadBatchDelay    time.Duration `yaml:"preload_batch_delay" mapstructure:"preload_batch_delay"`
	JSONMemoryEntries    int           `yaml:"json_memory_entries" mapstructure:"json_memory_entries"`
	InitTimeout          time.Duration `yaml:"init_timeout" mapstructure:"init_timeout"`
}

// CDNConfig represents the remote content source
type CDNConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	ManifestPath string        `yaml:"manifest_path" mapstructure:"manifest_path"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit    float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second, 0 = unlimited
	RateBurst    int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxBodySize  int64         `yaml:"max_body_size" mapstructure:"max_body_size"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// MetadataStoreConfig selects where the metadata blob is persisted
type MetadataStoreConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	RedisURL    string `yaml:"redis_url" mapstructure:"redis_url"`
	PostgresURL string `yaml:"postgres_url" mapstructure:"postgres_url"`
	FileDir     string `yaml:"file_dir" mapstructure:"file_dir"`
}

// APIConfig represents REST API configuration
type APIConfig struct {
	Port   int    `yaml:"port" mapstructure:"port"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// WarmingConfig represents the background warm-up job
type WarmingConfig struct {
	Enabled     *bool         `yaml:"enabled" mapstructure:"enabled"`
	StartDelay  time.Duration `yaml:"start_delay" mapstructure:"start_delay"`
	Schedule    string        `yaml:"schedule" mapstructure:"schedule"`
	CatalogURLs []string      `yaml:"catalog_urls" mapstructure:"catalog_urls"`
	ImageURLs   []string      `yaml:"image_urls" mapstructure:"image_urls"`
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`               // Log file path (empty = console only)
	Level      string `yaml:"level" mapstructure:"level"`             // Log level (debug, info, warn, error)
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // Max number of old files to keep
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // Compress old log files
}

// DeepCopy returns a deep copy of the configuration
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	// Start with a shallow copy of value fields
	copyCfg := *c

	if c.Warming.Enabled != nil {
		v := *c.Warming.Enabled
		copyCfg.Warming.Enabled = &v
	}

	copyCfg.Warming.CatalogURLs = slices.Clone(c.Warming.CatalogURLs)
	copyCfg.Warming.ImageURLs = slices.Clone(c.Warming.ImageURLs)

	return &copyCfg
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir cannot be empty")
	}

	if c.Cache.MetadataKey == "" {
		return fmt.Errorf("cache metadata_key cannot be empty")
	}

	if c.Cache.VersionCheckInterval < 0 {
		return fmt.Errorf("cache version_check_interval must be non-negative")
	}

	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("cache max_age must be greater than 0")
	}

	if c.Cache.PreloadBatchSize <= 0 {
		return fmt.Errorf("cache preload_batch_size must be greater than 0")
	}

	if c.Cache.PreloadBatchDelay < 0 {
		return fmt.Errorf("cache preload_batch_delay must be non-negative")
	}

	if c.Cache.JSONMemoryEntries < 0 {
		return fmt.Errorf("cache json_memory_entries must be non-negative")
	}

	if c.CDN.Timeout <= 0 {
		return fmt.Errorf("cdn timeout must be greater than 0")
	}

	if c.CDN.MaxRetries < 0 {
		return fmt.Errorf("cdn max_retries must be non-negative")
	}

	if c.CDN.RateLimit < 0 {
		return fmt.Errorf("cdn rate_limit must be non-negative")
	}

	if c.CDN.MaxBodySize <= 0 {
		return fmt.Errorf("cdn max_body_size must be greater than 0")
	}

	switch c.MetadataStore.Backend {
	case BackendSQLite:
		if c.MetadataStore.SQLitePath == "" {
			return fmt.Errorf("metadata_store sqlite_path cannot be empty for sqlite backend")
		}
	case BackendRedis:
		if c.MetadataStore.RedisURL == "" {
			return fmt.Errorf("metadata_store redis_url cannot be empty for redis backend")
		}
	case BackendPostgres:
		if c.MetadataStore.PostgresURL == "" {
			return fmt.Errorf("metadata_store postgres_url cannot be empty for postgres backend")
		}
	case BackendFile:
		if c.MetadataStore.FileDir == "" {
			return fmt.Errorf("metadata_store file_dir cannot be empty for file backend")
		}
	default:
		return fmt.Errorf("metadata_store backend must be one of: sqlite, redis, postgres, file")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port must be between 1 and 65535")
	}

	if c.Warming.Enabled != nil && *c.Warming.Enabled {
		if c.Warming.StartDelay < 0 {
			return fmt.Errorf("warming start_delay must be non-negative")
		}
		if c.Warming.Schedule == "" {
			return fmt.Errorf("warming schedule cannot be empty when warming is enabled")
		}
	}

	// Validate log configuration
	if c.Log.Level != "" && !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log.max_size must be non-negative")
	}

	if c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_age must be non-negative")
	}

	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be non-negative")
	}

	return nil
}

// ChangeCallback represents a function called when configuration changes
type ChangeCallback func(oldConfig, newConfig *Config)

// ConfigGetter represents a function that returns the current configuration
type ConfigGetter func() *Config

// Manager manages configuration state and persistence
type Manager struct {
	current    *Config
	configFile string
	mutex      sync.RWMutex
	callbacks  []ChangeCallback
}

// NewManager creates a new configuration manager
func NewManager(config *Config, configFile string) *Manager {
	return &Manager{
		current:    config,
		configFile: configFile,
	}
}

// GetConfig returns the current configuration (thread-safe)
func (m *Manager) GetConfig() *Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// GetConfigGetter returns a function that provides the current configuration
func (m *Manager) GetConfigGetter() ConfigGetter {
	return m.GetConfig
}

// UpdateConfig updates the current configuration (thread-safe)
func (m *Manager) UpdateConfig(config *Config) error {
	if err := m.ValidateConfigUpdate(config); err != nil {
		return err
	}

	m.mutex.Lock()
	// Take a deep copy of the old config so callbacks get an immutable snapshot
	var oldConfig *Config
	if m.current != nil {
		oldConfig = m.current.DeepCopy()
	}
	m.current = config
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mutex.Unlock()

	// Notify callbacks after releasing the lock
	for _, callback := range callbacks {
		callback(oldConfig, config)
	}
	return nil
}

// OnConfigChange registers a callback to be called when configuration changes
func (m *Manager) OnConfigChange(callback ChangeCallback) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ValidateConfigUpdate validates configuration updates with additional restrictions
func (m *Manager) ValidateConfigUpdate(newConfig *Config) error {
	// First run standard validation
	if err := newConfig.Validate(); err != nil {
		return err
	}

	// Get current config for comparison
	m.mutex.RLock()
	currentConfig := m.current
	m.mutex.RUnlock()

	if currentConfig != nil {
		if newConfig.Cache.Dir != currentConfig.Cache.Dir {
			return fmt.Errorf("cache dir cannot be changed at runtime - requires restart")
		}

		if newConfig.MetadataStore != currentConfig.MetadataStore {
			return fmt.Errorf("metadata_store cannot be changed at runtime - requires restart")
		}

		if newConfig.API.Port != currentConfig.API.Port {
			return fmt.Errorf("api port cannot be changed at runtime - requires restart")
		}
	}

	return nil
}

// ReloadConfig reloads configuration from file and notifies listeners
func (m *Manager) ReloadConfig() error {
	config, err := readConfig(m.configFile)
	if err != nil {
		return err
	}

	return m.UpdateConfig(config)
}

// SaveConfig saves the current configuration to file
func (m *Manager) SaveConfig() error {
	m.mutex.RLock()
	config := m.current
	m.mutex.RUnlock()

	if config == nil {
		return fmt.Errorf("no configuration to save")
	}

	return SaveToFile(config, m.configFile)
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	warmingEnabled := false

	return &Config{
		Cache: CacheConfig{
			Dir:                  "./data/cache",
			MetadataKey:          "cache_metadata",
			VersionCheckInterval: 5 * time.Minute,
			MaxAge:               24 * time.Hour,
			PreloadBatchSize:     5,
			PreloadBatchDelay:    100 * time.Millisecond,
			JSONMemoryEntries:    64,
			InitTimeout:          30 * time.Second,
		},
		CDN: CDNConfig{
			BaseURL:      "https://pub-a2d61889013a43e69563a1bbccaed58c.r2.dev",
			ManifestPath: "jsonMaster/data-version.json",
			Timeout:      30 * time.Second,
			MaxRetries:   2,
			RateLimit:    20,
			RateBurst:    10,
			MaxBodySize:  32 << 20, // 32MB
			UserAgent:    "assetcache/1.0",
		},
		MetadataStore: MetadataStoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./data/assetcache.db",
			FileDir:    "./data/kv",
		},
		API: APIConfig{
			Port:   8089,
			Prefix: "/api",
		},
		Warming: WarmingConfig{
			Enabled:    &warmingEnabled,
			StartDelay: 5 * time.Second,
			Schedule:   "@every 5m",
		},
		Log: LogConfig{
			File:       "",     // Empty = console only
			Level:      "info", // Default log level
			MaxSize:    100,    // 100MB max size
			MaxAge:     30,     // Keep for 30 days
			MaxBackups: 10,     // Keep 10 old files
			Compress:   true,   // Compress old files
		},
	}
}

// SaveToFile saves a configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("no config file path provided")
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from file and merges with defaults.
// A missing file is not an error when no explicit path was given.
func LoadConfig(configFile string) (*Config, error) {
	return readConfig(configFile)
}

func readConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("ASSETCACHE")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config file in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}
