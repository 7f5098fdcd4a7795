package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the context engine
type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Embedding EmbeddingConfig `json:"embedding"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Memory    MemoryConfig    `json:"memory"`
	Global    GlobalConfig    `json:"global"`
	Manager   ManagerConfig   `json:"manager"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Server    ServerConfig    `json:"server"`
	Log       LogConfig       `json:"log"`
	Tracing   TracingConfig   `json:"tracing"`
}

// StorageConfig holds data directory and key-value backend configuration
type StorageConfig struct {
	DataDir   string `json:"data_dir"`   // Root for contexts, memory, entities, cache
	KVBackend string `json:"kv_backend"` // "badger" or "file"
	BadgerDir string `json:"badger_dir"` // Badger directory; defaults under data_dir
}

// EmbeddingConfig holds embedding API configuration.
// An empty URL selects the built-in local feature-hash embedder.
type EmbeddingConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`      // e.g., "text-embedding-3-small"
	Dimensions int    `json:"dimensions"` // e.g., 1536 for text-embedding-3-small
}

// AnalysisConfig holds message analysis limits and the analysis cache
type AnalysisConfig struct {
	MaxContextMessages  int     `json:"max_context_messages"` // Recent history window per analysis
	MaxTopics           int     `json:"max_topics"`
	MaxEntities         int     `json:"max_entities"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	CacheMaxEntries     int     `json:"cache_max_entries"`
	CacheTTLMinutes     int     `json:"cache_ttl_minutes"`
}

// MemoryConfig holds per-conversation memory tier configuration
type MemoryConfig struct {
	MaxShortTerm       int     `json:"max_short_term"`
	MaxLongTerm        int     `json:"max_long_term"`
	DecayFactor        float64 `json:"decay_factor"`        // Per-day relevance decay
	RelevanceThreshold float64 `json:"relevance_threshold"` // Below this, items are dropped
}

// GlobalConfig holds cross-conversation global memory configuration
type GlobalConfig struct {
	MaxEntities          int     `json:"max_entities"`
	MaxTopics            int     `json:"max_topics"`
	MinEntityOccurrences int     `json:"min_entity_occurrences"`
	DecayFactor          float64 `json:"decay_factor"` // Weekly decay for idle entities
}

// ManagerConfig holds context manager cache, locking and fragmentation settings
type ManagerConfig struct {
	CacheSize          int  `json:"cache_size"`
	CacheTTLMinutes    int  `json:"cache_ttl_minutes"`
	FragmentSizeKB     int  `json:"fragment_size_kb"`     // Contexts above this are split on save
	LockTimeoutSeconds int  `json:"lock_timeout_seconds"` // Wait budget for the conversation lock
	StrictValidation   bool `json:"strict_validation"`    // Reject writes on schema problems instead of logging
}

// SchedulerConfig holds maintenance job intervals
type SchedulerConfig struct {
	CacheCleanupMinutes    int `json:"cache_cleanup_minutes"`
	MemoryMaintenanceHours int `json:"memory_maintenance_hours"`
	GlobalMaintenanceHours int `json:"global_maintenance_hours"`
	MetricsRetentionDays   int `json:"metrics_retention_days"`
}

// ServerConfig holds the metrics/health endpoint configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:   "data",
			KVBackend: "badger",
			BadgerDir: "", // Derived from data_dir when empty
		},
		Embedding: EmbeddingConfig{
			URL:        "",
			APIKey:     "",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Analysis: AnalysisConfig{
			MaxContextMessages:  10,
			MaxTopics:           5,
			MaxEntities:         15,
			SimilarityThreshold: 0.75,
			CacheMaxEntries:     1000,
			CacheTTLMinutes:     60,
		},
		Memory: MemoryConfig{
			MaxShortTerm:       25,
			MaxLongTerm:        100,
			DecayFactor:        0.95,
			RelevanceThreshold: 0.2,
		},
		Global: GlobalConfig{
			MaxEntities:          200,
			MaxTopics:            50,
			MinEntityOccurrences: 2,
			DecayFactor:          0.98,
		},
		Manager: ManagerConfig{
			CacheSize:          100,
			CacheTTLMinutes:    10,
			FragmentSizeKB:     100,
			LockTimeoutSeconds: 3,
		},
		Scheduler: SchedulerConfig{
			CacheCleanupMinutes:    30,
			MemoryMaintenanceHours: 24,
			GlobalMaintenanceHours: 12,
			MetricsRetentionDays:   30,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set and valid
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	// Load Storage configuration from environment
	envString("CAG_DATA_DIR", &cfg.Storage.DataDir)
	envString("CAG_KV_BACKEND", &cfg.Storage.KVBackend)
	envString("CAG_BADGER_DIR", &cfg.Storage.BadgerDir)

	// Load Embedding configuration from environment
	envString("CAG_EMBEDDING_URL", &cfg.Embedding.URL)
	envString("CAG_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("CAG_EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("CAG_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)

	// Load Analysis configuration from environment
	envInt("CAG_MAX_CONTEXT_MESSAGES", &cfg.Analysis.MaxContextMessages)
	envInt("CAG_MAX_TOPICS", &cfg.Analysis.MaxTopics)
	envInt("CAG_MAX_ENTITIES", &cfg.Analysis.MaxEntities)
	envFloat("CAG_SIMILARITY_THRESHOLD", &cfg.Analysis.SimilarityThreshold)
	envInt("CAG_CACHE_MAX_ENTRIES", &cfg.Analysis.CacheMaxEntries)
	envInt("CAG_CACHE_TTL_MINUTES", &cfg.Analysis.CacheTTLMinutes)

	// Load Memory configuration from environment
	envInt("CAG_MAX_SHORT_TERM", &cfg.Memory.MaxShortTerm)
	envInt("CAG_MAX_LONG_TERM", &cfg.Memory.MaxLongTerm)
	envFloat("CAG_MEMORY_DECAY", &cfg.Memory.DecayFactor)
	envFloat("CAG_RELEVANCE_THRESHOLD", &cfg.Memory.RelevanceThreshold)

	// Load Global memory configuration from environment
	envInt("CAG_GLOBAL_MAX_ENTITIES", &cfg.Global.MaxEntities)
	envInt("CAG_GLOBAL_MAX_TOPICS", &cfg.Global.MaxTopics)
	envInt("CAG_GLOBAL_MIN_OCCURRENCES", &cfg.Global.MinEntityOccurrences)
	envFloat("CAG_GLOBAL_DECAY", &cfg.Global.DecayFactor)

	// Load Manager configuration from environment
	envInt("CAG_MANAGER_CACHE_SIZE", &cfg.Manager.CacheSize)
	envInt("CAG_MANAGER_CACHE_TTL_MINUTES", &cfg.Manager.CacheTTLMinutes)
	envInt("CAG_FRAGMENT_SIZE_KB", &cfg.Manager.FragmentSizeKB)
	envInt("CAG_LOCK_TIMEOUT_SECONDS", &cfg.Manager.LockTimeoutSeconds)
	envBool("CAG_STRICT_VALIDATION", &cfg.Manager.StrictValidation)

	// Load Scheduler configuration from environment
	envInt("CAG_CACHE_CLEANUP_MINUTES", &cfg.Scheduler.CacheCleanupMinutes)
	envInt("CAG_MEMORY_MAINTENANCE_HOURS", &cfg.Scheduler.MemoryMaintenanceHours)
	envInt("CAG_GLOBAL_MAINTENANCE_HOURS", &cfg.Scheduler.GlobalMaintenanceHours)
	envInt("CAG_METRICS_RETENTION_DAYS", &cfg.Scheduler.MetricsRetentionDays)

	// Load Server configuration from environment
	envString("CAG_SERVER_HOST", &cfg.Server.Host)
	envInt("CAG_SERVER_PORT", &cfg.Server.Port)

	// Load Log and Tracing configuration from environment
	envString("CAG_LOG_LEVEL", &cfg.Log.Level)
	envBool("CAG_TRACING", &cfg.Tracing.Enabled)

	if cfg.Storage.BadgerDir == "" {
		cfg.Storage.BadgerDir = filepath.Join(cfg.Storage.DataDir, "global_memory", "badger")
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsEmbeddingConfigured returns true if a remote embedding service is configured
func (c *Config) IsEmbeddingConfigured() bool {
	return c.Embedding.URL != ""
}

// CacheTTL returns the analysis cache time-to-live
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Analysis.CacheTTLMinutes) * time.Minute
}

// ManagerCacheTTL returns the context cache time-to-live
func (c *Config) ManagerCacheTTL() time.Duration {
	return time.Duration(c.Manager.CacheTTLMinutes) * time.Minute
}

// LockTimeout returns the conversation lock wait budget
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Manager.LockTimeoutSeconds) * time.Second
}

// FragmentSize returns the context fragmentation threshold in bytes
func (c *Config) FragmentSize() int {
	return c.Manager.FragmentSizeKB * 1024
}

// CacheCleanupInterval returns how often the analysis cache is swept
func (c *Config) CacheCleanupInterval() time.Duration {
	return time.Duration(c.Scheduler.CacheCleanupMinutes) * time.Minute
}

// MemoryMaintenanceInterval returns how often conversation memory is maintained
func (c *Config) MemoryMaintenanceInterval() time.Duration {
	return time.Duration(c.Scheduler.MemoryMaintenanceHours) * time.Hour
}

// GlobalMaintenanceInterval returns how often global memory is maintained
func (c *Config) GlobalMaintenanceInterval() time.Duration {
	return time.Duration(c.Scheduler.GlobalMaintenanceHours) * time.Hour
}

// MetricsRetention returns how long usage records are kept
func (c *Config) MetricsRetention() time.Duration {
	return time.Duration(c.Scheduler.MetricsRetentionDays) * 24 * time.Hour
}

// Addr returns the host:port the metrics server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	// Storage validation
	if c.Storage.DataDir == "" {
		errs = append(errs, "storage data_dir is required")
	}
	if c.Storage.KVBackend != "badger" && c.Storage.KVBackend != "file" {
		errs = append(errs, "storage kv_backend must be 'badger' or 'file'")
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	// Embedding validation (optional but validate if set)
	if c.Embedding.URL != "" {
		if !isValidURL(c.Embedding.URL) {
			errs = append(errs, "embedding URL must be a valid URL")
		}
		if c.Embedding.Dimensions < 1 {
			errs = append(errs, "embedding dimensions must be positive when URL is set")
		}
	}

	// Analysis validation
	if c.Analysis.MaxContextMessages < 1 {
		errs = append(errs, "analysis max_context_messages must be at least 1")
	}
	if c.Analysis.MaxTopics < 1 {
		errs = append(errs, "analysis max_topics must be at least 1")
	}
	if c.Analysis.MaxEntities < 1 {
		errs = append(errs, "analysis max_entities must be at least 1")
	}
	if c.Analysis.SimilarityThreshold <= 0 || c.Analysis.SimilarityThreshold > 1 {
		errs = append(errs, "analysis similarity_threshold must be between 0 and 1")
	}
	if c.Analysis.CacheMaxEntries < 1 {
		errs = append(errs, "analysis cache_max_entries must be at least 1")
	}
	if c.Analysis.CacheTTLMinutes < 1 {
		errs = append(errs, "analysis cache_ttl_minutes must be at least 1")
	}

	// Memory validation
	if c.Memory.MaxShortTerm < 1 {
		errs = append(errs, "memory max_short_term must be at least 1")
	}
	if c.Memory.MaxLongTerm < 1 {
		errs = append(errs, "memory max_long_term must be at least 1")
	}
	if c.Memory.DecayFactor <= 0 || c.Memory.DecayFactor > 1 {
		errs = append(errs, "memory decay_factor must be between 0 and 1")
	}
	if c.Memory.RelevanceThreshold < 0 || c.Memory.RelevanceThreshold > 1 {
		errs = append(errs, "memory relevance_threshold must be between 0 and 1")
	}

	// Global memory validation
	if c.Global.MaxEntities < 1 {
		errs = append(errs, "global max_entities must be at least 1")
	}
	if c.Global.MaxTopics < 1 {
		errs = append(errs, "global max_topics must be at least 1")
	}
	if c.Global.MinEntityOccurrences < 1 {
		errs = append(errs, "global min_entity_occurrences must be at least 1")
	}
	if c.Global.DecayFactor <= 0 || c.Global.DecayFactor > 1 {
		errs = append(errs, "global decay_factor must be between 0 and 1")
	}

	// Manager validation
	if c.Manager.CacheSize < 1 {
		errs = append(errs, "manager cache_size must be at least 1")
	}
	if c.Manager.CacheTTLMinutes < 1 {
		errs = append(errs, "manager cache_ttl_minutes must be at least 1")
	}
	if c.Manager.FragmentSizeKB < 1 {
		errs = append(errs, "manager fragment_size_kb must be at least 1")
	}
	if c.Manager.LockTimeoutSeconds < 1 {
		errs = append(errs, "manager lock_timeout_seconds must be at least 1")
	}

	// Scheduler validation
	if c.Scheduler.CacheCleanupMinutes < 1 {
		errs = append(errs, "scheduler cache_cleanup_minutes must be at least 1")
	}
	if c.Scheduler.MemoryMaintenanceHours < 1 {
		errs = append(errs, "scheduler memory_maintenance_hours must be at least 1")
	}
	if c.Scheduler.GlobalMaintenanceHours < 1 {
		errs = append(errs, "scheduler global_maintenance_hours must be at least 1")
	}
	if c.Scheduler.MetricsRetentionDays < 1 {
		errs = append(errs, "scheduler metrics_retention_days must be at least 1")
	}

	// Log validation
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log level must be one of debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("CAG_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	// Check ~/.config/cag/config.json first
	configDir := filepath.Join(homeDir, ".config", "cag")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	// Check ~/.cag/config.json
	altPath := filepath.Join(homeDir, ".cag", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
