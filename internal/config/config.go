package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/streed/semantic-notes/internal/constants"
	interrors "github.com/streed/semantic-notes/internal/errors"
)

const (
	appName = "semantic-notes"

	envConfigPath = "SEMANTIC_NOTES_CONFIG"
	envDatabase   = "SEMANTIC_NOTES_DB"
	envStrategy   = "SEMANTIC_NOTES_STRATEGY"
)

// Config holds every runtime setting. Zero values are replaced by defaults
// on load; the embedding token only ever comes from the environment.
type Config struct {
	DatabasePath  string `json:"database_path,omitempty"`
	DataDirectory string `json:"data_directory,omitempty"`

	// Embedding provider
	EmbeddingEndpoint       string `json:"embedding_endpoint"`
	EmbeddingModel          string `json:"embedding_model"`
	EmbeddingToken          string `json:"embedding_token,omitempty"`
	VectorDimensions        int    `json:"vector_dimensions"`
	EmbeddingTimeoutSeconds int    `json:"embedding_timeout_seconds"`
	EmbeddingMaxRetries     int    `json:"embedding_max_retries"`

	// Search
	SearchStrategy        string  `json:"search_strategy"`
	DefaultMatchThreshold float64 `json:"default_match_threshold"`
	DefaultMatchCount     int     `json:"default_match_count"`

	// HTTP server
	ServerHost     string   `json:"server_host"`
	ServerPort     int      `json:"server_port"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	Debug bool `json:"debug"`
}

// getDefaultConfig returns a fresh copy of the default configuration
func getDefaultConfig() Config {
	return Config{
		DatabasePath:  "", // Will be set to DataDirectory/notes.db
		DataDirectory: "", // Will be set to ~/.local/share/semantic-notes

		EmbeddingEndpoint:       constants.DefaultEmbeddingEndpoint,
		EmbeddingModel:          constants.DefaultEmbeddingModel,
		VectorDimensions:        constants.DefaultVectorDimensions,
		EmbeddingTimeoutSeconds: constants.DefaultEmbeddingTimeout,
		EmbeddingMaxRetries:     0, // provider failures are terminal unless configured

		SearchStrategy:        constants.StrategyAuto,
		DefaultMatchThreshold: constants.DefaultMatchThreshold,
		DefaultMatchCount:     constants.DefaultMatchCount,

		ServerHost:     constants.DefaultServerHost,
		ServerPort:     constants.DefaultServerPort,
		AllowedOrigins: []string{"*"},
	}
}

// Default returns the default configuration with data paths resolved.
func Default() *Config {
	cfg := getDefaultConfig()
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg
}

// GetConfigPath returns $SEMANTIC_NOTES_CONFIG or the config.json in the
// user config directory.
func GetConfigPath() (string, error) {
	if p := os.Getenv(envConfigPath); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, appName, "config.json"), nil
}

// GetDefaultDataDirectory returns $XDG_DATA_HOME/semantic-notes, falling
// back to ~/.local/share.
func GetDefaultDataDirectory() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "."+appName)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, appName)
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the configuration at configPath. A missing file yields the
// defaults; environment overrides are applied in both cases.
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero-valued fields from the defaults.
func (c *Config) applyDefaults() {
	defaults := getDefaultConfig()

	if c.DataDirectory == "" {
		c.DataDirectory = GetDefaultDataDirectory()
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDirectory, "notes.db")
	}
	if c.EmbeddingEndpoint == "" {
		c.EmbeddingEndpoint = defaults.EmbeddingEndpoint
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = defaults.EmbeddingModel
	}
	if c.VectorDimensions == 0 {
		c.VectorDimensions = defaults.VectorDimensions
	}
	if c.EmbeddingTimeoutSeconds == 0 {
		c.EmbeddingTimeoutSeconds = defaults.EmbeddingTimeoutSeconds
	}
	if c.SearchStrategy == "" {
		c.SearchStrategy = defaults.SearchStrategy
	}
	if c.DefaultMatchThreshold == 0 {
		c.DefaultMatchThreshold = defaults.DefaultMatchThreshold
	}
	if c.DefaultMatchCount == 0 {
		c.DefaultMatchCount = defaults.DefaultMatchCount
	}
	if c.ServerHost == "" {
		c.ServerHost = defaults.ServerHost
	}
	if c.ServerPort == 0 {
		c.ServerPort = defaults.ServerPort
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = defaults.AllowedOrigins
	}
}

// applyEnv overrides file values with the environment.
func (c *Config) applyEnv() {
	if token := os.Getenv(constants.EmbeddingTokenEnv); token != "" {
		c.EmbeddingToken = token
	}
	if dbPath := os.Getenv(envDatabase); dbPath != "" {
		c.DatabasePath = dbPath
	}
	if strategy := os.Getenv(envStrategy); strategy != "" {
		c.SearchStrategy = strings.ToLower(strategy)
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.SearchStrategy {
	case constants.StrategyAuto, constants.StrategyScan, constants.StrategyVec0:
	default:
		return fmt.Errorf("%w: %q", interrors.ErrUnknownStrategy, c.SearchStrategy)
	}
	if c.VectorDimensions < 0 {
		return fmt.Errorf("vector_dimensions must be positive, got %d", c.VectorDimensions)
	}
	if c.EmbeddingMaxRetries < 0 {
		return fmt.Errorf("embedding_max_retries must not be negative, got %d", c.EmbeddingMaxRetries)
	}
	return nil
}

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, configPath)
}

// SaveTo writes cfg to configPath. The embedding token is never persisted.
func SaveTo(cfg *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if cfg.DataDirectory != "" {
		if err := os.MkdirAll(cfg.DataDirectory, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	persisted := *cfg
	persisted.EmbeddingToken = ""

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, constants.ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDatabasePath returns the explicit database path or notes.db in the
// data directory.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDirectory, "notes.db")
}

// GetEmbeddingURL returns the feature-extraction pipeline URL for the configured model.
func (c *Config) GetEmbeddingURL() string {
	return fmt.Sprintf("%s/pipeline/feature-extraction/%s",
		strings.TrimRight(c.EmbeddingEndpoint, "/"), c.EmbeddingModel)
}

func (c *Config) GetEmbeddingTimeout() time.Duration {
	return time.Duration(c.EmbeddingTimeoutSeconds) * time.Second
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
