package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/config"
	"github.com/streed/semantic-notes/internal/constants"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage semantic-notes configuration",
	Long:  `View and manage semantic-notes configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Available keys:
  - data-dir: Data directory for the notes database
  - embedding-endpoint: Hugging Face inference endpoint
  - embedding-model: Embedding model name
  - embedding-timeout: Embedding request timeout in seconds
  - embedding-retries: Retries for transient embedding failures
  - vector-dimensions: Number of vector dimensions
  - search-strategy: auto, scan or vec0
  - match-threshold: Default minimum similarity
  - match-count: Default maximum number of results
  - server-host: HTTP bind host
  - server-port: HTTP bind port
  - debug: Enable/disable debug logging (true/false)

The Hugging Face token is read from HF_TOKEN and never written to disk.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
}

func resolveConfigPath() (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	return config.GetConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	configPath, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	token := "not set"
	if cfg.EmbeddingToken != "" {
		token = "set (from " + constants.EmbeddingTokenEnv + ")"
	}

	fmt.Println("=== semantic-notes Configuration ===")
	fmt.Printf("Config file:           %s\n", configPath)
	fmt.Printf("data-dir:              %s\n", cfg.DataDirectory)
	fmt.Printf("Database path:         %s\n", cfg.GetDatabasePath())
	fmt.Printf("embedding-endpoint:    %s\n", cfg.EmbeddingEndpoint)
	fmt.Printf("embedding-model:       %s\n", cfg.EmbeddingModel)
	fmt.Printf("Embedding URL:         %s\n", cfg.GetEmbeddingURL())
	fmt.Printf("embedding-timeout:     %s\n", cfg.GetEmbeddingTimeout())
	fmt.Printf("embedding-retries:     %d\n", cfg.EmbeddingMaxRetries)
	fmt.Printf("Embedding token:       %s\n", token)
	fmt.Printf("vector-dimensions:     %d\n", cfg.VectorDimensions)
	fmt.Printf("search-strategy:       %s\n", cfg.SearchStrategy)
	fmt.Printf("match-threshold:       %g\n", cfg.DefaultMatchThreshold)
	fmt.Printf("match-count:           %d\n", cfg.DefaultMatchCount)
	fmt.Printf("Server address:        %s\n", cfg.GetServerAddr())
	fmt.Printf("Allowed origins:       %s\n", strings.Join(cfg.AllowedOrigins, ", "))
	fmt.Printf("debug:                 %v\n", cfg.Debug)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	fmt.Println(configPath)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid value for %s: %q", key, value)
		}
		return n, nil
	}

	var n int
	switch key {
	case "data-dir":
		cfg.DataDirectory = expandPath(value)
		cfg.DatabasePath = ""
	case "embedding-endpoint":
		cfg.EmbeddingEndpoint = value
	case "embedding-model":
		cfg.EmbeddingModel = value
	case "embedding-timeout":
		if n, err = parseInt(); err != nil {
			return err
		}
		cfg.EmbeddingTimeoutSeconds = n
	case "embedding-retries":
		if n, err = parseInt(); err != nil {
			return err
		}
		cfg.EmbeddingMaxRetries = n
	case "vector-dimensions":
		if n, err = parseInt(); err != nil {
			return err
		}
		if n != cfg.VectorDimensions {
			fmt.Println("Warning: changing vector dimensions leaves existing embeddings out of the vector index.")
		}
		cfg.VectorDimensions = n
	case "search-strategy":
		cfg.SearchStrategy = value
	case "match-threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, value)
		}
		cfg.DefaultMatchThreshold = f
	case "match-count":
		if n, err = parseInt(); err != nil {
			return err
		}
		cfg.DefaultMatchCount = n
	case "server-host":
		cfg.ServerHost = value
	case "server-port":
		if n, err = parseInt(); err != nil {
			return err
		}
		cfg.ServerPort = n
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		cfg.Debug = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := config.SaveTo(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Configuration updated: %s = %s\n", key, value)
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
