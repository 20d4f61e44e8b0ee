package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	interrors "github.com/streed/semantic-notes/internal/errors"
)

// isolateEnv points config and data lookups at a temp directory and clears
// overrides that would leak in from the developer's shell.
func isolateEnv(t *testing.T) string {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tempDir, "data-home"))
	t.Setenv(envConfigPath, "")
	t.Setenv(envDatabase, "")
	t.Setenv(envStrategy, "")
	t.Setenv("HF_TOKEN", "")
	return tempDir
}

func TestGetDefaultDataDirectory(t *testing.T) {
	tests := []struct {
		name     string
		xdgHome  string
		expected string
	}{
		{
			name:     "With XDG_DATA_HOME set",
			xdgHome:  "/custom/data",
			expected: "/custom/data/semantic-notes",
		},
		{
			name:    "Without XDG_DATA_HOME",
			xdgHome: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdgHome)
			result := GetDefaultDataDirectory()

			if tt.xdgHome == "" {
				homeDir, _ := os.UserHomeDir()
				expected := filepath.Join(homeDir, ".local", "share", "semantic-notes")
				if result != expected {
					t.Errorf("Expected %s, got %s", expected, result)
				}
			} else if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := isolateEnv(t)
	configFile := filepath.Join(tempDir, "semantic-notes", "config.json")

	dataDir := filepath.Join(tempDir, "test-data")

	testConfig := &Config{
		DataDirectory:           dataDir,
		DatabasePath:            filepath.Join(dataDir, "notes.db"),
		EmbeddingEndpoint:       "http://test:9000",
		EmbeddingModel:          "test-model",
		EmbeddingToken:          "secret",
		VectorDimensions:        768,
		EmbeddingTimeoutSeconds: 5,
		EmbeddingMaxRetries:     2,
		SearchStrategy:          "scan",
		DefaultMatchThreshold:   0.5,
		DefaultMatchCount:       3,
		ServerPort:              9090,
		Debug:                   true,
	}

	if err := Save(testConfig); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loadedConfig, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.DataDirectory != testConfig.DataDirectory {
		t.Errorf("DataDirectory mismatch: expected %s, got %s",
			testConfig.DataDirectory, loadedConfig.DataDirectory)
	}
	if loadedConfig.EmbeddingEndpoint != testConfig.EmbeddingEndpoint {
		t.Errorf("EmbeddingEndpoint mismatch: expected %s, got %s",
			testConfig.EmbeddingEndpoint, loadedConfig.EmbeddingEndpoint)
	}
	if loadedConfig.VectorDimensions != testConfig.VectorDimensions {
		t.Errorf("VectorDimensions mismatch: expected %d, got %d",
			testConfig.VectorDimensions, loadedConfig.VectorDimensions)
	}
	if loadedConfig.SearchStrategy != "scan" {
		t.Errorf("SearchStrategy mismatch: expected scan, got %s", loadedConfig.SearchStrategy)
	}
	if loadedConfig.DefaultMatchCount != 3 {
		t.Errorf("DefaultMatchCount mismatch: expected 3, got %d", loadedConfig.DefaultMatchCount)
	}
	if loadedConfig.EmbeddingMaxRetries != 2 {
		t.Errorf("EmbeddingMaxRetries mismatch: expected 2, got %d", loadedConfig.EmbeddingMaxRetries)
	}
	if !loadedConfig.Debug {
		t.Error("Debug should be true")
	}
	if loadedConfig.EmbeddingToken != "" {
		t.Error("Embedding token must not be persisted to disk")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	tempDir := isolateEnv(t)

	configDir := filepath.Join(tempDir, "semantic-notes")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}

	partialConfig := map[string]interface{}{
		"embedding_model": "custom-model",
	}
	data, _ := json.MarshalIndent(partialConfig, "", "  ")
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.EmbeddingModel != "custom-model" {
		t.Errorf("Expected custom EmbeddingModel, got %s", cfg.EmbeddingModel)
	}
	if cfg.EmbeddingEndpoint != "https://api-inference.huggingface.co" {
		t.Errorf("Expected default endpoint, got %s", cfg.EmbeddingEndpoint)
	}
	if cfg.VectorDimensions != 384 {
		t.Errorf("Expected default VectorDimensions 384, got %d", cfg.VectorDimensions)
	}
	if cfg.DefaultMatchThreshold != 0.3 {
		t.Errorf("Expected default threshold 0.3, got %f", cfg.DefaultMatchThreshold)
	}
	if cfg.DefaultMatchCount != 10 {
		t.Errorf("Expected default count 10, got %d", cfg.DefaultMatchCount)
	}
	if cfg.SearchStrategy != "auto" {
		t.Errorf("Expected default strategy auto, got %s", cfg.SearchStrategy)
	}
	if cfg.EmbeddingMaxRetries != 0 {
		t.Errorf("Expected no retries by default, got %d", cfg.EmbeddingMaxRetries)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabasePath == "" {
		t.Error("DatabasePath should be resolved")
	}
	if cfg.GetServerAddr() == "" {
		t.Error("server address should be resolved")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempDir := isolateEnv(t)
	t.Setenv("HF_TOKEN", "hf_test")
	t.Setenv(envDatabase, filepath.Join(tempDir, "override.db"))
	t.Setenv(envStrategy, "VEC0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.EmbeddingToken != "hf_test" {
		t.Errorf("Expected token from env, got %q", cfg.EmbeddingToken)
	}
	if cfg.GetDatabasePath() != filepath.Join(tempDir, "override.db") {
		t.Errorf("Expected database override, got %s", cfg.GetDatabasePath())
	}
	if cfg.SearchStrategy != "vec0" {
		t.Errorf("Expected strategy vec0, got %s", cfg.SearchStrategy)
	}
}

func TestLoadFromRejectsUnknownStrategy(t *testing.T) {
	tempDir := isolateEnv(t)
	path := filepath.Join(tempDir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"search_strategy": "faiss"}`), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if !errors.Is(err, interrors.ErrUnknownStrategy) {
		t.Fatalf("Expected ErrUnknownStrategy, got %v", err)
	}
}

func TestLoadFromInvalidJSON(t *testing.T) {
	tempDir := isolateEnv(t)
	path := filepath.Join(tempDir, "broken.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestGetDatabasePath(t *testing.T) {
	tests := []struct {
		name         string
		config       Config
		expectedPath string
	}{
		{
			name: "With DatabasePath set",
			config: Config{
				DatabasePath:  "/custom/path/notes.db",
				DataDirectory: "/data",
			},
			expectedPath: "/custom/path/notes.db",
		},
		{
			name: "Without DatabasePath set",
			config: Config{
				DatabasePath:  "",
				DataDirectory: "/data",
			},
			expectedPath: "/data/notes.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.GetDatabasePath()
			if result != tt.expectedPath {
				t.Errorf("Expected %s, got %s", tt.expectedPath, result)
			}
		})
	}
}

func TestGetEmbeddingURL(t *testing.T) {
	tests := []struct {
		endpoint string
		model    string
		expected string
	}{
		{
			"https://api-inference.huggingface.co",
			"sentence-transformers/all-MiniLM-L6-v2",
			"https://api-inference.huggingface.co/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2",
		},
		{"http://localhost:9000/", "mini", "http://localhost:9000/pipeline/feature-extraction/mini"},
	}

	for _, tt := range tests {
		cfg := Config{EmbeddingEndpoint: tt.endpoint, EmbeddingModel: tt.model}
		if got := cfg.GetEmbeddingURL(); got != tt.expected {
			t.Errorf("For endpoint %s: expected %s, got %s", tt.endpoint, tt.expected, got)
		}
	}
}

func TestGetEmbeddingTimeout(t *testing.T) {
	cfg := Config{EmbeddingTimeoutSeconds: 7}
	if cfg.GetEmbeddingTimeout() != 7*time.Second {
		t.Errorf("Expected 7s, got %v", cfg.GetEmbeddingTimeout())
	}
}
