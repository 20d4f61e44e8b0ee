package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/config"
	"github.com/streed/semantic-notes/internal/database"
	"github.com/streed/semantic-notes/internal/embeddings"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/models"
	"github.com/streed/semantic-notes/internal/search"
	"github.com/streed/semantic-notes/internal/services"
)

var (
	db         *database.DB
	noteRepo   *models.NoteRepository
	svc        *services.Services
	appConfig  *config.Config
	debugFlag  bool
	configFlag string
	Version    = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "semantic-notes",
	Short:   "A notes backend with semantic search",
	Version: Version,
	Long: `semantic-notes stores free-text notes per user, embeds each note with
sentence-transformers/all-MiniLM-L6-v2 through the Hugging Face inference API,
and ranks notes by cosine similarity to a query.

Run 'semantic-notes serve' for the HTTP API or 'semantic-notes mcp' for the
MCP tool server. Set HF_TOKEN to authenticate against the inference API.`,
	SilenceUsage: true,
}

func Execute() error {
	rootCmd.Version = Version
	defer closeDatabase()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initAppConfig)
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to the configuration file")
}

func loadConfig() (*config.Config, error) {
	if configFlag != "" {
		return config.LoadFrom(configFlag)
	}
	return config.Load()
}

func initAppConfig() {
	// The config commands work on the file directly.
	if c, _, err := rootCmd.Find(os.Args[1:]); err == nil && (c == configCmd || c.Parent() == configCmd) {
		return
	}

	var err error
	appConfig, err = loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if debugFlag || appConfig.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Data directory: %s", appConfig.DataDirectory)
		logger.Debug("Embedding URL: %s", appConfig.GetEmbeddingURL())
		logger.Debug("Vector dimensions: %d", appConfig.VectorDimensions)
		logger.Debug("Search strategy: %s", appConfig.SearchStrategy)
	}
	if appConfig.EmbeddingToken == "" {
		logger.Warn("HF_TOKEN is not set; embedding requests will be anonymous")
	}

	db, err = database.New(appConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}

	noteRepo = models.NewNoteRepository(db.Conn())
	if db.VectorIndexAvailable() {
		noteRepo.WithVectorIndex(appConfig.VectorDimensions)
	}

	provider := embeddings.NewHuggingFaceEmbedding(appConfig)
	strategy, err := search.NewStrategy(appConfig.SearchStrategy, noteRepo, provider.Dimensions(), db.VectorIndexAvailable())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting search strategy %q: %v\n", appConfig.SearchStrategy, err)
		os.Exit(1)
	}
	logger.Debug("Using %s search strategy", strategy.Name())

	svc = services.NewServices(appConfig, noteRepo, provider, search.NewEngine(provider, strategy))
}

func closeDatabase() {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database: %v", err)
	}
}
