package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/api"
	"github.com/streed/semantic-notes/internal/logger"
	"golang.org/x/sync/errgroup"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the HTTP API server.

Endpoints:
  POST   /api/embed    {text}                                  -> {embedding}
  GET    /api/notes?user_id=                                   -> {notes}
  POST   /api/notes    {content, user_id}                      -> {note}
  PUT    /api/notes    {id, content, user_id}                  -> {note}
  DELETE /api/notes    {id, user_id}                           -> {success}
  POST   /api/search   {query, user_id, match_threshold?, match_count?} -> {results}
  GET    /api/health                                           -> {status, strategy, notes}

Examples:
  semantic-notes serve                             # Start on localhost:8080
  semantic-notes serve --host 0.0.0.0 --port 3000  # All interfaces, port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the server to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind the server to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	host := serveHost
	if host == "" {
		host = appConfig.ServerHost
	}
	port := servePort
	if port == 0 {
		port = appConfig.ServerPort
	}

	apiServer := api.NewAPIServer(appConfig, svc, db)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Start(host, port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	fmt.Printf("semantic-notes API listening on http://%s:%d/api (strategy: %s)\n",
		host, port, svc.Search.StrategyName())
	fmt.Println("Press Ctrl+C to stop the server")

	if err := g.Wait(); err != nil {
		logger.Error("Server error: %v", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
