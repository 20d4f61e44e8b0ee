package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long: `Check and manage database schema migrations.

Migrations run automatically on startup; these commands are for
troubleshooting.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of database migrations",
	RunE:  showMigrationStatus,
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run pending database migrations",
	RunE:  runMigrations,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback <migration-id>",
	Short: "Roll back a single applied migration",
	Args:  cobra.ExactArgs(1),
	RunE:  rollbackMigration,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

func showMigrationStatus(cmd *cobra.Command, args []string) error {
	status, err := migrations.NewMigrationRunner(db.Conn()).GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "MIGRATION ID\tSTATUS\tDESCRIPTION\n")
	fmt.Fprintf(w, "------------\t------\t-----------\n")

	applied := 0
	for _, m := range status {
		statusText := "PENDING"
		if m.Applied {
			statusText = "APPLIED"
			applied++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, statusText, m.Description)
	}
	w.Flush()

	fmt.Printf("\nApplied: %d of %d\n", applied, len(status))
	fmt.Printf("Vector index (vec0): %v\n", db.VectorIndexAvailable())
	return nil
}

func runMigrations(cmd *cobra.Command, args []string) error {
	if err := migrations.NewMigrationRunner(db.Conn()).RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	fmt.Println("Migration run completed successfully!")
	return nil
}

func rollbackMigration(cmd *cobra.Command, args []string) error {
	if err := migrations.NewMigrationRunner(db.Conn()).RollbackMigration(args[0]); err != nil {
		return err
	}
	fmt.Printf("Rolled back %s\n", args[0])
	return nil
}
