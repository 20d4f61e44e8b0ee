package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/constants"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's notes",
	Long:  `List a user's notes, most recently updated first.`,
	RunE:  runList,
}

var (
	listLimit int
	listShort bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	addUserFlag(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 0, "Maximum number of notes to display (0 for all)")
	listCmd.Flags().BoolVarP(&listShort, "short", "s", false, "Show only ID and a one-line preview")
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}

	notes, err := svc.Notes.List(cmd.Context(), userFlag)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	if len(notes) == 0 {
		fmt.Println("No notes found.")
		return nil
	}
	if listLimit > 0 && len(notes) > listLimit {
		notes = notes[:listLimit]
	}

	fmt.Printf("Found %d notes:\n\n", len(notes))
	for _, note := range notes {
		if listShort {
			fmt.Printf("[%d] %s\n", note.ID, preview(note.Content, constants.ShortPreviewLength))
			continue
		}
		fmt.Printf("ID: %d\n", note.ID)
		fmt.Printf("Created: %s\n", formatTime(note.CreatedAt))
		fmt.Printf("Updated: %s\n", formatTime(note.UpdatedAt))
		fmt.Printf("Preview: %s\n", preview(note.Content, constants.PreviewLength))
		fmt.Println(strings.Repeat("-", 60))
	}
	return nil
}
