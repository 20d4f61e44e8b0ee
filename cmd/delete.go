package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/constants"
	"github.com/streed/semantic-notes/internal/logger"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [note IDs...]",
	Short: "Delete one or more notes",
	Long: `Delete a user's notes by their IDs.

By default, you will be prompted for confirmation before deletion.
Use --force to skip the confirmation prompt.`,
	Args:    cobra.MinimumNArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runDelete,
}

var forceDelete bool

func init() {
	rootCmd.AddCommand(deleteCmd)
	addUserFlag(deleteCmd)
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseNoteID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	ctx := cmd.Context()
	previews := make(map[int64]string, len(ids))
	var found []int64
	for _, id := range ids {
		note, err := svc.Notes.Get(ctx, id, userFlag)
		if err != nil {
			logger.Debug("Note %d not found for %s: %v", id, userFlag, err)
			fmt.Printf("Warning: Note with ID %d not found\n", id)
			continue
		}
		if _, seen := previews[id]; !seen {
			found = append(found, id)
		}
		previews[id] = preview(note.Content, constants.ShortPreviewLength)
	}

	if len(found) == 0 {
		fmt.Println("No valid notes to delete.")
		return nil
	}

	fmt.Println("The following notes will be deleted:")
	fmt.Println(strings.Repeat("-", 60))
	for _, id := range found {
		fmt.Printf("  [%d] %s\n", id, previews[id])
	}
	fmt.Println(strings.Repeat("-", 60))

	if !forceDelete && !confirmDeletion(len(found)) {
		fmt.Println("Deletion cancelled.")
		return nil
	}

	successCount, failCount := 0, 0
	for _, id := range found {
		if _, err := svc.Notes.Delete(ctx, id, userFlag); err != nil {
			logger.Error("Failed to delete note %d: %v", id, err)
			fmt.Printf("✗ Failed to delete note %d: %v\n", id, err)
			failCount++
			continue
		}
		fmt.Printf("✓ Deleted note %d\n", id)
		successCount++
	}

	fmt.Println(strings.Repeat("=", 60))
	if failCount == 0 {
		fmt.Printf("Successfully deleted %d note(s).\n", successCount)
	} else {
		fmt.Printf("Deleted %d note(s), failed to delete %d note(s).\n", successCount, failCount)
	}
	return nil
}

func confirmDeletion(count int) bool {
	fmt.Printf("Delete %d note(s)? [y/N]: ", count)
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
