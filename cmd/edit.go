package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	interrors "github.com/streed/semantic-notes/internal/errors"
)

var editCmd = &cobra.Command{
	Use:   "edit <note-id>",
	Short: "Replace the content of a note",
	Long: `Replace the content of one of a user's notes. The embedding is
recomputed from the new content.

Examples:
  semantic-notes edit -u alice 12                      # Open in $EDITOR
  semantic-notes edit -u alice 12 -c "New content"     # Replace inline
  cat draft.md | semantic-notes edit -u alice 12 --stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editContent string
	editStdin   bool
)

func init() {
	rootCmd.AddCommand(editCmd)
	addUserFlag(editCmd)
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "New content")
	editCmd.Flags().BoolVar(&editStdin, "stdin", false, "Read the new content from stdin")
	editCmd.Flags().StringVar(&editorName, "editor-cmd", "", "Specify editor to use (overrides $EDITOR)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	note, err := svc.Notes.Get(cmd.Context(), id, userFlag)
	if err != nil {
		if errors.Is(err, interrors.ErrNoteNotFound) {
			return fmt.Errorf("note %d not found for user %s", id, userFlag)
		}
		return err
	}

	newContent := editContent
	switch {
	case newContent != "":
	case editStdin:
		if newContent, err = readAll(os.Stdin); err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
	default:
		if newContent, err = editText(note.Content); err != nil {
			return err
		}
	}

	if newContent == note.Content {
		fmt.Println("No changes made.")
		return nil
	}

	updated, err := svc.Notes.Update(cmd.Context(), id, userFlag, newContent)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	fmt.Printf("Note %d updated successfully!\n", updated.ID)
	fmt.Printf("Updated: %s\n", updated.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}
