package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	interrors "github.com/streed/semantic-notes/internal/errors"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new note",
	Long: `Add a new note for a user. The note is embedded before it is stored,
so a failing embedding provider leaves nothing behind.

Content can be provided in several ways:
1. Via --content flag: semantic-notes add -u alice -c "Buy milk"
2. Via stdin: echo "Buy milk" | semantic-notes add -u alice
3. Via editor: semantic-notes add -u alice -e`,
	RunE: runAdd,
}

var (
	content   string
	useEditor bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	addUserFlag(addCmd)
	addCmd.Flags().StringVarP(&content, "content", "c", "", "Note content")
	addCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use editor for content input")
	addCmd.Flags().StringVar(&editorName, "editor-cmd", "", "Specify editor to use (overrides $EDITOR)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}

	if content == "" {
		var err error
		switch {
		case useEditor && isTerminalAvailable():
			content, err = editText("")
		case !isTerminalAvailable():
			content, err = readAll(os.Stdin)
		default:
			fmt.Println("Enter note content (press Ctrl+D when finished):")
			content, err = readAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
	}
	if content == "" {
		return interrors.ErrEmptyContent
	}

	note, err := svc.Notes.Create(cmd.Context(), userFlag, content)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	fmt.Printf("Note created successfully!\n")
	fmt.Printf("ID: %d\n", note.ID)
	fmt.Printf("Owner: %s\n", note.UserID)
	fmt.Printf("Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}
