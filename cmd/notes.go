package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
)

var (
	userFlag   string
	editorName string
)

// addUserFlag registers the required --user flag that scopes a command to one owner.
func addUserFlag(c *cobra.Command) {
	c.Flags().StringVarP(&userFlag, "user", "u", os.Getenv("SEMANTIC_NOTES_USER"), "Owner of the notes (defaults to $SEMANTIC_NOTES_USER)")
}

func requireUser() error {
	if strings.TrimSpace(userFlag) == "" {
		return fmt.Errorf("%w: pass --user or set SEMANTIC_NOTES_USER", interrors.ErrMissingOwner)
	}
	return nil
}

func parseNoteID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note ID '%s': must be a positive number", arg)
	}
	return id, nil
}

func preview(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

// isTerminalAvailable checks if stdin is an interactive terminal
func isTerminalAvailable() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func readAll(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// editText writes initial to a temp file, opens it in the user's editor and
// returns the saved text.
func editText(initial string) (string, error) {
	tempFile, err := os.CreateTemp("", "semantic-notes-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(initial); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tempFile.Close()

	if err := openEditor(tempFile.Name()); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}
	return strings.TrimSpace(string(edited)), nil
}

// openEditor opens a file in --editor-cmd, $EDITOR, $VISUAL or the first
// common editor found on PATH.
func openEditor(filename string) error {
	editorCmd := editorName
	if editorCmd == "" {
		editorCmd = os.Getenv("EDITOR")
	}
	if editorCmd == "" {
		editorCmd = os.Getenv("VISUAL")
	}
	if editorCmd == "" {
		for _, e := range []string{"vim", "vi", "nano", "emacs"} {
			if _, err := exec.LookPath(e); err == nil {
				editorCmd = e
				break
			}
		}
	}
	if editorCmd == "" {
		return fmt.Errorf("no editor found. Set $EDITOR or use --editor-cmd")
	}

	logger.Debug("Opening file in editor: %s %s", editorCmd, filename)

	// Editors may carry arguments, e.g. "code --wait".
	parts := strings.Fields(editorCmd)
	c := exec.Command(parts[0], append(parts[1:], filename)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editorCmd, err)
	}
	return nil
}
