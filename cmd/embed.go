package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed [text]",
	Short: "Compute the embedding of a text",
	Long: `Send the text to the embedding provider and print the resulting vector.

Examples:
  semantic-notes embed "hello world"
  semantic-notes embed --json "hello world" > vector.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

var embedJSON bool

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().BoolVar(&embedJSON, "json", false, "Print the full vector as JSON")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	vector, err := svc.Embed.Embed(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if embedJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string][]float32{"embedding": vector})
	}

	fmt.Printf("Dimensions: %d\n", len(vector))
	head := vector
	if len(head) > 8 {
		head = head[:8]
	}
	parts := make([]string, len(head))
	for i, v := range head {
		parts[i] = fmt.Sprintf("%.5f", v)
	}
	suffix := ""
	if len(vector) > len(head) {
		suffix = ", ..."
	}
	fmt.Printf("Vector: [%s%s]\n", strings.Join(parts, ", "), suffix)
	return nil
}
