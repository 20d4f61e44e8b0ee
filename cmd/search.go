package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/constants"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over a user's notes",
	Long: `Embed the query and rank the user's notes by cosine similarity.

Examples:
  semantic-notes search --user u1 groceries
  semantic-notes search --user u1 --threshold 0.5 --count 3 "tax deadline"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchThreshold float64
	searchCount     int
)

func init() {
	rootCmd.AddCommand(searchCmd)
	addUserFlag(searchCmd)
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", constants.DefaultMatchThreshold, "Minimum similarity")
	searchCmd.Flags().IntVarP(&searchCount, "count", "n", constants.DefaultMatchCount, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var threshold *float64
	if cmd.Flags().Changed("threshold") {
		threshold = &searchThreshold
	}
	var count *int
	if cmd.Flags().Changed("count") {
		count = &searchCount
	}

	results, err := svc.Search.Search(cmd.Context(), userFlag, query, threshold, count)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No matching notes found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSIMILARITY\tUPDATED\tCONTENT\n")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n",
			r.ID, r.Similarity, formatTime(r.UpdatedAt), preview(r.Content, constants.ShortPreviewLength))
	}
	return w.Flush()
}
