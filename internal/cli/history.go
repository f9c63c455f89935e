package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndhoang/truyendl/internal/db"
	"github.com/ndhoang/truyendl/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View and manage download history",
	Long: `View and manage the record of past download runs.

Examples:
  truyendl history            List recent downloads
  truyendl history -n 50      List the last 50 downloads
  truyendl history clear      Clear all download history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return showHistory(limit)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all download history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ClearRuns(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		Successf("Download history cleared.")
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	historyCmd.AddCommand(historyClearCmd)
}

func showHistory(limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get download history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No download history.")
		fmt.Println("\nRuns are recorded automatically when you download a story.")
		return nil
	}

	fmt.Printf("Recent Downloads (%d):\n\n", len(runs))

	for i, r := range runs {
		fmt.Printf("  %d. %s (%s)\n", i+1, r.Title, r.Site)
		fmt.Printf("     %d/%d chapters written, %d skipped, %d failed\n",
			r.Written, r.ChaptersTotal, r.Skipped, r.Failed)
		if r.Status == db.RunInterrupted {
			fmt.Printf("     %s\n", tui.WarningStyle.Render("interrupted"))
		}
		fmt.Printf("     %s  %s\n\n", r.CreatedAt.Format("2006-01-02 15:04"), tui.DimStyle.Render(r.URL))
	}

	return nil
}
