package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndhoang/truyendl/internal/config"
	"github.com/ndhoang/truyendl/internal/storage"
	"github.com/ndhoang/truyendl/internal/tui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded stories",
	Long: `List the stories under the output directory together with their
download progress.

Examples:
  truyendl list
  truyendl list -o ~/stories`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		return runList(outputDir)
	},
}

func init() {
	listCmd.Flags().StringP("output", "o", "", "output directory (default: ~/Downloads/truyendl)")
}

func runList(outputDir string) error {
	if outputDir == "" {
		outputDir = config.Get().Downloads.Path
	}

	store, err := storage.NewStore(outputDir)
	if err != nil {
		return err
	}

	ids, err := store.ListStories()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No stories downloaded yet.")
		fmt.Printf("\nOutput directory: %s\n", outputDir)
		return nil
	}

	fmt.Printf("Stories in %s:\n\n", outputDir)
	for _, id := range ids {
		meta, err := store.ReadMetadata(id)
		if err != nil {
			Errorf("could not read %s: %v", id, err)
			continue
		}
		chapters, err := store.ReadAllChapters(id)
		if err != nil {
			Errorf("could not read %s: %v", id, err)
			continue
		}

		fmt.Printf("  %s\n", tui.TitleStyle.Render(meta.Title))
		fmt.Printf("    %s\n", tui.DimStyle.Render(fmt.Sprintf("by %s via %s", meta.Author, meta.Site)))
		line := fmt.Sprintf("    %d/%d chapters", len(chapters), meta.ChapterCount)
		if len(chapters) >= meta.ChapterCount {
			fmt.Println(tui.SuccessStyle.Render(line + " (complete)"))
		} else {
			fmt.Println(tui.WarningStyle.Render(line))
		}
		fmt.Printf("    %s\n\n", tui.DimStyle.Render(id))
	}
	return nil
}
