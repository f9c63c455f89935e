package cli

import (
	"github.com/spf13/cobra"

	"github.com/ndhoang/truyendl/internal/config"
	"github.com/ndhoang/truyendl/internal/epub"
	"github.com/ndhoang/truyendl/internal/storage"
)

var epubCmd = &cobra.Command{
	Use:   "epub [story-id]",
	Short: "Build an EPUB from a downloaded story",
	Long: `Build an EPUB file from the chapters of an already downloaded story.

The story ID is the directory name under the output directory; use
'truyendl list' to see them.

Examples:
  truyendl epub dau-pha-thuong-khung
  truyendl epub -o ~/stories tien-nghich`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = config.Get().Downloads.Path
		}

		store, err := storage.NewStore(outputDir)
		if err != nil {
			return err
		}

		path, err := epub.Build(store, args[0], outputDir)
		if err != nil {
			return err
		}
		Successf("EPUB: %s", path)
		return nil
	},
}

func init() {
	epubCmd.Flags().StringP("output", "o", "", "output directory (default: ~/Downloads/truyendl)")
}
