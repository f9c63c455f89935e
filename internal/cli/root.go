package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndhoang/truyendl/internal/config"
	"github.com/ndhoang/truyendl/internal/db"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "truyendl",
	Short: "Download serialized stories as text and EPUB",
	Long: `truyendl downloads serialized web stories chapter by chapter and saves
them as plain text files plus a single EPUB per story.

Downloads are resumable: chapters already on disk are skipped, so an
interrupted run can simply be started again.

Examples:
  truyendl download https://truyenfull.vision/dau-pha-thuong-khung/
  truyendl download --start 100 --end 200 <story-url>
  truyendl epub dau-pha-thuong-khung
  truyendl list
  truyendl sites`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize config
		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		// Initialize database
		if err := db.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		db.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/truyendl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(epubCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Printf prints if verbose mode is enabled
func Printf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// Errorf prints an error message to stderr
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// Successf prints a success message
func Successf(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}
