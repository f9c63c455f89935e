package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndhoang/truyendl/internal/config"
	"github.com/ndhoang/truyendl/internal/db"
	"github.com/ndhoang/truyendl/internal/epub"
	"github.com/ndhoang/truyendl/internal/fetch"
	"github.com/ndhoang/truyendl/internal/notify"
	"github.com/ndhoang/truyendl/internal/session"
	"github.com/ndhoang/truyendl/internal/sites"
	"github.com/ndhoang/truyendl/internal/storage"
	"github.com/ndhoang/truyendl/internal/story"
	"github.com/ndhoang/truyendl/internal/tui"
)

var downloadCmd = &cobra.Command{
	Use:   "download [story-url]",
	Short: "Download a story",
	Long: `Download a story from a supported site.

The URL may point at the story page or at any chapter; chapter URLs are
resolved to their story automatically. Re-running the same download skips
chapters that are already on disk.

Examples:
  truyendl download https://truyenfull.vision/dau-pha-thuong-khung/
  truyendl download --start 50 --end 100 <story-url>
  truyendl download -o ~/stories --force <story-url>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		start, _ := cmd.Flags().GetInt("start")
		end, _ := cmd.Flags().GetInt("end")
		delaySecs, _ := cmd.Flags().GetFloat64("delay")
		force, _ := cmd.Flags().GetBool("force")
		noEpub, _ := cmd.Flags().GetBool("no-epub")
		return runDownload(cmd, args[0], outputDir, start, end, delaySecs, force, noEpub)
	},
}

func init() {
	downloadCmd.Flags().StringP("output", "o", "", "output directory (default: ~/Downloads/truyendl)")
	downloadCmd.Flags().Int("start", 1, "first chapter to download")
	downloadCmd.Flags().Int("end", 0, "last chapter to download (0 = through the end)")
	downloadCmd.Flags().Float64("delay", 0, "seconds between requests (minimum 2)")
	downloadCmd.Flags().Bool("force", false, "re-download chapters that already exist")
	downloadCmd.Flags().Bool("no-epub", false, "skip EPUB generation")
}

func runDownload(cmd *cobra.Command, storyURL, outputDir string, start, end int, delaySecs float64, force, noEpub bool) error {
	cfg := config.Get()

	if outputDir == "" {
		outputDir = cfg.Downloads.Path
	}
	if delaySecs == 0 {
		delaySecs = cfg.Downloads.Delay
	}

	store, err := storage.NewStore(outputDir)
	if err != nil {
		return err
	}

	fetcher := fetch.NewClient(fetch.Options{
		UserAgent: cfg.Network.UserAgent,
		Timeout:   cfg.Network.Timeout,
		Delay:     time.Duration(delaySecs * float64(time.Second)),
	})
	Printf("Request delay: %s\n", fetcher.Delay())

	sess := session.New(sites.DefaultRegistry(), fetcher, store, session.Config{
		Force:        force,
		ShowProgress: true,
		Logf: func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		},
	})

	// Ctrl-C stops the run between chapters; finished chapters stay on disk
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := sess.Run(ctx, storyURL, story.Range{Start: start, End: end})
	if err != nil {
		notify.DownloadFailed(storyURL, err.Error())
		return err
	}

	recordRun(storyURL, outputDir, result)
	printSummary(result, outputDir)

	if result.Written+result.Skipped > 0 && !noEpub && cfg.Epub.Enabled {
		fmt.Println("Generating EPUB...")
		epubPath, err := epub.Build(store, result.StoryID, outputDir)
		if err != nil {
			Errorf("EPUB generation failed: %v", err)
		} else {
			Successf("EPUB: %s", epubPath)
		}
	}

	if result.Completed {
		notify.DownloadComplete(result.Title)
	}
	return nil
}

func recordRun(storyURL, outputDir string, result *session.Result) {
	status := db.RunCompleted
	if !result.Completed {
		status = db.RunInterrupted
	}
	run := &db.Run{
		StoryID:       result.StoryID,
		URL:           storyURL,
		Title:         result.Title,
		Site:          result.Site,
		ChaptersTotal: result.TotalChapters,
		Written:       result.Written,
		Skipped:       result.Skipped,
		Failed:        result.Failed,
		Status:        status,
		OutputDir:     outputDir,
	}
	if err := db.CreateRun(run); err != nil {
		Printf("Could not record run: %v\n", err)
	}
}

func printSummary(result *session.Result, outputDir string) {
	fmt.Println()
	fmt.Println(tui.TitleStyle.Render(result.Title))
	fmt.Println(tui.NormalStyle.Render(fmt.Sprintf("  Site:     %s", result.Site)))
	fmt.Println(tui.NormalStyle.Render(fmt.Sprintf("  Chapters: %d total", result.TotalChapters)))
	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("  Written:  %d", result.Written)))
	if result.Skipped > 0 {
		fmt.Println(tui.DimStyle.Render(fmt.Sprintf("  Skipped:  %d (already downloaded)", result.Skipped)))
	}
	if result.Failed > 0 {
		fmt.Println(tui.ErrorStyle.Render(fmt.Sprintf("  Failed:   %d %v", result.Failed, result.FailedChapters)))
	}
	if !result.Completed {
		fmt.Println(tui.WarningStyle.Render("  Run interrupted; rerun the same command to resume"))
	}
	fmt.Println(tui.DimStyle.Render(fmt.Sprintf("  Output:   %s/%s", outputDir, result.StoryID)))
}
