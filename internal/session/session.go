// Package session drives a download run end to end: detect the site,
// resolve the story, then fetch chapters one by one through the shared
// rate-limited client. Runs are resumable because chapters already on disk
// are skipped without touching the network.
package session

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/ndhoang/truyendl/internal/sites"
	"github.com/ndhoang/truyendl/internal/storage"
	"github.com/ndhoang/truyendl/internal/story"
)

// ImageFetcher is implemented by fetchers that can also pull binary
// resources. Cover download is skipped when the fetcher cannot.
type ImageFetcher interface {
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Config adjusts how a run behaves.
type Config struct {
	// Force re-downloads chapters whose files already exist.
	Force bool
	// ShowProgress draws a terminal progress bar across the chapter loop.
	ShowProgress bool
	// Logf receives run progress messages. Nil silences them.
	Logf func(format string, args ...interface{})
}

// Result summarizes a finished run.
type Result struct {
	StoryID        string
	Title          string
	Site           string
	TotalChapters  int
	Written        int
	Skipped        int
	Failed         int
	FailedChapters []int
	// Completed is false when the run stopped early, e.g. on cancellation.
	Completed bool
}

// Session ties a site registry, a fetcher and a store together for
// download runs.
type Session struct {
	registry *sites.Registry
	fetcher  sites.Fetcher
	store    *storage.Store
	cfg      Config
}

// New creates a session.
func New(registry *sites.Registry, fetcher sites.Fetcher, store *storage.Store, cfg Config) *Session {
	return &Session{registry: registry, fetcher: fetcher, store: store, cfg: cfg}
}

// Run downloads the requested chapter range of the story behind rawURL.
// Chapters that fail to parse are recorded and the run moves on; only
// detection, an invalid range, an unreadable story page or cancellation
// abort it.
func (s *Session) Run(ctx context.Context, rawURL string, rng story.Range) (*Result, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Detect(rawURL)
	if err != nil {
		return nil, err
	}
	s.logf("Detected site: %s", adapter.Name())

	storyURL, wasChapter, err := adapter.NormalizeURL(ctx, s.fetcher, rawURL)
	if err != nil {
		return nil, err
	}
	if wasChapter {
		s.logf("Chapter URL given, using story page %s", storyURL)
	}

	info, err := adapter.StoryInfo(ctx, s.fetcher, storyURL)
	if err != nil {
		return nil, err
	}

	st := &story.Story{
		ID:          story.Slug(storyURL),
		Title:       info.Title,
		Author:      info.Author,
		Description: info.Description,
		CoverURL:    info.CoverURL,
		SourceURL:   storyURL,
		Site:        adapter.Name(),
	}
	for i, ref := range info.Chapters {
		st.Chapters = append(st.Chapters, story.Chapter{
			Index:  i + 1,
			Title:  ref.Title,
			URL:    ref.URL,
			Status: story.StatusPending,
		})
	}

	result := &Result{
		StoryID:       st.ID,
		Title:         st.Title,
		Site:          st.Site,
		TotalChapters: len(st.Chapters),
	}

	// metadata is written once per run, even when nothing else is
	meta := story.NewMetadata(st)
	if err := s.store.WriteMetadata(st.ID, meta); err != nil {
		return nil, err
	}

	start, end, ok := rng.Clamp(len(st.Chapters))
	if !ok {
		// nothing to fetch, e.g. start beyond the last chapter
		s.logf("No chapters in the requested range (story has %d)", len(st.Chapters))
		result.Completed = true
		return result, nil
	}
	s.logf("Downloading chapters %d to %d of %q", start, end, st.Title)

	s.downloadCover(ctx, st)

	width := storage.PadWidth(len(st.Chapters))
	bar := s.newBar(end - start + 1)

	completed := true
	for idx := start; idx <= end; idx++ {
		if err := ctx.Err(); err != nil {
			s.logf("Stopped: %v", err)
			completed = false
			break
		}

		ch := &st.Chapters[idx-1]

		if !s.cfg.Force && s.store.HasChapter(st.ID, idx, width) {
			ch.Status = story.StatusFetched
			result.Skipped++
			s.stepBar(bar)
			continue
		}

		content, err := adapter.ChapterContent(ctx, s.fetcher, ch.URL)
		if err != nil {
			if ctx.Err() != nil {
				completed = false
				break
			}
			ch.Status = story.StatusFailed
			result.Failed++
			result.FailedChapters = append(result.FailedChapters, idx)
			s.logf("Chapter %d failed: %v", idx, err)
			s.stepBar(bar)
			continue
		}

		title := content.Title
		if title == "" {
			title = ch.Title
		}
		if err := s.store.WriteChapter(st.ID, idx, width, title, content.Text, s.cfg.Force); err != nil {
			return nil, err
		}
		ch.Status = story.StatusFetched
		result.Written++
		s.stepBar(bar)
	}
	s.finishBar(bar)
	result.Completed = completed

	// rebuild the reading copy from whatever is on disk now
	chapters, err := s.store.ReadAllChapters(st.ID)
	if err != nil {
		return nil, err
	}
	if len(chapters) > 0 {
		if err := s.store.WriteCombined(st.ID, meta, chapters); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// downloadCover stores the cover image when the fetcher supports binary
// downloads. Failures are logged, never fatal.
func (s *Session) downloadCover(ctx context.Context, st *story.Story) {
	if st.CoverURL == "" {
		return
	}
	img, ok := s.fetcher.(ImageFetcher)
	if !ok {
		return
	}
	if _, exists := s.store.CoverPath(st.ID); exists && !s.cfg.Force {
		return
	}

	data, err := img.DownloadImage(ctx, st.CoverURL)
	if err != nil {
		s.logf("Cover download failed: %v", err)
		return
	}

	ext := strings.ToLower(path.Ext(coverPathOf(st.CoverURL)))
	if _, err := s.store.WriteCover(st.ID, ext, data); err != nil {
		s.logf("Cover save failed: %v", err)
	}
}

func coverPathOf(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.cfg.Logf != nil {
		s.cfg.Logf(format, args...)
	}
}

func (s *Session) newBar(total int) *progressbar.ProgressBar {
	if !s.cfg.ShowProgress {
		return nil
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription("Chapters"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (s *Session) stepBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func (s *Session) finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
}
