package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndhoang/truyendl/internal/sites"
	"github.com/ndhoang/truyendl/internal/storage"
	"github.com/ndhoang/truyendl/internal/story"
)

// testAdapter serves a fixed story with canned chapter bodies. Chapters
// listed in broken fail with a parse error. name and host default to
// TestSite / test.example when unset.
type testAdapter struct {
	chapters int
	broken   map[int]bool
	name     string
	host     string
	fetches  atomic.Int64
}

func (a *testAdapter) siteName() string {
	if a.name != "" {
		return a.name
	}
	return "TestSite"
}

func (a *testAdapter) siteHost() string {
	if a.host != "" {
		return a.host
	}
	return "test.example"
}

func (a *testAdapter) Name() string      { return a.siteName() }
func (a *testAdapter) Domains() []string { return []string{a.siteHost()} }

func (a *testAdapter) NormalizeURL(_ context.Context, _ sites.Fetcher, rawURL string) (string, bool, error) {
	return rawURL, false, nil
}

func (a *testAdapter) StoryInfo(_ context.Context, _ sites.Fetcher, storyURL string) (*sites.StoryInfo, error) {
	info := &sites.StoryInfo{
		Title:       "Truyện Thử",
		Author:      "Ai Đó",
		Description: "Một truyện dùng để thử.",
	}
	for i := 1; i <= a.chapters; i++ {
		info.Chapters = append(info.Chapters, sites.ChapterRef{
			URL:   fmt.Sprintf("https://%s/truyen-thu/chuong-%d/", a.siteHost(), i),
			Title: fmt.Sprintf("Chương %d", i),
		})
	}
	return info, nil
}

func (a *testAdapter) ChapterContent(_ context.Context, _ sites.Fetcher, chapterURL string) (*sites.ChapterContent, error) {
	a.fetches.Add(1)
	var idx int
	fmt.Sscanf(chapterURL, fmt.Sprintf("https://%s/truyen-thu/chuong-", a.siteHost())+"%d/", &idx)
	if a.broken[idx] {
		return nil, fmt.Errorf("%w: broken page", sites.ErrChapterParse)
	}
	return &sites.ChapterContent{
		Title: fmt.Sprintf("Chương %d", idx),
		Text:  fmt.Sprintf("Nội dung chương %d.", idx),
	}, nil
}

// cancellingAdapter cancels the run's context once it has served the given
// number of chapters.
type cancellingAdapter struct {
	testAdapter
	cancelAfter int64
	cancel      context.CancelFunc
}

func (a *cancellingAdapter) ChapterContent(ctx context.Context, f sites.Fetcher, chapterURL string) (*sites.ChapterContent, error) {
	content, err := a.testAdapter.ChapterContent(ctx, f, chapterURL)
	if a.fetches.Load() >= a.cancelAfter {
		a.cancel()
	}
	return content, err
}

// nopFetcher satisfies sites.Fetcher; the test adapter never calls it.
type nopFetcher struct{}

func (nopFetcher) Get(context.Context, string) ([]byte, error) { return nil, nil }

func newTestSession(t *testing.T, adapter sites.Adapter) (*Session, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)
	sess := New(sites.NewRegistry(adapter), nopFetcher{}, store, Config{})
	return sess, store
}

const (
	storyURL = "https://test.example/truyen-thu/"
	storyID  = "test-example-truyen-thu"
)

func TestRunDownloadsAllChapters(t *testing.T) {
	adapter := &testAdapter{chapters: 3}
	sess, store := newTestSession(t, adapter)

	result, err := sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	assert.Equal(t, storyID, result.StoryID)
	assert.Equal(t, 3, result.TotalChapters)
	assert.Equal(t, 3, result.Written)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Failed)
	assert.True(t, result.Completed)

	ch, err := store.ReadChapter(storyID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "Chương 2", ch.Title)
	assert.Equal(t, "Nội dung chương 2.", ch.Text)

	meta, err := store.ReadMetadata(storyID)
	require.NoError(t, err)
	assert.Equal(t, "Truyện Thử", meta.Title)
	assert.Equal(t, "TestSite", meta.Site)
	assert.Equal(t, 3, meta.ChapterCount)
}

// A second run over a finished story touches no chapter pages.
func TestRunIdempotent(t *testing.T) {
	adapter := &testAdapter{chapters: 3}
	sess, _ := newTestSession(t, adapter)

	_, err := sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)
	fetchesAfterFirst := adapter.fetches.Load()

	result, err := sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	assert.Zero(t, result.Written)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, fetchesAfterFirst, adapter.fetches.Load())
}

func TestRunResumesAfterPartialRun(t *testing.T) {
	adapter := &testAdapter{chapters: 5}
	sess, _ := newTestSession(t, adapter)

	// first run covers chapters 1-2 only
	_, err := sess.Run(context.Background(), storyURL, story.Range{Start: 1, End: 2})
	require.NoError(t, err)

	result, err := sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 3, result.Written)
}

func TestRunClampsRange(t *testing.T) {
	adapter := &testAdapter{chapters: 10}
	sess, _ := newTestSession(t, adapter)

	result, err := sess.Run(context.Background(), storyURL, story.Range{Start: 5, End: 1000})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Written)
	assert.True(t, result.Completed)
}

func TestRunEmptyRange(t *testing.T) {
	adapter := &testAdapter{chapters: 10}
	sess, store := newTestSession(t, adapter)

	result, err := sess.Run(context.Background(), storyURL, story.Range{Start: 11, End: 0})
	require.NoError(t, err)

	assert.Zero(t, result.Written+result.Skipped+result.Failed)
	assert.True(t, result.Completed)
	assert.Zero(t, adapter.fetches.Load())

	// metadata is persisted even when no chapter falls in the range
	meta, err := store.ReadMetadata(storyID)
	require.NoError(t, err)
	assert.Equal(t, 10, meta.ChapterCount)
}

func TestRunInvalidRange(t *testing.T) {
	adapter := &testAdapter{chapters: 10}
	sess, _ := newTestSession(t, adapter)

	_, err := sess.Run(context.Background(), storyURL, story.Range{Start: 0})
	assert.Error(t, err)

	_, err = sess.Run(context.Background(), storyURL, story.Range{Start: 5, End: 2})
	assert.Error(t, err)
}

// A failing chapter is recorded and the run keeps going.
func TestRunContinuesPastFailedChapter(t *testing.T) {
	adapter := &testAdapter{chapters: 5, broken: map[int]bool{3: true}}
	sess, store := newTestSession(t, adapter)

	result, err := sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Written)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int{3}, result.FailedChapters)
	assert.True(t, result.Completed)

	assert.False(t, store.HasChapter(storyID, 3, 4))
	assert.True(t, store.HasChapter(storyID, 4, 4))

	// the failed chapter is retried on the next run
	result, err = sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Skipped)
	assert.Equal(t, 1, result.Failed)
}

func TestRunUnknownSite(t *testing.T) {
	sess, _ := newTestSession(t, &testAdapter{chapters: 1})

	_, err := sess.Run(context.Background(), "https://unknown.example/story/", story.All)
	assert.ErrorIs(t, err, sites.ErrNoMatchingSite)
}

func TestRunCancelled(t *testing.T) {
	adapter := &testAdapter{chapters: 5}
	sess, _ := newTestSession(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sess.Run(ctx, storyURL, story.All)
	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Zero(t, result.Written)
}

// Cancelling mid-run stops between chapters; everything already written
// stays on disk for the next run to resume from.
func TestRunCancelledMidLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := &cancellingAdapter{cancelAfter: 2, cancel: cancel}
	adapter.chapters = 5
	sess, store := newTestSession(t, adapter)

	result, err := sess.Run(ctx, storyURL, story.All)
	require.NoError(t, err)

	assert.False(t, result.Completed)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, int64(2), adapter.fetches.Load())

	assert.True(t, store.HasChapter(storyID, 1, 4))
	assert.True(t, store.HasChapter(storyID, 2, 4))
	assert.False(t, store.HasChapter(storyID, 3, 4))
}

// The same story mirrored on two sites lands in two directories; the second
// site's run must not be satisfied by the first site's files.
func TestRunMirroredStoriesKeepSeparateDirectories(t *testing.T) {
	siteA := &testAdapter{chapters: 2, name: "SiteA", host: "sitea.example"}
	siteB := &testAdapter{chapters: 2, name: "SiteB", host: "siteb.example"}

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)
	sess := New(sites.NewRegistry(siteA, siteB), nopFetcher{}, store, Config{})

	resA, err := sess.Run(context.Background(), "https://sitea.example/tien-nghich/", story.All)
	require.NoError(t, err)
	resB, err := sess.Run(context.Background(), "https://siteb.example/tien-nghich/", story.All)
	require.NoError(t, err)

	assert.NotEqual(t, resA.StoryID, resB.StoryID)
	assert.Equal(t, 2, resB.Written)
	assert.Zero(t, resB.Skipped)

	metaA, err := store.ReadMetadata(resA.StoryID)
	require.NoError(t, err)
	metaB, err := store.ReadMetadata(resB.StoryID)
	require.NoError(t, err)
	assert.Equal(t, "SiteA", metaA.Site)
	assert.Equal(t, "SiteB", metaB.Site)
}

func TestRunForceRedownloads(t *testing.T) {
	adapter := &testAdapter{chapters: 2}
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	sess := New(sites.NewRegistry(adapter), nopFetcher{}, store, Config{})
	_, err = sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	forced := New(sites.NewRegistry(adapter), nopFetcher{}, store, Config{Force: true})
	result, err := forced.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Written)
	assert.Zero(t, result.Skipped)
}

func TestRunWritesCombinedStory(t *testing.T) {
	adapter := &testAdapter{chapters: 2}
	sess, store := newTestSession(t, adapter)

	_, err := sess.Run(context.Background(), storyURL, story.All)
	require.NoError(t, err)

	chapters, err := store.ReadAllChapters(storyID)
	require.NoError(t, err)
	assert.Len(t, chapters, 2)
}
