package sites

import (
	"context"
	"errors"
)

var (
	// ErrNoMatchingSite indicates the URL belongs to no registered site.
	// Fatal for a run; there is nothing to retry.
	ErrNoMatchingSite = errors.New("url matches no supported site")
	// ErrStoryParse indicates the story page markup didn't yield the
	// expected metadata or chapter list. Fatal for a run.
	ErrStoryParse = errors.New("story page structure not recognized")
	// ErrChapterParse indicates one chapter's markup was unreadable.
	// Recorded per chapter; the fetch loop continues.
	ErrChapterParse = errors.New("chapter page structure not recognized")
)

// Fetcher retrieves a page body. Implementations own rate limiting and
// session handling; adapters only parse.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// ChapterRef is one entry in a story's table of contents
type ChapterRef struct {
	URL   string
	Title string
}

// StoryInfo is the canonical story description every adapter produces
type StoryInfo struct {
	Title       string
	Author      string
	Description string
	CoverURL    string
	Chapters    []ChapterRef
}

// ChapterContent is the extracted narrative text of a single chapter.
// Text is plain text with paragraph breaks preserved as blank lines.
type ChapterContent struct {
	Title string
	Text  string
}

// Adapter is the capability contract each site implementation satisfies.
// Adapters are stateless; all story state lives in StoryInfo/ChapterContent.
type Adapter interface {
	// Name returns the human-readable site name
	Name() string

	// Domains returns the domains this adapter matches. A URL matches when
	// its host equals a domain or is a subdomain of one.
	Domains() []string

	// NormalizeURL returns the canonical story-root URL for either a
	// story-root or an individual chapter URL. Most adapters resolve this
	// from the URL alone; WordPress needs the fetcher to find the story
	// page from a chapter page.
	NormalizeURL(ctx context.Context, f Fetcher, rawURL string) (storyURL string, wasChapter bool, err error)

	// StoryInfo fetches the story page (following chapter-list pagination)
	// and returns metadata plus the ordered chapter list
	StoryInfo(ctx context.Context, f Fetcher, storyURL string) (*StoryInfo, error)

	// ChapterContent fetches one chapter page and extracts its text
	ChapterContent(ctx context.Context, f Fetcher, chapterURL string) (*ChapterContent, error)
}
