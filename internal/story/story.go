package story

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// Status represents the fetch state of a chapter
type Status string

const (
	StatusPending Status = "pending"
	StatusFetched Status = "fetched"
	StatusFailed  Status = "failed"
)

// Chapter is one addressable unit of narrative text within a story.
// Index is 1-based and uniquely identifies the chapter within its story.
type Chapter struct {
	Index  int
	Title  string
	URL    string
	Status Status
}

// Story is a complete serialized work composed of ordered chapters.
// Chapter order is the canonical reading order as published by the source.
type Story struct {
	ID          string
	Title       string
	Author      string
	Description string
	CoverURL    string
	SourceURL   string
	Site        string
	Chapters    []Chapter
}

// Metadata is the JSON document persisted alongside chapter files
type Metadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Description  string `json:"description"`
	SourceURL    string `json:"source_url"`
	Site         string `json:"site"`
	ChapterCount int    `json:"chapter_count"`
	DownloadedAt string `json:"downloaded_at"`
}

// NewMetadata builds metadata for a story with the download timestamp set to now
func NewMetadata(s *Story) *Metadata {
	return &Metadata{
		Title:        s.Title,
		Author:       s.Author,
		Description:  s.Description,
		SourceURL:    s.SourceURL,
		Site:         s.Site,
		ChapterCount: len(s.Chapters),
		DownloadedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
}

// Range is an inclusive chapter-index window. End == 0 means "through the
// last known chapter".
type Range struct {
	Start int
	End   int
}

// All is the full-story range
var All = Range{Start: 1, End: 0}

// Validate checks the range bounds: Start must be >= 1 and End, when set,
// must not precede Start.
func (r Range) Validate() error {
	if r.Start < 1 {
		return fmt.Errorf("invalid range: start must be >= 1, got %d", r.Start)
	}
	if r.End != 0 && r.End < r.Start {
		return fmt.Errorf("invalid range: end %d precedes start %d", r.End, r.Start)
	}
	return nil
}

// Clamp bounds the range to a story with total chapters. It returns the
// effective inclusive start and end indexes, and false when the range falls
// entirely beyond the last chapter (an empty range, not an error).
func (r Range) Clamp(total int) (start, end int, ok bool) {
	if total <= 0 || r.Start > total {
		return 0, 0, false
	}
	start = r.Start
	if start < 1 {
		start = 1
	}
	end = r.End
	if end == 0 || end > total {
		end = total
	}
	return start, end, true
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// Slug derives the stable story identifier used as the storage directory
// name. It is a deterministic function of the story URL: the host plus the
// last path segment, lowercased and reduced to [a-z0-9-]. The host is part
// of the identity because different sites mirror the same stories under the
// same path slug; without it, two sites would share one directory. URLs
// without a usable path segment fall back to a short hash of the full URL
// so repeated runs still converge on the same directory.
func Slug(storyURL string) string {
	u, err := url.Parse(storyURL)
	if err == nil {
		host := slugify(strings.TrimPrefix(u.Hostname(), "www."))
		seg := path.Base(strings.TrimRight(u.Path, "/"))
		seg = slugify(strings.TrimSuffix(seg, ".html"))
		if host != "" && len(seg) >= 3 && seg != "index" {
			slug := host + "-" + seg
			if len(slug) > 100 {
				slug = strings.Trim(slug[:100], "-")
			}
			return slug
		}
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(storyURL)))[:8]
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
