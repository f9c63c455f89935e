package sites

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LaoPhatGia reads laophatgia.net, a Madara-theme WordPress site. Covers are
// lazy-loaded, so real image URLs sit in data-src attributes behind a
// placeholder src.
type LaoPhatGia struct{}

// NewLaoPhatGia creates the LaoPhatGia adapter
func NewLaoPhatGia() *LaoPhatGia {
	return &LaoPhatGia{}
}

func (l *LaoPhatGia) Name() string { return "LaoPhatGia" }

func (l *LaoPhatGia) Domains() []string {
	return []string{"laophatgia.net", "www.laophatgia.net"}
}

func (l *LaoPhatGia) NormalizeURL(_ context.Context, _ Fetcher, rawURL string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && isChapterSegment(parts[len(parts)-1]) {
		storyPath := strings.Join(parts[:len(parts)-1], "/")
		return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, storyPath), true, nil
	}
	return rawURL, false, nil
}

func (l *LaoPhatGia) StoryInfo(ctx context.Context, f Fetcher, storyURL string) (*StoryInfo, error) {
	body, err := f.Get(ctx, storyURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	base := baseOf(storyURL)

	title := firstText(doc, "h1.title", "h1", "h2.title", "title")
	if idx := strings.Index(title, " - "); idx > 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if title == "" {
		return nil, fmt.Errorf("%w: no story title on %s", ErrStoryParse, storyURL)
	}

	info := &StoryInfo{
		Title:       title,
		Author:      l.author(doc),
		Description: firstText(doc, "div.desc", "div.intro", "div.content-intro"),
		CoverURL:    l.coverURL(doc, base),
	}

	info.Chapters = l.chapterLinks(doc, base)
	if len(info.Chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapter list on %s", ErrStoryParse, storyURL)
	}

	sortChapters(info.Chapters)
	return info, nil
}

func (l *LaoPhatGia) ChapterContent(ctx context.Context, f Fetcher, chapterURL string) (*ChapterContent, error) {
	body, err := f.Get(ctx, chapterURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}

	title := firstText(doc, "h2.chapter-title", "h1", "a.chapter-title")

	var container *goquery.Selection
	for _, sel := range []string{
		"div#chapter-content", "div.chapter-content", "div.reading-content",
		"div.content", "div.chapter-c", "article.chapter-content",
	} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			container = s
			break
		}
	}
	if container == nil {
		return nil, fmt.Errorf("%w: no content container on %s", ErrChapterParse, chapterURL)
	}

	cleanContainer(container)
	text := containerText(container)
	if text == "" {
		return nil, fmt.Errorf("%w: empty chapter body on %s", ErrChapterParse, chapterURL)
	}

	return &ChapterContent{Title: title, Text: text}, nil
}

// The Madara theme lists metadata rows under div.post-content; the author
// row is the fifth one
func (l *LaoPhatGia) author(doc *goquery.Document) string {
	postContent := doc.Find("div.summary_content_wrap div.post-content").First()
	if postContent.Length() > 0 {
		row := postContent.ChildrenFiltered("div").Eq(4)
		if author := strings.TrimSpace(row.Find("div.summary-content div").First().Text()); author != "" {
			return author
		}
		if author := strings.TrimSpace(row.Find("div.summary-content").First().Text()); author != "" {
			return author
		}
	}
	if author := firstText(doc, `a[href*='/tac-gia/']`, `a[href*='/author/']`); author != "" {
		return author
	}
	return strings.TrimSpace(doc.Find("div.info a").First().Text())
}

var laoCoverClassPattern = regexp.MustCompile(`(?i)cover|summary|image`)

func (l *LaoPhatGia) coverURL(doc *goquery.Document, base string) string {
	for _, sel := range []string{
		"div.summary_image > a > img",
		"div.summary_image img",
		"div.profile-manga div.summary_image img",
	} {
		if img := doc.Find(sel).First(); img.Length() > 0 {
			if src := pickImageSrc(img); src != "" {
				return absoluteURL(base, src)
			}
		}
	}
	var cover string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		class, _ := img.Attr("class")
		if !laoCoverClassPattern.MatchString(class) {
			return true
		}
		if src := pickImageSrc(img); src != "" {
			cover = absoluteURL(base, src)
			return false
		}
		return true
	})
	return cover
}

func (l *LaoPhatGia) chapterLinks(doc *goquery.Document, base string) []ChapterRef {
	var chapters []ChapterRef
	seen := make(map[string]bool)

	collect := func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !isChapterPath(href) {
			return
		}
		full := absoluteURL(base, href)
		if seen[full] {
			return
		}
		seen[full] = true
		chapters = append(chapters, ChapterRef{URL: full, Title: strings.TrimSpace(link.Text())})
	}

	container := doc.Find("div.page-content-listing, div.list-chapter").First()
	if container.Length() > 0 {
		container.Find("li a[href]").Each(collect)
	}
	if len(chapters) == 0 {
		for _, sel := range []string{
			"ul.list-chapter", "div#list-chapter", "div.chapter-list",
			"ul.chapter-list", "div.episodes", "ul.episodes", "div#chapters",
		} {
			doc.Find(sel).First().Find("a[href]").Each(collect)
			if len(chapters) > 0 {
				break
			}
		}
	}
	if len(chapters) == 0 {
		doc.Find("a[href]").Each(collect)
	}
	return chapters
}
