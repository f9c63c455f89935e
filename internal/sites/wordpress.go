package sites

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// WordPress reads wordpress.com story blogs. Stories live as a single index
// post whose entry-content links out to one post per chapter.
type WordPress struct{}

// NewWordPress creates the WordPress adapter
func NewWordPress() *WordPress {
	return &WordPress{}
}

func (w *WordPress) Name() string { return "WordPress" }

func (w *WordPress) Domains() []string {
	return []string{"wordpress.com"}
}

// NormalizeURL resolves a chapter post back to the story index by following
// the index link blogs put in the chapter body (hrefs containing "on-going"
// or "hoan"). Without one the chapter URL itself is returned.
func (w *WordPress) NormalizeURL(ctx context.Context, f Fetcher, rawURL string) (string, bool, error) {
	if !isChapterPath(rawURL) {
		return rawURL, false, nil
	}

	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return rawURL, true, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return rawURL, true, nil
	}

	var storyURL string
	doc.Find("div.entry-content a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		lower := strings.ToLower(href)
		if strings.Contains(lower, "on-going") || strings.Contains(lower, "hoan") {
			storyURL = href
			return false
		}
		return true
	})
	if storyURL != "" {
		return storyURL, true, nil
	}
	return rawURL, true, nil
}

var (
	statusMarkerPattern = regexp.MustCompile(`(?i)\s*[\[(](ON-GOING|HOÀN|COMPLETE|Hoàn)[\])]`)
	authorLabelPattern  = regexp.MustCompile(`(?i)(?:Tác giả|Author|Nguyên tác):\s*([^\n]+)`)
	digitsPattern       = regexp.MustCompile(`\d+`)
)

func (w *WordPress) StoryInfo(ctx context.Context, f Fetcher, storyURL string) (*StoryInfo, error) {
	body, err := f.Get(ctx, storyURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	title := firstText(doc, "h1.entry-title", "h1.post-title")
	title = strings.TrimSpace(statusMarkerPattern.ReplaceAllString(title, ""))
	if title == "" {
		title = firstText(doc, "title")
	}
	if title == "" {
		return nil, fmt.Errorf("%w: no story title on %s", ErrStoryParse, storyURL)
	}

	content := doc.Find("div.entry-content").First()

	info := &StoryInfo{
		Title:       title,
		Author:      w.author(doc, content),
		Description: w.description(content),
		CoverURL:    w.coverURL(content),
	}

	base := baseOf(storyURL)
	seen := make(map[string]bool)
	content.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !isChapterPath(href) {
			return
		}
		text := strings.TrimSpace(link.Text())
		if text != "" && !digitsPattern.MatchString(text) && !strings.Contains(strings.ToLower(href), "chuong") {
			return
		}
		full := absoluteURL(base, href)
		if seen[full] {
			return
		}
		seen[full] = true
		if text == "" {
			text = fmt.Sprintf("Chương %d", len(info.Chapters)+1)
		}
		info.Chapters = append(info.Chapters, ChapterRef{URL: full, Title: text})
	})

	if len(info.Chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapter list on %s", ErrStoryParse, storyURL)
	}
	return info, nil
}

func (w *WordPress) ChapterContent(ctx context.Context, f Fetcher, chapterURL string) (*ChapterContent, error) {
	body, err := f.Get(ctx, chapterURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}

	if doc.Find("form.post-password-form").Length() > 0 {
		return nil, fmt.Errorf("%w: password protected post %s", ErrChapterParse, chapterURL)
	}

	title := w.chapterTitle(doc)

	content := doc.Find("div.entry-content").First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("%w: no content container on %s", ErrChapterParse, chapterURL)
	}

	cleanContainer(content)
	content.Find(".sharedaddy, .jetpack-related-posts, #comments, .navigation, .nav-links, .post-navigation").Remove()
	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src")
		}
		if strings.HasSuffix(strings.ToLower(src), ".gif") {
			img.Remove()
		}
	})

	text := w.bodyText(content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty chapter body on %s", ErrChapterParse, chapterURL)
	}

	return &ChapterContent{Title: title, Text: text}, nil
}

// Post titles read "Story Name – Chương 10", sometimes behind a "Riêng Tư:"
// privacy prefix; only the chapter part is kept
func (w *WordPress) chapterTitle(doc *goquery.Document) string {
	full := firstText(doc, "h1.entry-title", "h1.post-title")
	full = strings.TrimSpace(strings.TrimPrefix(full, "Riêng Tư:"))

	if idx := strings.LastIndex(full, "–"); idx >= 0 {
		return strings.TrimSpace(full[idx+len("–"):])
	}
	if idx := strings.LastIndex(full, " - "); idx >= 0 {
		return strings.TrimSpace(full[idx+3:])
	}
	return full
}

func (w *WordPress) author(doc *goquery.Document, content *goquery.Selection) string {
	if meta, ok := doc.Find(`meta[name='author']`).Attr("content"); ok && meta != "" {
		return meta
	}
	if author := firstText(doc, "span.author", `a[rel='author']`); author != "" {
		return author
	}
	if m := authorLabelPattern.FindStringSubmatch(content.Text()); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// description takes the first substantial paragraphs of the index post,
// skipping chapter navigation lines
func (w *WordPress) description(content *goquery.Selection) string {
	var parts []string
	content.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		text := strings.TrimSpace(p.Text())
		if len(text) > 20 && !strings.HasPrefix(text, "Chương") {
			parts = append(parts, text)
			if len(strings.Join(parts, " ")) > 200 {
				return false
			}
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func (w *WordPress) coverURL(content *goquery.Selection) string {
	var poster, first string
	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src")
		}
		if src == "" {
			return
		}
		lower := strings.ToLower(src)
		if poster == "" && strings.Contains(lower, "poster") {
			poster = src
		}
		if first == "" && !strings.HasSuffix(lower, ".gif") {
			first = src
		}
	})
	if poster != "" {
		return poster
	}
	return first
}

var navTextMarkers = []string{"← ", "chương trước", "chương sau", "navigation"}

// bodyText joins the top-level paragraph blocks of a post, dropping prev/next
// navigation lines blogs append after the prose
func (w *WordPress) bodyText(content *goquery.Selection) string {
	var paragraphs []string
	content.ChildrenFiltered("p, div").Each(func(_ int, block *goquery.Selection) {
		text := selectionText(block)
		if text == "" {
			return
		}
		lower := strings.ToLower(text)
		for _, marker := range navTextMarkers {
			if strings.Contains(lower, marker) {
				return
			}
		}
		paragraphs = append(paragraphs, tidyText(text))
	})

	out := strings.Join(paragraphs, "\n\n")
	out = multiNLPattern.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
