package sites

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TruyenFull reads truyenfull.vision story and chapter pages. The site
// exposes its full chapter list through an AJAX endpoint keyed by a hidden
// truyen-id input; paginated listing pages are the fallback when the id is
// missing.
type TruyenFull struct{}

// NewTruyenFull creates the TruyenFull adapter
func NewTruyenFull() *TruyenFull {
	return &TruyenFull{}
}

func (t *TruyenFull) Name() string { return "TruyenFull" }

func (t *TruyenFull) Domains() []string {
	return []string{"truyenfull.vision", "truyenfull.vn"}
}

// NormalizeURL strips a trailing /chuong-N/ or /chapter-N/ segment so deep
// chapter links resolve to the story root the chapter list lives under
func (t *TruyenFull) NormalizeURL(_ context.Context, _ Fetcher, rawURL string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && isChapterSegment(parts[len(parts)-1]) {
		storyPath := strings.Join(parts[:len(parts)-1], "/")
		return fmt.Sprintf("%s://%s/%s/", u.Scheme, u.Host, storyPath), true, nil
	}
	return rawURL, false, nil
}

func isChapterSegment(seg string) bool {
	s := strings.ToLower(seg)
	return strings.Contains(s, "chuong-") || strings.Contains(s, "chapter-") || strings.Contains(s, "chap-")
}

func (t *TruyenFull) StoryInfo(ctx context.Context, f Fetcher, storyURL string) (*StoryInfo, error) {
	body, err := f.Get(ctx, storyURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	base := baseOf(storyURL)
	info := &StoryInfo{
		Title:       firstText(doc, "h3.title", "h1.title", "title"),
		Author:      strings.TrimSpace(doc.Find(`a[href*='/tac-gia/']`).First().Text()),
		Description: firstText(doc, "div.desc-text", "div#book-description"),
		CoverURL:    t.coverURL(doc, base),
	}

	// AJAX endpoint first; it returns the complete list in one request
	if id, ok := doc.Find("input#truyen-id").Attr("value"); ok && id != "" {
		chapters, err := t.chaptersFromAjax(ctx, f, base, storyURL, id)
		if err == nil && len(chapters) > 0 {
			info.Chapters = chapters
		}
	}
	if len(info.Chapters) == 0 {
		chapters, err := t.chaptersFromPagination(ctx, f, doc, base)
		if err != nil {
			return nil, err
		}
		info.Chapters = chapters
	}

	if len(info.Chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapter list on %s", ErrStoryParse, storyURL)
	}
	if info.Title == "" {
		return nil, fmt.Errorf("%w: no story title on %s", ErrStoryParse, storyURL)
	}

	sortChapters(info.Chapters)
	return info, nil
}

func (t *TruyenFull) ChapterContent(ctx context.Context, f Fetcher, chapterURL string) (*ChapterContent, error) {
	body, err := f.Get(ctx, chapterURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}

	title := firstText(doc, "a.chapter-title", "h2.chapter-title", "h1")

	var container *goquery.Selection
	for _, sel := range []string{
		"div#chapter-content", "div.chapter-content", "div.chapter-c",
		"div.chapter-text", "div#chapter-text",
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

func (t *TruyenFull) coverURL(doc *goquery.Document, base string) string {
	if img := doc.Find("div.info-holder div.books img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok && src != "" {
			return absoluteURL(base, src)
		}
	}
	var cover string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		class, _ := img.Attr("class")
		if coverClassPattern.MatchString(class) {
			if src, ok := img.Attr("src"); ok && src != "" {
				cover = absoluteURL(base, src)
				return false
			}
		}
		return true
	})
	return cover
}

var coverClassPattern = regexp.MustCompile(`(?i)book|cover|image`)

// chaptersFromAjax fetches /ajax.php?type=chapter_option&data=<id>, which
// returns <option> elements whose values are chapter path segments relative
// to the story root
func (t *TruyenFull) chaptersFromAjax(ctx context.Context, f Fetcher, base, storyURL, truyenID string) ([]ChapterRef, error) {
	ajaxURL := fmt.Sprintf("%s/ajax.php?type=chapter_option&data=%s", base, url.QueryEscape(truyenID))
	body, err := f.Get(ctx, ajaxURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	storyPath := strings.TrimRight(mustPath(storyURL), "/")
	var chapters []ChapterRef
	doc.Find("option[value]").Each(func(_ int, opt *goquery.Selection) {
		value, _ := opt.Attr("value")
		value = strings.TrimSpace(value)
		if value == "" || value == "0" {
			return
		}
		var full string
		if strings.HasPrefix(value, "/") {
			full = absoluteURL(base, value)
		} else {
			full = fmt.Sprintf("%s%s/%s/", base, storyPath, value)
		}
		title := strings.TrimSpace(opt.Text())
		if title != "" {
			chapters = append(chapters, ChapterRef{URL: full, Title: title})
		}
	})
	return chapters, nil
}

// chaptersFromPagination collects chapter links from the story page and any
// /trang-N/ listing pages it links to, merging page by page in page order
func (t *TruyenFull) chaptersFromPagination(ctx context.Context, f Fetcher, doc *goquery.Document, base string) ([]ChapterRef, error) {
	chapters := chapterLinksFrom(doc, base)
	seen := make(map[string]bool, len(chapters))
	for _, ch := range chapters {
		seen[ch.URL] = true
	}

	for _, pageURL := range paginationLinks(doc, base) {
		body, err := f.Get(ctx, pageURL)
		if err != nil {
			// a missing listing page loses chapters silently; surface it
			return nil, err
		}
		pageDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoryParse, err)
		}
		for _, ch := range chapterLinksFrom(pageDoc, base) {
			if !seen[ch.URL] {
				seen[ch.URL] = true
				chapters = append(chapters, ch)
			}
		}
	}
	return chapters, nil
}

// chapterLinksFrom pulls chapter anchors out of the list container, falling
// back to a whole-page scan when the site drops the container
func chapterLinksFrom(doc *goquery.Document, base string) []ChapterRef {
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

	list := doc.Find("div#list-chapter, ul.list-chapter").First()
	if list.Length() > 0 {
		list.Find("a[href]").Each(collect)
	}
	if len(chapters) == 0 {
		doc.Find("a[href]").Each(collect)
	}
	return chapters
}

var paginationHrefPattern = regexp.MustCompile(`(?i)/trang-(\d+)|/page-(\d+)|/p/(\d+)`)

// paginationLinks returns listing page URLs in ascending page order
func paginationLinks(doc *goquery.Document, base string) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find("div.pagination a[href], nav.pagination a[href], ul.pagination a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !paginationHrefPattern.MatchString(href) {
			return
		}
		full := absoluteURL(base, href)
		if !seen[full] {
			seen[full] = true
			links = append(links, full)
		}
	})

	sort.SliceStable(links, func(i, j int) bool {
		return pageNumber(links[i]) < pageNumber(links[j])
	})
	return links
}

func pageNumber(pageURL string) int {
	m := paginationHrefPattern.FindStringSubmatch(pageURL)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g != "" {
			n, _ := strconv.Atoi(g)
			return n
		}
	}
	return 0
}

// sortChapters orders refs by the chapter number embedded in their URLs,
// keeping source order for ties
func sortChapters(chapters []ChapterRef) {
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapterNumber(chapters[i].URL) < chapterNumber(chapters[j].URL)
	})
}

func mustPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
