package sites

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TangThuVien reads truyen.tangthuvien.vn. Chapter URLs live under the story
// path as /doc-truyen/<story>/chuong-N.
type TangThuVien struct{}

// NewTangThuVien creates the TangThuVien adapter
func NewTangThuVien() *TangThuVien {
	return &TangThuVien{}
}

func (t *TangThuVien) Name() string { return "TangThuVien" }

func (t *TangThuVien) Domains() []string {
	return []string{"tangthuvien.vn", "truyen.tangthuvien.vn"}
}

func (t *TangThuVien) NormalizeURL(_ context.Context, _ Fetcher, rawURL string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.Contains(strings.ToLower(parts[len(parts)-1]), "chuong-") {
		storyPath := strings.Join(parts[:len(parts)-1], "/")
		return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, storyPath), true, nil
	}
	return rawURL, false, nil
}

func (t *TangThuVien) StoryInfo(ctx context.Context, f Fetcher, storyURL string) (*StoryInfo, error) {
	body, err := f.Get(ctx, storyURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoryParse, err)
	}

	base := baseOf(storyURL)

	title := firstText(doc, "h1", "h3.title", "div.book-title", "title")
	// page titles carry a " - site name" suffix
	if idx := strings.Index(title, " - "); idx > 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if title == "" {
		return nil, fmt.Errorf("%w: no story title on %s", ErrStoryParse, storyURL)
	}

	author := firstText(doc, "#authorId > p > a",
		`a[itemprop='author']`, `span[itemprop='author']`,
		`a[href*='/tac-gia/']`, `a[href*='/author/']`)

	info := &StoryInfo{
		Title:       title,
		Author:      author,
		Description: firstText(doc, "div.book-intro", `div[itemprop='description']`, "div.content-desc"),
		CoverURL:    t.coverURL(doc, base),
	}

	collect := func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		lower := strings.ToLower(href)
		if !strings.Contains(lower, "/chuong-") && !strings.Contains(lower, "/chapter") {
			return
		}
		info.Chapters = append(info.Chapters, ChapterRef{
			URL:   absoluteURL(base, href),
			Title: strings.TrimSpace(link.Text()),
		})
	}

	list := doc.Find("ul.list-chapter, div.list-chapter, ul#list-chapter, div#list-chapter").First()
	if list.Length() > 0 {
		list.Find("a[href]").Each(collect)
	}
	if len(info.Chapters) == 0 {
		doc.Find(`a[href*='chuong-']`).Each(collect)
	}
	info.Chapters = dedupeChapters(info.Chapters)
	if len(info.Chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapter list on %s", ErrStoryParse, storyURL)
	}

	sortChapters(info.Chapters)
	return info, nil
}

func (t *TangThuVien) ChapterContent(ctx context.Context, f Fetcher, chapterURL string) (*ChapterContent, error) {
	body, err := f.Get(ctx, chapterURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}

	title := firstText(doc, "h2", "h1.chapter-title", "a.chapter-title")

	container := doc.Find("div.box-chap, div#chapter-content, div.chapter-content").First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: no content container on %s", ErrChapterParse, chapterURL)
	}

	cleanContainer(container)
	text := containerText(container)
	if text == "" {
		return nil, fmt.Errorf("%w: empty chapter body on %s", ErrChapterParse, chapterURL)
	}

	return &ChapterContent{Title: title, Text: text}, nil
}

func (t *TangThuVien) coverURL(doc *goquery.Document, base string) string {
	img := doc.Find(`img.book-cover, img[itemprop='image']`).First()
	if img.Length() == 0 {
		img = doc.Find("div.book-img img").First()
	}
	if src, ok := img.Attr("src"); ok && src != "" {
		return absoluteURL(base, src)
	}
	return ""
}

func dedupeChapters(chapters []ChapterRef) []ChapterRef {
	seen := make(map[string]bool, len(chapters))
	out := chapters[:0]
	for _, ch := range chapters {
		if seen[ch.URL] {
			continue
		}
		seen[ch.URL] = true
		out = append(out, ch)
	}
	return out
}
