package sites

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Shared HTML-to-text extraction used by every adapter. Each source site
// wraps the narrative in different containers but the cleanup is the same:
// drop scripts/navigation/ads, turn <br> into newlines, and emit one
// paragraph per <p> separated by blank lines.

var (
	adClassPattern = regexp.MustCompile(`(?i)ads|advertisement|banner|comment|quang-cao|sharedaddy|jetpack`)
	spacesPattern  = regexp.MustCompile(`[ \t]+`)
	spaceNLPattern = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	multiNLPattern = regexp.MustCompile(`\n{3,}`)
)

// cleanContainer removes non-content elements from a content selection in place
func cleanContainer(sel *goquery.Selection) {
	sel.Find("script, style, nav, header, footer, iframe").Remove()
	sel.Find("div, p, span").Each(func(_ int, s *goquery.Selection) {
		if class, ok := s.Attr("class"); ok && adClassPattern.MatchString(class) {
			s.Remove()
		}
	})
}

// containerText extracts plain narrative text from a cleaned content
// container. Paragraph elements become blank-line separated paragraphs;
// containers without <p> children fall back to the whole subtree's text
// with <br> breaks preserved.
func containerText(sel *goquery.Selection) string {
	paragraphs := sel.Find("p")
	if paragraphs.Length() > 0 {
		var parts []string
		paragraphs.Each(func(_ int, p *goquery.Selection) {
			text := tidyText(selectionText(p))
			if text != "" {
				parts = append(parts, text)
			}
		})
		return strings.Join(parts, "\n\n")
	}

	text := tidyText(selectionText(sel))
	return multiNLPattern.ReplaceAllString(text, "\n\n")
}

// selectionText renders a selection's text content with <br> elements
// converted to newlines. goquery's Text() drops them, which loses the line
// breaks several sites use instead of paragraph tags.
func selectionText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		renderText(node, &b)
	}
	return b.String()
}

func renderText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "script", "style":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(c, b)
	}
}

// tidyText collapses runs of spaces and strips spaces hugging newlines
// while keeping the newlines themselves
func tidyText(s string) string {
	s = spacesPattern.ReplaceAllString(s, " ")
	s = spaceNLPattern.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// absoluteURL resolves href against base, returning href unchanged when it
// is already absolute or base is unparsable
func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// baseOf returns the scheme://host prefix of a URL
func baseOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

var chapterNumPattern = regexp.MustCompile(`(?i)/(?:chuong|chap|chapter)-(\d+)`)

// chapterNumber extracts the chapter number from a chapter URL, or 0 when
// the URL carries none. Used to keep merged paginated lists in reading order.
func chapterNumber(chapterURL string) int {
	m := chapterNumPattern.FindStringSubmatch(chapterURL)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// isChapterPath reports whether a URL path segment looks like a chapter link
func isChapterPath(href string) bool {
	h := strings.ToLower(href)
	return strings.Contains(h, "/chuong-") || strings.Contains(h, "/chapter-") || strings.Contains(h, "/chap-")
}

// firstText returns the trimmed text of the first selector that matches
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if text := strings.TrimSpace(s.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// pickImageSrc returns the best image URL from an <img>, preferring the
// lazy-load attributes some themes use, and rejecting placeholder images
func pickImageSrc(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original", "src"} {
		src, ok := img.Attr(attr)
		if !ok || src == "" {
			continue
		}
		lower := strings.ToLower(src)
		if strings.Contains(lower, "dflazy") || strings.Contains(lower, "placeholder") ||
			strings.Contains(lower, "loading") || strings.Contains(lower, "lazy.") {
			continue
		}
		if i := strings.IndexByte(src, '?'); i >= 0 {
			src = src[:i]
		}
		return src
	}
	return ""
}
