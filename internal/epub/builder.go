// Package epub assembles a downloaded story into a single EPUB file built
// from the chapter files on disk.
package epub

import (
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	goepub "github.com/go-shiori/go-epub"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ndhoang/truyendl/internal/storage"
	"github.com/ndhoang/truyendl/internal/story"
)

// Build reads a story from the store and writes <SafeTitle>.epub into
// outputDir. It returns the path of the written file.
func Build(store *storage.Store, storyID, outputDir string) (string, error) {
	meta, err := store.ReadMetadata(storyID)
	if err != nil {
		return "", fmt.Errorf("read metadata: %w", err)
	}
	chapters, err := store.ReadAllChapters(storyID)
	if err != nil {
		return "", fmt.Errorf("read chapters: %w", err)
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("story %s has no downloaded chapters", storyID)
	}

	e, err := goepub.NewEpub(meta.Title)
	if err != nil {
		return "", fmt.Errorf("create epub: %w", err)
	}
	if meta.Author != "" {
		e.SetAuthor(meta.Author)
	}
	if meta.Description != "" {
		e.SetDescription(meta.Description)
	}
	e.SetLang("vi")

	coverRef := ""
	if coverPath, ok := store.CoverPath(storyID); ok {
		if ref, err := e.AddImage(coverPath, ""); err == nil {
			coverRef = ref
			e.SetCover(ref, "")
		}
	}

	if _, err := e.AddSection(titlePage(meta, coverRef), meta.Title, "", ""); err != nil {
		return "", fmt.Errorf("add title page: %w", err)
	}

	for _, ch := range chapters {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chương %d", ch.Index)
		}
		if _, err := e.AddSection(chapterHTML(title, ch.Text), title, "", ""); err != nil {
			return "", fmt.Errorf("add chapter %d: %w", ch.Index, err)
		}
	}

	outputPath := filepath.Join(outputDir, SafeTitle(meta.Title)+".epub")
	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("write epub: %w", err)
	}
	return outputPath, nil
}

func titlePage(meta *story.Metadata, coverRef string) string {
	var b strings.Builder
	if coverRef != "" {
		fmt.Fprintf(&b, `<div style="text-align: center;"><img src="%s" alt="Cover"/></div>`+"\n", coverRef)
	}
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(meta.Title))
	if meta.Author != "" {
		fmt.Fprintf(&b, `<p style="text-align: center;"><strong>Tác giả:</strong> %s</p>`+"\n", html.EscapeString(meta.Author))
	}
	if meta.Description != "" {
		b.WriteString("<h2>Giới thiệu</h2>\n")
		writeParagraphs(&b, meta.Description)
	}
	return b.String()
}

func chapterHTML(title, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(title))
	writeParagraphs(&b, text)
	return b.String()
}

// writeParagraphs renders the blank-line separated paragraphs of stored
// chapter text as <p> elements, keeping single line breaks as <br/>
func writeParagraphs(b *strings.Builder, text string) {
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br/>")
		fmt.Fprintf(b, "<p>%s</p>\n", escaped)
	}
}

var (
	unsafeFilename = regexp.MustCompile(`[^\w\s-]`)
	dashRuns       = regexp.MustCompile(`[-\s]+`)
)

// SafeTitle turns a story title into a filename: diacritics folded to
// ASCII, đ mapped to d, everything else reduced to word characters and
// single dashes.
func SafeTitle(title string) string {
	folded := foldDiacritics(title)
	folded = strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
	folded = unsafeFilename.ReplaceAllString(folded, "")
	folded = dashRuns.ReplaceAllString(strings.TrimSpace(folded), "-")
	folded = strings.Trim(folded, "-")
	if folded == "" {
		return "story"
	}
	return folded
}

// foldDiacritics strips combining marks after NFD decomposition, turning
// e.g. "Tiên Nghịch" into "Tien Nghich"
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
