// Package storage persists downloaded stories as plain files. Each story
// gets its own directory under the output root holding one text file per
// chapter, a combined reading copy, a metadata file and the cover image.
// The chapter files double as the resume state: a present file means the
// chapter is done.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ndhoang/truyendl/internal/story"
)

const (
	metadataFile = "metadata.json"
	combinedFile = "complete_story.txt"
)

var coverExts = []string{".jpg", ".jpeg", ".png", ".gif"}

// Store reads and writes story files under a root directory.
type Store struct {
	root string
}

// NewStore creates the output root if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the output root directory.
func (s *Store) Root() string { return s.root }

// StoryDir returns the directory for a story, creating it if needed.
func (s *Store) StoryDir(storyID string) (string, error) {
	dir := filepath.Join(s.root, storyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create story dir: %w", err)
	}
	return dir, nil
}

// PadWidth returns the zero-pad width for chapter filenames. Four digits
// unless the story needs more.
func PadWidth(chapterCount int) int {
	width := len(fmt.Sprintf("%d", chapterCount))
	if width < 4 {
		width = 4
	}
	return width
}

// ChapterFilename builds the filename for a chapter index.
func ChapterFilename(index, width int) string {
	return fmt.Sprintf("chapter_%0*d.txt", width, index)
}

// HasChapter reports whether a chapter file already exists.
func (s *Store) HasChapter(storyID string, index, width int) bool {
	_, err := os.Stat(filepath.Join(s.root, storyID, ChapterFilename(index, width)))
	return err == nil
}

// WriteChapter stores one chapter. The first line is the title, then a
// blank line, then the body. Existing files are left alone unless overwrite
// is set. The write goes through a temp file so a crash never leaves a
// half-written chapter behind.
func (s *Store) WriteChapter(storyID string, index, width int, title, text string, overwrite bool) error {
	dir, err := s.StoryDir(storyID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, ChapterFilename(index, width))
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	content := fmt.Sprintf("%s\n\n%s", title, text)
	return writeFileAtomic(path, []byte(content))
}

// ChapterText is one stored chapter read back from disk.
type ChapterText struct {
	Index int
	Title string
	Text  string
}

// ReadChapter loads a stored chapter file.
func (s *Store) ReadChapter(storyID string, index, width int) (*ChapterText, error) {
	data, err := os.ReadFile(filepath.Join(s.root, storyID, ChapterFilename(index, width)))
	if err != nil {
		return nil, err
	}
	title, text := splitChapterFile(string(data))
	return &ChapterText{Index: index, Title: title, Text: text}, nil
}

// ReadAllChapters loads every stored chapter of a story in index order.
func (s *Store) ReadAllChapters(storyID string) ([]*ChapterText, error) {
	dir := filepath.Join(s.root, storyID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var chapters []*ChapterText
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "chapter_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		var index int
		if _, err := fmt.Sscanf(name, "chapter_%d.txt", &index); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		title, text := splitChapterFile(string(data))
		chapters = append(chapters, &ChapterText{Index: index, Title: title, Text: text})
	}

	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Index < chapters[j].Index })
	return chapters, nil
}

// WriteMetadata stores the story metadata file, replacing any previous one.
func (s *Store) WriteMetadata(storyID string, meta *story.Metadata) error {
	dir, err := s.StoryDir(storyID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, metadataFile), append(data, '\n'))
}

// ReadMetadata loads the story metadata file.
func (s *Store) ReadMetadata(storyID string) (*story.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.root, storyID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta story.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// WriteCover stores the cover image next to the chapters. The extension is
// taken from the source URL, defaulting to .jpg.
func (s *Store) WriteCover(storyID, ext string, data []byte) (string, error) {
	dir, err := s.StoryDir(storyID)
	if err != nil {
		return "", err
	}
	ext = strings.ToLower(ext)
	valid := false
	for _, e := range coverExts {
		if ext == e {
			valid = true
			break
		}
	}
	if !valid {
		ext = ".jpg"
	}
	path := filepath.Join(dir, "cover"+ext)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// CoverPath returns the stored cover image path, if any.
func (s *Store) CoverPath(storyID string) (string, bool) {
	for _, ext := range coverExts {
		path := filepath.Join(s.root, storyID, "cover"+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// WriteCombined rebuilds the single-file reading copy from metadata and the
// chapters currently on disk.
func (s *Store) WriteCombined(storyID string, meta *story.Metadata, chapters []*ChapterText) error {
	dir, err := s.StoryDir(storyID)
	if err != nil {
		return err
	}

	var b strings.Builder
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(&b, "%s\n", meta.Title)
	fmt.Fprintf(&b, "Tác giả: %s\n", meta.Author)
	b.WriteString(rule + "\n\n")
	if meta.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", meta.Description)
		b.WriteString(rule + "\n\n")
	}
	for _, ch := range chapters {
		fmt.Fprintf(&b, "\n\n%s\n", ch.Title)
		b.WriteString(strings.Repeat("-", 80) + "\n\n")
		b.WriteString(ch.Text)
		b.WriteString("\n\n")
	}

	return writeFileAtomic(filepath.Join(dir, combinedFile), []byte(b.String()))
}

// ListStories returns the IDs of stories that have metadata under the root.
func (s *Store) ListStories() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, entry.Name(), metadataFile)); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func splitChapterFile(content string) (title, text string) {
	parts := strings.SplitN(content, "\n", 2)
	title = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		text = strings.TrimSpace(parts[1])
	}
	return title, text
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
