package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordPressIndexPage = `<html><head><meta name="author" content="Mèo Lười"></head><body>
<h1 class="entry-title">Ẩn Thần Tân Thế [ON-GOING]</h1>
<div class="entry-content">
	<p>Một ngày nọ thế giới sụp đổ, nhân loại phải học cách sống lại từ đầu trong bóng tối.</p>
	<img src="https://files.wordpress.com/poster-an-than.jpg">
	<p><a href="https://myblog.wordpress.com/2024/01/an-than-chuong-1/">Chương 1</a></p>
	<p><a href="https://myblog.wordpress.com/2024/01/an-than-chuong-2/">Chương 2</a></p>
</div>
</body></html>`

const wordPressChapterPage = `<html><body>
<h1 class="entry-title">Ẩn Thần Tân Thế – Chương 1</h1>
<div class="entry-content">
	<p>Trời sập xuống.</p>
	<p>Mọi người bỏ chạy.</p>
	<div class="sharedaddy">share me</div>
	<p>← Chương trước | Chương sau →</p>
	<p><a href="https://myblog.wordpress.com/an-than-tan-the-on-going/">Mục lục</a></p>
</div>
</body></html>`

func TestWordPressNormalizeURL(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://myblog.wordpress.com/2024/01/an-than-chuong-1/": wordPressChapterPage,
	}}
	a := NewWordPress()

	// a chapter post resolves to the index link it carries
	got, wasChapter, err := a.NormalizeURL(context.Background(), f, "https://myblog.wordpress.com/2024/01/an-than-chuong-1/")
	require.NoError(t, err)
	assert.True(t, wasChapter)
	assert.Equal(t, "https://myblog.wordpress.com/an-than-tan-the-on-going/", got)

	// non-chapter URLs pass through without a fetch
	got, wasChapter, err = a.NormalizeURL(context.Background(), f, "https://myblog.wordpress.com/an-than-tan-the-on-going/")
	require.NoError(t, err)
	assert.False(t, wasChapter)
	assert.Equal(t, "https://myblog.wordpress.com/an-than-tan-the-on-going/", got)
	assert.Len(t, f.calls, 1)
}

func TestWordPressStoryInfo(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://myblog.wordpress.com/an-than-tan-the-on-going/": wordPressIndexPage,
	}}

	info, err := NewWordPress().StoryInfo(context.Background(), f, "https://myblog.wordpress.com/an-than-tan-the-on-going/")
	require.NoError(t, err)

	// status marker stripped from the title
	assert.Equal(t, "Ẩn Thần Tân Thế", info.Title)
	assert.Equal(t, "Mèo Lười", info.Author)
	assert.Contains(t, info.Description, "thế giới sụp đổ")
	assert.Equal(t, "https://files.wordpress.com/poster-an-than.jpg", info.CoverURL)

	require.Len(t, info.Chapters, 2)
	assert.Equal(t, "Chương 1", info.Chapters[0].Title)
	assert.Equal(t, "https://myblog.wordpress.com/2024/01/an-than-chuong-1/", info.Chapters[0].URL)
}

func TestWordPressChapterContent(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://myblog.wordpress.com/2024/01/an-than-chuong-1/": wordPressChapterPage,
	}}

	ch, err := NewWordPress().ChapterContent(context.Background(), f, "https://myblog.wordpress.com/2024/01/an-than-chuong-1/")
	require.NoError(t, err)

	// story name prefix dropped from the post title
	assert.Equal(t, "Chương 1", ch.Title)
	assert.Contains(t, ch.Text, "Trời sập xuống.")
	assert.Contains(t, ch.Text, "Mọi người bỏ chạy.")
	// sharing widgets and prev/next navigation removed
	assert.NotContains(t, ch.Text, "share me")
	assert.NotContains(t, ch.Text, "Chương trước")
}

func TestWordPressChapterContentPasswordProtected(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://myblog.wordpress.com/2024/01/locked/": `<html><body>
			<form class="post-password-form"><input type="password"></form>
		</body></html>`,
	}}

	_, err := NewWordPress().ChapterContent(context.Background(), f, "https://myblog.wordpress.com/2024/01/locked/")
	assert.ErrorIs(t, err, ErrChapterParse)
}
