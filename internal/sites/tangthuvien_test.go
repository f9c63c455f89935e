package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTangThuVienNormalizeURL(t *testing.T) {
	a := NewTangThuVien()

	got, wasChapter, err := a.NormalizeURL(context.Background(), nil, "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien/chuong-12")
	require.NoError(t, err)
	assert.True(t, wasChapter)
	assert.Equal(t, "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien", got)

	got, wasChapter, err = a.NormalizeURL(context.Background(), nil, "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien")
	require.NoError(t, err)
	assert.False(t, wasChapter)
	assert.Equal(t, "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien", got)
}

func TestTangThuVienStoryInfo(t *testing.T) {
	page := `<html><body>
<h1>Phàm Nhân Tu Tiên - Tàng Thư Viện</h1>
<div id="authorId"><p><a href="/tac-gia/vong-ngu">Vong Ngữ</a></p></div>
<div class="book-intro">Một phàm nhân bước lên con đường tu tiên.</div>
<div class="book-img"><img src="/images/pham-nhan.jpg"></div>
<ul class="list-chapter">
	<li><a href="/doc-truyen/pham-nhan-tu-tien/chuong-2">Chương 2</a></li>
	<li><a href="/doc-truyen/pham-nhan-tu-tien/chuong-1">Chương 1</a></li>
	<li><a href="/doc-truyen/pham-nhan-tu-tien/chuong-1">Chương 1</a></li>
</ul>
</body></html>`
	f := &stubFetcher{pages: map[string]string{
		"https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien": page,
	}}

	info, err := NewTangThuVien().StoryInfo(context.Background(), f, "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien")
	require.NoError(t, err)

	// site suffix trimmed from the page heading
	assert.Equal(t, "Phàm Nhân Tu Tiên", info.Title)
	assert.Equal(t, "Vong Ngữ", info.Author)
	assert.Equal(t, "Một phàm nhân bước lên con đường tu tiên.", info.Description)
	assert.Equal(t, "https://truyen.tangthuvien.vn/images/pham-nhan.jpg", info.CoverURL)

	// duplicates collapsed, order by chapter number
	require.Len(t, info.Chapters, 2)
	assert.Contains(t, info.Chapters[0].URL, "chuong-1")
	assert.Contains(t, info.Chapters[1].URL, "chuong-2")
}

func TestTangThuVienChapterContent(t *testing.T) {
	page := `<html><body>
<h2>Chương 1: Núi Thanh Ngưu</h2>
<div class="box-chap">Hàn Lập ngồi xuống.<br>Hắn thở dài.</div>
</body></html>`
	f := &stubFetcher{pages: map[string]string{
		"https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien/chuong-1": page,
	}}

	ch, err := NewTangThuVien().ChapterContent(context.Background(), f, "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien/chuong-1")
	require.NoError(t, err)

	assert.Equal(t, "Chương 1: Núi Thanh Ngưu", ch.Title)
	assert.Equal(t, "Hàn Lập ngồi xuống.\nHắn thở dài.", ch.Text)
}
