package sites

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned pages keyed by URL.
type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (s *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	s.calls = append(s.calls, url)
	page, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return []byte(page), nil
}

type fakeAdapter struct {
	name    string
	domains []string
}

func (f *fakeAdapter) Name() string      { return f.name }
func (f *fakeAdapter) Domains() []string { return f.domains }
func (f *fakeAdapter) NormalizeURL(_ context.Context, _ Fetcher, rawURL string) (string, bool, error) {
	return rawURL, false, nil
}
func (f *fakeAdapter) StoryInfo(context.Context, Fetcher, string) (*StoryInfo, error) {
	return nil, nil
}
func (f *fakeAdapter) ChapterContent(context.Context, Fetcher, string) (*ChapterContent, error) {
	return nil, nil
}

func TestDetect(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"truyenfull", "https://truyenfull.vision/dau-pha-thuong-khung/", "TruyenFull"},
		{"truyenfull vn", "https://truyenfull.vn/dau-pha-thuong-khung/", "TruyenFull"},
		{"tangthuvien subdomain", "https://truyen.tangthuvien.vn/doc-truyen/pham-nhan-tu-tien", "TangThuVien"},
		{"laophatgia www", "https://www.laophatgia.net/truyen/tien-nghich", "LaoPhatGia"},
		{"wordpress subdomain", "https://myblog.wordpress.com/2024/01/an-than-tan-the/", "WordPress"},
		{"schemeless", "truyenfull.vision/dau-pha-thuong-khung/", "TruyenFull"},
		{"with port", "https://truyenfull.vision:8443/story/", "TruyenFull"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := reg.Detect(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, adapter.Name())
		})
	}
}

func TestDetectNoMatch(t *testing.T) {
	reg := DefaultRegistry()

	for _, url := range []string{
		"https://example.com/some-story/",
		"https://nottruyenfull.vision/story/",
		"://bad url",
	} {
		_, err := reg.Detect(url)
		assert.ErrorIs(t, err, ErrNoMatchingSite, url)
	}
}

// The first registered adapter claiming a host wins.
func TestDetectPrecedence(t *testing.T) {
	first := &fakeAdapter{name: "first", domains: []string{"example.com"}}
	second := &fakeAdapter{name: "second", domains: []string{"example.com"}}
	reg := NewRegistry(first, second)

	adapter, err := reg.Detect("https://example.com/story/")
	require.NoError(t, err)
	assert.Equal(t, "first", adapter.Name())
}

func TestDetectSubdomain(t *testing.T) {
	reg := NewRegistry(&fakeAdapter{name: "a", domains: []string{"example.com"}})

	adapter, err := reg.Detect("https://reader.example.com/story/")
	require.NoError(t, err)
	assert.Equal(t, "a", adapter.Name())

	// suffix match requires a dot boundary
	_, err = reg.Detect("https://badexample.com/story/")
	assert.ErrorIs(t, err, ErrNoMatchingSite)
}

func TestAdapters(t *testing.T) {
	reg := DefaultRegistry()
	names := make([]string, 0, len(reg.Adapters()))
	for _, a := range reg.Adapters() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"TruyenFull", "TangThuVien", "LaoPhatGia", "WordPress"}, names)
}
