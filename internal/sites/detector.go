package sites

import (
	"fmt"
	"net/url"
	"strings"
)

// Registry holds the known adapters in registration order. When the domain
// sets of two adapters overlap, the one registered first wins; registration
// order is the documented tie-break, not an accident of iteration.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry from adapters in precedence order
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry returns the registry of all built-in site adapters
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTruyenFull(),
		NewTangThuVien(),
		NewLaoPhatGia(),
		NewWordPress(),
	)
}

// Adapters returns the registered adapters in precedence order
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Detect returns the first adapter whose domain set matches the URL's host.
// It returns ErrNoMatchingSite when no adapter matches, which is distinct
// from any transient network error.
func (r *Registry) Detect(rawURL string) (Adapter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMatchingSite, rawURL)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		// url.Parse accepts schemeless strings; retry with a scheme so
		// "truyenfull.vn/x" still resolves a host
		if u2, err2 := url.Parse("https://" + rawURL); err2 == nil {
			host = strings.ToLower(u2.Hostname())
		}
	}
	if host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoMatchingSite, rawURL)
	}

	for _, a := range r.adapters {
		for _, domain := range a.Domains() {
			if hostMatches(host, domain) {
				return a, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoMatchingSite, host)
}

// hostMatches reports whether host equals domain or is a subdomain of it
func hostMatches(host, domain string) bool {
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
