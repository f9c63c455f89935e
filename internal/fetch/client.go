// Package fetch provides the rate-limited HTTP client every site adapter
// goes through. One fetcher serves a whole download run, so the limiter
// spaces out every request the run makes regardless of which page it is for.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// MinDelay is the floor on the pause between requests. Requested delays
// below it are raised to it.
const MinDelay = 2 * time.Second

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrBlocked indicates the site answered with an anti-bot challenge page
// instead of content
var ErrBlocked = errors.New("blocked by anti-bot protection")

// RequestError wraps a failed page request with the URL and status code it
// failed on.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
}

// Client fetches pages sequentially with a fixed minimum pause between
// requests.
type Client struct {
	userAgent string
	timeout   time.Duration
	delay     time.Duration
	limiter   *rate.Limiter
	http      *http.Client
}

// NewClient creates a fetch client. The delay is clamped to MinDelay.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Delay < MinDelay {
		opts.Delay = MinDelay
	}
	return &Client{
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		delay:     opts.Delay,
		// burst 1 so the first request goes out immediately and every
		// later one waits out the full delay
		limiter: rate.NewLimiter(rate.Every(opts.Delay), 1),
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

// Delay reports the effective pause between requests.
func (c *Client) Delay() time.Duration { return c.delay }

// Get fetches a page, waiting out the rate limit first. Cancelling the
// context releases a waiting Get.
func (c *Client) Get(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		body       []byte
		statusCode int
		blocked    bool
		visitErr   error
	)

	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
	)
	collector.SetRequestTimeout(c.timeout)

	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
		if isBlockPage(r.StatusCode, string(r.Body)) {
			blocked = true
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
			if isBlockPage(r.StatusCode, string(r.Body)) {
				blocked = true
			}
		}
		visitErr = err
	})

	if err := collector.Visit(pageURL); err != nil && visitErr == nil {
		visitErr = err
	}
	collector.Wait()

	if blocked {
		return nil, &RequestError{URL: pageURL, StatusCode: statusCode, Err: ErrBlocked}
	}
	if visitErr != nil {
		return nil, &RequestError{URL: pageURL, StatusCode: statusCode, Err: visitErr}
	}
	if statusCode >= 400 {
		return nil, &RequestError{URL: pageURL, StatusCode: statusCode, Err: fmt.Errorf("unexpected status")}
	}
	return body, nil
}

// DownloadImage fetches a binary resource such as a cover image. It shares
// the run's rate limit but skips the HTML pipeline.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &RequestError{URL: imageURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{URL: imageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
	return io.ReadAll(resp.Body)
}

func isBlockPage(statusCode int, body string) bool {
	if statusCode == http.StatusForbidden || statusCode == http.StatusServiceUnavailable {
		return true
	}
	return strings.Contains(body, "cf-browser-verification") ||
		strings.Contains(body, "Just a moment...") ||
		strings.Contains(body, "_cf_chl")
}
