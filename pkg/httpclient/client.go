package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"podcast-digest/pkg/domain"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// BrowserClient uses browser-like headers to avoid 406 (Not Acceptable) errors
	// Used for show pages and archive listings
	BrowserClient ClientType = "browser"

	// CloudflareClient uses simple headers (like curl) to avoid 403 (Forbidden) errors
	// Used as the fallback for feeds behind Cloudflare that block browser-like User-Agents
	CloudflareClient ClientType = "cloudflare"

	// FeedClient identifies as a feed reader and asks for syndication formats
	FeedClient ClientType = "feed"
)

// DefaultTimeout bounds a single request, body included.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps a single download; episode audio is the largest payload.
const maxBodyBytes = 512 << 20

// ErrBodyTooLarge is returned instead of a truncated body.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError is a non-retryable HTTP failure (4xx other than 408/429).
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// HTTPClient wraps an http.Client with configuration
type HTTPClient struct {
	client     *http.Client
	clientType ClientType
	maxBody    int64
}

// NewClient creates a new HTTP client with the specified type.
// Cookies set during a redirect chain are kept for the lifetime of the client.
func NewClient(clientType ClientType, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	client := &http.Client{
		Timeout: timeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{
		client:     client,
		clientType: clientType,
		maxBody:    maxBodyBytes,
	}
}

// Type returns the header profile the client sends.
func (c *HTTPClient) Type() ClientType {
	return c.clientType
}

// Do executes an HTTP request with the appropriate headers for the client type
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Fetch GETs rawURL and returns the body and its content type.
// Transient failures (network errors, timeouts, 408, 429, 5xx) wrap
// domain.ErrSourceUnavailable; any other non-200 status is a *StatusError.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("get %s: %w", rawURL, errors.Join(domain.ErrSourceUnavailable, err))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		if Transient(resp.StatusCode) {
			return nil, "", errors.Join(domain.ErrSourceUnavailable, statusErr)
		}
		return nil, "", statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, "", fmt.Errorf("read %s: %w", rawURL, errors.Join(domain.ErrSourceUnavailable, err))
		}
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, "", fmt.Errorf("read %s: %w (%d bytes)", rawURL, ErrBodyTooLarge, c.maxBody)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// Transient reports whether an HTTP status is worth retrying.
func Transient(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, status int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == status
}

// setHeaders sets the appropriate headers based on client type
func (c *HTTPClient) setHeaders(req *http.Request) {
	switch c.clientType {
	case BrowserClient:
		// Browser-like headers to avoid 406 (Not Acceptable) errors
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Upgrade-Insecure-Requests", "1")

	case CloudflareClient:
		// Cloudflare allows simple tools like curl but blocks browser-like User-Agents
		req.Header.Set("User-Agent", "curl/8.7.1")

	case FeedClient:
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; podcast-digest/1.0; +https://github.com/podcast-digest)")
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	default:
		// Default: use Go's default User-Agent
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
