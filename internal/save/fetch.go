package save

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFetchTimeout is the per-image HTTP request timeout.
const DefaultFetchTimeout = 30 * time.Second

// fetchUserAgent is sent on remote image requests.
const fetchUserAgent = "Mozilla/5.0 (compatible; ChatExporter/1.0)"

// Fetcher retrieves image bytes. Data URIs and remote URLs go through the
// same path so callers never care where an image was embedded from.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (data []byte, contentType string, err error)
}

// FetchError represents a failure to retrieve one image.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", shortURL(e.URL), e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", shortURL(e.URL), e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// shortURL truncates long URLs (data URIs especially) for error messages.
func shortURL(u string) string {
	if len(u) > 64 {
		return u[:61] + "..."
	}
	return u
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the default timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: DefaultFetchTimeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURI(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &FetchError{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// decodeDataURI decodes data:<mediatype>[;base64],<payload>.
func decodeDataURI(uri string) ([]byte, string, error) {
	comma := strings.Index(uri, ",")
	if comma < 0 {
		return nil, "", &FetchError{URL: uri, Message: "malformed data URI"}
	}
	meta := uri[len("data:"):comma]
	payload := uri[comma+1:]

	contentType := meta
	if semi := strings.Index(meta, ";"); semi >= 0 {
		contentType = meta[:semi]
	}

	if strings.Contains(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", &FetchError{URL: uri, Message: "invalid base64 payload", Cause: err}
		}
		return data, contentType, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", &FetchError{URL: uri, Message: "invalid URL-encoded payload", Cause: err}
	}
	return []byte(decoded), contentType, nil
}
