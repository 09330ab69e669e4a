// Package fetcher performs the bounded page fetch for the snapshot
// pipeline: wall-clock timeout, manual redirect following with a safety
// re-check per hop, content-type enforcement, and a hard byte limit applied
// both to the Content-Length header and to the streamed body.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/pagekeep/pagekeep/internal/logger"
	"github.com/pagekeep/pagekeep/internal/safety"
	"github.com/pagekeep/pagekeep/internal/snapshot"
)

const (
	// defaultTimeout bounds the whole fetch including redirect hops.
	defaultTimeout = 30 * time.Second
	// defaultMaxRedirects caps the redirect chain length.
	defaultMaxRedirects = 5
	// defaultMaxBodyBytes limits the size of fetched page bodies.
	defaultMaxBodyBytes = 5 * 1024 * 1024 // 5 MB
	// defaultUserAgent identifies pagekeep to origin servers.
	defaultUserAgent = "Mozilla/5.0 (compatible; Pagekeep/1.0; +https://pagekeep.app/bot)"
)

// htmlContentTypes is the allow-list of archivable content types.
var htmlContentTypes = []string{"text/html", "application/xhtml+xml"}

// Config configures a Fetcher. Zero values fall back to defaults.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	UserAgent    string
}

// Result is a successfully fetched and decoded HTML page.
type Result struct {
	// HTML is the decoded document text.
	HTML string
	// FinalURL is the post-redirect URL the body was served from.
	FinalURL string
	// ContentType is the media type without parameters, lower-cased.
	ContentType string
	// Headers maps lower-cased response header names to their first value.
	Headers map[string]string
	// StatusCode is the terminal response status.
	StatusCode int
}

// Error is a typed fetch failure carrying the pipeline blocked reason.
type Error struct {
	Reason  snapshot.BlockedReason
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Message, e.Err)
	}

	return "fetch: " + e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Fetcher fetches pages within the configured bounds. Safe for concurrent
// use; it holds no mutable state beyond the shared http.Client.
type Fetcher struct {
	client *http.Client
	cfg    Config
	log    logger.Interface
	check  func(string) safety.Result
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSafetyCheck replaces the URL safety check applied to the initial URL
// and every redirect hop. The default is safety.Check; a stronger validator
// (one that resolves DNS) can be plugged in here.
func WithSafetyCheck(check func(string) safety.Result) Option {
	return func(f *Fetcher) { f.check = check }
}

// New creates a Fetcher. The underlying client never follows redirects
// itself; each hop is surfaced so the target can be re-validated.
func New(cfg Config, log logger.Interface, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	f := &Fetcher{
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cfg:   cfg,
		log:   log,
		check: safety.Check,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves rawURL and returns the decoded HTML. The initial URL and
// every redirect target are validated through the safety package; a redirect
// to an unsafe target fails with ssrf_blocked before any byte of the unsafe
// response is read.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, *Error) {
	if check := f.check(rawURL); !check.Safe {
		return nil, &Error{Reason: check.Reason, Message: check.Message}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	current := rawURL

	for hop := 0; ; hop++ {
		resp, err := f.do(ctx, current)
		if err != nil {
			return nil, mapTransportError(err)
		}

		if isRedirect(resp.StatusCode) {
			next, redirectErr := f.redirectTarget(resp, current)
			resp.Body.Close()

			if redirectErr != nil {
				return nil, redirectErr
			}

			if hop+1 > f.cfg.MaxRedirects {
				return nil, &Error{
					Reason:  snapshot.ReasonFetchError,
					Message: fmt.Sprintf("redirect chain exceeded %d hops", f.cfg.MaxRedirects),
				}
			}

			f.log.Debug("following redirect", "from", current, "to", next, "hop", hop+1)
			current = next

			continue
		}

		defer resp.Body.Close()

		return f.readTerminal(resp, current)
	}
}

// do issues a single GET without following redirects.
func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	return f.client.Do(req)
}

// redirectTarget resolves and validates the Location header of a 3xx
// response.
func (f *Fetcher) redirectTarget(resp *http.Response, current string) (string, *Error) {
	location := resp.Header.Get("Location")
	if location == "" {
		return "", &Error{
			Reason:  snapshot.ReasonFetchError,
			Message: fmt.Sprintf("redirect status %d without Location header", resp.StatusCode),
		}
	}

	base, err := url.Parse(current)
	if err != nil {
		return "", &Error{Reason: snapshot.ReasonFetchError, Message: "unparseable current URL", Err: err}
	}

	target, err := base.Parse(location)
	if err != nil {
		return "", &Error{Reason: snapshot.ReasonFetchError, Message: "unparseable redirect target", Err: err}
	}

	next := target.String()

	if check := f.check(next); !check.Safe {
		return "", &Error{
			Reason:  snapshot.ReasonSSRFBlocked,
			Message: "redirect to blocked target: " + check.Message,
		}
	}

	return next, nil
}

// readTerminal validates and reads the body of a non-redirect response.
func (f *Fetcher) readTerminal(resp *http.Response, finalURL string) (*Result, *Error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{
			Reason:  snapshot.ReasonForbidden,
			Message: fmt.Sprintf("origin returned %d", resp.StatusCode),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &Error{
			Reason:  snapshot.ReasonFetchError,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if !isHTMLContentType(contentType) {
		return nil, &Error{
			Reason:  snapshot.ReasonNotHTML,
			Message: "content type " + contentType + " is not archivable HTML",
		}
	}

	// Early rejection when the server declares an oversized body. The
	// streamed count below still applies in case the header lies low.
	if declared := resp.Header.Get("Content-Length"); declared != "" {
		if length, err := strconv.ParseInt(declared, 10, 64); err == nil && length > f.cfg.MaxBodyBytes {
			return nil, &Error{
				Reason:  snapshot.ReasonTooLarge,
				Message: fmt.Sprintf("declared content length %d exceeds limit %d", length, f.cfg.MaxBodyBytes),
			}
		}
	}

	// The limit applies to raw wire bytes, so count before charset
	// decoding changes the length.
	raw := &countingReader{r: io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1)}

	decoded, err := charset.NewReader(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &Error{Reason: snapshot.ReasonFetchError, Message: "charset detection failed", Err: err}
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, mapTransportError(err)
	}

	if raw.n > f.cfg.MaxBodyBytes {
		return nil, &Error{
			Reason:  snapshot.ReasonTooLarge,
			Message: fmt.Sprintf("body exceeded limit %d mid-stream", f.cfg.MaxBodyBytes),
		}
	}

	return &Result{
		HTML:        string(body),
		FinalURL:    finalURL,
		ContentType: contentType,
		Headers:     flattenHeaders(resp.Header),
		StatusCode:  resp.StatusCode,
	}, nil
}

// mapTransportError maps client errors to the blocked reason taxonomy.
func mapTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: snapshot.ReasonTimeout, Message: "fetch deadline exceeded", Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Reason: snapshot.ReasonTimeout, Message: "fetch canceled", Err: err}
	}

	return &Error{Reason: snapshot.ReasonFetchError, Message: "request failed", Err: err}
}

// isRedirect reports whether status is a redirect we should follow.
func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// mediaType extracts the lower-cased media type, dropping parameters.
func mediaType(header string) string {
	if idx := strings.IndexByte(header, ';'); idx >= 0 {
		header = header[:idx]
	}

	return strings.ToLower(strings.TrimSpace(header))
}

// isHTMLContentType reports whether contentType is in the HTML allow-list.
// An absent content type is treated as HTML; the parser decides from there.
func isHTMLContentType(contentType string) bool {
	if contentType == "" {
		return true
	}

	for _, allowed := range htmlContentTypes {
		if contentType == allowed {
			return true
		}
	}

	return false
}

// flattenHeaders lower-cases header names, joining repeated values so
// directives split across multiple header lines survive.
func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))

	for name, values := range header {
		if len(values) > 0 {
			flat[strings.ToLower(name)] = strings.Join(values, ", ")
		}
	}

	return flat
}

// countingReader tracks how many bytes have been read from the wrapped
// reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}
