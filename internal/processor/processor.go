// Package processor sequences the snapshot pipeline: domain extractor
// check, bounded fetch, noarchive checks, readability extraction with a
// metadata fallback, sanitization, and content hashing. One call to
// ProcessSnapshot is one logical unit of work with no internal retries;
// retry policy belongs to the job scheduler that invokes it.
package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/pagekeep/pagekeep/internal/extract"
	"github.com/pagekeep/pagekeep/internal/extract/domains"
	"github.com/pagekeep/pagekeep/internal/fetcher"
	"github.com/pagekeep/pagekeep/internal/logger"
	"github.com/pagekeep/pagekeep/internal/metrics"
	"github.com/pagekeep/pagekeep/internal/sanitize"
	"github.com/pagekeep/pagekeep/internal/snapshot"
)

// RobotsAllower checks robots.txt compliance before the main fetch.
type RobotsAllower interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Processor runs the snapshot pipeline. It holds no mutable state and is
// safe for concurrent use; independent snapshot runs share nothing.
type Processor struct {
	registry *domains.Registry
	fetcher  *fetcher.Fetcher
	robots   RobotsAllower // nil when the robots check is disabled
	metrics  *metrics.Pipeline
	log      logger.Interface
}

// Option configures a Processor.
type Option func(*Processor)

// WithRobots enables the robots.txt pre-fetch check.
func WithRobots(robots RobotsAllower) Option {
	return func(p *Processor) { p.robots = robots }
}

// WithMetrics records pipeline outcomes on the given collectors.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a Processor.
func New(registry *domains.Registry, f *fetcher.Fetcher, log logger.Interface, opts ...Option) *Processor {
	if log == nil {
		log = logger.NewNoOp()
	}

	p := &Processor{
		registry: registry,
		fetcher:  f,
		log:      log,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessSnapshot turns rawURL into a snapshot or a typed failure. Every
// failure is a blocked reason; errors never escape the pipeline boundary.
func (p *Processor) ProcessSnapshot(ctx context.Context, rawURL string) snapshot.ProcessResult {
	start := time.Now()

	result := p.run(ctx, rawURL)

	elapsed := time.Since(start)

	if result.OK {
		p.log.Info("snapshot produced",
			"url", rawURL,
			"canonical_url", result.Metadata.CanonicalURL,
			"word_count", result.Metadata.WordCount,
			"duration", elapsed)

		if p.metrics != nil {
			p.metrics.RecordSuccess(elapsed)
		}
	} else {
		p.log.Warn("snapshot blocked",
			"url", rawURL,
			"reason", string(result.Reason),
			"message", result.Message,
			"duration", elapsed)

		if p.metrics != nil {
			p.metrics.RecordBlocked(string(result.Reason), elapsed)
		}
	}

	return result
}

// run executes the pipeline states in order.
func (p *Processor) run(ctx context.Context, rawURL string) snapshot.ProcessResult {
	if result, done := p.tryDomainExtractor(ctx, rawURL); done {
		return result
	}

	if p.robots != nil {
		allowed, err := p.robots.IsAllowed(ctx, rawURL)
		if err != nil {
			p.log.Debug("robots check errored, continuing", "url", rawURL, "error", err)
		} else if !allowed {
			return snapshot.Blocked(snapshot.ReasonForbidden, "disallowed by robots.txt")
		}
	}

	page, fetchErr := p.fetcher.Fetch(ctx, rawURL)
	if fetchErr != nil {
		return snapshot.Blocked(fetchErr.Reason, fetchErr.Message)
	}

	if p.metrics != nil {
		p.metrics.RecordFetchBytes(len(page.HTML))
	}

	if tag, ok := page.Headers["x-robots-tag"]; ok && strings.Contains(strings.ToLower(tag), "noarchive") {
		return snapshot.Blocked(snapshot.ReasonNoArchive, "page opts out of archiving via X-Robots-Tag")
	}

	pageMeta := extract.Metadata(page.HTML, page.FinalURL)

	article, err := extract.Readability(page.HTML, page.FinalURL)

	switch {
	case err == nil:
		return p.finish(articleParts{
			Title:        article.Title,
			Byline:       article.Byline,
			HTML:         article.HTML,
			Text:         article.Text,
			Excerpt:      article.Excerpt,
			SiteName:     article.SiteName,
			Language:     article.Language,
			CanonicalURL: pageMeta.CanonicalURL,
			ImageURL:     pageMeta.ImageURL,
		})
	case errors.Is(err, extract.ErrNoArchive):
		return snapshot.Blocked(snapshot.ReasonNoArchive, "page opts out of archiving via robots meta tag")
	default:
		p.log.Debug("readability extraction failed, trying metadata fallback",
			"url", page.FinalURL, "error", err)

		return p.metadataFallback(page, pageMeta)
	}
}

// tryDomainExtractor runs a matching platform provider. The second return
// is false when the generic pipeline should run: either no provider
// matched, or the provider failed non-terminally.
func (p *Processor) tryDomainExtractor(ctx context.Context, rawURL string) (snapshot.ProcessResult, bool) {
	provider := p.registry.Match(rawURL)
	if provider == nil {
		return snapshot.ProcessResult{}, false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return snapshot.Blocked(snapshot.ReasonInvalidURL, "malformed URL"), true
	}

	result, err := provider.Extract(ctx, parsed)
	if err != nil {
		var terminal *domains.TerminalError
		if errors.As(err, &terminal) {
			return snapshot.Blocked(terminal.Reason, terminal.Message), true
		}

		// Platform-side failure: the provider is an optimization, not a
		// gate. Fall through to the generic fetch path.
		p.log.Warn("domain extractor failed, falling back to generic pipeline",
			"provider", provider.Name(), "url", rawURL, "error", err)

		return snapshot.ProcessResult{}, false
	}

	if result == nil {
		return snapshot.ProcessResult{}, false
	}

	return p.finish(articleParts{
		Title:        result.Title,
		Byline:       result.Byline,
		HTML:         result.HTML,
		Text:         result.Text,
		Excerpt:      result.Excerpt,
		SiteName:     result.SiteName,
		CanonicalURL: result.CanonicalURL,
	}), true
}

// metadataFallback synthesizes a minimal snapshot from page metadata when
// readability found no article. Deliberate graceful degradation: a title or
// description is still worth keeping.
func (p *Processor) metadataFallback(page *fetcher.Result, meta extract.PageMetadata) snapshot.ProcessResult {
	if meta.Title == "" && meta.Description == "" {
		return snapshot.Blocked(snapshot.ReasonParseFailed,
			"no readable article content and no usable page metadata")
	}

	title := meta.Title
	if title == "" {
		title = meta.Description
	}

	var body strings.Builder

	if meta.Description != "" {
		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(meta.Description))
	}

	fmt.Fprintf(&body, `<p><a href="%s">View original</a></p>`, page.FinalURL)

	return p.finish(articleParts{
		Title:        title,
		HTML:         body.String(),
		Text:         meta.Description,
		Excerpt:      extract.TruncateAtWord(meta.Description, extract.ExcerptMaxChars),
		SiteName:     meta.SiteName,
		CanonicalURL: meta.CanonicalURL,
		ImageURL:     meta.ImageURL,
	})
}

// articleParts is the pre-sanitization input to the pipeline tail.
type articleParts struct {
	Title        string
	Byline       string
	HTML         string
	Text         string
	Excerpt      string
	SiteName     string
	Language     string
	CanonicalURL string
	ImageURL     string
}

// finish sanitizes, hashes, and assembles the final result. The content
// hash is always computed over the sanitized HTML so identical rendered
// output hashes identically regardless of extraction path.
func (p *Processor) finish(parts articleParts) snapshot.ProcessResult {
	safeHTML := sanitize.HTML(parts.HTML)
	if safeHTML == "" {
		return snapshot.Blocked(snapshot.ReasonParseFailed, "extracted content was empty after sanitization")
	}

	text := strings.TrimSpace(parts.Text)
	if text == "" {
		text = sanitize.StripHTML(safeHTML)
	}

	excerpt := parts.Excerpt
	if excerpt == "" {
		excerpt = extract.TruncateAtWord(extract.CollapseWhitespace(text), extract.ExcerptMaxChars)
	}

	digest := sha256.Sum256([]byte(safeHTML))

	content := &snapshot.Content{
		Title:    strings.TrimSpace(parts.Title),
		Byline:   sanitize.HTML(parts.Byline),
		HTML:     safeHTML,
		Text:     text,
		Excerpt:  excerpt,
		SiteName: parts.SiteName,
		Length:   len([]rune(text)),
		Language: parts.Language,
	}

	meta := &snapshot.Metadata{
		CanonicalURL:  parts.CanonicalURL,
		Title:         content.Title,
		Byline:        content.Byline,
		Excerpt:       content.Excerpt,
		SiteName:      content.SiteName,
		ImageURL:      parts.ImageURL,
		WordCount:     len(strings.Fields(text)),
		Language:      content.Language,
		ContentSHA256: hex.EncodeToString(digest[:]),
	}

	return snapshot.Success(content, meta)
}
