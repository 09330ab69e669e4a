package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagekeep/pagekeep/internal/extract"
	"github.com/pagekeep/pagekeep/internal/logger"
)

const (
	// defaultOEmbedEndpoint is the platform's public embed API.
	defaultOEmbedEndpoint = "https://publish.twitter.com/oembed"
	// defaultTwitterMirror serves tweets as plain server-rendered markup,
	// used when the embed endpoint fails or returns no text.
	defaultTwitterMirror = "https://nitter.net"
	// twitterRequestTimeout bounds each platform call.
	twitterRequestTimeout = 15 * time.Second
)

// statusPathPattern recognizes tweet status paths: /{user}/status/{id}.
var statusPathPattern = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})/status(?:es)?/([0-9]+)`)

// twitterHosts are the hostnames the provider claims.
var twitterHosts = map[string]struct{}{
	"twitter.com":        {},
	"www.twitter.com":    {},
	"mobile.twitter.com": {},
	"x.com":              {},
	"www.x.com":          {},
}

// TwitterConfig configures the Twitter/X provider. Zero values use the
// public endpoints.
type TwitterConfig struct {
	OEmbedEndpoint string
	MirrorBase     string
}

// Twitter extracts tweet content. The oEmbed endpoint is tried first; the
// markup mirror is the fallback when the embed call fails or yields no
// paragraph text.
type Twitter struct {
	cfg    TwitterConfig
	client *http.Client
	log    logger.Interface
}

// NewTwitter creates the Twitter/X provider.
func NewTwitter(cfg TwitterConfig, log logger.Interface) *Twitter {
	if cfg.OEmbedEndpoint == "" {
		cfg.OEmbedEndpoint = defaultOEmbedEndpoint
	}
	if cfg.MirrorBase == "" {
		cfg.MirrorBase = defaultTwitterMirror
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Twitter{
		cfg:    cfg,
		client: &http.Client{Timeout: twitterRequestTimeout},
		log:    log,
	}
}

// Name identifies the provider in logs.
func (t *Twitter) Name() string { return "twitter" }

// Match reports whether u is a tweet status URL.
func (t *Twitter) Match(u *url.URL) bool {
	if _, ok := twitterHosts[strings.ToLower(u.Hostname())]; !ok {
		return false
	}

	return statusPathPattern.MatchString(u.Path)
}

// Extract produces tweet content for u.
func (t *Twitter) Extract(ctx context.Context, u *url.URL) (*Result, error) {
	matches := statusPathPattern.FindStringSubmatch(u.Path)
	if matches == nil {
		return nil, fmt.Errorf("twitter: %q is not a status URL", u.Path)
	}

	username, statusID := matches[1], matches[2]
	canonical := fmt.Sprintf("https://x.com/%s/status/%s", username, statusID)

	paragraphs, err := t.fromOEmbed(ctx, canonical)
	if err != nil || len(paragraphs) == 0 {
		if err != nil {
			t.log.Debug("tweet embed call failed, trying mirror", "status_id", statusID, "error", err)
		}

		paragraphs, err = t.fromMirror(ctx, username, statusID)
		if err != nil {
			return nil, fmt.Errorf("twitter: embed and mirror both failed: %w", err)
		}
	}

	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("twitter: no text recovered for status %s", statusID)
	}

	return t.buildResult(username, canonical, paragraphs), nil
}

// oembedResponse is the subset of the embed API payload we use.
type oembedResponse struct {
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
}

// fromOEmbed fetches the embed markup and extracts its paragraph text.
func (t *Twitter) fromOEmbed(ctx context.Context, tweetURL string) ([]string, error) {
	endpoint := t.cfg.OEmbedEndpoint + "?omit_script=true&url=" + url.QueryEscape(tweetURL)

	body, err := getBody(ctx, t.client, endpoint)
	if err != nil {
		return nil, err
	}

	var payload oembedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode oembed payload: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse embed markup: %w", err)
	}

	return paragraphTexts(doc.Find("blockquote p, p")), nil
}

// fromMirror scrapes the tweet text from the markup mirror.
func (t *Twitter) fromMirror(ctx context.Context, username, statusID string) ([]string, error) {
	mirrorURL := fmt.Sprintf("%s/%s/status/%s", strings.TrimRight(t.cfg.MirrorBase, "/"), username, statusID)

	doc, err := getDoc(ctx, t.client, mirrorURL)
	if err != nil {
		return nil, err
	}

	// Nitter-style mirrors render the tweet body in .tweet-content; the
	// selector list covers the common mirror variants.
	content := doc.Find(".tweet-content, .main-tweet .tweet-content, .timeline-item .tweet-content").First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("mirror page has no tweet content")
	}

	text := strings.TrimSpace(content.Text())
	if text == "" {
		return nil, fmt.Errorf("mirror tweet content is empty")
	}

	return []string{text}, nil
}

// buildResult assembles the snapshot content for a tweet.
func (t *Twitter) buildResult(username, canonical string, paragraphs []string) *Result {
	var body strings.Builder

	for _, p := range paragraphs {
		body.WriteString("<p>")
		body.WriteString(html.EscapeString(p))
		body.WriteString("</p>\n")
	}

	fmt.Fprintf(&body, `<p><a href="%s">View on X →</a></p>`, canonical)

	text := strings.Join(paragraphs, "\n\n")

	return &Result{
		Title:        "Tweet by @" + username,
		Byline:       fmt.Sprintf(`<a href="https://x.com/%s">@%s</a>`, username, username),
		HTML:         body.String(),
		Text:         text,
		Excerpt:      extract.TruncateAtWord(extract.CollapseWhitespace(text), extract.ExcerptMaxChars),
		SiteName:     "X (Twitter)",
		CanonicalURL: canonical,
	}
}

// paragraphTexts collects trimmed, non-empty text from a selection.
func paragraphTexts(sel *goquery.Selection) []string {
	var texts []string

	sel.Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			texts = append(texts, text)
		}
	})

	return texts
}
