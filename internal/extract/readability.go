package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minArticleTextChars is the minimum plain-text length for readability
// output to count as an article. Below this the heuristic has most likely
// latched onto navigation or boilerplate.
const minArticleTextChars = 200

// maxArticleTextChars bounds stored plain text. Content beyond the limit is
// truncated with an ellipsis marker.
const maxArticleTextChars = 100_000

// ExcerptMaxChars is the character budget for derived excerpts.
const ExcerptMaxChars = 300

// ErrNoArchive is returned when the parsed document carries a noarchive
// robots directive. Checked here as well as on the response headers so a
// directive delivered only in markup is still honored.
var ErrNoArchive = errors.New("page carries a noarchive directive")

// ErrNotReadable is returned when the readability heuristic fails or yields
// too little text. The caller falls back to metadata-only extraction.
var ErrNotReadable = errors.New("readability extraction yielded no article")

// Article is the structured result of generic extraction.
type Article struct {
	Title    string
	Byline   string
	HTML     string
	Text     string
	Excerpt  string
	SiteName string
	Language string
}

// Readability runs content-block extraction over htmlStr. It re-checks the
// parsed document for a noarchive directive (ErrNoArchive), applies the
// minimum text threshold (ErrNotReadable), bounds text length, and resolves
// site name and language through their priority chains.
func Readability(htmlStr, pageURL string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if hasNoArchiveMeta(doc) {
		return nil, ErrNoArchive
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(htmlStr), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, err)
	}

	text := CollapseWhitespace(article.TextContent)
	if len([]rune(text)) < minArticleTextChars {
		return nil, fmt.Errorf("%w: %d chars below threshold", ErrNotReadable, len([]rune(text)))
	}

	if len([]rune(text)) > maxArticleTextChars {
		text = string([]rune(text)[:maxArticleTextChars]) + Ellipsis
	}

	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = TruncateAtWord(text, ExcerptMaxChars)
	} else {
		excerpt = TruncateAtWord(CollapseWhitespace(excerpt), ExcerptMaxChars)
	}

	siteName := strings.TrimSpace(article.SiteName)
	if siteName == "" {
		siteName = metadataFromDoc(doc, pageURL).SiteName
	}

	language := normalizeLang(article.Language)
	if language == "" {
		language = documentLanguage(doc)
	}

	return &Article{
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		HTML:     article.Content,
		Text:     text,
		Excerpt:  excerpt,
		SiteName: siteName,
		Language: language,
	}, nil
}

// hasNoArchiveMeta reports whether any robots meta tag opts the page out of
// archiving. The X-Robots-Tag response header is checked separately after
// fetch; this covers directives delivered only in markup.
func hasNoArchiveMeta(doc *goquery.Document) bool {
	found := false

	// meta@name is case-insensitive in HTML, so match the name by hand
	// rather than through an attribute selector.
	doc.Find("meta[name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name, _ := sel.Attr("name")
		if !strings.EqualFold(name, "robots") && !strings.EqualFold(name, "googlebot") {
			return true
		}

		content, _ := sel.Attr("content")
		if strings.Contains(strings.ToLower(content), "noarchive") {
			found = true
			return false
		}

		return true
	})

	return found
}
