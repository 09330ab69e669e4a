package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMetadata holds best-effort page metadata. Every field is optional;
// resolution failures yield empty strings, never errors.
type PageMetadata struct {
	Title        string
	Description  string
	SiteName     string
	ImageURL     string
	CanonicalURL string
}

// Metadata extracts Open Graph, Twitter Card, and canonical-link metadata
// from htmlStr. Each field follows a fixed priority chain; relative image
// and canonical URLs are resolved against pageURL (the fetch's final URL).
func Metadata(htmlStr, pageURL string) PageMetadata {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return PageMetadata{}
	}

	return metadataFromDoc(doc, pageURL)
}

// metadataFromDoc extracts metadata from an already-parsed document.
func metadataFromDoc(doc *goquery.Document, pageURL string) PageMetadata {
	meta := PageMetadata{
		Title: firstNonEmpty(
			metaContent(doc, "meta[property='og:title']"),
			metaContent(doc, "meta[name='twitter:title']"),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			metaContent(doc, "meta[property='og:description']"),
			metaContent(doc, "meta[name='twitter:description']"),
			metaContent(doc, "meta[name='description']"),
		),
		SiteName: firstNonEmpty(
			metaContent(doc, "meta[property='og:site_name']"),
			metaContent(doc, "meta[name='application-name']"),
		),
	}

	image := firstNonEmpty(
		metaContent(doc, "meta[property='og:image']"),
		metaContent(doc, "meta[name='twitter:image']"),
	)
	meta.ImageURL = resolveAgainst(pageURL, image)

	canonical := firstNonEmpty(
		linkHref(doc, "link[rel='canonical']"),
		metaContent(doc, "meta[property='og:url']"),
	)

	meta.CanonicalURL = resolveAgainst(pageURL, canonical)
	if meta.CanonicalURL == "" {
		meta.CanonicalURL = pageURL
	}

	return meta
}

// documentLanguage resolves the page language: lang attribute on <html>,
// then the content-language meta, then og:locale.
func documentLanguage(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").Attr("lang"); ok && strings.TrimSpace(lang) != "" {
		return normalizeLang(lang)
	}

	if lang := metaContent(doc, "meta[http-equiv='content-language']"); lang != "" {
		return normalizeLang(lang)
	}

	if locale := metaContent(doc, "meta[property='og:locale']"); locale != "" {
		return normalizeLang(locale)
	}

	return ""
}

// normalizeLang reduces lang values like "en_US" or "en-US, fr" to a bare
// ISO code.
func normalizeLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if idx := strings.IndexAny(lang, ",;"); idx >= 0 {
		lang = lang[:idx]
	}

	lang = strings.ReplaceAll(lang, "_", "-")

	if idx := strings.IndexByte(lang, '-'); idx > 0 {
		lang = lang[:idx]
	}

	return strings.ToLower(strings.TrimSpace(lang))
}

// metaContent returns the trimmed content attribute of the first element
// matching selector.
func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")

	return strings.TrimSpace(content)
}

// linkHref returns the trimmed href attribute of the first element matching
// selector.
func linkHref(doc *goquery.Document, selector string) string {
	href, _ := doc.Find(selector).First().Attr("href")

	return strings.TrimSpace(href)
}

// resolveAgainst resolves ref relative to base. Unparseable input yields ""
// rather than an error; metadata is best-effort.
func resolveAgainst(base, ref string) string {
	if ref == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	resolved, err := baseURL.Parse(ref)
	if err != nil {
		return ""
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

// firstNonEmpty returns the first non-empty candidate.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}

	return ""
}
