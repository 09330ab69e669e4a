// Package sanitize reduces untrusted HTML to the allow-listed subset that
// pagekeep stores and renders. Sanitization runs on every extraction path
// before content is hashed or persisted; nothing reaches storage unsanitized.
package sanitize

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// anchorRel is forced onto every retained anchor regardless of source
// markup. Hard invariant, not a default.
const anchorRel = "noopener noreferrer nofollow"

// policy is the shared bluemonday allow-list. Policies are safe for
// concurrent use once built.
var policy = newPolicy()

// stripPolicy removes all markup, leaving text only.
var stripPolicy = bluemonday.StrictPolicy()

// newPolicy builds the article allow-list: structural, text, media, and
// table tags with per-tag attributes. Scripts, styles, forms, iframes, and
// event handlers are all absent from the allow-list and therefore stripped.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		// structure
		"p", "br", "hr", "div", "span", "article", "section",
		"h1", "h2", "h3", "h4", "h5", "h6",
		// lists
		"ul", "ol", "li", "dl", "dt", "dd",
		// inline text
		"b", "i", "strong", "em", "u", "s", "del", "ins",
		"sub", "sup", "small", "mark", "abbr", "cite", "q", "time",
		// quotes and code
		"blockquote", "pre", "code", "kbd", "samp",
		// media
		"a", "img", "figure", "figcaption",
		// tables
		"table", "caption", "thead", "tbody", "tfoot", "tr", "th", "td",
	)

	// Global attributes kept on any allowed element.
	p.AllowAttrs("id", "class", "lang", "dir").Globally()

	p.AllowAttrs("href", "title", "rel", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height", "loading").OnElements("img")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	p.AllowAttrs("datetime").OnElements("time")
	p.AllowAttrs("cite").OnElements("blockquote", "q")

	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowDataURIImages()
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)

	return p
}

// HTML sanitizes an untrusted fragment. Deterministic and safe on malformed
// input; fragments that cannot be parsed are dropped rather than escaped.
//
// Beyond the allow-list, the output is normalized so that every anchor
// carries target="_blank" rel="noopener noreferrer nofollow", every image
// is lazy-loaded, and empty non-void elements are removed.
func HTML(fragment string) string {
	clean := policy.Sanitize(fragment)
	if strings.TrimSpace(clean) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		// bluemonday output is well-formed; an unparseable fragment is
		// dropped outright.
		return ""
	}

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		sel.SetAttr("target", "_blank")
		sel.SetAttr("rel", anchorRel)
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		sel.SetAttr("loading", "lazy")
	})

	dropEmptyElements(doc)

	out, err := doc.Find("body").Html()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(out)
}

// voidElements are always kept even when they have no content.
var voidElements = map[string]struct{}{
	"br": {}, "hr": {}, "img": {},
}

// dropEmptyElements removes elements with no text and no void descendants,
// repeating until stable so unwrapping nested empties (<div><span></span></div>)
// converges.
func dropEmptyElements(doc *goquery.Document) {
	for {
		removed := 0

		doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
			node := goquery.NodeName(sel)
			if _, void := voidElements[node]; void {
				return
			}

			if strings.TrimSpace(sel.Text()) != "" {
				return
			}

			if sel.Find("br, hr, img").Length() > 0 {
				return
			}

			sel.Remove()
			removed++
		})

		if removed == 0 {
			return
		}
	}
}

// StripHTML reduces a fragment to plain text, collapsing runs of whitespace
// to single spaces. Used wherever only text is needed (excerpts, word
// counts).
func StripHTML(fragment string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(fragment))

	return strings.Join(strings.Fields(text), " ")
}
