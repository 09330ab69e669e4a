package domains

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagekeep/pagekeep/internal/extract"
	"github.com/pagekeep/pagekeep/internal/logger"
	"github.com/pagekeep/pagekeep/internal/snapshot"
)

const (
	// defaultRedditMirror serves the markup-stable variant of the
	// platform: simple server-rendered HTML, no script requirement.
	defaultRedditMirror = "https://old.reddit.com"
	// redditRequestTimeout bounds each platform call.
	redditRequestTimeout = 15 * time.Second
	// postTitleBudget is the word-boundary truncation budget for
	// synthesized post titles.
	postTitleBudget = 60
	// maxRecentPosts is how many recent post titles a user snapshot lists.
	maxRecentPosts = 5
)

// removedPlaceholder replaces literal removed/deleted markers so snapshots
// never store the bare marker as their content.
const removedPlaceholder = "This content was removed or deleted on Reddit before it could be archived."

// removedMarkers are the literal strings the platform substitutes for
// removed content. Matched case-insensitively.
var removedMarkers = []string{"[removed]", "[deleted]"}

// errorPagePhrases map page-level failure indicators to blocked reasons.
// Found anywhere in the page text they short-circuit the run; scraping the
// interstitial would only produce a garbage snapshot.
var errorPagePhrases = []struct {
	phrase string
	reason snapshot.BlockedReason
}{
	{"page not found", snapshot.ReasonFetchError},
	{"this community has been banned", snapshot.ReasonFetchError},
	{"it's quarantined", snapshot.ReasonForbidden},
	{"are you sure you want to view this community", snapshot.ReasonForbidden},
	{"you must be invited to visit this community", snapshot.ReasonForbidden},
}

// privateCommunityPhrase marks a private subreddit. For subreddit snapshots
// this is a successful result describing the restriction, not a failure.
const privateCommunityPhrase = "this community is private"

// RedditConfig configures the Reddit provider.
type RedditConfig struct {
	MirrorBase string
}

// Reddit extracts posts, comments, subreddits, and user profiles by
// scraping the markup mirror rather than the script-heavy canonical site.
type Reddit struct {
	cfg    RedditConfig
	client *http.Client
	log    logger.Interface
}

// NewReddit creates the Reddit provider.
func NewReddit(cfg RedditConfig, log logger.Interface) *Reddit {
	if cfg.MirrorBase == "" {
		cfg.MirrorBase = defaultRedditMirror
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Reddit{
		cfg:    cfg,
		client: &http.Client{Timeout: redditRequestTimeout},
		log:    log,
	}
}

// Name identifies the provider in logs.
func (r *Reddit) Name() string { return "reddit" }

// Match reports whether u belongs to the platform.
func (r *Reddit) Match(u *url.URL) bool {
	return isRedditHost(u.Hostname())
}

// Extract classifies u, expands short links, scrapes the mirror, and
// dispatches to the per-kind formatter.
func (r *Reddit) Extract(ctx context.Context, u *url.URL) (*Result, error) {
	info, err := classifyRedditURL(u)
	if err != nil {
		return nil, err
	}

	if info.ShortLink != "" {
		info, err = r.expandShortLink(ctx, info.ShortLink)
		if err != nil {
			return nil, err
		}
	}

	doc, err := getDoc(ctx, r.client, strings.TrimRight(r.cfg.MirrorBase, "/")+info.mirrorPath())
	if err != nil {
		return nil, fmt.Errorf("reddit: fetch mirror: %w", err)
	}

	pageText := strings.ToLower(doc.Text())

	if info.Kind == RedditSubreddit && strings.Contains(pageText, privateCommunityPhrase) {
		return r.privateSubredditResult(info), nil
	}

	if terminal := detectErrorPage(pageText); terminal != nil {
		return nil, terminal
	}

	switch info.Kind {
	case RedditPost:
		return r.extractPost(doc, info)
	case RedditComment:
		return r.extractComment(doc, info)
	case RedditSubreddit:
		return r.extractSubreddit(doc, info)
	case RedditUser:
		return r.extractUser(doc, info)
	default:
		return nil, fmt.Errorf("reddit: unknown content kind %q", info.Kind)
	}
}

// expandShortLink resolves a redd.it or share link to its canonical post
// path via redirects, then classifies the result.
func (r *Reddit) expandShortLink(ctx context.Context, shortLink string) (*RedditURLInfo, error) {
	resolved, err := resolveRedirect(ctx, r.client, shortLink)
	if err != nil {
		return nil, fmt.Errorf("reddit: expand short link: %w", err)
	}

	parsed, err := url.Parse(resolved)
	if err != nil || !isRedditHost(parsed.Hostname()) {
		return nil, fmt.Errorf("reddit: short link resolved off-platform to %q", resolved)
	}

	info, err := classifyRedditURL(parsed)
	if err != nil {
		return nil, err
	}

	if info.ShortLink != "" {
		return nil, fmt.Errorf("reddit: short link resolved to another short link %q", resolved)
	}

	return info, nil
}

// detectErrorPage returns a TerminalError when the page text carries a
// failure indicator phrase.
func detectErrorPage(pageText string) *TerminalError {
	for _, indicator := range errorPagePhrases {
		if strings.Contains(pageText, indicator.phrase) {
			return &TerminalError{Reason: indicator.reason, Message: "reddit: " + indicator.phrase}
		}
	}

	return nil
}

// cleanRemoved substitutes the removed-content placeholder when text is, or
// contains, a removal marker.
func cleanRemoved(text string) string {
	lower := strings.ToLower(text)

	for _, marker := range removedMarkers {
		if strings.Contains(lower, marker) {
			return removedPlaceholder
		}
	}

	return text
}

// extractPost scrapes a post page: title, subreddit, author, timestamp,
// score, and self-text or external link.
func (r *Reddit) extractPost(doc *goquery.Document, info *RedditURLInfo) (*Result, error) {
	thing := doc.Find("#siteTable .thing").First()
	if thing.Length() == 0 {
		return nil, fmt.Errorf("reddit: post %s not present on mirror page", info.PostID)
	}

	title := strings.TrimSpace(doc.Find("#siteTable a.title").First().Text())
	if title == "" {
		return nil, fmt.Errorf("reddit: post %s has no title", info.PostID)
	}

	title = cleanRemoved(title)
	author := displayAuthor(r.authorOf(thing))
	score := strings.TrimSpace(thing.Find(".score.unvoted").First().Text())
	timestamp := r.timestampOf(thing)
	canonical := fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s/", info.Subreddit, info.PostID)

	var body strings.Builder

	header := fmt.Sprintf("r/%s · u/%s", info.Subreddit, author)
	if score != "" {
		header += " · " + score + " points"
	}
	if timestamp != "" {
		header += " · " + timestamp
	}

	fmt.Fprintf(&body, "<p><strong>%s</strong></p>\n", html.EscapeString(header))

	text := title

	if selftext := thing.Find(".usertext-body .md").First(); selftext.Length() > 0 {
		md, err := selftext.Html()
		if err == nil {
			plain := cleanRemoved(strings.TrimSpace(selftext.Text()))
			if plain == removedPlaceholder {
				fmt.Fprintf(&body, "<p><em>%s</em></p>\n", html.EscapeString(removedPlaceholder))
			} else {
				body.WriteString(md)
				body.WriteString("\n")
			}

			text = title + "\n\n" + plain
		}
	} else if external := strings.TrimSpace(thing.AttrOr("data-url", "")); external != "" && !strings.HasPrefix(external, "/r/") {
		fmt.Fprintf(&body, `<p>Link post: <a href="%s">%s</a></p>`+"\n", html.EscapeString(external), html.EscapeString(external))
		text = title + "\n\n" + external
	}

	fmt.Fprintf(&body, `<p><a href="%s">View on Reddit →</a></p>`, canonical)

	return &Result{
		Title:        "Post in r/" + info.Subreddit + ": " + extract.TruncateAtWord(title, postTitleBudget),
		Byline:       r.bylineFor(author),
		HTML:         body.String(),
		Text:         text,
		Excerpt:      extract.TruncateAtWord(extract.CollapseWhitespace(text), extract.ExcerptMaxChars),
		SiteName:     "Reddit",
		CanonicalURL: canonical,
	}, nil
}

// extractComment locates the target comment by ID. When the exact node is
// missing it degrades to the first comment on the page; the parent post
// link is always included for context.
func (r *Reddit) extractComment(doc *goquery.Document, info *RedditURLInfo) (*Result, error) {
	comment := doc.Find("#thing_t1_" + info.CommentID).First()
	if comment.Length() == 0 {
		// The exact node can be missing on deep or collapsed threads;
		// the first comment is the mirror's best equivalent.
		comment = doc.Find(".commentarea .comment").First()
		if comment.Length() == 0 {
			return nil, fmt.Errorf("reddit: no comments found for %s", info.CommentID)
		}

		r.log.Debug("target comment missing, using first comment on page",
			"comment_id", info.CommentID, "post_id", info.PostID)
	}

	commentBody := comment.Find(".usertext-body .md").First()
	if commentBody.Length() == 0 {
		return nil, fmt.Errorf("reddit: comment %s has no body", info.CommentID)
	}

	plain := cleanRemoved(strings.TrimSpace(commentBody.Text()))
	author := displayAuthor(r.authorOf(comment))
	score := strings.TrimSpace(comment.Find(".score.unvoted").First().Text())
	postTitle := strings.TrimSpace(doc.Find("#siteTable a.title").First().Text())
	postURL := fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s/", info.Subreddit, info.PostID)
	canonical := fmt.Sprintf("%s_/%s/", postURL, info.CommentID)

	var body strings.Builder

	header := fmt.Sprintf("Comment by u/%s in r/%s", author, info.Subreddit)
	if score != "" {
		header += " · " + score + " points"
	}

	fmt.Fprintf(&body, "<p><strong>%s</strong></p>\n", html.EscapeString(header))

	if plain == removedPlaceholder {
		fmt.Fprintf(&body, "<p><em>%s</em></p>\n", html.EscapeString(removedPlaceholder))
	} else if md, err := commentBody.Html(); err == nil {
		body.WriteString(md)
		body.WriteString("\n")
	}

	if postTitle != "" {
		fmt.Fprintf(&body, `<p>On post: <a href="%s">%s</a></p>`+"\n", postURL, html.EscapeString(postTitle))
	} else {
		fmt.Fprintf(&body, `<p><a href="%s">View parent post</a></p>`+"\n", postURL)
	}

	return &Result{
		Title:        fmt.Sprintf("Comment by u/%s in r/%s", author, info.Subreddit),
		Byline:       r.bylineFor(author),
		HTML:         body.String(),
		Text:         plain,
		Excerpt:      extract.TruncateAtWord(extract.CollapseWhitespace(plain), extract.ExcerptMaxChars),
		SiteName:     "Reddit",
		CanonicalURL: canonical,
	}, nil
}

// extractSubreddit scrapes the sidebar: tagline, subscriber and online
// counts, and the community description.
func (r *Reddit) extractSubreddit(doc *goquery.Document, info *RedditURLInfo) (*Result, error) {
	canonical := "https://www.reddit.com/r/" + info.Subreddit + "/"

	tagline := strings.TrimSpace(doc.Find(".titlebox h1.redditname").First().Text())
	if tagline == "" {
		tagline = "r/" + info.Subreddit
	}

	subscribers := strings.TrimSpace(doc.Find(".side .subscribers .number").First().Text())
	online := strings.TrimSpace(doc.Find(".side .users-online .number").First().Text())

	var description string
	if md := doc.Find(".side .titlebox .usertext-body .md").First(); md.Length() > 0 {
		description = strings.TrimSpace(md.Text())
	}

	var body strings.Builder

	fmt.Fprintf(&body, "<p><strong>%s</strong></p>\n", html.EscapeString(tagline))

	if subscribers != "" {
		stats := subscribers + " members"
		if online != "" {
			stats += " · " + online + " online"
		}

		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(stats))
	}

	if description != "" {
		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(description))
	}

	fmt.Fprintf(&body, `<p><a href="%s">View on Reddit →</a></p>`, canonical)

	text := extract.CollapseWhitespace(tagline + " " + description)

	return &Result{
		Title:        "r/" + info.Subreddit,
		HTML:         body.String(),
		Text:         text,
		Excerpt:      extract.TruncateAtWord(text, extract.ExcerptMaxChars),
		SiteName:     "Reddit",
		CanonicalURL: canonical,
	}, nil
}

// privateSubredditResult describes a private community as a successful
// snapshot rather than a failure; the restriction itself is the content.
func (r *Reddit) privateSubredditResult(info *RedditURLInfo) *Result {
	canonical := "https://www.reddit.com/r/" + info.Subreddit + "/"
	text := fmt.Sprintf("r/%s is a private community. Its content is only visible to approved members.", info.Subreddit)

	return &Result{
		Title: "r/" + info.Subreddit + " (private community)",
		HTML: fmt.Sprintf("<p>%s</p>\n<p><a href=%q>View on Reddit →</a></p>",
			html.EscapeString(text), canonical),
		Text:         text,
		Excerpt:      text,
		SiteName:     "Reddit",
		CanonicalURL: canonical,
	}
}

// extractUser scrapes a profile: karma, account age, trophies, and recent
// post titles.
func (r *Reddit) extractUser(doc *goquery.Document, info *RedditURLInfo) (*Result, error) {
	canonical := "https://www.reddit.com/user/" + info.Username
	postKarma := strings.TrimSpace(doc.Find(".titlebox .karma").First().Text())
	commentKarma := strings.TrimSpace(doc.Find(".titlebox .karma.comment-karma").First().Text())
	age := strings.TrimSpace(doc.Find(".titlebox .age").First().Text())

	var trophies []string

	doc.Find(".trophy-area .trophy-name").Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			trophies = append(trophies, name)
		}
	})

	var recent []string

	doc.Find("#siteTable .thing a.title").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if title := strings.TrimSpace(sel.Text()); title != "" {
			recent = append(recent, title)
		}

		return len(recent) < maxRecentPosts
	})

	var body strings.Builder
	var textParts []string

	if postKarma != "" || commentKarma != "" {
		karma := fmt.Sprintf("%s post karma · %s comment karma", orDash(postKarma), orDash(commentKarma))
		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(karma))
		textParts = append(textParts, karma)
	}

	if age != "" {
		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(age))
		textParts = append(textParts, age)
	}

	if len(trophies) > 0 {
		fmt.Fprintf(&body, "<p>Trophies: %s</p>\n", html.EscapeString(strings.Join(trophies, ", ")))
		textParts = append(textParts, "Trophies: "+strings.Join(trophies, ", "))
	}

	if len(recent) > 0 {
		body.WriteString("<p>Recent posts:</p>\n<ul>\n")

		for _, title := range recent {
			fmt.Fprintf(&body, "<li>%s</li>\n", html.EscapeString(title))
		}

		body.WriteString("</ul>\n")
		textParts = append(textParts, "Recent posts: "+strings.Join(recent, "; "))
	}

	if body.Len() == 0 {
		return nil, fmt.Errorf("reddit: no profile data for u/%s", info.Username)
	}

	fmt.Fprintf(&body, `<p><a href="%s">View on Reddit →</a></p>`, canonical)

	text := strings.Join(textParts, "\n")

	return &Result{
		Title:        "u/" + info.Username + " on Reddit",
		HTML:         body.String(),
		Text:         text,
		Excerpt:      extract.TruncateAtWord(extract.CollapseWhitespace(text), extract.ExcerptMaxChars),
		SiteName:     "Reddit",
		CanonicalURL: canonical,
	}, nil
}

// authorOf reads the author from the thing's data attribute, falling back
// to the rendered author link.
func (r *Reddit) authorOf(thing *goquery.Selection) string {
	if author := strings.TrimSpace(thing.AttrOr("data-author", "")); author != "" {
		return author
	}

	if author := strings.TrimSpace(thing.Find(".author").First().Text()); author != "" {
		return author
	}

	return "[deleted]"
}

// timestampOf reads the human-readable timestamp of a thing.
func (r *Reddit) timestampOf(thing *goquery.Selection) string {
	node := thing.Find("time").First()
	if dt := strings.TrimSpace(node.AttrOr("datetime", "")); dt != "" {
		return dt
	}

	return strings.TrimSpace(node.Text())
}

// displayAuthor maps removal markers to a readable label.
func displayAuthor(author string) string {
	lower := strings.ToLower(author)

	for _, marker := range removedMarkers {
		if strings.Contains(lower, marker) {
			return "deleted user"
		}
	}

	return author
}

// bylineFor renders an author byline link, or nothing for removed authors.
func (r *Reddit) bylineFor(author string) string {
	if author == "" || author == "deleted user" {
		return ""
	}

	return fmt.Sprintf(`<a href="https://www.reddit.com/user/%s">u/%s</a>`, author, author)
}

// orDash substitutes a dash for empty stat values.
func orDash(s string) string {
	if s == "" {
		return "–"
	}

	return s
}
