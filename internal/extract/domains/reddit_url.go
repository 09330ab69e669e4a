package domains

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// RedditKind discriminates the content kinds the Reddit provider handles.
type RedditKind string

// Reddit content kinds.
const (
	RedditPost      RedditKind = "post"
	RedditComment   RedditKind = "comment"
	RedditSubreddit RedditKind = "subreddit"
	RedditUser      RedditKind = "user"
)

// RedditURLInfo describes a classified Reddit URL with the fields needed to
// rebuild an equivalent request against the markup mirror. Transient,
// never persisted.
type RedditURLInfo struct {
	Kind      RedditKind
	Subreddit string
	PostID    string
	CommentID string
	Username  string
	// ShortLink holds the original URL when it must be expanded via a
	// redirect before classification.
	ShortLink string
}

var (
	commentPathPattern   = regexp.MustCompile(`^/r/([A-Za-z0-9_]+)/comments/([a-z0-9]+)(?:/[^/]*)?/([a-z0-9]+)/?$`)
	postPathPattern      = regexp.MustCompile(`^/r/([A-Za-z0-9_]+)/comments/([a-z0-9]+)(?:/[^/]*)?/?$`)
	subredditPathPattern = regexp.MustCompile(`^/r/([A-Za-z0-9_]+)/?$`)
	userPathPattern      = regexp.MustCompile(`^/(?:user|u)/([A-Za-z0-9_-]+)/?$`)
	sharePathPattern     = regexp.MustCompile(`^/r/[A-Za-z0-9_]+/s/[A-Za-z0-9]+/?$`)
)

// redditHosts are the canonical hostnames the provider claims.
var redditHosts = map[string]struct{}{
	"reddit.com":     {},
	"www.reddit.com": {},
	"old.reddit.com": {},
	"new.reddit.com": {},
	"np.reddit.com":  {},
	"m.reddit.com":   {},
	"redd.it":        {},
}

// isRedditHost reports whether host belongs to the platform.
func isRedditHost(host string) bool {
	_, ok := redditHosts[strings.ToLower(host)]

	return ok
}

// classifyRedditURL maps u onto a RedditURLInfo. Short links (redd.it and
// /r/x/s/ share links) are flagged for redirect expansion rather than
// classified directly.
func classifyRedditURL(u *url.URL) (*RedditURLInfo, error) {
	host := strings.ToLower(u.Hostname())
	path := strings.TrimSuffix(u.EscapedPath(), "/")

	if path == "" {
		path = "/"
	}

	if host == "redd.it" || sharePathPattern.MatchString(u.Path) {
		return &RedditURLInfo{ShortLink: u.String()}, nil
	}

	if m := commentPathPattern.FindStringSubmatch(path); m != nil {
		return &RedditURLInfo{Kind: RedditComment, Subreddit: m[1], PostID: m[2], CommentID: m[3]}, nil
	}

	if m := postPathPattern.FindStringSubmatch(path); m != nil {
		return &RedditURLInfo{Kind: RedditPost, Subreddit: m[1], PostID: m[2]}, nil
	}

	if m := subredditPathPattern.FindStringSubmatch(path); m != nil {
		return &RedditURLInfo{Kind: RedditSubreddit, Subreddit: m[1]}, nil
	}

	if m := userPathPattern.FindStringSubmatch(path); m != nil {
		return &RedditURLInfo{Kind: RedditUser, Username: m[1]}, nil
	}

	return nil, fmt.Errorf("reddit: unrecognized path %q", u.Path)
}

// mirrorPath rebuilds the request path against the markup mirror.
func (info *RedditURLInfo) mirrorPath() string {
	switch info.Kind {
	case RedditComment:
		return fmt.Sprintf("/r/%s/comments/%s/_/%s", info.Subreddit, info.PostID, info.CommentID)
	case RedditPost:
		return fmt.Sprintf("/r/%s/comments/%s", info.Subreddit, info.PostID)
	case RedditSubreddit:
		return "/r/" + info.Subreddit
	case RedditUser:
		return "/user/" + info.Username
	default:
		return "/"
	}
}
