// Package snapshot defines the snapshot content model and the processing
// pipeline that turns a saved URL into a permanent reader-mode copy.
package snapshot

// BlockedReason classifies why a snapshot could not be produced.
type BlockedReason string

// Blocked reasons, exhaustive. These values are persisted by the external
// scheduler and rendered to users, so they are stable strings.
const (
	// ReasonInvalidURL marks malformed URLs or disallowed schemes.
	ReasonInvalidURL BlockedReason = "invalid_url"
	// ReasonSSRFBlocked marks URLs rejected by the safety validator.
	ReasonSSRFBlocked BlockedReason = "ssrf_blocked"
	// ReasonForbidden marks 401/403 responses and robots.txt denials.
	ReasonForbidden BlockedReason = "forbidden"
	// ReasonNotHTML marks responses with a non-HTML content type.
	ReasonNotHTML BlockedReason = "not_html"
	// ReasonTooLarge marks responses exceeding the byte limit.
	ReasonTooLarge BlockedReason = "too_large"
	// ReasonTimeout marks fetches aborted by the wall-clock deadline.
	ReasonTimeout BlockedReason = "timeout"
	// ReasonFetchError marks network failures and unexpected statuses.
	ReasonFetchError BlockedReason = "fetch_error"
	// ReasonNoArchive marks pages carrying a noarchive directive.
	ReasonNoArchive BlockedReason = "noarchive"
	// ReasonParseFailed marks pages where both readability extraction
	// and the metadata fallback produced nothing usable.
	ReasonParseFailed BlockedReason = "parse_failed"
)

// Content is the immutable reader-mode copy of a page. It is constructed
// exactly once per successful pipeline run and serialized to storage as-is.
type Content struct {
	Title string `json:"title"`
	// Byline may itself be sanitized HTML (an author link).
	Byline string `json:"byline,omitempty"`
	// HTML is the sanitized article body.
	HTML string `json:"content"`
	// Text is the plain-text body used for search and word counts.
	Text     string `json:"textContent"`
	Excerpt  string `json:"excerpt,omitempty"`
	SiteName string `json:"siteName,omitempty"`
	// Length is the character count of Text.
	Length int `json:"length"`
	// Language is a best-effort ISO language code.
	Language string `json:"language,omitempty"`
}

// Metadata accompanies a successful snapshot. ContentSHA256 is the
// content-addressing key the storage layer uses for deduplication.
type Metadata struct {
	CanonicalURL  string `json:"canonical_url"`
	Title         string `json:"title"`
	Byline        string `json:"byline,omitempty"`
	Excerpt       string `json:"excerpt,omitempty"`
	SiteName      string `json:"site_name,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	WordCount     int    `json:"word_count"`
	Language      string `json:"language,omitempty"`
	ContentSHA256 string `json:"content_sha256"`
}

// ProcessResult is the outcome of one pipeline run: either a content plus
// metadata pair, or a blocked reason. Never both.
type ProcessResult struct {
	OK       bool          `json:"ok"`
	Content  *Content      `json:"content,omitempty"`
	Metadata *Metadata     `json:"metadata,omitempty"`
	Reason   BlockedReason `json:"reason,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// Success builds a successful ProcessResult.
func Success(content *Content, meta *Metadata) ProcessResult {
	return ProcessResult{OK: true, Content: content, Metadata: meta}
}

// Blocked builds a failed ProcessResult with the given reason.
func Blocked(reason BlockedReason, message string) ProcessResult {
	return ProcessResult{OK: false, Reason: reason, Message: message}
}
