// Package domains hosts specialized extractors for platforms that defeat
// generic readability extraction. Providers are tried in registration
// order; the first whose matcher accepts the URL wins, so more specific
// matchers must be registered before broader ones. New platforms are added
// by appending a provider, never by modifying existing ones.
package domains

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pagekeep/pagekeep/internal/snapshot"
)

// Result is the content a domain provider produced for a URL. It feeds the
// same sanitize-and-hash tail of the pipeline as generic extraction.
type Result struct {
	Title        string
	Byline       string
	HTML         string
	Text         string
	Excerpt      string
	SiteName     string
	CanonicalURL string
}

// Provider is one platform-specific extractor. Extract performs its own
// network calls against fixed platform endpoints, independent of the
// generic fetch path.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Match reports whether this provider handles u.
	Match(u *url.URL) bool
	// Extract produces content for u. A nil Result with a plain error
	// means the platform path failed and the generic pipeline should be
	// tried instead; a *TerminalError aborts the whole run.
	Extract(ctx context.Context, u *url.URL) (*Result, error)
}

// TerminalError aborts the pipeline with a blocked reason instead of
// falling through to generic extraction. Used when the platform positively
// reports the content cannot be archived (removed, quarantined, not found).
type TerminalError struct {
	Reason  snapshot.BlockedReason
	Message string
}

// Error implements the error interface.
func (e *TerminalError) Error() string {
	return fmt.Sprintf("domain extraction blocked (%s): %s", e.Reason, e.Message)
}

// Registry is the ordered provider list.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry trying providers in the given order.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Match returns the first provider that handles rawURL, or nil when the
// URL should take the generic pipeline.
func (r *Registry) Match(rawURL string) Provider {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	for _, p := range r.providers {
		if p.Match(parsed) {
			return p
		}
	}

	return nil
}
