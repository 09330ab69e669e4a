package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagekeep/pagekeep/internal/fetcher"
)

const testRobotsTTL = time.Hour

func newTestRobotsChecker(t *testing.T) *fetcher.RobotsChecker {
	t.Helper()

	return fetcher.NewRobotsChecker(
		&http.Client{Timeout: 5 * time.Second},
		"PagekeepTest/1.0",
		testRobotsTTL,
	)
}

func TestRobots_Allowed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	checker := newTestRobotsChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/articles/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !allowed {
		t.Error("expected /articles/page to be allowed, got disallowed")
	}
}

func TestRobots_Disallowed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	checker := newTestRobotsChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/private/secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if allowed {
		t.Error("expected /private/secret to be disallowed, got allowed")
	}
}

func TestRobots_MissingFileAllowsAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := newTestRobotsChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !allowed {
		t.Error("expected missing robots.txt to allow all")
	}
}

func TestRobots_CachesPerHost(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer server.Close()

	checker := newTestRobotsChecker(t)

	for range 5 {
		if _, err := checker.IsAllowed(context.Background(), server.URL+"/page"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Errorf("expected 1 robots.txt fetch, got %d", got)
	}
}

func TestRobots_InvalidURL(t *testing.T) {
	t.Parallel()

	checker := newTestRobotsChecker(t)

	if _, err := checker.IsAllowed(context.Background(), "://bad"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
