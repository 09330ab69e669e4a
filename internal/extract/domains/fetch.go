package domains

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxPlatformBodyBytes bounds responses from platform endpoints. Embed and
// mirror payloads are small; anything larger is a misbehaving endpoint.
const maxPlatformBodyBytes = 2 * 1024 * 1024 // 2 MB

// platformUserAgent is sent on platform endpoint requests. Mirror services
// reject obviously headless agents, so a browser-like string is used.
const platformUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// getBody GETs rawURL and returns at most maxPlatformBodyBytes of the body.
func getBody(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", platformUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlatformBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	return body, nil
}

// getDoc GETs rawURL and parses the response as a goquery document.
func getDoc(ctx context.Context, client *http.Client, rawURL string) (*goquery.Document, error) {
	body, err := getBody(ctx, client, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	return doc, nil
}

// resolveRedirect issues a HEAD request and returns the final URL after
// redirects. Used to expand platform short links.
func resolveRedirect(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", platformUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("head %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}
