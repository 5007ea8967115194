package feedwatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Resolver fetches a feed entry's page and extracts the magnet link from it,
// for feeds that only carry a page URL per entry.
type Resolver struct {
	httpClient *http.Client
	userAgent  string
}

// NewResolver creates a page resolver with a bounded request timeout.
func NewResolver() *Resolver {
	return &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "Mozilla/5.0 (compatible; ludarr/1.0)",
	}
}

// ResolveMagnet fetches pageURL and returns the first magnet link on it.
func (r *Resolver) ResolveMagnet(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch entry page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("entry page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse entry page: %w", err)
	}

	var magnet string
	doc.Find(`a[href^="magnet:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, ok := s.Attr("href"); ok && strings.HasPrefix(href, "magnet:") {
			magnet = href
			return false
		}
		return true
	})
	if magnet == "" {
		return "", fmt.Errorf("no magnet link found on %s", pageURL)
	}
	return magnet, nil
}
