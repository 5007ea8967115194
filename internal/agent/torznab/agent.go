// Package torznab implements a search agent for Torznab-compatible indexer
// APIs (Jackett, Prowlarr, and native site endpoints).
package torznab

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
)

// Config holds one Torznab endpoint definition.
type Config struct {
	Name     string
	BaseURL  string
	APIKey   string
	Priority int
	Category string // Torznab category ids, comma separated; empty searches all
}

// Agent queries a single Torznab endpoint.
type Agent struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Torznab agent.
func New(cfg Config, logger zerolog.Logger) *Agent {
	return &Agent{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "torznab").Str("agent", cfg.Name).Logger(),
	}
}

func (a *Agent) Name() string  { return a.cfg.Name }
func (a *Agent) Priority() int { return a.cfg.Priority }

// IsAvailable reports whether the endpoint is configured. Torznab endpoints
// without an API key are allowed; some indexers are open.
func (a *Agent) IsAvailable() bool {
	return a.cfg.BaseURL != ""
}

// Search runs a plain text query.
func (a *Agent) Search(ctx context.Context, query agent.Query) ([]agent.Candidate, error) {
	return a.search(ctx, query.Text, query.Limit)
}

// SearchEnhanced searches the game name plus any edition titles and merges
// the result sets. Torznab has no game-metadata parameters, so the extra
// context only widens the query set.
func (a *Agent) SearchEnhanced(ctx context.Context, query agent.Enhanced) ([]agent.Candidate, error) {
	text := query.Query.Text
	if text == "" && query.Game != nil {
		text = query.Game.Name
	}

	candidates, err := a.search(ctx, text, query.Query.Limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		seen[c.Title] = struct{}{}
	}

	for _, edition := range query.EditionTitles {
		if edition == "" || strings.EqualFold(edition, text) {
			continue
		}
		extra, err := a.search(ctx, edition, query.Query.Limit)
		if err != nil {
			// Edition queries are best effort on top of the main result.
			a.logger.Debug().Err(err).Str("edition", edition).Msg("Edition search failed")
			continue
		}
		for _, c := range extra {
			if _, ok := seen[c.Title]; ok {
				continue
			}
			seen[c.Title] = struct{}{}
			candidates = append(candidates, c)
		}
	}

	if query.SequelPatterns != nil {
		kept := candidates[:0]
		for _, c := range candidates {
			if !query.SequelPatterns.IsSequel(c.Title) {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	return candidates, nil
}

func (a *Agent) search(ctx context.Context, text string, limit int) ([]agent.Candidate, error) {
	if text == "" {
		return nil, fmt.Errorf("empty query")
	}

	endpoint, err := a.buildURL(text, limit)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("torznab request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torznab endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read torznab response: %w", err)
	}

	return a.parse(body)
}

func (a *Agent) buildURL(text string, limit int) (string, error) {
	u, err := url.Parse(a.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid torznab base url: %w", err)
	}

	q := u.Query()
	q.Set("t", "search")
	q.Set("q", text)
	if a.cfg.APIKey != "" {
		q.Set("apikey", a.cfg.APIKey)
	}
	if a.cfg.Category != "" {
		q.Set("cat", a.cfg.Category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type torznabFeed struct {
	XMLName xml.Name       `xml:"rss"`
	Channel torznabChannel `xml:"channel"`
}

type torznabChannel struct {
	Items []torznabItem `xml:"item"`
}

type torznabItem struct {
	Title     string           `xml:"title"`
	Link      string           `xml:"link"`
	GUID      string           `xml:"guid"`
	PubDate   string           `xml:"pubDate"`
	Size      int64            `xml:"size"`
	Enclosure torznabEnclosure `xml:"enclosure"`
	Attrs     []torznabAttr    `xml:"attr"`
}

type torznabEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (a *Agent) parse(data []byte) ([]agent.Candidate, error) {
	var feed torznabFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse torznab response: %w", err)
	}

	candidates := make([]agent.Candidate, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		c := agent.Candidate{
			Title:       strings.TrimSpace(item.Title),
			Source:      a.cfg.Name,
			Trust:       agent.TrustMedium,
			Size:        item.Size,
			ReleaseType: DetectReleaseType(item.Title),
			PublishDate: parseDate(item.PubDate),
		}
		if c.Size == 0 {
			c.Size = item.Enclosure.Length
		}

		link := item.Link
		if link == "" {
			link = item.Enclosure.URL
		}
		if strings.HasPrefix(link, "magnet:") {
			c.MagnetURI = link
		} else {
			c.TorrentURL = link
		}

		for _, attr := range item.Attrs {
			switch strings.ToLower(attr.Name) {
			case "seeders":
				c.Seeders, _ = strconv.Atoi(attr.Value)
			case "peers", "leechers":
				c.Leechers, _ = strconv.Atoi(attr.Value)
			case "magneturl":
				if attr.Value != "" {
					c.MagnetURI = attr.Value
				}
			case "size":
				if c.Size == 0 {
					c.Size, _ = strconv.ParseInt(attr.Value, 10, 64)
				}
			}
		}

		if c.Title == "" || c.DownloadLocator() == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

var (
	repackRegex = regexp.MustCompile(`(?i)\brepack\b|\bfitgirl\b|\bdodi\b`)
	ripRegex    = regexp.MustCompile(`(?i)\brip\b|\bgog\b|\bdrm[- ]?free\b`)
	sceneRegex  = regexp.MustCompile(`(?i)-(codex|cpy|skidrow|plaza|empress|flt|rune|razor1911|tenoke)\b`)
)

// DetectReleaseType classifies a release title by its group markers.
func DetectReleaseType(title string) agent.ReleaseType {
	switch {
	case repackRegex.MatchString(title):
		return agent.ReleaseTypeRepack
	case ripRegex.MatchString(title):
		return agent.ReleaseTypeRip
	case sceneRegex.MatchString(title):
		return agent.ReleaseTypeScene
	default:
		return agent.ReleaseTypeUnknown
	}
}

var torznabDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range torznabDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
