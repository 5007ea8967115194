// Package igdb implements the catalog provider against the IGDB v4 API.
package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/config"
)

var (
	ErrNotConfigured = errors.New("IGDB client id/secret are not configured")
	ErrAPIError      = errors.New("IGDB API error")
	ErrRateLimited   = errors.New("IGDB API rate limited")
)

const tokenURL = "https://id.twitch.tv/oauth2/token"

// Client is an IGDB API client authenticated via Twitch client credentials.
type Client struct {
	httpClient *http.Client
	config     config.CatalogConfig
	logger     zerolog.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new IGDB client.
func NewClient(cfg config.CatalogConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		config:     cfg,
		logger:     logger.With().Str("component", "igdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "igdb"
}

// IsConfigured returns true if credentials are set.
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// Test verifies connectivity by requesting a single game.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	var games []Game
	return c.doQuery(ctx, "games", "fields id; limit 1;", &games)
}

const gameFields = "fields id,name,summary,first_release_date,cover.image_id," +
	"platforms.id,platforms.name,platforms.abbreviation,alternative_names.name," +
	"franchises,collection;"

// LookupByID fetches a single game by catalog id.
func (c *Client) LookupByID(ctx context.Context, id int64) (*catalog.GameResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	query := fmt.Sprintf("%s where id = %d;", gameFields, id)

	var games []Game
	if err := c.doQuery(ctx, "games", query, &games); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, catalog.ErrNotFound
	}

	result := c.toGameResult(games[0])
	return &result, nil
}

// SearchByName searches the catalog by game name.
func (c *Client) SearchByName(ctx context.Context, query string) ([]catalog.GameResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body := fmt.Sprintf("search %q; %s limit 25;", query, gameFields)

	var games []Game
	if err := c.doQuery(ctx, "games", body, &games); err != nil {
		return nil, err
	}

	results := make([]catalog.GameResult, 0, len(games))
	for _, g := range games {
		results = append(results, c.toGameResult(g))
	}
	return results, nil
}

// FranchiseMembers returns the games that belong to a franchise.
func (c *Client) FranchiseMembers(ctx context.Context, franchiseID int64) ([]catalog.GameResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	query := fmt.Sprintf("%s where franchises = (%d); limit 100;", gameFields, franchiseID)

	var games []Game
	if err := c.doQuery(ctx, "games", query, &games); err != nil {
		return nil, err
	}

	results := make([]catalog.GameResult, 0, len(games))
	for _, g := range games {
		results = append(results, c.toGameResult(g))
	}
	return results, nil
}

// CollectionMembers returns the games that belong to a collection/series.
func (c *Client) CollectionMembers(ctx context.Context, collectionID int64) ([]catalog.GameResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	query := fmt.Sprintf("%s where collection = %d; limit 100;", gameFields, collectionID)

	var games []Game
	if err := c.doQuery(ctx, "games", query, &games); err != nil {
		return nil, err
	}

	results := make([]catalog.GameResult, 0, len(games))
	for _, g := range games {
		results = append(results, c.toGameResult(g))
	}
	return results, nil
}

// EditionTitles returns names of edition/version entries for a game.
func (c *Client) EditionTitles(ctx context.Context, gameID int64) ([]string, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	query := fmt.Sprintf("fields name; where version_parent = %d; limit 50;", gameID)

	var games []Game
	if err := c.doQuery(ctx, "games", query, &games); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(games))
	for _, g := range games {
		if g.Name != "" {
			titles = append(titles, g.Name)
		}
	}
	return titles, nil
}

// doQuery posts an Apicalypse query to an IGDB endpoint.
func (c *Client) doQuery(ctx context.Context, endpoint, query string, result interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	reqURL := strings.TrimRight(c.config.BaseURL, "/") + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(query))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Client-ID", c.config.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("IGDB request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		// Token may have been revoked; force a refresh on the next call
		c.tokenMu.Lock()
		c.token = ""
		c.tokenMu.Unlock()
		return fmt.Errorf("%w: unauthorized", ErrAPIError)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode IGDB response: %w", err)
	}
	return nil
}

// accessToken returns a valid OAuth token, refreshing it when close to expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	params := url.Values{}
	params.Set("client_id", c.config.ClientID)
	params.Set("client_secret", c.config.ClientSecret)
	params.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint status %d", ErrAPIError, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.Debug().Time("expiry", c.tokenExpiry).Msg("refreshed IGDB access token")
	return c.token, nil
}

// toGameResult converts a raw IGDB game into the normalized catalog shape.
func (c *Client) toGameResult(g Game) catalog.GameResult {
	result := catalog.GameResult{
		ID:           g.ID,
		Name:         g.Name,
		Summary:      g.Summary,
		FranchiseIDs: g.Franchises,
		CollectionID: g.Collection,
	}

	if g.FirstReleaseDate > 0 {
		result.ReleaseDate = time.Unix(g.FirstReleaseDate, 0).UTC()
	}
	if g.Cover.ImageID != "" {
		result.CoverURL = "https://images.igdb.com/igdb/image/upload/t_cover_big/" + g.Cover.ImageID + ".jpg"
	}
	for _, p := range g.Platforms {
		name := p.Abbreviation
		if name == "" {
			name = p.Name
		}
		if name != "" {
			result.Platforms = append(result.Platforms, name)
		}
	}
	for _, alt := range g.AlternativeNames {
		if alt.Name != "" {
			result.AlternateNames = append(result.AlternateNames, alt.Name)
		}
	}

	return result
}
