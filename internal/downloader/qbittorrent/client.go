// Package qbittorrent implements a qBittorrent Web API (v2) client covering
// the operations the acquisition trigger needs.
package qbittorrent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the connection settings for a qBittorrent instance.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	Category string
}

// Client talks to the qBittorrent Web API. Login happens lazily and the
// session cookie is reused until the server invalidates it.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	loggedIn bool
}

var magnetHashRegex = regexp.MustCompile(`xt=urn:btih:([a-zA-Z0-9]+)`)

// New creates a qBittorrent client.
func New(cfg Config, logger zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: logger.With().Str("component", "qbittorrent").Logger(),
	}
}

// Name returns the client name.
func (c *Client) Name() string { return "qbittorrent" }

func (c *Client) baseURL() string {
	scheme := "http"
	if c.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.config.Host, c.config.Port)
}

// login authenticates and stores the session cookie.
func (c *Client) login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}

	form := url.Values{
		"username": {c.config.Username},
		"password": {c.config.Password},
	}
	body, status, err := c.postForm(ctx, "/api/v2/auth/login", form)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if status != http.StatusOK || strings.TrimSpace(body) != "Ok." {
		return fmt.Errorf("login rejected (status %d): %s", status, strings.TrimSpace(body))
	}

	c.loggedIn = true
	return nil
}

// Test verifies connectivity and credentials.
func (c *Client) Test(ctx context.Context) error {
	if err := c.login(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/api/v2/app/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("version request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("version request returned status %d", resp.StatusCode)
	}
	version, _ := io.ReadAll(resp.Body)
	c.logger.Debug().Str("version", string(version)).Msg("qBittorrent connection verified")
	return nil
}

// AddMagnetOrTorrent submits a magnet URI or torrent URL. The returned
// handle is the magnet's info-hash when one is present, otherwise a
// generated id.
func (c *Client) AddMagnetOrTorrent(ctx context.Context, locator string, category string, paused bool) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("empty download locator")
	}
	if err := c.login(ctx); err != nil {
		return "", err
	}

	if category == "" {
		category = c.config.Category
	}
	form := url.Values{"urls": {locator}}
	if category != "" {
		form.Set("category", category)
	}
	if paused {
		form.Set("paused", "true")
	}

	body, status, err := c.postForm(ctx, "/api/v2/torrents/add", form)
	if err != nil {
		return "", fmt.Errorf("add request failed: %w", err)
	}
	if status == http.StatusForbidden {
		// Session expired; retry once with a fresh login.
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		if err := c.login(ctx); err != nil {
			return "", err
		}
		body, status, err = c.postForm(ctx, "/api/v2/torrents/add", form)
		if err != nil {
			return "", fmt.Errorf("add request failed: %w", err)
		}
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("add returned status %d: %s", status, strings.TrimSpace(body))
	}
	if strings.TrimSpace(body) == "Fails." {
		return "", fmt.Errorf("qBittorrent rejected the download")
	}

	if m := magnetHashRegex.FindStringSubmatch(locator); m != nil {
		return strings.ToLower(m[1]), nil
	}
	return uuid.NewString(), nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}
