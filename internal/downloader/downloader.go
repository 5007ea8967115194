// Package downloader defines the download-client capability the
// acquisition trigger delegates to.
package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/downloader/qbittorrent"
)

// Common download-client errors.
var (
	// ErrNoClient means no download client is configured; acquisition is a
	// configuration error, not a retryable failure.
	ErrNoClient = errors.New("no download client configured")

	// ErrNoLocator means the candidate has no usable magnet or torrent URL.
	ErrNoLocator = errors.New("candidate has no download locator")

	// ErrAuthFailed means the client rejected the configured credentials.
	ErrAuthFailed = errors.New("download client authentication failed")
)

// AddOptions carries optional add-time settings.
type AddOptions struct {
	Category string
	Paused   bool
}

// Client is a download client. AddMagnetOrTorrent returns an opaque handle
// usable for progress tracking.
type Client interface {
	Name() string
	Test(ctx context.Context) error
	AddMagnetOrTorrent(ctx context.Context, locator string, opts AddOptions) (string, error)
}

// New builds the configured download client. An empty type returns
// (nil, nil): acquisition then fails with ErrNoClient at trigger time.
func New(cfg config.DownloaderConfig, logger zerolog.Logger) (Client, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "qbittorrent":
		return qbtAdapter{client: qbittorrent.New(qbittorrent.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			UseSSL:   cfg.UseSSL,
			Category: cfg.Category,
		}, logger)}, nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown download client type %q", cfg.Type)
	}
}

// qbtAdapter maps the qBittorrent client onto the Client interface.
type qbtAdapter struct {
	client *qbittorrent.Client
}

func (a qbtAdapter) Name() string { return a.client.Name() }

func (a qbtAdapter) Test(ctx context.Context) error { return a.client.Test(ctx) }

func (a qbtAdapter) AddMagnetOrTorrent(ctx context.Context, locator string, opts AddOptions) (string, error) {
	return a.client.AddMagnetOrTorrent(ctx, locator, opts.Category, opts.Paused)
}
