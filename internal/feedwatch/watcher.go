// Package feedwatch runs passive release-feed monitors. Each watcher polls
// one RSS feed, filters entries down to plausible game releases, matches
// them against the monitored titles, and hands hits to the acquisition
// orchestrator the same way an active search would.
package feedwatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/monitor"
	"github.com/ludarr/ludarr/internal/sequel"
)

const (
	defaultMatchThreshold = 90
	defaultFirstRunWindow = 24 * time.Hour
	maxBackoffCycles      = 5
)

// Orchestrator is the subset of the acquisition orchestrator a watcher
// needs: the monitored titles and the found-candidate entry point.
type Orchestrator interface {
	Titles() []monitor.MonitoredTitle
	HandleFoundCandidate(ctx context.Context, catalogID int64, candidate agent.Candidate)
}

// WatcherConfig configures a single feed watcher.
type WatcherConfig struct {
	Name           string
	FeedURL        string
	ReleaseType    agent.ReleaseType
	Interval       time.Duration
	SeenCap        int
	FirstRunWindow time.Duration
	MatchThreshold int // percent, 0 means default

	// ResolvePages fetches each matched entry's page to find the magnet
	// link, for feeds that only carry page URLs.
	ResolvePages bool
}

// Watcher polls one feed and routes matched entries to the orchestrator.
type Watcher struct {
	cfg        WatcherConfig
	orch       Orchestrator
	catalog    *catalog.Service
	sequels    *sequel.Filter
	classifier *Classifier
	resolver   *Resolver
	httpClient *http.Client
	seen       *seenSet
	firstRun   bool

	failures     int
	backoffUntil time.Time

	logger zerolog.Logger
}

// NewWatcher creates a feed watcher. catalogSvc and sequels may be nil, in
// which case the sequel re-check is skipped.
func NewWatcher(cfg WatcherConfig, orch Orchestrator, catalogSvc *catalog.Service, sequels *sequel.Filter, classifier *Classifier, logger zerolog.Logger) *Watcher {
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = defaultMatchThreshold
	}
	if cfg.FirstRunWindow <= 0 {
		cfg.FirstRunWindow = defaultFirstRunWindow
	}

	w := &Watcher{
		cfg:        cfg,
		orch:       orch,
		catalog:    catalogSvc,
		sequels:    sequels,
		classifier: classifier,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		seen:       newSeenSet(cfg.SeenCap),
		firstRun:   true,
		logger:     logger.With().Str("component", "feedwatch").Str("feed", cfg.Name).Logger(),
	}
	if cfg.ResolvePages {
		w.resolver = NewResolver()
	}
	return w
}

// Name returns the feed name, for task registration.
func (w *Watcher) Name() string {
	return w.cfg.Name
}

// Interval returns the configured poll interval.
func (w *Watcher) Interval() time.Duration {
	return w.cfg.Interval
}

// Check runs one poll cycle. Failures back the watcher off for a growing
// number of cycles before it retries.
func (w *Watcher) Check(ctx context.Context) error {
	if time.Now().Before(w.backoffUntil) {
		w.logger.Debug().Time("until", w.backoffUntil).Msg("Feed in backoff, skipping cycle")
		return nil
	}

	entries, err := w.fetch(ctx)
	if err != nil {
		w.failures++
		cycles := w.failures
		if cycles > maxBackoffCycles {
			cycles = maxBackoffCycles
		}
		w.backoffUntil = time.Now().Add(time.Duration(cycles) * w.cfg.Interval)
		w.logger.Warn().Err(err).Int("consecutive_failures", w.failures).Msg("Feed poll failed")
		return err
	}
	w.failures = 0
	w.backoffUntil = time.Time{}

	w.process(ctx, entries)
	w.firstRun = false
	return nil
}

func (w *Watcher) fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.FeedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	return ParseFeed(body)
}

func (w *Watcher) process(ctx context.Context, entries []Entry) {
	titles := w.openTitles()
	cutoff := time.Now().Add(-w.cfg.FirstRunWindow)

	matched := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if !w.seen.Add(entry.ID) {
			continue
		}
		// A first run walks the feed's whole backlog; only recent entries
		// are worth acting on, but everything gets marked seen.
		if w.firstRun && !entry.PublishDate.IsZero() && entry.PublishDate.Before(cutoff) {
			continue
		}
		if cat := w.classifier.Classify(entry.Title); cat != CategoryGame {
			w.logger.Debug().Str("title", entry.Title).Str("category", string(cat)).Msg("Skipping non-game entry")
			continue
		}
		if w.matchEntry(ctx, entry, titles) {
			matched++
		}
	}

	if matched > 0 {
		w.logger.Info().Int("matched", matched).Int("entries", len(entries)).Msg("Feed cycle matched entries")
	}
}

// matchEntry tries the entry against every open title and routes the best
// acceptable match. One entry can only satisfy one title.
func (w *Watcher) matchEntry(ctx context.Context, entry Entry, titles []monitor.MonitoredTitle) bool {
	bestScore := 0
	var best *monitor.MonitoredTitle
	for i := range titles {
		score := MatchScore(titles[i].Name, entry.Title)
		if score >= w.cfg.MatchThreshold && score > bestScore {
			bestScore = score
			best = &titles[i]
		}
	}
	if best == nil {
		return false
	}

	if w.isSequel(ctx, best, entry.Title) {
		w.logger.Debug().Str("title", entry.Title).Str("game", best.Name).Msg("Dropping sequel match")
		return false
	}

	locator := entry.Magnet
	if locator == "" && w.resolver != nil && entry.Link != "" {
		resolved, err := w.resolver.ResolveMagnet(ctx, entry.Link)
		if err != nil {
			w.logger.Warn().Err(err).Str("page", entry.Link).Msg("Failed to resolve magnet from entry page")
			return false
		}
		locator = resolved
	}
	if locator == "" {
		w.logger.Debug().Str("title", entry.Title).Msg("Matched entry has no usable locator")
		return false
	}

	candidate := agent.Candidate{
		Title:       entry.Title,
		ReleaseType: w.cfg.ReleaseType,
		Size:        entry.Size,
		Source:      w.cfg.Name,
		Trust:       agent.TrustMedium,
		MagnetURI:   locator,
		PublishDate: entry.PublishDate,
		MatchScore:  bestScore,
		Reasons:     []string{fmt.Sprintf("feed match %d%%", bestScore)},
	}

	w.logger.Info().
		Str("game", best.Name).
		Str("release", entry.Title).
		Int("score", bestScore).
		Msg("Feed entry matched monitored title")
	w.orch.HandleFoundCandidate(ctx, best.CatalogID, candidate)
	return true
}

func (w *Watcher) isSequel(ctx context.Context, title *monitor.MonitoredTitle, releaseTitle string) bool {
	if w.sequels == nil {
		return false
	}
	game := &catalog.GameResult{ID: title.CatalogID, Name: title.Name}
	if w.catalog != nil {
		if full, err := w.catalog.LookupByID(ctx, title.CatalogID); err == nil {
			game = full
		}
	}
	return w.sequels.PatternsFor(ctx, game).IsSequel(releaseTitle)
}

func (w *Watcher) openTitles() []monitor.MonitoredTitle {
	all := w.orch.Titles()
	open := all[:0]
	for _, t := range all {
		if !t.Status.Settled() {
			open = append(open, t)
		}
	}
	return open
}
