package feedwatch

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/heuristics"
	"github.com/ludarr/ludarr/internal/sequel"
)

// New builds the enabled watchers from configuration. The repack feed
// carries magnets inline; the scene feed only links entry pages, so that
// watcher resolves magnets per match.
func New(cfg config.FeedsConfig, heur *heuristics.Data, orch Orchestrator, catalogSvc *catalog.Service, sequels *sequel.Filter, logger zerolog.Logger) []*Watcher {
	classifier := NewClassifier(heur, logger)
	window := time.Duration(cfg.FirstRunWindowHrs) * time.Hour

	var watchers []*Watcher
	if cfg.Repack.Enabled && cfg.Repack.URL != "" {
		watchers = append(watchers, NewWatcher(WatcherConfig{
			Name:           "repack-feed",
			FeedURL:        cfg.Repack.URL,
			ReleaseType:    agent.ReleaseTypeRepack,
			Interval:       time.Duration(cfg.Repack.IntervalMin) * time.Minute,
			SeenCap:        cfg.SeenCap,
			FirstRunWindow: window,
			MatchThreshold: cfg.WordMatchPercent,
		}, orch, catalogSvc, sequels, classifier, logger))
	}
	if cfg.Scene.Enabled && cfg.Scene.URL != "" {
		watchers = append(watchers, NewWatcher(WatcherConfig{
			Name:           "scene-feed",
			FeedURL:        cfg.Scene.URL,
			ReleaseType:    agent.ReleaseTypeScene,
			Interval:       time.Duration(cfg.Scene.IntervalMin) * time.Minute,
			SeenCap:        cfg.SeenCap,
			FirstRunWindow: window,
			MatchThreshold: cfg.WordMatchPercent,
			ResolvePages:   true,
		}, orch, catalogSvc, sequels, classifier, logger))
	}
	return watchers
}
