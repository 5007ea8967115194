// Package monitor owns the monitored-title lifecycle: starting and
// stopping monitoring, the periodic re-check, and the acquisition trigger.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/downloader"
	"github.com/ludarr/ludarr/internal/mlmodel"
	"github.com/ludarr/ludarr/internal/review"
	"github.com/ludarr/ludarr/internal/search"
)

var (
	// ErrAlreadyDownloading is returned when an acquisition is triggered for
	// a title that is already downloading or done.
	ErrAlreadyDownloading = errors.New("title already downloading or downloaded")
)

// Broadcaster pushes orchestrator events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Options configure the orchestrator.
type Options struct {
	RecheckInterval   time.Duration // default 30m
	MinSearchInterval time.Duration // default 15m
	AutoGrab          bool
	InitialSearch     bool // kick off a background search on StartMonitoring
}

// Orchestrator owns the monitored-title map. All mutation goes through it;
// collaborators receive copies.
type Orchestrator struct {
	mu     sync.RWMutex
	titles map[int64]*MonitoredTitle

	store       *Store
	catalog     *catalog.Service
	search      *search.Service
	review      *review.Queue
	client      downloader.Client
	model       *mlmodel.Holder
	broadcaster Broadcaster
	grabs       *grabLock
	opts        Options
	logger      zerolog.Logger

	// background tracks in-flight initial searches for clean shutdown.
	background sync.WaitGroup
}

// New creates the orchestrator and loads persisted titles. store, review,
// client, model and broadcaster may each be nil.
func New(store *Store, catalogSvc *catalog.Service, searchSvc *search.Service, reviewQueue *review.Queue, client downloader.Client, model *mlmodel.Holder, opts Options, logger zerolog.Logger) (*Orchestrator, error) {
	if opts.RecheckInterval <= 0 {
		opts.RecheckInterval = 30 * time.Minute
	}
	if opts.MinSearchInterval <= 0 {
		opts.MinSearchInterval = 15 * time.Minute
	}

	o := &Orchestrator{
		titles:  make(map[int64]*MonitoredTitle),
		store:   store,
		catalog: catalogSvc,
		search:  searchSvc,
		review:  reviewQueue,
		client:  client,
		model:   model,
		grabs:   newGrabLock(),
		opts:    opts,
		logger:  logger.With().Str("component", "monitor").Logger(),
	}

	if store != nil {
		titles, err := store.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load monitored titles: %w", err)
		}
		for _, t := range titles {
			o.titles[t.CatalogID] = t
		}
		if len(titles) > 0 {
			o.logger.Info().Int("count", len(titles)).Msg("Loaded monitored titles")
		}
	}

	return o, nil
}

// SetBroadcaster attaches a websocket broadcaster.
func (o *Orchestrator) SetBroadcaster(b Broadcaster) {
	o.broadcaster = b
}

// Wait blocks until background work started by the orchestrator finishes.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func (o *Orchestrator) broadcast(msgType string, payload interface{}) {
	if o.broadcaster == nil {
		return
	}
	if err := o.broadcaster.Broadcast(msgType, payload); err != nil {
		o.logger.Debug().Err(err).Str("type", msgType).Msg("Broadcast failed")
	}
}

// StartMonitoring begins tracking a catalog title. Calling it again for the
// same id returns the existing entry unchanged. The initial search runs in
// the background; the call returns immediately.
func (o *Orchestrator) StartMonitoring(ctx context.Context, catalogID int64, prefs Prefs) (*MonitoredTitle, error) {
	o.mu.RLock()
	if existing, ok := o.titles[catalogID]; ok {
		cp := existing.clone()
		o.mu.RUnlock()
		return cp, nil
	}
	o.mu.RUnlock()

	game, err := o.catalog.LookupByID(ctx, catalogID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup for %d failed: %w", catalogID, err)
	}

	now := time.Now().UTC()
	title := &MonitoredTitle{
		CatalogID:            catalogID,
		Name:                 game.Name,
		CoverURL:             game.CoverURL,
		Platforms:            append([]string(nil), game.Platforms...),
		PreferredReleaseType: prefs.PreferredReleaseType,
		PreferredPlatforms:   append([]string(nil), prefs.PreferredPlatforms...),
		Status:               StatusMonitored,
		ReleaseDate:          game.ReleaseDate,
		MonitoredSince:       now,
	}
	if title.Released(now) {
		title.Status = StatusWanted
	}

	o.mu.Lock()
	// Lost a race with a concurrent StartMonitoring for the same id.
	if existing, ok := o.titles[catalogID]; ok {
		cp := existing.clone()
		o.mu.Unlock()
		return cp, nil
	}
	o.titles[catalogID] = title
	cp := title.clone()
	o.mu.Unlock()

	o.persist(title.CatalogID)
	o.logger.Info().Int64("catalogId", catalogID).Str("name", title.Name).Str("status", string(title.Status)).Msg("Started monitoring")
	o.broadcast("monitor:added", cp)

	if o.opts.InitialSearch && title.Status == StatusWanted {
		o.background.Add(1)
		go func() {
			defer o.background.Done()
			searchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			o.checkTitle(searchCtx, catalogID, true)
		}()
	}

	return cp, nil
}

// StopMonitoring removes a title. In-flight background work for it
// completes and silently discards its result.
func (o *Orchestrator) StopMonitoring(ctx context.Context, catalogID int64) error {
	o.mu.Lock()
	title, ok := o.titles[catalogID]
	if ok {
		delete(o.titles, catalogID)
	}
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("title %d is not monitored", catalogID)
	}
	if o.store != nil {
		if err := o.store.Delete(ctx, catalogID); err != nil {
			o.logger.Warn().Err(err).Int64("catalogId", catalogID).Msg("Failed to delete persisted title")
		}
	}
	o.logger.Info().Int64("catalogId", catalogID).Str("name", title.Name).Msg("Stopped monitoring")
	o.broadcast("monitor:removed", map[string]int64{"catalogId": catalogID})
	return nil
}

// Titles returns copies of all monitored titles, ordered by catalog id.
func (o *Orchestrator) Titles() []MonitoredTitle {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]MonitoredTitle, 0, len(o.titles))
	for _, t := range o.titles {
		out = append(out, *t.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CatalogID < out[j].CatalogID })
	return out
}

// Get returns a copy of one monitored title.
func (o *Orchestrator) Get(catalogID int64) (*MonitoredTitle, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	t, ok := o.titles[catalogID]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// RecheckAll runs the periodic re-check over every unsettled title. Each
// title is processed independently; one failure never stops the sweep.
func (o *Orchestrator) RecheckAll(ctx context.Context) {
	o.mu.RLock()
	ids := make([]int64, 0, len(o.titles))
	for id := range o.titles {
		ids = append(ids, id)
	}
	o.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}
		o.checkTitle(ctx, id, false)
	}
}

// SearchNow runs an immediate search for one monitored title, bypassing
// the recheck throttle.
func (o *Orchestrator) SearchNow(ctx context.Context, catalogID int64) error {
	o.mu.RLock()
	_, ok := o.titles[catalogID]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("title %d is not monitored", catalogID)
	}
	o.checkTitle(ctx, catalogID, true)
	return nil
}

// checkTitle runs one title's re-check: skip settled, future-dated and
// recently searched titles, otherwise search and process the results.
// force bypasses the min-search-interval throttle (initial search).
func (o *Orchestrator) checkTitle(ctx context.Context, catalogID int64, force bool) {
	now := time.Now().UTC()

	o.mu.Lock()
	title, ok := o.titles[catalogID]
	if !ok {
		o.mu.Unlock()
		return
	}
	if title.Status.Settled() {
		o.mu.Unlock()
		return
	}
	if !title.Released(now) {
		o.mu.Unlock()
		o.logger.Debug().Int64("catalogId", catalogID).Time("releaseDate", title.ReleaseDate).Msg("Skipping unreleased title")
		return
	}
	if !force && !title.LastSearchedAt.IsZero() && now.Sub(title.LastSearchedAt) < o.opts.MinSearchInterval {
		o.mu.Unlock()
		o.logger.Debug().Int64("catalogId", catalogID).Time("lastSearchedAt", title.LastSearchedAt).Msg("Skipping recently searched title")
		return
	}
	title.LastSearchedAt = now
	title.SearchCount++
	req := search.Request{
		Query:         title.Name,
		Platforms:     append([]string(nil), title.PreferredPlatforms...),
		EditionTitles: nil,
	}
	o.mu.Unlock()

	game, err := o.catalog.LookupByID(ctx, catalogID)
	if err != nil {
		o.logger.Warn().Err(err).Int64("catalogId", catalogID).Msg("Catalog lookup failed during re-check")
	} else {
		req.Game = game
		if editions, err := o.catalog.EditionTitles(ctx, catalogID); err == nil {
			req.EditionTitles = editions
		}
	}

	result, err := o.search.Search(ctx, req, nil)
	o.persist(catalogID)
	if err != nil {
		o.logger.Warn().Err(err).Int64("catalogId", catalogID).Msg("Search failed, retrying next cycle")
		return
	}
	if len(result.Candidates) == 0 {
		o.logger.Debug().Int64("catalogId", catalogID).Msg("No candidates found")
		return
	}

	o.processResults(ctx, catalogID, result.Candidates)
}

// processResults records the find, queues matches for review and, with
// auto-grab on, triggers acquisition of the best candidate. The title may
// have been unmonitored while the search ran; then the results are
// discarded.
func (o *Orchestrator) processResults(ctx context.Context, catalogID int64, candidates []agent.Candidate) {
	o.mu.Lock()
	title, ok := o.titles[catalogID]
	if !ok || title.Status.Settled() {
		o.mu.Unlock()
		return
	}
	title.LastFoundAt = time.Now().UTC()
	title.Status = StatusWanted
	name := title.Name
	preferredType := title.PreferredReleaseType
	o.mu.Unlock()

	o.persist(catalogID)
	o.broadcast("monitor:found", map[string]interface{}{
		"catalogId":  catalogID,
		"candidates": len(candidates),
	})
	o.logger.Info().Int64("catalogId", catalogID).Str("name", name).Int("candidates", len(candidates)).Msg("Found candidates")

	if o.review != nil {
		if _, err := o.review.AddMatches(catalogID, name, "", candidates); err != nil {
			o.logger.Warn().Err(err).Int64("catalogId", catalogID).Msg("Failed to queue matches for review")
		}
	}

	if !o.opts.AutoGrab {
		return
	}

	best := BestCandidate(candidates, preferredType)
	if best == nil {
		return
	}
	if !o.modelAccepts(best) {
		o.logger.Info().Int64("catalogId", catalogID).Str("title", best.Title).Msg("Model declined auto-grab, left for review")
		return
	}
	if err := o.TriggerAcquisition(ctx, catalogID, best); err != nil {
		o.logger.Warn().Err(err).Int64("catalogId", catalogID).Msg("Auto-acquisition failed")
	}
}

// HandleFoundCandidate routes a passively discovered candidate through the
// same review/acquisition path as a search find.
func (o *Orchestrator) HandleFoundCandidate(ctx context.Context, catalogID int64, candidate agent.Candidate) {
	o.processResults(ctx, catalogID, []agent.Candidate{candidate})
}

// modelAccepts consults the trained ensemble when one is loaded; without a
// model the heuristic ranking alone decides.
func (o *Orchestrator) modelAccepts(c *agent.Candidate) bool {
	if o.model == nil {
		return true
	}
	prob, accept, ok := o.model.Predict(c)
	if !ok {
		return true
	}
	o.logger.Debug().Str("title", c.Title).Float64("probability", prob).Bool("accept", accept).Msg("Model scored candidate")
	return accept
}

// BestCandidate picks the acquisition target: candidates matching the
// preferred release type when any do, then highest release-type priority,
// then smallest size.
func BestCandidate(candidates []agent.Candidate, preferredType agent.ReleaseType) *agent.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	pool := candidates
	if preferredType != "" {
		var matching []agent.Candidate
		for _, c := range candidates {
			if c.ReleaseType == preferredType {
				matching = append(matching, c)
			}
		}
		if len(matching) > 0 {
			pool = matching
		}
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.ReleaseType.Priority() != best.ReleaseType.Priority() {
			if c.ReleaseType.Priority() > best.ReleaseType.Priority() {
				best = c
			}
			continue
		}
		if c.Size > 0 && (best.Size == 0 || c.Size < best.Size) {
			best = c
		}
	}
	return &best
}

// TriggerAcquisition submits a candidate to the download client. Calls are
// serialized per title; a concurrent trigger for the same title no-ops. A
// missing locator skips acquisition and monitoring continues; a missing
// download client is a configuration error.
func (o *Orchestrator) TriggerAcquisition(ctx context.Context, catalogID int64, candidate *agent.Candidate) error {
	if !o.grabs.tryAcquire(catalogID) {
		o.logger.Debug().Int64("catalogId", catalogID).Msg("Acquisition already in flight")
		return nil
	}
	defer o.grabs.release(catalogID)

	o.mu.RLock()
	title, ok := o.titles[catalogID]
	var status Status
	if ok {
		status = title.Status
	}
	o.mu.RUnlock()

	// Title was unmonitored while work was in flight: silently discard.
	if !ok {
		o.logger.Debug().Int64("catalogId", catalogID).Msg("Title no longer monitored, discarding acquisition")
		return nil
	}
	if status.Settled() {
		return ErrAlreadyDownloading
	}

	locator := candidate.DownloadLocator()
	if locator == "" {
		o.logger.Info().Int64("catalogId", catalogID).Str("title", candidate.Title).Msg("Candidate has no download locator, skipping acquisition")
		return nil
	}
	if o.client == nil {
		return downloader.ErrNoClient
	}

	handle, err := o.client.AddMagnetOrTorrent(ctx, locator, downloader.AddOptions{})
	if err != nil {
		return fmt.Errorf("download client rejected %q: %w", candidate.Title, err)
	}

	o.mu.Lock()
	if title, ok := o.titles[catalogID]; ok {
		title.Status = StatusDownloading
		title.CurrentAcquisition = &Acquisition{
			Handle:    handle,
			Source:    candidate.Source,
			Client:    o.client.Name(),
			StartedAt: time.Now().UTC(),
		}
	}
	o.mu.Unlock()
	o.persist(catalogID)

	o.logger.Info().
		Int64("catalogId", catalogID).
		Str("title", candidate.Title).
		Str("handle", handle).
		Msg("Acquisition started")
	o.broadcast("monitor:downloading", map[string]interface{}{
		"catalogId": catalogID,
		"title":     candidate.Title,
		"handle":    handle,
	})
	return nil
}

// ApproveMatch approves a pending review match and triggers its
// acquisition.
func (o *Orchestrator) ApproveMatch(ctx context.Context, matchID string) error {
	if o.review == nil {
		return fmt.Errorf("review queue not configured")
	}
	m, err := o.review.Approve(matchID)
	if err != nil {
		return err
	}
	return o.TriggerAcquisition(ctx, m.TitleID, &m.Candidate)
}

// MarkDownloaded transitions a downloading title to downloaded. Called by
// the download-completion watcher.
func (o *Orchestrator) MarkDownloaded(catalogID int64) error {
	return o.setStatus(catalogID, StatusDownloaded)
}

// MarkInstalled records the external installed state.
func (o *Orchestrator) MarkInstalled(catalogID int64) error {
	return o.setStatus(catalogID, StatusInstalled)
}

func (o *Orchestrator) setStatus(catalogID int64, status Status) error {
	o.mu.Lock()
	title, ok := o.titles[catalogID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("title %d is not monitored", catalogID)
	}
	title.Status = status
	if status != StatusDownloading {
		title.CurrentAcquisition = nil
	}
	o.mu.Unlock()

	o.persist(catalogID)
	o.broadcast("monitor:status", map[string]interface{}{"catalogId": catalogID, "status": status})
	return nil
}

// persist writes one title through to the store. Persistence failures are
// logged; the in-memory state stays authoritative.
func (o *Orchestrator) persist(catalogID int64) {
	if o.store == nil {
		return
	}
	o.mu.RLock()
	title, ok := o.titles[catalogID]
	var cp *MonitoredTitle
	if ok {
		cp = title.clone()
	}
	o.mu.RUnlock()
	if !ok {
		return
	}
	if err := o.store.Upsert(context.Background(), cp); err != nil {
		o.logger.Warn().Err(err).Int64("catalogId", catalogID).Msg("Failed to persist monitored title")
	}
}
