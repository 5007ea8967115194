// Package search fans a query out across every available agent in
// parallel, streams per-agent progress to an observer, then merges,
// sequel-filters and ranks the candidates.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/agent/scoring"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/kvcache"
	"github.com/ludarr/ludarr/internal/sequel"
)

// Request describes one aggregated search.
type Request struct {
	Query         string
	Game          *catalog.GameResult
	EditionTitles []string
	Platforms     []string
	ReleaseTypes  []agent.ReleaseType // empty = all
	SkipCache     bool
}

// AgentError records one agent's failure without failing the search.
type AgentError struct {
	Agent string `json:"agent"`
	Error string `json:"error"`
}

// Result is the merged outcome of one search.
type Result struct {
	Candidates []agent.Candidate `json:"candidates"`
	AgentsUsed int               `json:"agentsUsed"`
	Errors     []AgentError      `json:"errors,omitempty"`
	Dropped    int               `json:"dropped"` // sequel-filtered
	FromCache  bool              `json:"fromCache"`
}

// taskResult is what one agent's goroutine reports back.
type taskResult struct {
	agentName  string
	candidates []agent.Candidate
	err        error
}

// Service is the search aggregator.
type Service struct {
	registry *agent.Registry
	filter   *sequel.Filter
	scorer   *scoring.Scorer
	cache    *kvcache.Store
	timeout  time.Duration
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewService creates a search aggregator. filter and cache may be nil.
func NewService(registry *agent.Registry, filter *sequel.Filter, cache *kvcache.Store, timeout, cacheTTL time.Duration, logger zerolog.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		registry: registry,
		filter:   filter,
		scorer:   scoring.NewScorer(),
		cache:    cache,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

// Search runs the query against all available agents. observer may be nil;
// when set it receives per-agent progress events and a terminal complete
// event. One agent failing or timing out never cancels the others.
func (s *Service) Search(ctx context.Context, req Request, observer chan<- Event) (*Result, error) {
	if req.Query == "" && req.Game != nil {
		req.Query = req.Game.Name
	}
	if req.Query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	startTime := time.Now()
	key := s.requestKey(req)

	if !req.SkipCache && s.cache != nil && s.cacheTTL > 0 {
		var cached Result
		if s.cache.GetJSON(ctx, key, &cached) {
			cached.FromCache = true
			s.emit(observer, Event{Type: EventComplete, Results: len(cached.Candidates), Cached: true})
			s.logger.Debug().Str("query", req.Query).Int("results", len(cached.Candidates)).Msg("Search served from cache")
			return &cached, nil
		}
	}

	agents := s.registry.Available()
	if len(agents) == 0 {
		s.logger.Warn().Str("query", req.Query).Msg("No agents available for search")
		s.emit(observer, Event{Type: EventComplete})
		return &Result{Candidates: []agent.Candidate{}}, nil
	}

	var patterns *sequel.PatternSet
	if s.filter != nil && req.Game != nil {
		patterns = s.filter.PatternsFor(ctx, req.Game)
	}

	s.logger.Info().
		Str("query", req.Query).
		Int("agentCount", len(agents)).
		Msg("Starting search across agents")

	result := s.dispatch(ctx, agents, req, patterns, observer)

	s.scoreAndRank(result, req)
	result.Dropped = s.dropSequels(result, patterns)

	if !req.SkipCache && s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.SetJSONWithTTL(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache search result")
		}
	}

	s.emit(observer, Event{
		Type:     EventComplete,
		Results:  len(result.Candidates),
		Finished: result.AgentsUsed,
		Total:    result.AgentsUsed,
	})

	s.logger.Info().
		Str("query", req.Query).
		Int("results", len(result.Candidates)).
		Int("dropped", result.Dropped).
		Int("errors", len(result.Errors)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Search completed")

	return result, nil
}

// dispatch runs the per-agent searches in parallel and collects the
// settled results.
func (s *Service) dispatch(ctx context.Context, agents []agent.Agent, req Request, patterns *sequel.PatternSet, observer chan<- Event) *Result {
	var wg sync.WaitGroup
	resultsChan := make(chan taskResult, len(agents))

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	total := len(agents)
	var finished atomic.Int32

	for _, a := range agents {
		wg.Add(1)
		go func(a agent.Agent) {
			defer wg.Done()

			s.emit(observer, Event{Type: EventAgentStart, Agent: a.Name(), Total: total})

			candidates, err := s.searchAgent(searchCtx, a, req, patterns)

			if err != nil {
				s.emit(observer, Event{Type: EventAgentError, Agent: a.Name(), Error: err.Error(), Total: total})
			} else {
				s.emit(observer, Event{Type: EventAgentResult, Agent: a.Name(), Results: len(candidates), Total: total})
			}

			done := int(finished.Add(1))
			s.emit(observer, Event{Type: EventAgentComplete, Agent: a.Name(), Finished: done, Total: total})

			resultsChan <- taskResult{agentName: a.Name(), candidates: candidates, err: err}
		}(a)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	result := &Result{Candidates: []agent.Candidate{}, AgentsUsed: total}
	for tr := range resultsChan {
		if tr.err != nil {
			s.logger.Warn().Err(tr.err).Str("agent", tr.agentName).Msg("Agent search failed")
			result.Errors = append(result.Errors, AgentError{Agent: tr.agentName, Error: tr.err.Error()})
			continue
		}
		result.Candidates = append(result.Candidates, tr.candidates...)
	}
	return result
}

func (s *Service) searchAgent(ctx context.Context, a agent.Agent, req Request, patterns *sequel.PatternSet) ([]agent.Candidate, error) {
	query := agent.Query{Text: req.Query, Platforms: req.Platforms}

	if req.Game != nil {
		enhanced := agent.Enhanced{
			Query:         query,
			Game:          req.Game,
			EditionTitles: req.EditionTitles,
		}
		if patterns != nil {
			enhanced.SequelPatterns = patterns
		}
		return a.SearchEnhanced(ctx, enhanced)
	}
	return a.Search(ctx, query)
}

// scoreAndRank scores candidates against the catalog entry, applies the
// release-type filter, and sorts: match score, then platform score, then
// release-type priority, all descending.
func (s *Service) scoreAndRank(result *Result, req Request) {
	s.scorer.ScoreAll(result.Candidates, scoring.Context{
		Game:            req.Game,
		EditionTitles:   req.EditionTitles,
		WantedPlatforms: req.Platforms,
	})

	if len(req.ReleaseTypes) > 0 {
		wanted := make(map[agent.ReleaseType]bool, len(req.ReleaseTypes))
		for _, rt := range req.ReleaseTypes {
			wanted[rt] = true
		}
		kept := result.Candidates[:0]
		for _, c := range result.Candidates {
			if wanted[c.ReleaseType] {
				kept = append(kept, c)
			}
		}
		result.Candidates = kept
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		a, b := &result.Candidates[i], &result.Candidates[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.PlatformScore != b.PlatformScore {
			return a.PlatformScore > b.PlatformScore
		}
		return a.ReleaseType.Priority() > b.ReleaseType.Priority()
	})
}

// dropSequels removes candidates naming a different franchise entry. Drops
// are silent: logged at debug, never surfaced as low-score results.
func (s *Service) dropSequels(result *Result, patterns *sequel.PatternSet) int {
	if patterns == nil {
		return 0
	}
	dropped := 0
	kept := result.Candidates[:0]
	for _, c := range result.Candidates {
		if patterns.IsSequel(c.Title) {
			s.logger.Debug().Str("title", c.Title).Msg("Dropping sequel match")
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	result.Candidates = kept
	return dropped
}

// requestKey derives a stable cache key for a search request.
func (s *Service) requestKey(req Request) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(req.Query))
	b.WriteByte('|')
	if req.Game != nil {
		fmt.Fprintf(&b, "%d", req.Game.ID)
	}
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.Join(req.Platforms, ",")))
	b.WriteByte('|')
	for _, rt := range req.ReleaseTypes {
		b.WriteString(string(rt))
		b.WriteByte(',')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "search:result:" + hex.EncodeToString(sum[:8])
}
