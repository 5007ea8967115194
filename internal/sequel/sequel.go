// Package sequel decides whether a candidate release title actually names a
// different game in the same franchise as a monitored title. Pattern sets
// are built from a curated pair table, catalog sibling titles, and
// procedural patterns derived from the base name, then cached.
package sequel

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent/scoring"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/heuristics"
	"github.com/ludarr/ludarr/internal/kvcache"
)

// Confidence rates how much metadata backed a pattern set.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // catalog siblings contributed
	ConfidenceMedium Confidence = "medium" // catalog reachable but no siblings found
	ConfidenceLow    Confidence = "low"    // curated + procedural only
)

// DefaultCacheTTL is how long a built pattern set stays valid.
const DefaultCacheTTL = 24 * time.Hour

var (
	numeralSuffixRegex = regexp.MustCompile(`\b(?:[2-9]|1[0-9]|ii|iii|iv|v|vi|vii|viii|ix|x|xi|xii)$`)
	yearRegex          = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// PatternSet is the per-title exclusion set: exact normalized names of
// known different games plus compiled patterns over candidate text.
type PatternSet struct {
	Names      map[string]struct{}
	Patterns   []*regexp.Regexp
	Confidence Confidence
}

// IsSequel reports whether the candidate title names an excluded game.
// Exact names are checked against the normalized text; patterns are tried
// against both the raw lowercase and normalized forms, since colon patterns
// only survive in the raw form.
func (ps *PatternSet) IsSequel(title string) bool {
	if ps == nil {
		return false
	}
	lower := strings.ToLower(title)
	norm := scoring.NormalizeTitle(title)

	for name := range ps.Names {
		if strings.Contains(norm, name) {
			return true
		}
	}
	for _, p := range ps.Patterns {
		if p.MatchString(lower) || p.MatchString(norm) {
			return true
		}
	}
	return false
}

// patternSource is the persisted form of a pattern set; regexes are stored
// as their source text and recompiled on load.
type patternSource struct {
	Names      []string   `json:"names"`
	Patterns   []string   `json:"patterns"`
	Confidence Confidence `json:"confidence"`
}

func (src *patternSource) compile() (*PatternSet, error) {
	ps := &PatternSet{
		Names:      make(map[string]struct{}, len(src.Names)),
		Confidence: src.Confidence,
	}
	for _, n := range src.Names {
		ps.Names[n] = struct{}{}
	}
	for _, expr := range src.Patterns {
		p, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("bad cached pattern %q: %w", expr, err)
		}
		ps.Patterns = append(ps.Patterns, p)
	}
	return ps, nil
}

type memEntry struct {
	set     *PatternSet
	expires time.Time
}

// Filter builds and caches pattern sets per game.
type Filter struct {
	catalog *catalog.Service
	cache   *kvcache.Store
	heur    *heuristics.Data
	ttl     time.Duration
	logger  zerolog.Logger

	mu  sync.Mutex
	mem map[int64]memEntry
}

// NewFilter creates a sequel filter. catalogSvc may be nil, in which case
// every set is built from curated + procedural sources only.
func NewFilter(catalogSvc *catalog.Service, cache *kvcache.Store, heur *heuristics.Data, ttl time.Duration, logger zerolog.Logger) *Filter {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Filter{
		catalog: catalogSvc,
		cache:   cache,
		heur:    heur,
		ttl:     ttl,
		logger:  logger.With().Str("component", "sequel").Logger(),
		mem:     make(map[int64]memEntry),
	}
}

func cacheKey(gameID int64) string {
	return fmt.Sprintf("sequel:patterns:%d", gameID)
}

// PatternsFor returns the pattern set for a game, building it if the cached
// copy is missing or expired. Never returns nil.
func (f *Filter) PatternsFor(ctx context.Context, game *catalog.GameResult) *PatternSet {
	f.mu.Lock()
	if e, ok := f.mem[game.ID]; ok && time.Now().Before(e.expires) {
		f.mu.Unlock()
		return e.set
	}
	f.mu.Unlock()

	if f.cache != nil {
		var src patternSource
		if f.cache.GetJSON(ctx, cacheKey(game.ID), &src) {
			if ps, err := src.compile(); err == nil {
				f.remember(game.ID, ps)
				return ps
			}
			// Corrupt cache entry; rebuild below.
			_ = f.cache.Delete(ctx, cacheKey(game.ID))
		}
	}

	ps, src := f.build(ctx, game)
	f.remember(game.ID, ps)
	if f.cache != nil {
		if err := f.cache.SetJSONWithTTL(ctx, cacheKey(game.ID), src, f.ttl); err != nil {
			f.logger.Warn().Err(err).Int64("gameId", game.ID).Msg("Failed to cache sequel patterns")
		}
	}
	return ps
}

// Invalidate drops the cached pattern set for a game.
func (f *Filter) Invalidate(ctx context.Context, gameID int64) {
	f.mu.Lock()
	delete(f.mem, gameID)
	f.mu.Unlock()
	if f.cache != nil {
		_ = f.cache.Delete(ctx, cacheKey(gameID))
	}
}

func (f *Filter) remember(gameID int64, ps *PatternSet) {
	f.mu.Lock()
	f.mem[gameID] = memEntry{set: ps, expires: time.Now().Add(f.ttl)}
	f.mu.Unlock()
}

// build assembles a pattern set from the three sources. A catalog failure
// downgrades confidence to low rather than failing the build.
func (f *Filter) build(ctx context.Context, game *catalog.GameResult) (*PatternSet, *patternSource) {
	base := scoring.NormalizeTitle(game.Name)
	src := &patternSource{Confidence: ConfidenceLow}
	names := make(map[string]struct{})

	// (a) curated pairs
	for _, s := range f.heur.SequelPairs[base] {
		n := scoring.NormalizeTitle(s)
		if n != "" && n != base {
			names[n] = struct{}{}
		}
	}

	// (b) catalog siblings
	if f.catalog != nil {
		siblings, err := f.catalog.SiblingTitles(ctx, game)
		if err != nil {
			f.logger.Warn().Err(err).Int64("gameId", game.ID).Str("game", game.Name).
				Msg("Sibling lookup failed, using curated and procedural patterns only")
		} else {
			src.Confidence = ConfidenceMedium
			added := 0
			for i := range siblings {
				if siblings[i].ID == game.ID {
					continue
				}
				if f.classifySibling(base, siblings[i].Name) {
					n := scoring.NormalizeTitle(siblings[i].Name)
					if n != "" && n != base {
						names[n] = struct{}{}
						added++
					}
				}
			}
			if added > 0 {
				src.Confidence = ConfidenceHigh
			}
		}
	}

	for n := range names {
		src.Names = append(src.Names, n)
	}

	// (c) procedural patterns from the base name
	quoted := regexp.QuoteMeta(base)
	src.Patterns = append(src.Patterns,
		`\b`+quoted+`\s+(?:[2-9]|1[0-9]|ii|iii|iv|v|vi|vii|viii|ix|x|xi|xii)\b`,
		`\b`+quoted+`\s*:\s*\S`,
	)

	ps, err := src.compile()
	if err != nil {
		// QuoteMeta output always compiles; this guards cached names only.
		f.logger.Error().Err(err).Msg("Failed to compile sequel patterns")
		ps = &PatternSet{Names: names, Confidence: src.Confidence}
	}

	f.logger.Debug().
		Str("game", game.Name).
		Int("names", len(src.Names)).
		Int("patterns", len(src.Patterns)).
		Str("confidence", string(src.Confidence)).
		Msg("Built sequel pattern set")
	return ps, src
}

// classifySibling reports whether a same-franchise title is a true sequel
// candidate: it must extend the base name and carry a sequel signal.
func (f *Filter) classifySibling(base, siblingName string) bool {
	raw := strings.ToLower(strings.TrimSpace(siblingName))
	norm := scoring.NormalizeTitle(siblingName)
	if norm == "" || norm == base {
		return false
	}
	if !strings.HasPrefix(norm, base) && !strings.Contains(norm, base) {
		return false
	}

	if numeralSuffixRegex.MatchString(norm) {
		return true
	}

	// Sequel keyword anywhere past the base name.
	rest := norm
	if idx := strings.Index(norm, base); idx >= 0 {
		rest = norm[idx+len(base):]
	}
	restTokens := strings.Fields(rest)
	for _, kw := range f.heur.SequelKeywords {
		for _, tok := range restTokens {
			if tok == kw {
				return true
			}
		}
	}

	// "Base: Subtitle" in the raw name.
	if idx := strings.Index(raw, ":"); idx > 0 {
		head := scoring.NormalizeTitle(raw[:idx])
		if head == base && strings.TrimSpace(raw[idx+1:]) != "" {
			return true
		}
	}

	// Conspicuously longer with a year the base name lacks.
	if len(norm) > len(base)+4 && yearRegex.MatchString(norm) && !yearRegex.MatchString(base) {
		return true
	}

	return false
}
