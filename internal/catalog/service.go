package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/kvcache"
)

// Service wraps a Provider with durable result caching.
type Service struct {
	provider Provider
	cache    *kvcache.Store
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewService creates a catalog service over the given provider.
func NewService(provider Provider, cache *kvcache.Store, cacheTTL time.Duration, logger zerolog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Service{
		provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Provider returns the underlying provider.
func (s *Service) Provider() Provider {
	return s.provider
}

// LookupByID fetches a game by catalog id, cached.
func (s *Service) LookupByID(ctx context.Context, id int64) (*GameResult, error) {
	key := fmt.Sprintf("catalog:game:%d", id)

	var cached GameResult
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	game, err := s.provider.LookupByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, game)
	return game, nil
}

// SearchByName searches the catalog by name, cached.
func (s *Service) SearchByName(ctx context.Context, query string) ([]GameResult, error) {
	key := "catalog:search:" + query

	var cached []GameResult
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	results, err := s.provider.SearchByName(ctx, query)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, results)
	return results, nil
}

// EditionTitles returns edition/version titles for a game, cached.
func (s *Service) EditionTitles(ctx context.Context, gameID int64) ([]string, error) {
	key := fmt.Sprintf("catalog:editions:%d", gameID)

	var cached []string
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	titles, err := s.provider.EditionTitles(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, titles)
	return titles, nil
}

// SiblingTitles returns the other games in the same franchise/collection as
// the given game, deduplicated by catalog id.
func (s *Service) SiblingTitles(ctx context.Context, game *GameResult) ([]GameResult, error) {
	key := fmt.Sprintf("catalog:siblings:%d", game.ID)

	var cached []GameResult
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	seen := map[int64]bool{game.ID: true}
	var siblings []GameResult

	for _, franchiseID := range game.FranchiseIDs {
		members, err := s.provider.FranchiseMembers(ctx, franchiseID)
		if err != nil {
			return nil, fmt.Errorf("franchise lookup failed: %w", err)
		}
		for _, m := range members {
			if !seen[m.ID] {
				seen[m.ID] = true
				siblings = append(siblings, m)
			}
		}
	}

	if game.CollectionID != 0 {
		members, err := s.provider.CollectionMembers(ctx, game.CollectionID)
		if err != nil {
			return nil, fmt.Errorf("collection lookup failed: %w", err)
		}
		for _, m := range members {
			if !seen[m.ID] {
				seen[m.ID] = true
				siblings = append(siblings, m)
			}
		}
	}

	s.store(ctx, key, siblings)
	return siblings, nil
}

// InvalidateGame drops all cached entries for a game.
func (s *Service) InvalidateGame(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{
		fmt.Sprintf("catalog:game:%d", id),
		fmt.Sprintf("catalog:siblings:%d", id),
		fmt.Sprintf("catalog:editions:%d", id),
	} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate catalog cache entry")
		}
	}
}

func (s *Service) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSONWithTTL(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache catalog result")
	}
}
