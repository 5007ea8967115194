package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/search"
)

type searchInput struct {
	Query        string   `json:"query"`
	CatalogID    int64    `json:"catalogId,omitempty"`
	Platforms    []string `json:"platforms,omitempty"`
	ReleaseTypes []string `json:"releaseTypes,omitempty"`
	SkipCache    bool     `json:"skipCache,omitempty"`
}

// runSearch executes a blocking search; per-agent progress is streamed to
// websocket clients while the request is in flight.
func (s *Server) runSearch(c echo.Context) error {
	var input searchInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if input.Query == "" && input.CatalogID <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query or catalogId is required"})
	}

	req := search.Request{
		Query:     input.Query,
		Platforms: input.Platforms,
		SkipCache: input.SkipCache,
	}
	for _, rt := range input.ReleaseTypes {
		req.ReleaseTypes = append(req.ReleaseTypes, agent.ReleaseType(rt))
	}

	ctx := c.Request().Context()
	if input.CatalogID > 0 && s.catalogSvc != nil {
		game, err := s.catalogSvc.LookupByID(ctx, input.CatalogID)
		if err != nil {
			return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		req.Game = game
		if editions, err := s.catalogSvc.EditionTitles(ctx, input.CatalogID); err == nil {
			req.EditionTitles = editions
		}
	}

	observer := make(chan search.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range observer {
			if err := s.hub.Broadcast("search:"+string(ev.Type), ev); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to broadcast search event")
			}
		}
	}()

	result, err := s.searchSvc.Search(ctx, req, observer)
	close(observer)
	<-done

	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) catalogSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
	}
	if s.catalogSvc == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no catalog provider configured"})
	}

	results, err := s.catalogSvc.SearchByName(c.Request().Context(), query)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if results == nil {
		results = []catalog.GameResult{}
	}
	return c.JSON(http.StatusOK, results)
}
