package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/monitor"
)

type startMonitoringInput struct {
	CatalogID            int64    `json:"catalogId"`
	PreferredReleaseType string   `json:"preferredReleaseType,omitempty"`
	PreferredPlatforms   []string `json:"preferredPlatforms,omitempty"`
}

func (s *Server) listMonitored(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orchestrator.Titles())
}

func (s *Server) startMonitoring(c echo.Context) error {
	var input startMonitoringInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if input.CatalogID <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "catalogId is required"})
	}

	prefs := monitor.Prefs{
		PreferredReleaseType: agent.ReleaseType(input.PreferredReleaseType),
		PreferredPlatforms:   input.PreferredPlatforms,
	}

	title, err := s.orchestrator.StartMonitoring(c.Request().Context(), input.CatalogID, prefs)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, title)
}

func (s *Server) getMonitored(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	title, ok := s.orchestrator.Get(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "title not monitored"})
	}
	return c.JSON(http.StatusOK, title)
}

func (s *Server) stopMonitoring(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	if err := s.orchestrator.StopMonitoring(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) searchMonitored(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	if err := s.orchestrator.SearchNow(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "searching"})
}

func (s *Server) markDownloaded(c echo.Context) error {
	return s.markStatus(c, s.orchestrator.MarkDownloaded)
}

func (s *Server) markInstalled(c echo.Context) error {
	return s.markStatus(c, s.orchestrator.MarkInstalled)
}

func (s *Server) markStatus(c echo.Context, mark func(int64) error) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	if err := mark(id); err != nil {
		if errors.Is(err, monitor.ErrAlreadyDownloading) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	title, _ := s.orchestrator.Get(id)
	return c.JSON(http.StatusOK, title)
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
