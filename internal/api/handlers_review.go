package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ludarr/ludarr/internal/review"
)

func (s *Server) listPending(c echo.Context) error {
	return c.JSON(http.StatusOK, s.reviewQueue.Pending())
}

func (s *Server) listPendingForTitle(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	matches := s.reviewQueue.PendingForTitle(id)
	if matches == nil {
		matches = []review.PendingMatch{}
	}
	return c.JSON(http.StatusOK, matches)
}

// approveMatch approves a pending match and triggers the download. Approval
// is a human decision, so it bypasses the model gate.
func (s *Server) approveMatch(c echo.Context) error {
	matchID := c.Param("id")

	if err := s.orchestrator.ApproveMatch(c.Request().Context(), matchID); err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "match not found"})
		case errors.Is(err, review.ErrNotPending):
			return c.JSON(http.StatusConflict, map[string]string{"error": "match already resolved"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "approved"})
}

func (s *Server) rejectMatch(c echo.Context) error {
	matchID := c.Param("id")

	if err := s.reviewQueue.Reject(matchID); err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "match not found"})
		case errors.Is(err, review.ErrNotPending):
			return c.JSON(http.StatusConflict, map[string]string{"error": "match already resolved"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "rejected"})
}

func (s *Server) rejectAllForTitle(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	rejected, err := s.reviewQueue.RejectAllForTitle(id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rejected": rejected})
}
