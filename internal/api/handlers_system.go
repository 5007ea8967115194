package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) listTasks(c echo.Context) error {
	if s.sched == nil {
		return c.JSON(http.StatusOK, []interface{}{})
	}
	return c.JSON(http.StatusOK, s.sched.ListTasks())
}

func (s *Server) runTask(c echo.Context) error {
	if s.sched == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "scheduler not running"})
	}

	if err := s.sched.RunNow(c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) modelStatus(c echo.Context) error {
	ready := s.model != nil && s.model.Ready()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ready": ready,
		"path":  s.cfg.Model.Path,
	})
}

func (s *Server) testDownloader(c echo.Context) error {
	if s.client == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no download client configured"})
	}

	if err := s.client.Test(c.Request().Context()); err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "client": s.client.Name()})
}
