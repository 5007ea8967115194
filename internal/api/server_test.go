package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/agent/mock"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/downloader"
	"github.com/ludarr/ludarr/internal/monitor"
	"github.com/ludarr/ludarr/internal/review"
	"github.com/ludarr/ludarr/internal/search"
	"github.com/ludarr/ludarr/internal/websocket"
)

type stubProvider struct {
	games map[int64]*catalog.GameResult
}

func (p *stubProvider) Name() string                   { return "stub" }
func (p *stubProvider) IsConfigured() bool             { return true }
func (p *stubProvider) Test(ctx context.Context) error { return nil }

func (p *stubProvider) LookupByID(ctx context.Context, id int64) (*catalog.GameResult, error) {
	g, ok := p.games[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (p *stubProvider) SearchByName(ctx context.Context, query string) ([]catalog.GameResult, error) {
	var out []catalog.GameResult
	for _, g := range p.games {
		if strings.Contains(strings.ToLower(g.Name), strings.ToLower(query)) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (p *stubProvider) FranchiseMembers(ctx context.Context, franchiseID int64) ([]catalog.GameResult, error) {
	return nil, nil
}

func (p *stubProvider) CollectionMembers(ctx context.Context, collectionID int64) ([]catalog.GameResult, error) {
	return nil, nil
}

func (p *stubProvider) EditionTitles(ctx context.Context, gameID int64) ([]string, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	provider := &stubProvider{games: map[int64]*catalog.GameResult{
		1: {ID: 1, Name: "Starfall Tactics", ReleaseDate: time.Now().Add(-30 * 24 * time.Hour)},
	}}
	catalogSvc := catalog.NewService(provider, nil, time.Hour, zerolog.Nop())

	mockAgent := mock.New("alpha", 1)
	mockAgent.SetResults([]agent.Candidate{
		{Title: "Starfall Tactics REPACK", ReleaseType: agent.ReleaseTypeRepack, MagnetURI: "magnet:?xt=urn:btih:aaa"},
	})
	registry := agent.NewRegistry(zerolog.Nop())
	registry.Register(mockAgent)
	searchSvc := search.NewService(registry, nil, nil, 5*time.Second, 0, zerolog.Nop())

	queue, err := review.NewQueue(filepath.Join(t.TempDir(), "review"), 0, zerolog.Nop())
	require.NoError(t, err)

	orch, err := monitor.New(nil, catalogSvc, searchSvc, queue, downloader.NewMock(), nil, monitor.Options{}, zerolog.Nop())
	require.NoError(t, err)

	hub := websocket.NewHub()
	go hub.Run()

	return NewServer(Deps{
		Orchestrator: orch,
		Search:       searchSvc,
		Catalog:      catalogSvc,
		Review:       queue,
		Client:       downloader.NewMock(),
	}, hub, &config.Config{}, zerolog.Nop())
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMonitorLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/monitor", `{"catalogId":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starfall Tactics")

	rec = doRequest(s, http.MethodGet, "/api/v1/monitor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"catalogId":1`)

	rec = doRequest(s, http.MethodGet, "/api/v1/monitor/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/v1/monitor/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/monitor/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonitor_UnknownCatalogID(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/monitor", `{"catalogId":99}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMonitor_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/monitor", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSearch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/search", `{"query":"Starfall Tactics"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starfall Tactics REPACK")
}

func TestRunSearch_RequiresQuery(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogSearch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/catalog/search?q=starfall", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starfall Tactics")

	rec = doRequest(s, http.MethodGet, "/api/v1/catalog/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/review", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	added, err := s.reviewQueue.AddMatches(1, "Starfall Tactics", "alpha", []agent.Candidate{
		{Title: "Starfall Tactics REPACK", Source: "alpha"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	rec = doRequest(s, http.MethodGet, "/api/v1/review/title/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Starfall Tactics REPACK")

	matches := s.reviewQueue.PendingForTitle(1)
	require.Len(t, matches, 1)

	rec = doRequest(s, http.MethodPost, "/api/v1/review/"+matches[0].ID+"/reject", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/review/"+matches[0].ID+"/reject", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/review/nope/approve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"monitoredCount":0`)
	assert.Contains(t, rec.Body.String(), `"modelReady":false`)
}

func TestTasksWithoutScheduler(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/tasks/x/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
