package feedwatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/heuristics"
	"github.com/ludarr/ludarr/internal/monitor"
	"github.com/ludarr/ludarr/internal/sequel"
)

type foundCall struct {
	catalogID int64
	candidate agent.Candidate
}

type stubOrch struct {
	titles []monitor.MonitoredTitle

	mu    sync.Mutex
	found []foundCall
}

func (s *stubOrch) Titles() []monitor.MonitoredTitle { return s.titles }

func (s *stubOrch) HandleFoundCandidate(ctx context.Context, catalogID int64, candidate agent.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.found = append(s.found, foundCall{catalogID: catalogID, candidate: candidate})
}

func (s *stubOrch) calls() []foundCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]foundCall(nil), s.found...)
}

func feedDocument(items ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>feed</title>`
	for _, item := range items {
		doc += item
	}
	return doc + `</channel></rss>`
}

func feedItem(guid, title, link string, published time.Time) string {
	return fmt.Sprintf(
		`<item><guid>%s</guid><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`,
		guid, title, link, published.UTC().Format(time.RFC1123Z))
}

func newTestWatcher(t *testing.T, feedURL string, orch Orchestrator, cfg WatcherConfig) *Watcher {
	t.Helper()
	cfg.Name = "test-feed"
	cfg.FeedURL = feedURL
	if cfg.ReleaseType == "" {
		cfg.ReleaseType = agent.ReleaseTypeRepack
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	classifier := NewClassifier(heuristics.MustLoadDefault(), zerolog.Nop())
	return NewWatcher(cfg, orch, nil, nil, classifier, zerolog.Nop())
}

func TestWatcher_RoutesMatchedEntry(t *testing.T) {
	now := time.Now()
	feed := feedDocument(
		feedItem("r1", "Starfall.Tactics.v1.2.Repack", "magnet:?xt=urn:btih:aaa", now),
		feedItem("r2", "Unrelated.Game.Title", "magnet:?xt=urn:btih:bbb", now),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	orch := &stubOrch{titles: []monitor.MonitoredTitle{
		{CatalogID: 1, Name: "Starfall Tactics", Status: monitor.StatusWanted},
	}}
	w := newTestWatcher(t, srv.URL, orch, WatcherConfig{})

	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	calls := orch.calls()
	if len(calls) != 1 {
		t.Fatalf("routed %d candidates, want 1", len(calls))
	}
	got := calls[0]
	if got.catalogID != 1 {
		t.Errorf("catalogID = %d, want 1", got.catalogID)
	}
	if got.candidate.MagnetURI != "magnet:?xt=urn:btih:aaa" {
		t.Errorf("MagnetURI = %q", got.candidate.MagnetURI)
	}
	if got.candidate.ReleaseType != agent.ReleaseTypeRepack {
		t.Errorf("ReleaseType = %s", got.candidate.ReleaseType)
	}
	if got.candidate.Source != "test-feed" {
		t.Errorf("Source = %q", got.candidate.Source)
	}
	if got.candidate.MatchScore != 100 {
		t.Errorf("MatchScore = %d, want 100", got.candidate.MatchScore)
	}

	// The same entry is not routed twice.
	if err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.calls()) != 1 {
		t.Error("seen entry routed again on the second cycle")
	}
}

func TestWatcher_FirstRunIgnoresBacklog(t *testing.T) {
	now := time.Now()
	feed := feedDocument(
		feedItem("old", "Starfall.Tactics.Old.Release", "magnet:?xt=urn:btih:old", now.Add(-72*time.Hour)),
		feedItem("new", "Starfall.Tactics.New.Release", "magnet:?xt=urn:btih:new", now),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	orch := &stubOrch{titles: []monitor.MonitoredTitle{
		{CatalogID: 1, Name: "Starfall Tactics", Status: monitor.StatusWanted},
	}}
	w := newTestWatcher(t, srv.URL, orch, WatcherConfig{FirstRunWindow: 24 * time.Hour})

	if err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}

	calls := orch.calls()
	if len(calls) != 1 {
		t.Fatalf("routed %d candidates, want only the recent one", len(calls))
	}
	if calls[0].candidate.MagnetURI != "magnet:?xt=urn:btih:new" {
		t.Errorf("routed %q, want the recent entry", calls[0].candidate.MagnetURI)
	}
}

func TestWatcher_SkipsSettledTitles(t *testing.T) {
	feed := feedDocument(
		feedItem("r1", "Starfall.Tactics.Repack", "magnet:?xt=urn:btih:aaa", time.Now()),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	orch := &stubOrch{titles: []monitor.MonitoredTitle{
		{CatalogID: 1, Name: "Starfall Tactics", Status: monitor.StatusDownloading},
	}}
	w := newTestWatcher(t, srv.URL, orch, WatcherConfig{})

	if err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.calls()) != 0 {
		t.Error("candidate routed for a title that is already downloading")
	}
}

func TestWatcher_DropsNonGameEntries(t *testing.T) {
	feed := feedDocument(
		feedItem("m1", "Starfall.Tactics.2023.1080p.BluRay.x264", "magnet:?xt=urn:btih:movie", time.Now()),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	orch := &stubOrch{titles: []monitor.MonitoredTitle{
		{CatalogID: 1, Name: "Starfall Tactics", Status: monitor.StatusWanted},
	}}
	w := newTestWatcher(t, srv.URL, orch, WatcherConfig{})

	if err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.calls()) != 0 {
		t.Error("movie-shaped entry routed as a game match")
	}
}

func TestWatcher_DropsSequels(t *testing.T) {
	feed := feedDocument(
		feedItem("s1", "Hollow.Knight.Silksong-RUNE", "magnet:?xt=urn:btih:seq", time.Now()),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	heur := heuristics.MustLoadDefault()
	orch := &stubOrch{titles: []monitor.MonitoredTitle{
		{CatalogID: 1, Name: "Hollow Knight", Status: monitor.StatusWanted},
	}}
	w := newTestWatcher(t, srv.URL, orch, WatcherConfig{})
	w.sequels = sequel.NewFilter(nil, nil, heur, time.Hour, zerolog.Nop())

	if err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(orch.calls()) != 0 {
		t.Error("sequel release routed to the monitored base game")
	}
}

func TestWatcher_ResolvesMagnetFromEntryPage(t *testing.T) {
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/comments">discuss</a>
			<a href="magnet:?xt=urn:btih:fromscene">magnet</a>
		</body></html>`)
	}))
	defer pageSrv.Close()

	feed := feedDocument(
		feedItem("p1", "Starfall.Tactics-SCENE", pageSrv.URL+"/release/1", time.Now()),
	)
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer feedSrv.Close()

	orch := &stubOrch{titles: []monitor.MonitoredTitle{
		{CatalogID: 1, Name: "Starfall Tactics", Status: monitor.StatusWanted},
	}}
	w := newTestWatcher(t, feedSrv.URL, orch, WatcherConfig{
		ReleaseType:  agent.ReleaseTypeScene,
		ResolvePages: true,
	})

	if err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}

	calls := orch.calls()
	if len(calls) != 1 {
		t.Fatalf("routed %d candidates, want 1", len(calls))
	}
	if calls[0].candidate.MagnetURI != "magnet:?xt=urn:btih:fromscene" {
		t.Errorf("MagnetURI = %q, want the page-resolved magnet", calls[0].candidate.MagnetURI)
	}
	if calls[0].candidate.ReleaseType != agent.ReleaseTypeScene {
		t.Errorf("ReleaseType = %s", calls[0].candidate.ReleaseType)
	}
}

func TestWatcher_BacksOffAfterFailure(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	orch := &stubOrch{}
	w := newTestWatcher(t, srv.URL, orch, WatcherConfig{Interval: time.Minute})

	if err := w.Check(context.Background()); err == nil {
		t.Fatal("Check() did not report the failed poll")
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want 1", requests)
	}

	// In backoff: the next cycle is skipped without touching the feed.
	if err := w.Check(context.Background()); err != nil {
		t.Fatalf("backoff cycle returned %v, want nil skip", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want still 1 during backoff", requests)
	}
}
