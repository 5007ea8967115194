package torznab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
)

const torznabResponse = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
<channel>
<item>
<title>Starfall.Tactics.v1.2.REPACK-FitGirl</title>
<link>magnet:?xt=urn:btih:aaa</link>
<guid>1</guid>
<pubDate>Mon, 13 Jan 2025 10:30:00 +0000</pubDate>
<size>10737418240</size>
<torznab:attr name="seeders" value="120"/>
<torznab:attr name="peers" value="30"/>
</item>
<item>
<title>Starfall.Tactics-RUNE</title>
<link>https://indexer.example/dl/2.torrent</link>
<guid>2</guid>
<enclosure url="https://indexer.example/dl/2.torrent" length="5368709120" type="application/x-bittorrent"/>
<torznab:attr name="seeders" value="40"/>
<torznab:attr name="magneturl" value="magnet:?xt=urn:btih:bbb"/>
</item>
<item>
<title>Broken entry</title>
<guid>3</guid>
</item>
</channel>
</rss>`

func newTestAgent(t *testing.T, handler http.HandlerFunc) *Agent {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Name: "indexer", BaseURL: srv.URL, APIKey: "key", Priority: 5}, zerolog.Nop())
}

func TestSearch_ParsesTorznabItems(t *testing.T) {
	var gotQuery string
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("apikey") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, torznabResponse)
	})

	candidates, err := a.Search(context.Background(), agent.Query{Text: "Starfall Tactics"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "Starfall Tactics" {
		t.Errorf("query param = %q", gotQuery)
	}
	if len(candidates) != 2 {
		t.Fatalf("parsed %d candidates, want 2 (locator-less item skipped)", len(candidates))
	}

	repack := candidates[0]
	if repack.ReleaseType != agent.ReleaseTypeRepack {
		t.Errorf("ReleaseType = %s, want repack", repack.ReleaseType)
	}
	if repack.Seeders != 120 || repack.Leechers != 30 {
		t.Errorf("seeders/leechers = %d/%d", repack.Seeders, repack.Leechers)
	}
	if repack.Size != 10<<30 {
		t.Errorf("Size = %d", repack.Size)
	}
	if repack.MagnetURI == "" {
		t.Error("magnet link not carried over")
	}

	scene := candidates[1]
	if scene.ReleaseType != agent.ReleaseTypeScene {
		t.Errorf("ReleaseType = %s, want scene", scene.ReleaseType)
	}
	if scene.MagnetURI != "magnet:?xt=urn:btih:bbb" {
		t.Errorf("magneturl attr not preferred: %q", scene.MagnetURI)
	}
	if scene.Size != 5<<30 {
		t.Errorf("enclosure length not used: %d", scene.Size)
	}
}

func TestSearch_EndpointError(t *testing.T) {
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := a.Search(context.Background(), agent.Query{Text: "x"}); err == nil {
		t.Error("Search() did not surface the endpoint error")
	}
}

func TestSearchEnhanced_MergesEditionQueries(t *testing.T) {
	queries := []string{}
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		fmt.Fprintf(w, `<?xml version="1.0"?><rss><channel><item>
			<title>%s-RUNE</title><link>magnet:?xt=urn:btih:%d</link><guid>%d</guid>
			</item></channel></rss>`, q, len(queries), len(queries))
	})

	candidates, err := a.SearchEnhanced(context.Background(), agent.Enhanced{
		Query:         agent.Query{Text: "Starfall Tactics"},
		EditionTitles: []string{"Starfall Tactics Deluxe", "Starfall Tactics"},
	})
	if err != nil {
		t.Fatalf("SearchEnhanced() error = %v", err)
	}

	// Base query plus the one distinct edition.
	if len(queries) != 2 {
		t.Fatalf("made %d queries, want 2: %v", len(queries), queries)
	}
	if len(candidates) != 2 {
		t.Errorf("merged %d candidates, want 2", len(candidates))
	}
}

func TestDetectReleaseType(t *testing.T) {
	tests := []struct {
		title string
		want  agent.ReleaseType
	}{
		{"Game.Name.REPACK-FitGirl", agent.ReleaseTypeRepack},
		{"Game Name [GOG]", agent.ReleaseTypeRip},
		{"Game.Name-CODEX", agent.ReleaseTypeScene},
		{"Game Name v1.0", agent.ReleaseTypeUnknown},
	}
	for _, tt := range tests {
		if got := DetectReleaseType(tt.title); got != tt.want {
			t.Errorf("DetectReleaseType(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}
