package sequel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/heuristics"
)

type stubProvider struct {
	franchise  map[int64][]catalog.GameResult
	collection map[int64][]catalog.GameResult
	fail       bool
}

func (p *stubProvider) Name() string                   { return "stub" }
func (p *stubProvider) IsConfigured() bool             { return true }
func (p *stubProvider) Test(ctx context.Context) error { return nil }

func (p *stubProvider) LookupByID(ctx context.Context, id int64) (*catalog.GameResult, error) {
	return nil, catalog.ErrNotFound
}

func (p *stubProvider) SearchByName(ctx context.Context, query string) ([]catalog.GameResult, error) {
	return nil, nil
}

func (p *stubProvider) FranchiseMembers(ctx context.Context, franchiseID int64) ([]catalog.GameResult, error) {
	if p.fail {
		return nil, errors.New("catalog down")
	}
	return p.franchise[franchiseID], nil
}

func (p *stubProvider) CollectionMembers(ctx context.Context, collectionID int64) ([]catalog.GameResult, error) {
	if p.fail {
		return nil, errors.New("catalog down")
	}
	return p.collection[collectionID], nil
}

func (p *stubProvider) EditionTitles(ctx context.Context, gameID int64) ([]string, error) {
	return nil, nil
}

func newTestFilter(t *testing.T, provider *stubProvider) *Filter {
	t.Helper()
	var svc *catalog.Service
	if provider != nil {
		svc = catalog.NewService(provider, nil, time.Hour, zerolog.Nop())
	}
	return NewFilter(svc, nil, heuristics.MustLoadDefault(), time.Hour, zerolog.Nop())
}

func TestIsSequel_CuratedPair(t *testing.T) {
	f := newTestFilter(t, nil)
	game := &catalog.GameResult{ID: 1, Name: "Hollow Knight"}
	ps := f.PatternsFor(context.Background(), game)

	tests := []struct {
		title string
		want  bool
	}{
		{"Hollow Knight: Silksong - Repack", true},
		{"Hollow.Knight.Silksong-CODEX", true},
		{"Hollow Knight (v1.5.78) [GOG]", false},
		{"Hollow.Knight.Godmaster.Update-PLAZA", false},
	}
	for _, tt := range tests {
		if got := ps.IsSequel(tt.title); got != tt.want {
			t.Errorf("IsSequel(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestIsSequel_ProceduralPatterns(t *testing.T) {
	f := newTestFilter(t, nil)
	game := &catalog.GameResult{ID: 2, Name: "Factorio"}
	ps := f.PatternsFor(context.Background(), game)

	tests := []struct {
		title string
		want  bool
	}{
		{"Factorio 2 Early Access", true},
		{"Factorio.II.REPACK-FitGirl", true},
		{"Factorio: Space Age", true},
		{"Factorio v1.1.110", false},
	}
	for _, tt := range tests {
		if got := ps.IsSequel(tt.title); got != tt.want {
			t.Errorf("IsSequel(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestPatternsFor_CatalogSiblings(t *testing.T) {
	provider := &stubProvider{
		franchise: map[int64][]catalog.GameResult{
			10: {
				{ID: 2, Name: "Dusk Tactics 2"},
				{ID: 3, Name: "Dusk Tactics: Ashfall"},
				{ID: 4, Name: "Dusk Tactics Soundtrack Collection"}, // no sequel signal
				{ID: 5, Name: "Unrelated Game"},                     // does not extend the base name
			},
		},
	}
	f := newTestFilter(t, provider)

	game := &catalog.GameResult{ID: 1, Name: "Dusk Tactics", FranchiseIDs: []int64{10}}
	ps := f.PatternsFor(context.Background(), game)

	if ps.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q, want %q", ps.Confidence, ConfidenceHigh)
	}
	if !ps.IsSequel("Dusk.Tactics.2.REPACK-SKIDROW") {
		t.Error("numbered sibling not excluded")
	}
	if !ps.IsSequel("Dusk Tactics Ashfall Deluxe") {
		t.Error("subtitled sibling not excluded")
	}
	if ps.IsSequel("Unrelated Game HD") {
		t.Error("non-extending sibling excluded")
	}
}

func TestPatternsFor_CatalogFailureFallsBack(t *testing.T) {
	provider := &stubProvider{fail: true}
	f := newTestFilter(t, provider)

	game := &catalog.GameResult{ID: 1, Name: "Hollow Knight", FranchiseIDs: []int64{10}}
	ps := f.PatternsFor(context.Background(), game)

	if ps.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %q, want %q", ps.Confidence, ConfidenceLow)
	}
	// Curated and procedural sources still apply.
	if !ps.IsSequel("Hollow Knight: Silksong") {
		t.Error("curated exclusion lost in fallback")
	}
}

func TestPatternsFor_MemoryCache(t *testing.T) {
	provider := &stubProvider{
		franchise: map[int64][]catalog.GameResult{10: {{ID: 2, Name: "Stellar Drift 2"}}},
	}
	f := newTestFilter(t, provider)
	game := &catalog.GameResult{ID: 1, Name: "Stellar Drift", FranchiseIDs: []int64{10}}

	a := f.PatternsFor(context.Background(), game)
	provider.fail = true // a rebuild would now downgrade confidence
	b := f.PatternsFor(context.Background(), game)

	if a != b {
		t.Error("second call rebuilt instead of using the cached set")
	}

	f.Invalidate(context.Background(), game.ID)
	c := f.PatternsFor(context.Background(), game)
	if c.Confidence != ConfidenceLow {
		t.Errorf("Confidence after invalidation = %q, want %q", c.Confidence, ConfidenceLow)
	}
}

func TestClassifySibling_Keywords(t *testing.T) {
	f := newTestFilter(t, nil)

	if !f.classifySibling("shadow realm", "Shadow Realm Origins") {
		t.Error("sequel keyword not recognized")
	}
	if f.classifySibling("shadow realm", "Shadow Realm") {
		t.Error("base name classified as its own sequel")
	}
	if !f.classifySibling("shadow realm", "Shadow Realm 2024") {
		t.Error("year-suffixed sibling not recognized")
	}
}
