package scoring

import (
	"testing"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/catalog"
)

func scoreOne(t *testing.T, c agent.Candidate, ctx Context) agent.Candidate {
	t.Helper()
	NewScorer().Score(&c, ctx)
	return c
}

func hasReason(c agent.Candidate, reason string) bool {
	for _, r := range c.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

func TestScore_ExactMatchRepack(t *testing.T) {
	game := &catalog.GameResult{ID: 1, Name: "Hollow Knight"}

	c := scoreOne(t, agent.Candidate{
		Title:       "Hollow.Knight",
		ReleaseType: agent.ReleaseTypeRepack,
		Seeders:     25,
		Size:        20 << 30,
	}, Context{Game: game})

	// exact name 50 + all words 15 + repack 12 + well seeded 8 + size 5
	if c.MatchScore != 90 {
		t.Errorf("MatchScore = %d, want 90 (reasons: %v)", c.MatchScore, c.Reasons)
	}
	if !hasReason(c, "exact name match") {
		t.Errorf("missing exact-match reason, got %v", c.Reasons)
	}
}

func TestScore_DLCPenalized(t *testing.T) {
	game := &catalog.GameResult{ID: 1, Name: "Hollow Knight"}
	ctx := Context{Game: game}

	base := scoreOne(t, agent.Candidate{
		Title: "Hollow.Knight-RUNE", Seeders: 25, Size: 10 << 30,
	}, ctx)
	dlc := scoreOne(t, agent.Candidate{
		Title: "Hollow.Knight.Gods.and.Nightmares.DLC", Seeders: 25, Size: 10 << 30,
	}, ctx)

	if dlc.MatchScore >= base.MatchScore {
		t.Errorf("DLC scored %d, base game %d; want DLC lower", dlc.MatchScore, base.MatchScore)
	}
	if !hasReason(dlc, "DLC/season pass only") {
		t.Errorf("missing DLC reason, got %v", dlc.Reasons)
	}
}

func TestScore_ClampsAtZero(t *testing.T) {
	game := &catalog.GameResult{ID: 1, Name: "Hollow Knight"}

	c := scoreOne(t, agent.Candidate{
		Title: "Random.Game.OST.FLAC",
		Trust: agent.TrustLow,
	}, Context{Game: game})

	if c.MatchScore != 0 {
		t.Errorf("MatchScore = %d, want 0 (reasons: %v)", c.MatchScore, c.Reasons)
	}
	if !hasReason(c, "soundtrack, not a game") {
		t.Errorf("missing soundtrack reason, got %v", c.Reasons)
	}
}

func TestScore_PlatformScore(t *testing.T) {
	tests := []struct {
		name          string
		gamePlatforms []string
		title         string
		want          int
	}{
		{"catalog platform named in title", []string{"PC"}, "Hollow.Knight.PC-RUNE", 10},
		{"platform not in catalog", []string{"Switch"}, "Hollow.Knight.PC-RUNE", -10},
		{"no platform named", []string{"PC"}, "Hollow.Knight-RUNE", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := &catalog.GameResult{ID: 1, Name: "Hollow Knight", Platforms: tt.gamePlatforms}
			c := scoreOne(t, agent.Candidate{Title: tt.title, Seeders: 5}, Context{Game: game})
			if c.PlatformScore != tt.want {
				t.Errorf("PlatformScore = %d, want %d", c.PlatformScore, tt.want)
			}
		})
	}
}

func TestScoreAll(t *testing.T) {
	game := &catalog.GameResult{ID: 1, Name: "Hollow Knight"}
	candidates := []agent.Candidate{
		{Title: "Hollow.Knight", Seeders: 25},
		{Title: "Unrelated.Release", Seeders: 25},
	}

	NewScorer().ScoreAll(candidates, Context{Game: game})

	if candidates[0].MatchScore <= candidates[1].MatchScore {
		t.Errorf("scores = %d vs %d; want the matching title higher",
			candidates[0].MatchScore, candidates[1].MatchScore)
	}
}
