package catalog

import "time"

// GameResult is a normalized catalog entry for a game.
type GameResult struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CoverURL       string    `json:"coverUrl,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Platforms      []string  `json:"platforms,omitempty"`
	ReleaseDate    time.Time `json:"releaseDate,omitempty"`
	AlternateNames []string  `json:"alternateNames,omitempty"`
	FranchiseIDs   []int64   `json:"franchiseIds,omitempty"`
	CollectionID   int64     `json:"collectionId,omitempty"`
}

// Released reports whether the game's release date has passed.
// Games without a known release date are treated as released.
func (g *GameResult) Released(now time.Time) bool {
	if g.ReleaseDate.IsZero() {
		return true
	}
	return !g.ReleaseDate.After(now)
}
