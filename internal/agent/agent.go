package agent

import (
	"context"

	"github.com/ludarr/ludarr/internal/catalog"
)

// Query is a plain search query.
type Query struct {
	Text      string
	Platforms []string
	Limit     int
}

// EnhancedQuery carries catalog context so an agent can search smarter.
type Enhanced struct {
	Query          Query
	Game           *catalog.GameResult
	EditionTitles  []string
	SequelPatterns SequelChecker
}

// SequelChecker reports whether a title names a different game in the same
// franchise. Agents may use it to pre-filter obvious mismatches.
type SequelChecker interface {
	IsSequel(title string) bool
}

// Agent is a pluggable integration with one external release-indexing source.
// Implementations must be safe for concurrent use.
type Agent interface {
	Name() string
	Priority() int

	// IsAvailable reports whether the agent is currently usable
	// (configured, not disabled).
	IsAvailable() bool

	Search(ctx context.Context, query Query) ([]Candidate, error)
	SearchEnhanced(ctx context.Context, query Enhanced) ([]Candidate, error)
}
