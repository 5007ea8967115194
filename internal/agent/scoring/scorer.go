// Package scoring derives the heuristic match score and match reasons for a
// candidate against a catalog game, from a static table of match rules.
package scoring

import (
	"time"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/catalog"
)

// Context carries the catalog-side inputs for scoring a candidate.
type Context struct {
	Game            *catalog.GameResult
	EditionTitles   []string
	WantedPlatforms []string
	Now             time.Time
}

// GetNow returns the scoring reference time.
func (c *Context) GetNow() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// Scorer applies the static rule table to candidates.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates every rule against the candidate and sets MatchScore,
// PlatformScore and Reasons in place.
func (s *Scorer) Score(c *agent.Candidate, ctx Context) {
	in := buildInput(c, ctx)

	score := 0
	platformScore := 0
	var reasons []string

	for i := range Rules {
		rule := &Rules[i]
		if !rule.Test(in) {
			continue
		}
		score += rule.Weight
		reasons = append(reasons, rule.Reason)

		switch rule.Key {
		case "platform_match":
			platformScore += 10
		case "preferred_platform":
			platformScore += 5
		case "platform_mismatch":
			platformScore -= 10
		}
	}

	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}

	c.MatchScore = score
	c.PlatformScore = platformScore
	c.Reasons = reasons
}

// ScoreAll scores a slice of candidates in place.
func (s *Scorer) ScoreAll(candidates []agent.Candidate, ctx Context) {
	for i := range candidates {
		s.Score(&candidates[i], ctx)
	}
}

func buildInput(c *agent.Candidate, ctx Context) *RuleInput {
	in := &RuleInput{
		RawTitle:    c.Title,
		Title:       NormalizeTitle(c.Title),
		ReleaseType: string(c.ReleaseType),
		Trust:       string(c.Trust),
		Size:        c.Size,
		Seeders:     c.Seeders,
		PublishDate: c.PublishDate,
		Now:         ctx.GetNow(),
	}
	in.TitleTokens = tokenize(in.Title)

	if ctx.Game != nil {
		in.GameName = NormalizeTitle(ctx.Game.Name)
		in.GameTokens = tokenize(in.GameName)
		if !ctx.Game.ReleaseDate.IsZero() {
			in.ReleaseYear = ctx.Game.ReleaseDate.Year()
		}
		for _, alt := range ctx.Game.AlternateNames {
			in.AltNames = append(in.AltNames, NormalizeTitle(alt))
		}
		for _, p := range ctx.Game.Platforms {
			in.GamePlatforms = append(in.GamePlatforms, NormalizeTitle(p))
		}
	}

	for _, ed := range ctx.EditionTitles {
		in.EditionTitles = append(in.EditionTitles, NormalizeTitle(ed))
	}
	for _, p := range ctx.WantedPlatforms {
		in.WantedPlatforms = append(in.WantedPlatforms, NormalizeTitle(p))
	}

	return in
}
