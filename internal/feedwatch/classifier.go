package feedwatch

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent/scoring"
	"github.com/ludarr/ludarr/internal/heuristics"
)

// Category is a coarse content class for a feed entry title.
type Category string

const (
	CategoryGame  Category = "game"
	CategoryTV    Category = "tv"
	CategoryMovie Category = "movie"
	CategoryAdult Category = "adult"
	CategoryEbook Category = "ebook"
)

// Classifier sorts feed entry titles into content categories so the
// watchers only try to match plausible game releases. Known game names
// override every pattern: a whitelisted title is always a game.
type Classifier struct {
	tv         []*regexp.Regexp
	movie      []*regexp.Regexp
	adult      []*regexp.Regexp
	ebook      []*regexp.Regexp
	knownGames []string
}

// NewClassifier compiles the heuristic pattern lists. Patterns that fail to
// compile are skipped with a warning rather than failing the whole watcher.
func NewClassifier(data *heuristics.Data, logger zerolog.Logger) *Classifier {
	compile := func(patterns []string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				logger.Warn().Str("pattern", p).Err(err).Msg("Skipping invalid classifier pattern")
				continue
			}
			out = append(out, re)
		}
		return out
	}

	known := make([]string, 0, len(data.KnownGames))
	for _, name := range data.KnownGames {
		known = append(known, scoring.NormalizeTitle(name))
	}

	return &Classifier{
		tv:         compile(data.TVPatterns),
		movie:      compile(data.MoviePatterns),
		adult:      compile(data.AdultPatterns),
		ebook:      compile(data.EbookPatterns),
		knownGames: known,
	}
}

// Classify returns the category for a feed entry title.
func (c *Classifier) Classify(title string) Category {
	norm := scoring.NormalizeTitle(title)
	for _, game := range c.knownGames {
		if game != "" && strings.Contains(norm, game) {
			return CategoryGame
		}
	}

	lower := strings.ToLower(title)
	if matchAny(c.adult, lower) {
		return CategoryAdult
	}
	if matchAny(c.ebook, lower) {
		return CategoryEbook
	}
	if matchAny(c.tv, lower) {
		return CategoryTV
	}
	if matchAny(c.movie, lower) {
		return CategoryMovie
	}
	return CategoryGame
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
