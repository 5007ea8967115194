package feedwatch

import (
	"strings"

	"github.com/ludarr/ludarr/internal/agent/scoring"
)

// MatchScore measures how well a feed entry title matches a monitored game
// name, as a percentage. Full containment of the normalized name scores 100;
// otherwise each name word must appear in the entry exactly or as a prefix
// (so "remastered" still matches "remaster") and the score is the matched
// fraction.
func MatchScore(gameName, entryTitle string) int {
	name := scoring.NormalizeTitle(gameName)
	entry := scoring.NormalizeTitle(entryTitle)
	if name == "" || entry == "" {
		return 0
	}

	if strings.Contains(entry, name) {
		return 100
	}

	nameWords := strings.Fields(name)
	if len(nameWords) == 0 {
		return 0
	}
	entryWords := strings.Fields(entry)

	matched := 0
	for _, w := range nameWords {
		if wordPresent(entryWords, w) {
			matched++
		}
	}
	return matched * 100 / len(nameWords)
}

func wordPresent(haystack []string, word string) bool {
	for _, h := range haystack {
		if h == word || strings.HasPrefix(h, word) {
			return true
		}
	}
	return false
}
