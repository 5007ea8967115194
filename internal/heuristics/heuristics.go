// Package heuristics holds the tuned matching lists shared by the sequel
// filter and the passive feed monitors: curated sequel pairs, sequel
// keywords, feed-entry classifiers, and the known-games whitelist. The
// defaults are embedded; an override file replaces them wholesale.
package heuristics

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed heuristics.yaml
var embedded []byte

// Data is the parsed heuristics file.
type Data struct {
	SequelPairs    map[string][]string `yaml:"sequel_pairs"`
	SequelKeywords []string            `yaml:"sequel_keywords"`
	TVPatterns     []string            `yaml:"tv_patterns"`
	MoviePatterns  []string            `yaml:"movie_patterns"`
	AdultPatterns  []string            `yaml:"adult_patterns"`
	EbookPatterns  []string            `yaml:"ebook_patterns"`
	KnownGames     []string            `yaml:"known_games"`
}

// Load returns the embedded heuristics, or the contents of overridePath
// when set.
func Load(overridePath string) (*Data, error) {
	raw := embedded
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read heuristics file: %w", err)
		}
		raw = data
	}

	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse heuristics file: %w", err)
	}
	return &d, nil
}

// MustLoadDefault parses the embedded heuristics and panics on failure,
// which can only happen if the embedded file itself is broken.
func MustLoadDefault() *Data {
	d, err := Load("")
	if err != nil {
		panic(err)
	}
	return d
}
