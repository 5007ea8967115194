package feedwatch

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/heuristics"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(heuristics.MustLoadDefault(), zerolog.Nop())

	tests := []struct {
		title string
		want  Category
	}{
		{"The.Office.S03E01.HDTV.x264-LOL", CategoryTV},
		{"Show.Name.Season.2.Complete.WEBRip", CategoryTV},
		{"Oppenheimer.2023.1080p.BluRay.x265-GROUP", CategoryMovie},
		{"Some.Documentary.DVDRip.XviD", CategoryMovie},
		{"Title.XXX.1080p.MP4", CategoryAdult},
		{"Author - Novel Title (2024) EPUB", CategoryEbook},
		{"Elden Ring v1.10 + All DLCs Repack", CategoryGame},
		{"Starfall.Tactics.v1.2-RAZOR", CategoryGame},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.title); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestClassifier_KnownGamesOverridePatterns(t *testing.T) {
	c := NewClassifier(heuristics.MustLoadDefault(), zerolog.Nop())

	// Looks like a movie release, but the name is on the whitelist.
	if got := c.Classify("Friday.the.13th.The.Game.720p.BluRay"); got != CategoryGame {
		t.Errorf("whitelisted title classified as %s", got)
	}
}

func TestClassifier_SkipsInvalidPatterns(t *testing.T) {
	data := &heuristics.Data{TVPatterns: []string{`[unclosed`, `\bS\d{1,2}E\d{1,3}\b`}}
	c := NewClassifier(data, zerolog.Nop())
	if got := c.Classify("Show.S01E01"); got != CategoryTV {
		t.Errorf("valid pattern did not survive an invalid sibling, got %s", got)
	}
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name  string
		game  string
		entry string
		want  int
	}{
		{"dotted containment", "Starfall Tactics", "Starfall.Tactics.v1.2-RAZOR", 100},
		{"apostrophe stripped", "Baldur's Gate 3", "Baldurs.Gate.3.Hotfix.24", 100},
		{"prefix words", "Divinity Original Sin", "Divinity.Originals.Sins.Bundle", 100},
		{"half the words", "one two three four", "one two unrelated", 50},
		{"nothing shared", "Starfall Tactics", "Completely.Different.Game", 0},
		{"empty entry", "Starfall Tactics", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchScore(tt.game, tt.entry); got != tt.want {
				t.Errorf("MatchScore(%q, %q) = %d, want %d", tt.game, tt.entry, got, tt.want)
			}
		})
	}
}
