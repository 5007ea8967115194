package scoring

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxScore is the ceiling of the heuristic match score.
const MaxScore = 150

// RuleInput is the precomputed view of a candidate that match rules test.
// It is built once per candidate; predicates never re-parse the raw title.
type RuleInput struct {
	RawTitle        string
	Title           string // normalized
	TitleTokens     []string
	GameName        string // normalized
	GameTokens      []string
	AltNames        []string // normalized
	EditionTitles   []string // normalized
	GamePlatforms   []string // normalized, from the catalog
	WantedPlatforms []string // normalized, user preference
	ReleaseYear     int
	ReleaseType     string
	Trust           string
	Size            int64
	Seeders         int
	PublishDate     time.Time
	Now             time.Time
}

// Rule is one static (feature key, predicate) match rule. The key doubles
// as the model feature name; the reason is what humans see in review.
type Rule struct {
	Key    string
	Reason string
	Weight int
	Test   func(in *RuleInput) bool
}

var (
	yearRegex     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	dlcRegex      = regexp.MustCompile(`(?i)\b(dlc|season pass)\b`)
	expansionRe   = regexp.MustCompile(`(?i)\b(expansion|addon|add-on)( pack| only)?\b`)
	soundtrackRe  = regexp.MustCompile(`(?i)\b(ost|soundtrack|original score)\b`)
	artbookRe     = regexp.MustCompile(`(?i)\b(artbook|art book|digital art)\b`)
	updateOnlyRe  = regexp.MustCompile(`(?i)\b(update|patch|hotfix) (only|v?\d)`)
	demoRe        = regexp.MustCompile(`(?i)\b(demo|beta|playtest|early access build)\b`)
	bundleRe      = regexp.MustCompile(`(?i)\b(bundle|collection|anthology|trilogy|complete pack)\b`)
	crackOnlyRe   = regexp.MustCompile(`(?i)\b(crack|crackfix|keygen)( only)?\b`)
	trainerRe     = regexp.MustCompile(`(?i)\b(trainer|cheat(s| engine)?)\b`)
	gotyRe        = regexp.MustCompile(`(?i)\b(goty|game of the year|definitive|deluxe|ultimate|gold) edition\b`)
	multiLangRe   = regexp.MustCompile(`(?i)\bmulti ?\d+\b`)
	vrRegex       = regexp.MustCompile(`(?i)\bvr\b`)
	modRegex      = regexp.MustCompile(`(?i)\b(mod pack|modpack|overhaul mod)\b`)
	emulatorRe    = regexp.MustCompile(`(?i)\b(emulator|bios|rom set|romset)\b`)
	dubbedMediaRe = regexp.MustCompile(`(?i)\b(1080p|2160p|720p|bluray|web-?dl|hdrip|x26[45]|hevc)\b`)
)

// Rules is the static match-rule table, evaluated once per candidate.
// Positive rules raise the heuristic score, negative rules lower it; the sum
// is clamped to [0, MaxScore].
var Rules = []Rule{
	// Name evidence
	{Key: "exact_name_match", Reason: "exact name match", Weight: 50, Test: func(in *RuleInput) bool {
		return in.Title == in.GameName
	}},
	{Key: "name_prefix_match", Reason: "name is a prefix of the release title", Weight: 30, Test: func(in *RuleInput) bool {
		return in.Title != in.GameName && strings.HasPrefix(in.Title, in.GameName+" ")
	}},
	{Key: "name_contained", Reason: "name contained in release title", Weight: 20, Test: func(in *RuleInput) bool {
		return in.Title != in.GameName && !strings.HasPrefix(in.Title, in.GameName+" ") &&
			strings.Contains(in.Title, in.GameName)
	}},
	{Key: "all_words_present", Reason: "every word of the name appears in the title", Weight: 15, Test: func(in *RuleInput) bool {
		if len(in.GameTokens) == 0 {
			return false
		}
		set := make(map[string]bool, len(in.TitleTokens))
		for _, t := range in.TitleTokens {
			set[t] = true
		}
		for _, w := range in.GameTokens {
			if !set[w] {
				return false
			}
		}
		return true
	}},
	{Key: "alt_name_match", Reason: "matches an alternate catalog name", Weight: 25, Test: func(in *RuleInput) bool {
		for _, alt := range in.AltNames {
			if alt != "" && strings.Contains(in.Title, alt) {
				return true
			}
		}
		return false
	}},
	{Key: "edition_title_match", Reason: "matches a known edition title", Weight: 18, Test: func(in *RuleInput) bool {
		for _, ed := range in.EditionTitles {
			if ed != "" && strings.Contains(in.Title, ed) {
				return true
			}
		}
		return false
	}},
	{Key: "year_match", Reason: "release year in title matches catalog", Weight: 10, Test: func(in *RuleInput) bool {
		if in.ReleaseYear == 0 {
			return false
		}
		for _, y := range yearRegex.FindAllString(in.RawTitle, -1) {
			if y == itoa(in.ReleaseYear) {
				return true
			}
		}
		return false
	}},
	{Key: "goty_edition", Reason: "complete/GOTY edition", Weight: 8, Test: func(in *RuleInput) bool {
		return gotyRe.MatchString(in.RawTitle)
	}},

	// Source and release quality evidence
	{Key: "repack_release", Reason: "repack release", Weight: 12, Test: func(in *RuleInput) bool {
		return in.ReleaseType == "repack"
	}},
	{Key: "trusted_source", Reason: "trusted source", Weight: 12, Test: func(in *RuleInput) bool {
		return in.Trust == "high"
	}},
	{Key: "well_seeded", Reason: "well seeded", Weight: 8, Test: func(in *RuleInput) bool {
		return in.Seeders >= 10
	}},
	{Key: "multi_language", Reason: "multi-language release", Weight: 3, Test: func(in *RuleInput) bool {
		return multiLangRe.MatchString(in.RawTitle)
	}},
	{Key: "plausible_size", Reason: "plausible install size", Weight: 5, Test: func(in *RuleInput) bool {
		const gb = int64(1) << 30
		return in.Size >= gb/2 && in.Size <= 200*gb
	}},
	{Key: "recent_publish", Reason: "recently published", Weight: 5, Test: func(in *RuleInput) bool {
		return !in.PublishDate.IsZero() && in.Now.Sub(in.PublishDate) <= 30*24*time.Hour
	}},
	{Key: "platform_match", Reason: "platform matches catalog", Weight: 10, Test: func(in *RuleInput) bool {
		return platformOverlap(in.Title, in.GamePlatforms)
	}},
	{Key: "preferred_platform", Reason: "matches a preferred platform", Weight: 6, Test: func(in *RuleInput) bool {
		return platformOverlap(in.Title, in.WantedPlatforms)
	}},

	// Non-game and partial-content penalties
	{Key: "dlc_only", Reason: "DLC/season pass only", Weight: -40, Test: func(in *RuleInput) bool {
		return dlcRegex.MatchString(in.RawTitle) && !gotyRe.MatchString(in.RawTitle)
	}},
	{Key: "expansion_only", Reason: "expansion/add-on only", Weight: -30, Test: func(in *RuleInput) bool {
		return expansionRe.MatchString(in.RawTitle)
	}},
	{Key: "soundtrack_only", Reason: "soundtrack, not a game", Weight: -50, Test: func(in *RuleInput) bool {
		return soundtrackRe.MatchString(in.RawTitle)
	}},
	{Key: "artbook_only", Reason: "artbook, not a game", Weight: -40, Test: func(in *RuleInput) bool {
		return artbookRe.MatchString(in.RawTitle)
	}},
	{Key: "update_only", Reason: "update/patch only", Weight: -35, Test: func(in *RuleInput) bool {
		return updateOnlyRe.MatchString(in.RawTitle)
	}},
	{Key: "demo_or_beta", Reason: "demo or beta build", Weight: -30, Test: func(in *RuleInput) bool {
		return demoRe.MatchString(in.RawTitle)
	}},
	{Key: "bundle_release", Reason: "bundle/collection release", Weight: -20, Test: func(in *RuleInput) bool {
		return bundleRe.MatchString(in.RawTitle) && !strings.Contains(in.GameName, "collection")
	}},
	{Key: "crack_only", Reason: "crack/keygen only", Weight: -45, Test: func(in *RuleInput) bool {
		return crackOnlyRe.MatchString(in.RawTitle)
	}},
	{Key: "trainer_or_cheat", Reason: "trainer/cheat tool", Weight: -45, Test: func(in *RuleInput) bool {
		return trainerRe.MatchString(in.RawTitle)
	}},
	{Key: "mod_content", Reason: "mod content, not the base game", Weight: -25, Test: func(in *RuleInput) bool {
		return modRegex.MatchString(in.RawTitle)
	}},
	{Key: "emulator_content", Reason: "emulator/ROM content", Weight: -35, Test: func(in *RuleInput) bool {
		return emulatorRe.MatchString(in.RawTitle)
	}},
	{Key: "video_media_tags", Reason: "video release tags, likely mis-tagged movie", Weight: -30, Test: func(in *RuleInput) bool {
		return dubbedMediaRe.MatchString(in.RawTitle)
	}},
	{Key: "platform_mismatch", Reason: "platform not in catalog", Weight: -25, Test: func(in *RuleInput) bool {
		named := namedPlatforms(in.Title)
		if len(named) == 0 || len(in.GamePlatforms) == 0 {
			return false
		}
		for _, p := range named {
			for _, gp := range in.GamePlatforms {
				if p == gp {
					return false
				}
			}
		}
		return true
	}},
	{Key: "vr_mismatch", Reason: "VR release for a non-VR title", Weight: -15, Test: func(in *RuleInput) bool {
		if !vrRegex.MatchString(in.RawTitle) {
			return false
		}
		for _, gp := range in.GamePlatforms {
			if strings.Contains(gp, "vr") {
				return false
			}
		}
		return true
	}},
	{Key: "year_mismatch", Reason: "year in title does not match catalog", Weight: -10, Test: func(in *RuleInput) bool {
		if in.ReleaseYear == 0 {
			return false
		}
		years := yearRegex.FindAllString(in.RawTitle, -1)
		if len(years) == 0 {
			return false
		}
		for _, y := range years {
			if y == itoa(in.ReleaseYear) {
				return false
			}
		}
		return true
	}},
	{Key: "zero_seeders", Reason: "no seeders", Weight: -10, Test: func(in *RuleInput) bool {
		return in.Seeders == 0
	}},
	{Key: "low_trust_source", Reason: "low-trust source", Weight: -10, Test: func(in *RuleInput) bool {
		return in.Trust == "low"
	}},
}

// reasonToKey maps human-readable reason text back to the rule feature key.
var reasonToKey = func() map[string]string {
	m := make(map[string]string, len(Rules))
	for _, r := range Rules {
		m[r.Reason] = r.Key
	}
	return m
}()

// FeatureKeys returns the stable list of rule feature keys in table order.
func FeatureKeys() []string {
	keys := make([]string, len(Rules))
	for i, r := range Rules {
		keys[i] = r.Key
	}
	return keys
}

// KeyForReason resolves a human-readable reason back to its feature key.
func KeyForReason(reason string) (string, bool) {
	key, ok := reasonToKey[reason]
	return key, ok
}

// knownPlatformTokens are platform names that may appear in release titles.
var knownPlatformTokens = []string{"pc", "win", "windows", "mac", "macos", "linux", "switch", "ps4", "ps5", "xbox"}

func namedPlatforms(normalizedTitle string) []string {
	tokens := tokenize(normalizedTitle)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	var named []string
	for _, p := range knownPlatformTokens {
		if set[p] {
			named = append(named, canonicalPlatform(p))
		}
	}
	return named
}

func platformOverlap(normalizedTitle string, platforms []string) bool {
	named := namedPlatforms(normalizedTitle)
	for _, n := range named {
		for _, p := range platforms {
			if n == p {
				return true
			}
		}
	}
	return false
}

func canonicalPlatform(token string) string {
	switch token {
	case "win", "windows":
		return "pc"
	case "macos":
		return "mac"
	default:
		return token
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
