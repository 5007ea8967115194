// Package agent defines the search-agent capability: a pluggable integration
// with one external release-indexing source.
package agent

import (
	"strings"
	"time"
)

// ReleaseType classifies a discovered release.
type ReleaseType string

const (
	ReleaseTypeRepack  ReleaseType = "repack"
	ReleaseTypeRip     ReleaseType = "rip"
	ReleaseTypeScene   ReleaseType = "scene"
	ReleaseTypeP2P     ReleaseType = "p2p"
	ReleaseTypeUnknown ReleaseType = "unknown"
)

// Priority returns the ranking priority of a release type.
// Higher is preferred: repack=3, rip=2, scene/p2p=1, unknown=0.
func (t ReleaseType) Priority() int {
	switch t {
	case ReleaseTypeRepack:
		return 3
	case ReleaseTypeRip:
		return 2
	case ReleaseTypeScene, ReleaseTypeP2P:
		return 1
	default:
		return 0
	}
}

// ParseReleaseType normalizes a free-form release type label.
func ParseReleaseType(s string) ReleaseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "repack":
		return ReleaseTypeRepack
	case "rip":
		return ReleaseTypeRip
	case "scene":
		return ReleaseTypeScene
	case "p2p":
		return ReleaseTypeP2P
	default:
		return ReleaseTypeUnknown
	}
}

// TrustLevel describes how much a source is trusted.
type TrustLevel string

const (
	TrustHigh   TrustLevel = "high"
	TrustMedium TrustLevel = "medium"
	TrustLow    TrustLevel = "low"
)

// Candidate is a single discovered release proposed as a match for a
// monitored title. Candidates are ephemeral; they are only persisted inside
// a pending review match.
type Candidate struct {
	Title         string      `json:"title"`
	ReleaseType   ReleaseType `json:"releaseType"`
	Size          int64       `json:"size"` // bytes, 0 if unknown
	Seeders       int         `json:"seeders"`
	Leechers      int         `json:"leechers"`
	Source        string      `json:"source"`
	Trust         TrustLevel  `json:"trust"`
	MagnetURI     string      `json:"magnetUri,omitempty"`
	TorrentURL    string      `json:"torrentUrl,omitempty"`
	PublishDate   time.Time   `json:"publishDate,omitempty"`
	MatchScore    int         `json:"matchScore"` // heuristic, 0-150
	PlatformScore int         `json:"platformScore"`
	Reasons       []string    `json:"reasons,omitempty"`
}

// DownloadLocator returns the usable download locator, preferring magnets.
// Empty means the candidate cannot be acquired.
func (c *Candidate) DownloadLocator() string {
	if c.MagnetURI != "" {
		return c.MagnetURI
	}
	return c.TorrentURL
}
