package monitor

import (
	"time"

	"github.com/ludarr/ludarr/internal/agent"
)

// Status is a monitored title's lifecycle state.
type Status string

const (
	// StatusMonitored means the title is tracked but not yet released.
	StatusMonitored Status = "monitored"
	// StatusWanted means the release date has passed and matches exist or
	// are being searched for.
	StatusWanted Status = "wanted"
	// StatusDownloading means an acquisition is in flight.
	StatusDownloading Status = "downloading"
	// StatusDownloaded is terminal for the orchestrator.
	StatusDownloaded Status = "downloaded"
	// StatusInstalled is a terminal state set by an external collaborator.
	StatusInstalled Status = "installed"
)

// Settled reports whether the orchestrator is done searching for the title.
func (s Status) Settled() bool {
	return s == StatusDownloading || s == StatusDownloaded || s == StatusInstalled
}

// Acquisition tracks an in-flight or completed download.
type Acquisition struct {
	Handle    string    `json:"handle"`
	Source    string    `json:"source"`
	Client    string    `json:"client"`
	StartedAt time.Time `json:"startedAt"`
}

// Prefs are the per-title monitoring preferences.
type Prefs struct {
	PreferredReleaseType agent.ReleaseType `json:"preferredReleaseType"`
	PreferredPlatforms   []string          `json:"preferredPlatforms"`
}

// MonitoredTitle is one tracked game. The orchestrator owns all mutation;
// callers only ever see copies.
type MonitoredTitle struct {
	CatalogID            int64             `json:"catalogId"`
	Name                 string            `json:"name"`
	CoverURL             string            `json:"coverUrl"`
	Platforms            []string          `json:"platforms"`
	PreferredReleaseType agent.ReleaseType `json:"preferredReleaseType"`
	PreferredPlatforms   []string          `json:"preferredPlatforms"`
	Status               Status            `json:"status"`
	ReleaseDate          time.Time         `json:"releaseDate"`
	MonitoredSince       time.Time         `json:"monitoredSince"`
	LastSearchedAt       time.Time         `json:"lastSearchedAt"`
	LastFoundAt          time.Time         `json:"lastFoundAt"`
	SearchCount          int               `json:"searchCount"`
	CurrentAcquisition   *Acquisition      `json:"currentAcquisition,omitempty"`
}

// Released reports whether the title's release date has passed. A zero
// release date counts as released.
func (t *MonitoredTitle) Released(now time.Time) bool {
	return t.ReleaseDate.IsZero() || !t.ReleaseDate.After(now)
}

func (t *MonitoredTitle) clone() *MonitoredTitle {
	cp := *t
	cp.Platforms = append([]string(nil), t.Platforms...)
	cp.PreferredPlatforms = append([]string(nil), t.PreferredPlatforms...)
	if t.CurrentAcquisition != nil {
		acq := *t.CurrentAcquisition
		cp.CurrentAcquisition = &acq
	}
	return &cp
}
