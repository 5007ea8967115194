// Package review persists proposed matches awaiting a human decision, plus
// a permanent rejection memory so a rejected release never resurfaces.
package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/agent/scoring"
)

// Status is a pending match's decision state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// DefaultRetention is how long resolved matches are kept before pruning.
// Rejection fingerprints are never pruned.
const DefaultRetention = 7 * 24 * time.Hour

var (
	ErrNotFound   = errors.New("pending match not found")
	ErrNotPending = errors.New("match already resolved")
)

// PendingMatch binds a discovered candidate to a monitored title awaiting a
// decision.
type PendingMatch struct {
	ID           string          `json:"id"`
	TitleID      int64           `json:"titleId"`
	TitleName    string          `json:"titleName"`
	Candidate    agent.Candidate `json:"candidate"`
	Source       string          `json:"source"`
	Status       Status          `json:"status"`
	DiscoveredAt time.Time       `json:"discoveredAt"`
	ResolvedAt   *time.Time      `json:"resolvedAt,omitempty"`
}

/// Fingerprint derives the permanent rejection identity for a candidate:
// title id plus normalized source and candidate title.
func Fingerprint(titleID int64, source, candidateTitle string) string {
	return fmt.Sprintf("%d|%s|%s",
		titleID,
		strings.ToLower(strings.TrimSpace(source)),
		scoring.NormalizeTitle(candidateTitle))
}

// Queue is the persisted review queue. All mutations go through the queue's
// lock; the two JSON files are guarded by a file lock so an offline train
// or a second process never interleaves writes.
type Queue struct {
	mu        sync.Mutex
	dataDir   string
	retention time.Duration
	logger    zerolog.Logger
	flock     *flock.Flock

	matches      []*PendingMatch
	fingerprints map[string]struct{}
}

// NewQueue loads the queue from dataDir, seeds the fingerprint set from any
// already-rejected records, and prunes resolved entries past retention.
// Corrupt or missing files start empty rather than failing.
func NewQueue(dataDir string, retention time.Duration, logger zerolog.Logger) (*Queue, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create review data dir: %w", err)
	}

	q := &Queue{
		dataDir:      dataDir,
		retention:    retention,
		logger:       logger.With().Str("component", "review").Logger(),
		flock:        flock.New(filepath.Join(dataDir, "review.lock")),
		fingerprints: make(map[string]struct{}),
	}

	q.load()
	q.seedFingerprints()
	pruned := q.pruneLocked()
	if pruned > 0 {
		q.logger.Info().Int("pruned", pruned).Msg("Pruned resolved matches past retention")
	}
	if err := q.persist(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) matchesPath() string      { return filepath.Join(q.dataDir, "pending_matches.json") }
func (q *Queue) fingerprintsPath() string { return filepath.Join(q.dataDir, "rejection_fingerprints.json") }

func (q *Queue) load() {
	if err := q.flock.Lock(); err != nil {
		q.logger.Warn().Err(err).Msg("Failed to acquire review file lock for load")
	} else {
		defer q.flock.Unlock()
	}

	if data, err := os.ReadFile(q.matchesPath()); err == nil {
		if err := json.Unmarshal(data, &q.matches); err != nil {
			q.logger.Warn().Err(err).Msg("Pending matches file is corrupt, starting empty")
			q.matches = nil
		}
	}

	var fps []string
	if data, err := os.ReadFile(q.fingerprintsPath()); err == nil {
		if err := json.Unmarshal(data, &fps); err != nil {
			q.logger.Warn().Err(err).Msg("Fingerprints file is corrupt, starting empty")
			fps = nil
		}
	}
	for _, fp := range fps {
		q.fingerprints[fp] = struct{}{}
	}
}

// seedFingerprints backfills fingerprints from rejected records written
// before the fingerprint file existed.
func (q *Queue) seedFingerprints() {
	for _, m := range q.matches {
		if m.Status == StatusRejected {
			q.fingerprints[Fingerprint(m.TitleID, m.Source, m.Candidate.Title)] = struct{}{}
		}
	}
}

// persist writes both files via temp + rename under the file lock. Caller
// holds q.mu.
func (q *Queue) persist() error {
	if err := q.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire review file lock: %w", err)
	}
	defer q.flock.Unlock()

	if err := writeJSON(q.matchesPath(), q.matches); err != nil {
		return err
	}

	fps := make([]string, 0, len(q.fingerprints))
	for fp := range q.fingerprints {
		fps = append(fps, fp)
	}
	return writeJSON(q.fingerprintsPath(), fps)
}

func writeJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// AddMatches queues candidates for review. Candidates whose fingerprint was
// ever rejected, and duplicates of an existing pending entry with the same
// (title, candidate title, source) identity, are silently dropped. Returns
// how many were actually added.
func (q *Queue) AddMatches(titleID int64, titleName, source string, candidates []agent.Candidate) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pendingKeys := make(map[string]struct{})
	for _, m := range q.matches {
		if m.Status == StatusPending {
			pendingKeys[Fingerprint(m.TitleID, m.Source, m.Candidate.Title)] = struct{}{}
		}
	}

	added := 0
	for i := range candidates {
		c := candidates[i]
		src := source
		if src == "" {
			src = c.Source
		}
		key := Fingerprint(titleID, src, c.Title)

		if _, rejected := q.fingerprints[key]; rejected {
			q.logger.Debug().Str("title", c.Title).Msg("Skipping previously rejected candidate")
			continue
		}
		if _, dup := pendingKeys[key]; dup {
			continue
		}
		pendingKeys[key] = struct{}{}

		q.matches = append(q.matches, &PendingMatch{
			ID:           uuid.NewString(),
			TitleID:      titleID,
			TitleName:    titleName,
			Candidate:    c,
			Source:       src,
			Status:       StatusPending,
			DiscoveredAt: time.Now().UTC(),
		})
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := q.persist(); err != nil {
		return added, err
	}
	q.logger.Info().Int64("titleId", titleID).Int("added", added).Msg("Queued matches for review")
	return added, nil
}

// Pending returns the pending matches, newest first.
func (q *Queue) Pending() []PendingMatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]PendingMatch, 0, len(q.matches))
	for i := len(q.matches) - 1; i >= 0; i-- {
		if q.matches[i].Status == StatusPending {
			out = append(out, *q.matches[i])
		}
	}
	return out
}

// PendingForTitle returns the pending matches for one title, newest first.
func (q *Queue) PendingForTitle(titleID int64) []PendingMatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []PendingMatch
	for i := len(q.matches) - 1; i >= 0; i-- {
		m := q.matches[i]
		if m.Status == StatusPending && m.TitleID == titleID {
			out = append(out, *m)
		}
	}
	return out
}

// Get returns a match by id.
func (q *Queue) Get(id string) (*PendingMatch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := q.find(id)
	if m == nil {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (q *Queue) find(id string) *PendingMatch {
	for _, m := range q.matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Approve resolves a pending match as approved and returns it so the caller
// can trigger acquisition.
func (q *Queue) Approve(id string) (*PendingMatch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := q.find(id)
	if m == nil {
		return nil, ErrNotFound
	}
	if m.Status != StatusPending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	m.Status = StatusApproved
	m.ResolvedAt = &now
	if err := q.persist(); err != nil {
		return nil, err
	}

	q.logger.Info().Str("id", id).Str("title", m.Candidate.Title).Msg("Match approved")
	cp := *m
	return &cp, nil
}

// Reject resolves a pending match as rejected and records its fingerprint
// permanently.
func (q *Queue) Reject(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := q.find(id)
	if m == nil {
		return ErrNotFound
	}
	if m.Status != StatusPending {
		return ErrNotPending
	}

	q.rejectLocked(m)
	if err := q.persist(); err != nil {
		return err
	}
	q.logger.Info().Str("id", id).Str("title", m.Candidate.Title).Msg("Match rejected")
	return nil
}

// RejectAllForTitle rejects every pending match for a title, recording each
// fingerprint. Returns how many were rejected.
func (q *Queue) RejectAllForTitle(titleID int64) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rejected := 0
	for _, m := range q.matches {
		if m.Status == StatusPending && m.TitleID == titleID {
			q.rejectLocked(m)
			rejected++
		}
	}
	if rejected == 0 {
		return 0, nil
	}
	if err := q.persist(); err != nil {
		return rejected, err
	}
	q.logger.Info().Int64("titleId", titleID).Int("rejected", rejected).Msg("Rejected all pending matches for title")
	return rejected, nil
}

func (q *Queue) rejectLocked(m *PendingMatch) {
	now := time.Now().UTC()
	m.Status = StatusRejected
	m.ResolvedAt = &now
	q.fingerprints[Fingerprint(m.TitleID, m.Source, m.Candidate.Title)] = struct{}{}
}

// IsRejected reports whether a candidate was ever rejected for a title.
func (q *Queue) IsRejected(titleID int64, source, candidateTitle string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.fingerprints[Fingerprint(titleID, source, candidateTitle)]
	return ok
}

// Prune removes resolved matches older than the retention window and
// persists. Fingerprints always survive.
func (q *Queue) Prune() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pruned := q.pruneLocked()
	if pruned == 0 {
		return 0, nil
	}
	return pruned, q.persist()
}

func (q *Queue) pruneLocked() int {
	cutoff := time.Now().Add(-q.retention)
	kept := q.matches[:0]
	pruned := 0
	for _, m := range q.matches {
		if m.Status != StatusPending && m.ResolvedAt != nil && m.ResolvedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, m)
	}
	q.matches = kept
	return pruned
}
