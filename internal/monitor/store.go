package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ludarr/ludarr/internal/agent"
)

// Store persists monitored titles to SQLite. The orchestrator's in-memory
// map stays authoritative; the store exists so a restart resumes where the
// process left off.
type Store struct {
	db *sql.DB
}

// NewStore creates a title store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns every persisted title.
func (s *Store) Load(ctx context.Context) ([]*MonitoredTitle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT catalog_id, name, cover_url, platforms, preferred_release_type,
		       preferred_platforms, status, release_date, monitored_since,
		       last_searched_at, last_found_at, search_count, acquisition
		FROM monitored_titles`)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitored titles: %w", err)
	}
	defer rows.Close()

	var titles []*MonitoredTitle
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// Upsert inserts or replaces a title row.
func (s *Store) Upsert(ctx context.Context, t *MonitoredTitle) error {
	platforms, err := json.Marshal(t.Platforms)
	if err != nil {
		return fmt.Errorf("failed to encode platforms: %w", err)
	}
	preferred, err := json.Marshal(t.PreferredPlatforms)
	if err != nil {
		return fmt.Errorf("failed to encode preferred platforms: %w", err)
	}

	acquisition := ""
	if t.CurrentAcquisition != nil {
		data, err := json.Marshal(t.CurrentAcquisition)
		if err != nil {
			return fmt.Errorf("failed to encode acquisition: %w", err)
		}
		acquisition = string(data)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monitored_titles (
			catalog_id, name, cover_url, platforms, preferred_release_type,
			preferred_platforms, status, release_date, monitored_since,
			last_searched_at, last_found_at, search_count, acquisition
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_id) DO UPDATE SET
			name = excluded.name,
			cover_url = excluded.cover_url,
			platforms = excluded.platforms,
			preferred_release_type = excluded.preferred_release_type,
			preferred_platforms = excluded.preferred_platforms,
			status = excluded.status,
			release_date = excluded.release_date,
			monitored_since = excluded.monitored_since,
			last_searched_at = excluded.last_searched_at,
			last_found_at = excluded.last_found_at,
			search_count = excluded.search_count,
			acquisition = excluded.acquisition`,
		t.CatalogID, t.Name, t.CoverURL, string(platforms), string(t.PreferredReleaseType),
		string(preferred), string(t.Status), unixOrZero(t.ReleaseDate), t.MonitoredSince.Unix(),
		unixOrZero(t.LastSearchedAt), unixOrZero(t.LastFoundAt), t.SearchCount, acquisition)
	if err != nil {
		return fmt.Errorf("failed to persist monitored title %d: %w", t.CatalogID, err)
	}
	return nil
}

// Delete removes a title row.
func (s *Store) Delete(ctx context.Context, catalogID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM monitored_titles WHERE catalog_id = ?`, catalogID); err != nil {
		return fmt.Errorf("failed to delete monitored title %d: %w", catalogID, err)
	}
	return nil
}

func scanTitle(rows *sql.Rows) (*MonitoredTitle, error) {
	var (
		t                               MonitoredTitle
		platforms, preferred, acq       string
		releaseType, status             string
		releaseDate, since, searched    int64
		found                           int64
	)
	if err := rows.Scan(&t.CatalogID, &t.Name, &t.CoverURL, &platforms, &releaseType,
		&preferred, &status, &releaseDate, &since, &searched, &found,
		&t.SearchCount, &acq); err != nil {
		return nil, fmt.Errorf("failed to scan monitored title: %w", err)
	}

	if err := json.Unmarshal([]byte(platforms), &t.Platforms); err != nil {
		return nil, fmt.Errorf("failed to decode platforms: %w", err)
	}
	if err := json.Unmarshal([]byte(preferred), &t.PreferredPlatforms); err != nil {
		return nil, fmt.Errorf("failed to decode preferred platforms: %w", err)
	}
	if acq != "" {
		t.CurrentAcquisition = &Acquisition{}
		if err := json.Unmarshal([]byte(acq), t.CurrentAcquisition); err != nil {
			return nil, fmt.Errorf("failed to decode acquisition: %w", err)
		}
	}

	t.PreferredReleaseType = parseReleaseTypePref(releaseType)
	t.Status = Status(status)
	t.ReleaseDate = timeOrZero(releaseDate)
	t.MonitoredSince = time.Unix(since, 0).UTC()
	t.LastSearchedAt = timeOrZero(searched)
	t.LastFoundAt = timeOrZero(found)
	return &t, nil
}

// parseReleaseTypePref keeps an empty preference empty instead of mapping
// it to "unknown".
func parseReleaseTypePref(s string) agent.ReleaseType {
	if s == "" {
		return ""
	}
	return agent.ReleaseType(s)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
