package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/testutil"
)

func TestStore_RoundTrip(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	store := NewStore(tdb.Conn)
	ctx := context.Background()

	title := &MonitoredTitle{
		CatalogID:            42,
		Name:                 "Starfall Tactics",
		CoverURL:             "https://img.example/cover.png",
		Platforms:            []string{"PC (Microsoft Windows)"},
		PreferredReleaseType: agent.ReleaseTypeRepack,
		PreferredPlatforms:   []string{"PC (Microsoft Windows)"},
		Status:               StatusWanted,
		ReleaseDate:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		MonitoredSince:       time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		LastSearchedAt:       time.Date(2025, 1, 16, 9, 30, 0, 0, time.UTC),
		SearchCount:          3,
		CurrentAcquisition: &Acquisition{
			Handle:    "abc123",
			Source:    "alpha",
			Client:    "mock",
			StartedAt: time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC),
		},
	}

	if err := store.Upsert(ctx, title); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d titles, want 1", len(loaded))
	}

	got := loaded[0]
	if got.Name != title.Name || got.Status != title.Status || got.SearchCount != 3 {
		t.Errorf("loaded = %+v, want %+v", got, title)
	}
	if !got.ReleaseDate.Equal(title.ReleaseDate) || !got.LastSearchedAt.Equal(title.LastSearchedAt) {
		t.Errorf("timestamps did not survive: %+v", got)
	}
	if got.LastFoundAt != (time.Time{}) {
		t.Errorf("zero LastFoundAt loaded as %v", got.LastFoundAt)
	}
	if got.PreferredReleaseType != agent.ReleaseTypeRepack {
		t.Errorf("preferred release type = %q", got.PreferredReleaseType)
	}
	if got.CurrentAcquisition == nil || got.CurrentAcquisition.Handle != "abc123" {
		t.Errorf("acquisition = %+v", got.CurrentAcquisition)
	}

	// Upsert replaces in place.
	title.Status = StatusDownloaded
	title.CurrentAcquisition = nil
	if err := store.Upsert(ctx, title); err != nil {
		t.Fatal(err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Status != StatusDownloaded || loaded[0].CurrentAcquisition != nil {
		t.Errorf("after update: %+v", loaded[0])
	}

	if err := store.Delete(ctx, 42); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("after delete: %d titles", len(loaded))
	}
}
