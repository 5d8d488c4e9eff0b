package models

import (
	"path/filepath"
	"testing"

	"releasewatch/internal/core"
	"releasewatch/internal/database"
	"releasewatch/internal/utils"
)

func newTestRepository(t *testing.T) *HistoryRepository {
	t.Helper()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db, utils.NewLogger(false)); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}
	return NewHistoryRepository(db)
}

func TestRecordChangeAndRecent(t *testing.T) {
	repo := newTestRepository(t)

	events := []core.ChangeEvent{
		{RunID: "run-1", Kind: core.KindMovie, EntityID: 603, Title: "The Matrix", Subject: `Change in movie "The Matrix" (603)`, OpCount: 2, Notified: true},
		{RunID: "run-1", Kind: core.KindShow, EntityID: 1399, Title: "Example Show", Subject: `Change in show "Example Show" (1399)`, OpCount: 1, Notified: false},
	}
	for _, e := range events {
		if err := repo.RecordChange(e); err != nil {
			t.Fatalf("RecordChange returned error: %v", err)
		}
	}

	got, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two events, got %d", len(got))
	}

	// Newest first.
	if got[0].EntityID != 1399 || got[1].EntityID != 603 {
		t.Errorf("unexpected order: %v", got)
	}
	if got[1].Kind != "movie" || got[1].OpCount != 2 || !got[1].Notified {
		t.Errorf("unexpected event: %+v", got[1])
	}
	if got[0].Notified {
		t.Errorf("expected unnotified event: %+v", got[0])
	}
	if got[0].CreatedAt == "" {
		t.Error("expected a created_at timestamp")
	}
}

func TestRecentLimit(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 5; i++ {
		event := core.ChangeEvent{RunID: "run", Kind: core.KindMovie, EntityID: i, Title: "x", Subject: "s"}
		if err := repo.RecordChange(event); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected three events, got %d", len(got))
	}
}

func TestRecentEmpty(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %v", got)
	}
}
