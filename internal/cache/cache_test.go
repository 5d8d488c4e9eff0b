package cache

import (
	"os"
	"path/filepath"
	"testing"

	"releasewatch/internal/core"
)

func TestGetMissingIsAMiss(t *testing.T) {
	store := NewStore(t.TempDir())

	tree, ok, err := store.Get(core.KindMovie, 42)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok || tree != nil {
		t.Fatalf("expected a miss, got %v", tree)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	rec := &core.Record{
		ID:            603,
		Kind:          core.KindMovie,
		Title:         "The Matrix",
		OriginalTitle: "The Matrix",
		Status:        "Released",
		ReleaseDates: []core.Release{
			{Type: "Theatrical", Region: "US", Date: "1999-03-31"},
		},
	}
	tree, err := rec.Tree()
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Put(core.KindMovie, 603, tree); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	// One file per entity under the per-kind directory.
	if _, err := os.Stat(filepath.Join(root, "movies", "603.json")); err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}

	got, ok, err := store.Get(core.KindMovie, 603)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if got["title"] != "The Matrix" || got["status"] != "Released" {
		t.Errorf("unexpected snapshot: %v", got)
	}
	// The round trip must be diff-clean.
	if ops := core.Diff(got, tree); len(ops) != 0 {
		t.Errorf("round trip produced a diff: %v", ops)
	}
}

func TestKindsDoNotCollide(t *testing.T) {
	store := NewStore(t.TempDir())

	movie := map[string]interface{}{"id": float64(7), "kind": "movie"}
	show := map[string]interface{}{"id": float64(7), "kind": "show"}

	if err := store.Put(core.KindMovie, 7, movie); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(core.KindShow, 7, show); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.Get(core.KindShow, 7)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got %v %v", ok, err)
	}
	if got["kind"] != "show" {
		t.Errorf("kinds collided: %v", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Put(core.KindMovie, 1, map[string]interface{}{"status": "Announced"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(core.KindMovie, 1, map[string]interface{}{"status": "Released"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := store.Get(core.KindMovie, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got["status"] != "Released" {
		t.Errorf("expected overwrite, got %v", got)
	}
}

func TestGetCorruptFileIsAnError(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	dir := filepath.Join(root, "movies")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "9.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := store.Get(core.KindMovie, 9); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}
