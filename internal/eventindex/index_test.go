package eventindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/craftwell/workpack/internal/lifecycle"
	"github.com/craftwell/workpack/internal/manifest"
	"github.com/craftwell/workpack/internal/schema"
)

func newIndexedWorkPackage(t *testing.T) string {
	t.Helper()
	store := manifest.NewStore(t.TempDir())
	dir, err := store.Initialize(manifest.InitParams{
		ID:                 "task-1",
		Title:              "Add widget",
		Dirname:            "widget-service",
		ContextMode:        schema.ContextModeNew,
		AcceptanceCriteria: []string{"Widget renders"},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	designFile := filepath.Join(dir, "artifacts", "design", "overview.md")
	if err := os.WriteFile(designFile, []byte("design doc"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	for _, stage := range []string{"design_draft", "design_approved"} {
		if _, err := lifecycle.Transition(dir, stage, "tester", ""); err != nil {
			t.Fatalf("Transition %s: %v", stage, err)
		}
	}
	if _, err := lifecycle.Transition(dir, "inbox", "reviewer", "restart"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	return dir
}

func openTestDB(t *testing.T, dir string) *DB {
	t.Helper()
	db, err := Open(DefaultPath(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRebuildAndStats(t *testing.T) {
	dir := newIndexedWorkPackage(t)
	db := openTestDB(t, dir)

	count, err := db.Rebuild(dir)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if count != 3 {
		t.Fatalf("Rebuild = %d events, want 3", count)
	}

	stats, err := db.Stats("task-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Advances != 2 || stats.Reopens != 1 {
		t.Errorf("Stats = %+v, want 3 total, 2 advances, 1 reopen", stats)
	}
	if stats.FirstAt == "" || stats.LastAt == "" || stats.FirstAt > stats.LastAt {
		t.Errorf("time bounds = %q..%q", stats.FirstAt, stats.LastAt)
	}
}

func TestRebuildIdempotent(t *testing.T) {
	dir := newIndexedWorkPackage(t)
	db := openTestDB(t, dir)

	if _, err := db.Rebuild(dir); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	count, err := db.Rebuild(dir)
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if count != 3 {
		t.Errorf("second Rebuild = %d, want 3", count)
	}

	stats, err := db.Stats("task-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total after re-rebuild = %d, want 3 (no duplicates)", stats.Total)
	}
}

func TestRecent(t *testing.T) {
	dir := newIndexedWorkPackage(t)
	db := openTestDB(t, dir)
	if _, err := db.Rebuild(dir); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	rows, err := db.Recent("task-1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Recent = %d rows, want 2", len(rows))
	}
	if rows[0].EventType != "reopen" {
		t.Errorf("newest event type = %q, want reopen", rows[0].EventType)
	}

	stats, err := db.Stats("task-999")
	if err != nil {
		t.Fatalf("Stats for unknown package: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("unknown package Total = %d, want 0", stats.Total)
	}
}
