package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwhitfield/redloop/internal/content"
	"github.com/mwhitfield/redloop/internal/models"
)

func TestNewSnapshotID(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	got := NewSnapshotID("cyc-abc12", at)
	want := "snapshot-cyc-abc12-1700000000000"
	if got != want {
		t.Errorf("NewSnapshotID = %q, want %q", got, want)
	}
}

func TestCreateSnapshot_CapturesFiles(t *testing.T) {
	store, root := newTestStore(t, nil)
	writeWorkspaceFile(t, root, "src/main.go", "package main")
	writeWorkspaceFile(t, root, "tests/main_test.go", "package main_test")

	snap, err := store.CreateSnapshot("cyc-00001", "feature/login", models.PhaseRed)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	if snap.CycleID != "cyc-00001" || snap.BranchName != "feature/login" || snap.Phase != models.PhaseRed {
		t.Errorf("snapshot header = %+v", snap)
	}
	if len(snap.Files) != 2 {
		t.Fatalf("captured %d files, want 2", len(snap.Files))
	}

	byPath := map[string]FileSnapshot{}
	for _, f := range snap.Files {
		byPath[f.Path] = f
	}
	main, ok := byPath["src/main.go"]
	if !ok {
		t.Fatalf("src/main.go not captured: %v", snap.Files)
	}
	if main.Content != "package main" {
		t.Errorf("content = %q", main.Content)
	}
	if main.Hash != content.Hash("package main") {
		t.Errorf("hash mismatch for src/main.go")
	}
	if main.LastModified.IsZero() {
		t.Error("LastModified not recorded")
	}

	// The snapshot directory holds both the metadata record and file copies.
	dir := filepath.Join(store.Root(), snap.SnapshotID)
	if _, err := os.Stat(filepath.Join(dir, "metadata.json")); err != nil {
		t.Errorf("metadata.json missing: %v", err)
	}
	copied, err := os.ReadFile(filepath.Join(dir, "files", "src", "main.go"))
	if err != nil {
		t.Fatalf("file copy missing: %v", err)
	}
	if string(copied) != "package main" {
		t.Errorf("file copy = %q", copied)
	}
}

func TestCreateSnapshot_EmbedsCycleMetadata(t *testing.T) {
	db := openTestDB(t)
	store, root := newTestStore(t, db)
	writeWorkspaceFile(t, root, "src/a.go", "a")

	cycle := models.Cycle{ID: "cyc-00001", ProjectID: "demo", Title: "f", Phase: models.PhaseGreen, Status: models.StatusActive}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("seed cycle: %v", err)
	}
	rows := []interface{}{
		&models.Test{ID: "tst-00001", CycleID: cycle.ID, Name: "criterion", Status: models.TestFailing},
		&models.Artifact{ID: "art-00001", CycleID: cycle.ID, Type: models.ArtifactCode, Path: "src/a.go"},
		&models.Query{ID: "qry-00001", ProjectID: "demo", CycleID: &cycle.ID, Title: "pending",
			Urgency: models.UrgencyAdvisory, Priority: models.PriorityMedium, Status: models.QueryPending},
		&models.Query{ID: "qry-00002", ProjectID: "demo", CycleID: &cycle.ID, Title: "answered",
			Urgency: models.UrgencyAdvisory, Priority: models.PriorityMedium, Status: models.QueryAnswered},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}

	snap, err := store.CreateSnapshot(cycle.ID, "feature/f", models.PhaseGreen)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	if len(snap.Metadata.Tests) != 1 {
		t.Errorf("embedded tests = %d, want 1", len(snap.Metadata.Tests))
	}
	if len(snap.Metadata.Artifacts) != 1 {
		t.Errorf("embedded artifacts = %d, want 1", len(snap.Metadata.Artifacts))
	}
	// Only PENDING queries are embedded.
	if len(snap.Metadata.PendingQueries) != 1 || snap.Metadata.PendingQueries[0].ID != "qry-00001" {
		t.Errorf("embedded pending queries = %v, want only qry-00001", snap.Metadata.PendingQueries)
	}
}

func TestCreateSnapshot_MissingCycleYieldsEmptyMetadata(t *testing.T) {
	db := openTestDB(t)
	store, root := newTestStore(t, db)
	writeWorkspaceFile(t, root, "src/a.go", "a")

	snap, err := store.CreateSnapshot("cyc-ghost", "", models.PhaseRed)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if len(snap.Metadata.Tests) != 0 || len(snap.Metadata.Artifacts) != 0 || len(snap.Metadata.PendingQueries) != 0 {
		t.Errorf("metadata not empty for unknown cycle: %+v", snap.Metadata)
	}
	if len(snap.Files) != 1 {
		t.Errorf("files = %d, want 1", len(snap.Files))
	}
}

func TestCreateSnapshot_SkipsUnreadableFiles(t *testing.T) {
	db := openTestDB(t)
	store, root := newTestStore(t, db)
	writeWorkspaceFile(t, root, "src/ok.go", "ok")

	cycle := models.Cycle{ID: "cyc-00001", ProjectID: "demo", Title: "f", Phase: models.PhaseRed, Status: models.StatusActive}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("seed cycle: %v", err)
	}
	// Artifact recorded for a file that no longer exists on disk.
	artifact := models.Artifact{ID: "art-00001", CycleID: cycle.ID, Type: models.ArtifactCode, Path: "src/deleted.go"}
	if err := db.Create(&artifact).Error; err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	snap, err := store.CreateSnapshot(cycle.ID, "", models.PhaseRed)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if len(snap.Files) != 1 || snap.Files[0].Path != "src/ok.go" {
		t.Errorf("files = %v, want only src/ok.go", snap.Files)
	}
}

func TestLoadSnapshot_RoundTrip(t *testing.T) {
	store, root := newTestStore(t, nil)
	writeWorkspaceFile(t, root, "src/a.go", "alpha")

	created, err := store.CreateSnapshot("cyc-00001", "feature/a", models.PhaseRefactor)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	loaded, err := store.LoadSnapshot(created.SnapshotID)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.SnapshotID != created.SnapshotID || loaded.CycleID != created.CycleID {
		t.Errorf("loaded header = %+v, want %+v", loaded, created)
	}
	if len(loaded.Files) != 1 || loaded.Files[0].Content != "alpha" {
		t.Errorf("loaded files = %v", loaded.Files)
	}
	if loaded.Files[0].Hash != created.Files[0].Hash {
		t.Error("hash changed across persist/load")
	}
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	store, _ := newTestStore(t, nil)
	_, err := store.LoadSnapshot("snapshot-cyc-00001-123")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLoadSnapshot_CorruptMetadata(t *testing.T) {
	store, _ := newTestStore(t, nil)
	dir := filepath.Join(store.Root(), "snapshot-cyc-00001-123")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{broken"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := store.LoadSnapshot("snapshot-cyc-00001-123")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRestoreSnapshot(t *testing.T) {
	store, root := newTestStore(t, nil)
	writeWorkspaceFile(t, root, "src/keep.go", "original")
	writeWorkspaceFile(t, root, "src/gone.go", "will be deleted")

	snap, err := store.CreateSnapshot("cyc-00001", "", models.PhaseGreen)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	// Mangle the workspace: overwrite one file, delete the other.
	writeWorkspaceFile(t, root, "src/keep.go", "clobbered")
	if err := os.Remove(filepath.Join(root, "src", "gone.go")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := store.RestoreSnapshot(snap.SnapshotID); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}

	for rel, want := range map[string]string{
		"src/keep.go": "original",
		"src/gone.go": "will be deleted",
	} {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s after restore: %v", rel, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", rel, data, want)
		}
	}
}

func TestRestoreSnapshot_MissingSnapshot(t *testing.T) {
	store, _ := newTestStore(t, nil)
	if err := store.RestoreSnapshot("snapshot-cyc-00001-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
