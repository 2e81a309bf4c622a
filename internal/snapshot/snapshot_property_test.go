package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/mwhitfield/redloop/internal/content"
	"github.com/mwhitfield/redloop/internal/models"
)

// TestProperty_SnapshotRoundTrip verifies that for any workspace contents,
// a capture followed by a load returns the same paths, contents, and hashes.
func TestProperty_SnapshotRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		root := t.TempDir()
		store, err := New(nil, root, Options{SourceDirs: []string{"src"}, TestDirs: []string{"tests"}, CacheSize: 16})
		if err != nil {
			rt.Fatalf("New failed: %v", err)
		}

		n := rapid.IntRange(1, 8).Draw(rt, "num_files")
		want := map[string]string{}
		for i := 0; i < n; i++ {
			rel := fmt.Sprintf("src/file%d.txt", i)
			text := rapid.String().Draw(rt, fmt.Sprintf("content%d", i))
			abs := filepath.Join(root, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				rt.Fatalf("mkdir failed: %v", err)
			}
			if err := os.WriteFile(abs, []byte(text), 0644); err != nil {
				rt.Fatalf("write failed: %v", err)
			}
			want[rel] = text
		}

		snap, err := store.CreateSnapshot("cyc-prop1", "feature/x", models.PhaseRed)
		if err != nil {
			rt.Fatalf("CreateSnapshot failed: %v", err)
		}

		loaded, err := store.LoadSnapshot(snap.SnapshotID)
		if err != nil {
			rt.Fatalf("LoadSnapshot failed: %v", err)
		}
		if len(loaded.Files) != len(want) {
			rt.Fatalf("loaded %d files, want %d", len(loaded.Files), len(want))
		}
		for _, f := range loaded.Files {
			text, ok := want[f.Path]
			if !ok {
				rt.Fatalf("unexpected captured path %q", f.Path)
			}
			if f.Content != text {
				rt.Fatalf("content for %q changed across round trip", f.Path)
			}
			if f.Hash != content.Hash(text) {
				rt.Fatalf("hash for %q does not match content", f.Path)
			}
		}
	})
}

// TestProperty_RestoreUndoesMangling verifies that restoring a snapshot
// returns every captured file to its captured content, whatever was done to
// the workspace in between.
func TestProperty_RestoreUndoesMangling(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		root := t.TempDir()
		store, err := New(nil, root, Options{SourceDirs: []string{"src"}, TestDirs: []string{"tests"}, CacheSize: 16})
		if err != nil {
			rt.Fatalf("New failed: %v", err)
		}

		if err := os.MkdirAll(filepath.Join(root, "src"), 0755); err != nil {
			rt.Fatalf("mkdir failed: %v", err)
		}

		n := rapid.IntRange(1, 6).Draw(rt, "num_files")
		want := map[string]string{}
		for i := 0; i < n; i++ {
			rel := fmt.Sprintf("src/f%d.txt", i)
			text := rapid.StringN(0, 200, 200).Draw(rt, fmt.Sprintf("content%d", i))
			if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(text), 0644); err != nil {
				rt.Fatalf("write failed: %v", err)
			}
			want[rel] = text
		}

		snap, err := store.CreateSnapshot("cyc-prop2", "", models.PhaseGreen)
		if err != nil {
			rt.Fatalf("CreateSnapshot failed: %v", err)
		}

		// Mangle each file: overwrite or delete, chosen per file.
		for rel := range want {
			abs := filepath.Join(root, filepath.FromSlash(rel))
			if rapid.Bool().Draw(rt, "delete_"+rel) {
				os.Remove(abs)
			} else {
				os.WriteFile(abs, []byte("mangled"), 0644)
			}
		}

		if err := store.RestoreSnapshot(snap.SnapshotID); err != nil {
			rt.Fatalf("RestoreSnapshot failed: %v", err)
		}

		for rel, text := range want {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				rt.Fatalf("read %q after restore failed: %v", rel, err)
			}
			if string(data) != text {
				rt.Fatalf("restored %q does not match captured content", rel)
			}
		}
	})
}
