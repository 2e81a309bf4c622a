// Package snapshot captures, restores, and diffs point-in-time sets of the
// files a cycle touches. Snapshots are content-addressed (SHA-256 per file)
// and persisted as self-contained directories under the snapshot root.
package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/models"
)

// snapshotDirName is the snapshot root, relative to the project root.
const snapshotDirName = ".redloop/snapshots"

// skipDirs are directory names never walked when enumerating relevant files.
var skipDirs = map[string]bool{
	".git":         true,
	".redloop":     true,
	"node_modules": true,
	"vendor":       true,
}

// Options tunes which files a snapshot considers relevant.
type Options struct {
	TestDirs   []string // recognized test directories, relative to root
	SourceDirs []string // recognized source directories, relative to root
	CacheSize  int      // content-store read-cache capacity per operation
}

// Store captures and restores workspace snapshots for cycles. Cycle metadata
// is pulled from the database at capture time; file IO is rooted at the
// project root.
type Store struct {
	db   *gorm.DB
	root string
	opts Options
}

// New creates a snapshot Store for the given project root.
func New(db *gorm.DB, root string, opts Options) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("snapshot: project root is required")
	}
	if len(opts.TestDirs) == 0 {
		opts.TestDirs = []string{"test", "tests", "__tests__", "spec"}
	}
	if len(opts.SourceDirs) == 0 {
		opts.SourceDirs = []string{"src", "lib", "app", "internal"}
	}
	return &Store{db: db, root: root, opts: opts}, nil
}

// Root returns the snapshot root directory.
func (s *Store) Root() string {
	return filepath.Join(s.root, filepath.FromSlash(snapshotDirName))
}

// Initialize ensures the snapshot root exists and the project's .gitignore
// covers redloop's working directory. Idempotent.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(s.Root(), 0755); err != nil {
		return fmt.Errorf("snapshot: create root: %w", err)
	}
	if err := EnsureIgnoreEntries(s.root); err != nil {
		return err
	}
	return nil
}

// snapshotDir returns the directory holding one snapshot's files + metadata.
func (s *Store) snapshotDir(snapshotID string) string {
	return filepath.Join(s.Root(), snapshotID)
}

// relevantFiles enumerates the file set a snapshot of the cycle covers:
// everything under the recognized test and source directories, plus any
// artifact paths recorded for the cycle, deduplicated by path. Paths are
// slash-separated and relative to the project root.
func (s *Store) relevantFiles(artifacts []models.Artifact) []string {
	var paths []string
	seen := map[string]bool{}

	add := func(rel string) {
		rel = filepath.ToSlash(rel)
		if rel == "" || seen[rel] {
			return
		}
		seen[rel] = true
		paths = append(paths, rel)
	}

	dirs := append(append([]string{}, s.opts.TestDirs...), s.opts.SourceDirs...)
	for _, dir := range dirs {
		base := filepath.Join(s.root, dir)
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries are simply not relevant
			}
			if d.IsDir() {
				if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != base {
					return fs.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(s.root, path)
			if relErr != nil {
				return nil
			}
			add(rel)
			return nil
		})
	}

	for _, a := range artifacts {
		if a.Path != "" {
			add(a.Path)
		}
	}

	return paths
}

// cycleArtifacts loads the artifact rows for a cycle. A missing cycle is
// not an error; it just yields no artifacts.
func (s *Store) cycleArtifacts(cycleID string) ([]models.Artifact, error) {
	if s.db == nil {
		return nil, nil
	}
	var artifacts []models.Artifact
	if err := s.db.Where("cycle_id = ?", cycleID).Order("created_at ASC").Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("snapshot: load artifacts for %s: %w", cycleID, err)
	}
	return artifacts, nil
}
