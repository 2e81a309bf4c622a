package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/content"
	"github.com/mwhitfield/redloop/internal/models"
)

// metadataFile is the per-snapshot metadata record.
const metadataFile = "metadata.json"

// NewSnapshotID derives a globally unique snapshot ID for a cycle.
func NewSnapshotID(cycleID string, at time.Time) string {
	return fmt.Sprintf("snapshot-%s-%d", cycleID, at.UnixMilli())
}

// CreateSnapshot captures the cycle's relevant file set into a new snapshot
// directory and returns the snapshot. Capture is best-effort per file:
// unreadable files are logged and omitted. Only a failing cycle-metadata
// lookup fails the whole operation; a cycle that simply does not exist
// yields empty embedded metadata.
func (s *Store) CreateSnapshot(cycleID, branchName, phase string) (*WorkspaceSnapshot, error) {
	meta, err := s.cycleMetadata(cycleID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snap := &WorkspaceSnapshot{
		SnapshotID: NewSnapshotID(cycleID, now),
		CycleID:    cycleID,
		BranchName: branchName,
		Phase:      phase,
		Metadata:   meta,
		CreatedAt:  now,
	}

	// A fresh content store per capture keeps cache staleness bounded to
	// this one operation.
	cs, err := content.New(s.root, s.opts.CacheSize)
	if err != nil {
		return nil, err
	}

	dir := s.snapshotDir(snap.SnapshotID)
	filesDir := filepath.Join(dir, "files")

	for _, rel := range s.relevantFiles(meta.Artifacts) {
		text, readErr := cs.ReadFile(rel)
		if readErr != nil {
			log.Printf("snapshot: skipping %s: %v", rel, readErr)
			continue
		}

		var lastModified time.Time
		if info, statErr := os.Stat(filepath.Join(s.root, rel)); statErr == nil {
			lastModified = info.ModTime()
		}

		if copyErr := cs.CopyFile(rel, filepath.Join(filesDir, filepath.FromSlash(rel))); copyErr != nil {
			log.Printf("snapshot: skipping %s: %v", rel, copyErr)
			continue
		}

		snap.Files = append(snap.Files, FileSnapshot{
			Path:         rel,
			Content:      text,
			Hash:         content.Hash(text),
			LastModified: lastModified,
		})
	}

	if err := s.writeMetadata(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// LoadSnapshot reads a snapshot's metadata record. Returns ErrNotFound if
// the record is absent or unparsable.
func (s *Store) LoadSnapshot(snapshotID string) (*WorkspaceSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.snapshotDir(snapshotID), metadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, snapshotID)
	}
	var snap WorkspaceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: unparsable metadata", ErrNotFound, snapshotID)
	}
	return &snap, nil
}

// RestoreSnapshot writes every captured file's content back to its path,
// creating parent directories as needed. Unlike capture, restoration is
// strict: the first file-write failure aborts and propagates.
func (s *Store) RestoreSnapshot(snapshotID string) error {
	snap, err := s.LoadSnapshot(snapshotID)
	if err != nil {
		return err
	}

	cs, err := content.New(s.root, s.opts.CacheSize)
	if err != nil {
		return err
	}

	for _, f := range snap.Files {
		if err := cs.WriteFile(f.Path, f.Content); err != nil {
			return fmt.Errorf("snapshot: restore %s: %w", snapshotID, err)
		}
	}
	return nil
}

// writeMetadata persists the snapshot's metadata record.
func (s *Store) writeMetadata(snap *WorkspaceSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal metadata for %s: %w", snap.SnapshotID, err)
	}
	dir := s.snapshotDir(snap.SnapshotID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("snapshot: create dir for %s: %w", snap.SnapshotID, err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0644); err != nil {
		return fmt.Errorf("snapshot: write metadata for %s: %w", snap.SnapshotID, err)
	}
	return nil
}

// cycleMetadata copies the cycle's tests, artifacts, and pending queries at
// capture time. A cycle that does not exist yields empty metadata.
func (s *Store) cycleMetadata(cycleID string) (Metadata, error) {
	meta := Metadata{
		Tests:          []models.Test{},
		Artifacts:      []models.Artifact{},
		PendingQueries: []models.Query{},
	}
	if s.db == nil {
		return meta, nil
	}

	var cycle models.Cycle
	err := s.db.Preload("Tests").Preload("Artifacts").
		Preload("Queries", "status = ?", models.QueryPending).
		Where("id = ?", cycleID).First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return meta, nil
		}
		return meta, fmt.Errorf("snapshot: load cycle %s: %w", cycleID, err)
	}

	if cycle.Tests != nil {
		meta.Tests = cycle.Tests
	}
	if cycle.Artifacts != nil {
		meta.Artifacts = cycle.Artifacts
	}
	if cycle.Queries != nil {
		meta.PendingQueries = cycle.Queries
	}
	return meta, nil
}
