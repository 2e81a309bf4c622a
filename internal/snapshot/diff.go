package snapshot

import (
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mwhitfield/redloop/internal/content"
)

// AnalyzeChanges diffs the cycle's current relevant file set against a
// previous snapshot. With no previous snapshot ID there is no baseline, so
// the result is empty. Equality is decided by content hash, never by
// modification timestamp.
func (s *Store) AnalyzeChanges(cycleID, previousSnapshotID string) ([]FileChange, error) {
	changes := []FileChange{}
	if previousSnapshotID == "" {
		return changes, nil
	}

	prev, err := s.LoadSnapshot(previousSnapshotID)
	if err != nil {
		return nil, err
	}
	prevByPath := make(map[string]FileSnapshot, len(prev.Files))
	for _, f := range prev.Files {
		prevByPath[f.Path] = f
	}

	artifacts, err := s.cycleArtifacts(cycleID)
	if err != nil {
		return nil, err
	}
	current := s.relevantFiles(artifacts)
	currentSet := make(map[string]bool, len(current))

	cs, err := content.New(s.root, s.opts.CacheSize)
	if err != nil {
		return nil, err
	}

	for _, rel := range current {
		currentSet[rel] = true

		text, readErr := cs.ReadFile(rel)
		if readErr != nil {
			log.Printf("snapshot: analyze: skipping %s: %v", rel, readErr)
			continue
		}

		old, existed := prevByPath[rel]
		if !existed {
			changes = append(changes, FileChange{Type: ChangeCreate, Path: rel, Content: text})
			continue
		}
		if content.Hash(text) != old.Hash {
			changes = append(changes, FileChange{
				Type:       ChangeModify,
				Path:       rel,
				Content:    text,
				OldContent: old.Content,
			})
		}
	}

	for _, f := range prev.Files {
		if !currentSet[f.Path] {
			changes = append(changes, FileChange{Type: ChangeDelete, Path: f.Path, OldContent: f.Content})
		}
	}

	return changes, nil
}

// DetectConflicts returns the paths present in both cycles' most recent
// snapshots. This is path-level overlap only: it flags that both cycles
// touched a file, not that their edits are incompatible relative to a
// common ancestor. A cycle with no snapshots contributes nothing.
func (s *Store) DetectConflicts(cycleIDA, cycleIDB string) ([]string, error) {
	idA := s.latestSnapshotID(cycleIDA)
	idB := s.latestSnapshotID(cycleIDB)
	if idA == "" || idB == "" {
		return []string{}, nil
	}

	snapA, err := s.LoadSnapshot(idA)
	if err != nil {
		return nil, err
	}
	snapB, err := s.LoadSnapshot(idB)
	if err != nil {
		return nil, err
	}

	inA := make(map[string]bool, len(snapA.Files))
	for _, f := range snapA.Files {
		inA[f.Path] = true
	}

	conflicts := []string{}
	for _, f := range snapB.Files {
		if inA[f.Path] {
			conflicts = append(conflicts, f.Path)
			inA[f.Path] = false // dedupe
		}
	}
	sort.Strings(conflicts)
	return conflicts, nil
}

// latestSnapshotID finds the cycle's most recently created snapshot by the
// timestamp embedded in the snapshot ID. Returns "" if the cycle has none.
func (s *Store) latestSnapshotID(cycleID string) string {
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		return ""
	}

	prefix := "snapshot-" + cycleID + "-"
	var bestID string
	var bestTS int64
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		ts, parseErr := strconv.ParseInt(strings.TrimPrefix(e.Name(), prefix), 10, 64)
		if parseErr != nil {
			continue
		}
		if bestID == "" || ts > bestTS {
			bestID, bestTS = e.Name(), ts
		}
	}
	return bestID
}
