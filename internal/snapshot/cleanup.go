package snapshot

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupOldSnapshots deletes snapshot directories whose metadata createdAt
// is older than now - retentionDays. Directories with unreadable metadata
// are left alone. Returns the number of snapshots removed.
func (s *Store) CleanupOldSnapshots(retentionDays int) (int, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("snapshot: retention days must not be negative")
	}

	entries, err := os.ReadDir(s.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("snapshot: read root: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "snapshot-") {
			continue
		}

		snap, loadErr := s.LoadSnapshot(e.Name())
		if loadErr != nil {
			log.Printf("snapshot: cleanup: skipping %s: %v", e.Name(), loadErr)
			continue
		}
		if !snap.CreatedAt.Before(cutoff) {
			continue
		}

		if rmErr := os.RemoveAll(filepath.Join(s.Root(), e.Name())); rmErr != nil {
			return removed, fmt.Errorf("snapshot: remove %s: %w", e.Name(), rmErr)
		}
		removed++
	}
	return removed, nil
}
