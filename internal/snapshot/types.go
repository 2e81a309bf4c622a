package snapshot

import (
	"errors"
	"time"

	"github.com/mwhitfield/redloop/internal/models"
)

// ErrNotFound is returned when a snapshot ID has no persisted metadata.
var ErrNotFound = errors.New("snapshot: not found")

// FileChange types.
const (
	ChangeCreate = "CREATE"
	ChangeModify = "MODIFY"
	ChangeDelete = "DELETE"
)

// FileSnapshot is one captured file: full content plus its SHA-256 digest.
// The hash is always computed from the content at capture time.
type FileSnapshot struct {
	Path         string    `json:"path"`
	Content      string    `json:"content"`
	Hash         string    `json:"hash"`
	LastModified time.Time `json:"last_modified"`
}

// Metadata embeds copies of the cycle's database state at capture time so a
// snapshot is self-describing independent of the live rows.
type Metadata struct {
	Tests          []models.Test     `json:"tests"`
	Artifacts      []models.Artifact `json:"artifacts"`
	PendingQueries []models.Query    `json:"pending_queries"`
}

// WorkspaceSnapshot is an immutable point-in-time capture of the files
// relevant to a cycle.
type WorkspaceSnapshot struct {
	SnapshotID string         `json:"snapshot_id"`
	CycleID    string         `json:"cycle_id"`
	BranchName string         `json:"branch_name"`
	Phase      string         `json:"phase"`
	Files      []FileSnapshot `json:"files"`
	Metadata   Metadata       `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// FileChange describes one difference between two snapshots of the
// workspace. Changes are ephemeral: computed on demand, never persisted.
type FileChange struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	Content    string `json:"content,omitempty"`
	OldContent string `json:"old_content,omitempty"`
}
