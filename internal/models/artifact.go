package models

import "time"

// Artifact types.
const (
	ArtifactCode = "CODE"
	ArtifactTest = "TEST"
	ArtifactDoc  = "DOC"
)

// Artifact is a piece of produced content attached to a cycle. Artifacts are
// immutable once created: refactoring produces a new artifact rather than
// editing an old one.
type Artifact struct {
	ID        string `gorm:"primaryKey;size:32"`
	CycleID   string `gorm:"size:32;index"`
	Type      string `gorm:"size:8;default:CODE"`
	Content   string `gorm:"type:text"`
	Path      string `gorm:"size:255"`
	CreatedAt time.Time
}
