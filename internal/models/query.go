package models

import "time"

// Query urgencies.
const (
	UrgencyBlocking = "BLOCKING"
	UrgencyAdvisory = "ADVISORY"
)

// Query priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Query statuses.
const (
	QueryPending   = "PENDING"
	QueryAnswered  = "ANSWERED"
	QueryDismissed = "DISMISSED"
	QueryExpired   = "EXPIRED"
)

// Query is a decision point raised during a cycle. A BLOCKING query pauses
// its cycle until answered; an ADVISORY query can be dismissed or left to
// expire. CycleID is optional: a query may exist independent of any cycle.
type Query struct {
	ID         string  `gorm:"primaryKey;size:32"`
	ProjectID  string  `gorm:"size:64;index"`
	CycleID    *string `gorm:"size:32;index"`
	Type       string  `gorm:"size:32"`
	Title      string  `gorm:"not null"`
	Question   string  `gorm:"type:text"`
	Context    string  `gorm:"type:json"`
	Urgency    string  `gorm:"size:16;default:ADVISORY;index"`
	Priority   string  `gorm:"size:8;default:MEDIUM"`
	Status     string  `gorm:"size:16;default:PENDING;index"`
	Answer     string  `gorm:"type:text"`
	AnsweredAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Comments []QueryComment `gorm:"foreignKey:QueryID"`
}

// QueryComment authors.
const (
	AuthorUser   = "user"
	AuthorAI     = "ai"
	AuthorSystem = "system"
)

// QueryComment is an append-only audit entry on a query.
type QueryComment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	QueryID   string `gorm:"size:32;index"`
	Content   string `gorm:"type:text"`
	Author    string `gorm:"size:8;default:system"`
	CreatedAt time.Time
}
