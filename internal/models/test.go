package models

import "time"

// Test statuses.
const (
	TestFailing = "FAILING"
	TestPassing = "PASSING"
)

// Test is one acceptance-criterion test tracked for a cycle. Tests are
// created FAILING during the RED phase and flipped to PASSING during GREEN.
type Test struct {
	ID        string `gorm:"primaryKey;size:32"`
	CycleID   string `gorm:"size:32;index"`
	Name      string `gorm:"not null"`
	Status    string `gorm:"size:16;default:FAILING;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
