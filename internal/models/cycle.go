package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Cycle phases, in execution order.
const (
	PhaseRed      = "RED"
	PhaseGreen    = "GREEN"
	PhaseRefactor = "REFACTOR"
	PhaseReview   = "REVIEW"
)

// Cycle statuses.
const (
	StatusActive    = "ACTIVE"
	StatusPaused    = "PAUSED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// PhaseOrder lists the phases a cycle advances through. Phases only move
// forward; pausing and resuming change status, never phase.
var PhaseOrder = []string{PhaseRed, PhaseGreen, PhaseRefactor, PhaseReview}

// NextPhase returns the phase that follows the given one, or "" if the
// phase is terminal or unknown.
func NextPhase(phase string) string {
	for i, p := range PhaseOrder {
		if p == phase && i+1 < len(PhaseOrder) {
			return PhaseOrder[i+1]
		}
	}
	return ""
}

// Cycle is one unit of feature work tracked through RED/GREEN/REFACTOR/REVIEW.
type Cycle struct {
	ID                 string `gorm:"primaryKey;size:32"`
	ProjectID          string `gorm:"size:64;index"`
	Title              string `gorm:"not null"`
	Description        string `gorm:"type:text"`
	Phase              string `gorm:"size:16;default:RED;index"`
	Status             string `gorm:"size:16;default:ACTIVE;index"`
	AcceptanceCriteria string `gorm:"type:json"`
	Constraints        string `gorm:"type:json"`
	CurrentBranch      string `gorm:"size:128"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Tests     []Test     `gorm:"foreignKey:CycleID"`
	Artifacts []Artifact `gorm:"foreignKey:CycleID"`
	Queries   []Query    `gorm:"foreignKey:CycleID"`
}

// Criteria decodes the acceptance criteria JSON column.
func (c *Cycle) Criteria() ([]string, error) {
	return decodeStrings(c.AcceptanceCriteria)
}

// SetCriteria encodes the acceptance criteria into the JSON column.
func (c *Cycle) SetCriteria(criteria []string) error {
	s, err := encodeStrings(criteria)
	if err != nil {
		return fmt.Errorf("models: encode acceptance criteria: %w", err)
	}
	c.AcceptanceCriteria = s
	return nil
}

// ConstraintList decodes the constraints JSON column.
func (c *Cycle) ConstraintList() ([]string, error) {
	return decodeStrings(c.Constraints)
}

// SetConstraints encodes the constraints into the JSON column. A nil slice
// is stored as an empty list.
func (c *Cycle) SetConstraints(constraints []string) error {
	s, err := encodeStrings(constraints)
	if err != nil {
		return fmt.Errorf("models: encode constraints: %w", err)
	}
	c.Constraints = s
	return nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrings(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("models: decode string list: %w", err)
	}
	return values, nil
}
