package dashboard

import (
	"time"

	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/models"
)

// CycleRow holds cycle data for display.
type CycleRow struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Phase     string    `json:"phase"`
	Status    string    `json:"status"`
	Branch    string    `json:"branch"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CycleSummary returns cycles matching the optional filters, newest first.
func CycleSummary(db *gorm.DB, projectID, status, phase string) ([]CycleRow, error) {
	q := db.Model(&models.Cycle{})
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if phase != "" {
		q = q.Where("phase = ?", phase)
	}

	var cycles []models.Cycle
	if err := q.Order("created_at DESC").Find(&cycles).Error; err != nil {
		return nil, err
	}

	rows := make([]CycleRow, len(cycles))
	for i, c := range cycles {
		rows[i] = CycleRow{
			ID:        c.ID,
			ProjectID: c.ProjectID,
			Title:     c.Title,
			Phase:     c.Phase,
			Status:    c.Status,
			Branch:    c.CurrentBranch,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
	}
	return rows, nil
}

// CycleDetailView is one cycle with its related rows and counts.
type CycleDetailView struct {
	Cycle          models.Cycle      `json:"cycle"`
	Tests          []models.Test     `json:"tests"`
	Artifacts      []models.Artifact `json:"artifacts"`
	PendingQueries []models.Query    `json:"pending_queries"`
}

// CycleDetail loads one cycle with tests, artifacts, and pending queries.
func CycleDetail(db *gorm.DB, cycleID string) (*CycleDetailView, error) {
	var cycle models.Cycle
	err := db.Preload("Tests").Preload("Artifacts").
		Preload("Queries", "status = ?", models.QueryPending).
		Where("id = ?", cycleID).First(&cycle).Error
	if err != nil {
		return nil, err
	}

	detail := &CycleDetailView{
		Cycle:          cycle,
		Tests:          cycle.Tests,
		Artifacts:      cycle.Artifacts,
		PendingQueries: cycle.Queries,
	}
	if detail.Tests == nil {
		detail.Tests = []models.Test{}
	}
	if detail.Artifacts == nil {
		detail.Artifacts = []models.Artifact{}
	}
	if detail.PendingQueries == nil {
		detail.PendingQueries = []models.Query{}
	}
	return detail, nil
}
