package decision

import (
	"fmt"
	"time"

	"github.com/mwhitfield/redloop/internal/models"
)

// Stats aggregates a project's queries by status and urgency, plus the mean
// time-to-answer over ANSWERED queries.
type Stats struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"by_status"`
	ByUrgency        map[string]int64 `json:"by_urgency"`
	AvgAnswerMinutes float64          `json:"avg_answer_minutes"`
}

// statusCount is a scan target for grouped counts.
type statusCount struct {
	Key   string
	Count int64
}

// ProjectStats computes decision statistics for a project.
func (g *Gate) ProjectStats(projectID string) (*Stats, error) {
	stats := &Stats{
		ByStatus:  map[string]int64{},
		ByUrgency: map[string]int64{},
	}

	if err := g.db.Model(&models.Query{}).
		Where("project_id = ?", projectID).
		Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("decision: stats total for %s: %w", projectID, err)
	}

	var byStatus []statusCount
	if err := g.db.Model(&models.Query{}).
		Select("status AS key, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Find(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("decision: stats by status for %s: %w", projectID, err)
	}
	for _, sc := range byStatus {
		stats.ByStatus[sc.Key] = sc.Count
	}

	var byUrgency []statusCount
	if err := g.db.Model(&models.Query{}).
		Select("urgency AS key, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("urgency").
		Find(&byUrgency).Error; err != nil {
		return nil, fmt.Errorf("decision: stats by urgency for %s: %w", projectID, err)
	}
	for _, sc := range byUrgency {
		stats.ByUrgency[sc.Key] = sc.Count
	}

	// Mean answer latency is computed in Go so it works the same on SQLite
	// and MySQL.
	var answered []models.Query
	if err := g.db.Select("created_at", "answered_at").
		Where("project_id = ? AND status = ? AND answered_at IS NOT NULL",
			projectID, models.QueryAnswered).
		Find(&answered).Error; err != nil {
		return nil, fmt.Errorf("decision: stats answered for %s: %w", projectID, err)
	}
	if len(answered) > 0 {
		var total time.Duration
		for _, q := range answered {
			total += q.AnsweredAt.Sub(q.CreatedAt)
		}
		stats.AvgAnswerMinutes = total.Minutes() / float64(len(answered))
	}

	return stats, nil
}
