// Package decision manages queries (decision points that gate cycle
// progression) and their pause/resume side effects on cycles.
package decision

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/models"
)

// ErrNotFound is returned when a query ID does not exist.
var ErrNotFound = errors.New("decision: query not found")

// negativeIntent matches answers that read as a rejection. Coarse by
// intent: a hint for the caller, not a hard contract.
var negativeIntent = regexp.MustCompile(`(?i)\b(no|stop|cancel|abort|different)\b`)

// Gate creates, answers, dismisses, and expires queries. A BLOCKING query
// pauses its cycle on creation and resumes it when answered.
type Gate struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewGate creates a Gate. The bus may be nil to leave eventing unwired.
func NewGate(db *gorm.DB, bus *events.Bus) *Gate {
	return &Gate{db: db, bus: bus}
}

// CreateOpts holds parameters for raising a new query.
type CreateOpts struct {
	ProjectID string
	CycleID   string // optional: a query may exist independent of any cycle
	Type      string
	Title     string
	Question  string
	Context   string // opaque JSON payload
	Urgency   string // BLOCKING or ADVISORY; defaults to ADVISORY
	Priority  string // defaults to HIGH for BLOCKING, MEDIUM otherwise
}

// Create persists a PENDING query. If the query is BLOCKING and tied to a
// cycle, the cycle is paused as a side effect.
func (g *Gate) Create(opts CreateOpts) (*models.Query, error) {
	if opts.Title == "" {
		return nil, fmt.Errorf("decision: title is required")
	}
	if opts.Urgency == "" {
		opts.Urgency = models.UrgencyAdvisory
	}
	if opts.Priority == "" {
		if opts.Urgency == models.UrgencyBlocking {
			opts.Priority = models.PriorityHigh
		} else {
			opts.Priority = models.PriorityMedium
		}
	}
	if opts.Context == "" {
		opts.Context = "{}"
	}

	id, err := models.NewID("qry")
	if err != nil {
		return nil, err
	}

	query := models.Query{
		ID:        id,
		ProjectID: opts.ProjectID,
		Type:      opts.Type,
		Title:     opts.Title,
		Question:  opts.Question,
		Context:   opts.Context,
		Urgency:   opts.Urgency,
		Priority:  opts.Priority,
		Status:    models.QueryPending,
	}
	if opts.CycleID != "" {
		query.CycleID = &opts.CycleID
	}

	err = g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&query).Error; err != nil {
			return fmt.Errorf("decision: create query: %w", err)
		}
		if query.Urgency == models.UrgencyBlocking && opts.CycleID != "" {
			if err := tx.Model(&models.Cycle{}).
				Where("id = ? AND status = ?", opts.CycleID, models.StatusActive).
				Update("status", models.StatusPaused).Error; err != nil {
				return fmt.Errorf("decision: pause cycle %s: %w", opts.CycleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.bus.Publish(events.Event{
		Type:      events.QueryCreated,
		ProjectID: query.ProjectID,
		CycleID:   opts.CycleID,
		QueryID:   query.ID,
		Urgency:   query.Urgency,
		Message:   query.Title,
	})
	return &query, nil
}

// AnswerResult carries the answered query plus a hint on whether the
// current approach should continue.
type AnswerResult struct {
	Query             *models.Query
	ShouldContinue    bool
	AlternativeAction string
}

// Answer resolves a PENDING query with the given answer, appends a system
// audit comment, and resumes the cycle if the query was BLOCKING. The
// answer text is scanned for negative intent: a match sets
// ShouldContinue=false and suggests retrying with a different approach.
func (g *Gate) Answer(queryID, answer string) (*AnswerResult, error) {
	query, err := g.get(queryID)
	if err != nil {
		return nil, err
	}
	if query.Status != models.QueryPending {
		return nil, fmt.Errorf("decision: query %s is %s, only PENDING queries can be answered", queryID, query.Status)
	}

	now := time.Now()
	err = g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Query{}).Where("id = ?", queryID).Updates(map[string]interface{}{
			"status":      models.QueryAnswered,
			"answer":      answer,
			"answered_at": now,
		}).Error; err != nil {
			return fmt.Errorf("decision: answer query %s: %w", queryID, err)
		}

		comment := models.QueryComment{
			QueryID: queryID,
			Content: "Query answered: " + answer,
			Author:  models.AuthorSystem,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("decision: record answer comment for %s: %w", queryID, err)
		}

		if query.Urgency == models.UrgencyBlocking && query.CycleID != nil {
			if err := tx.Model(&models.Cycle{}).
				Where("id = ? AND status = ?", *query.CycleID, models.StatusPaused).
				Update("status", models.StatusActive).Error; err != nil {
				return fmt.Errorf("decision: resume cycle %s: %w", *query.CycleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	query.Status = models.QueryAnswered
	query.Answer = answer
	query.AnsweredAt = &now

	result := &AnswerResult{Query: query, ShouldContinue: true}
	if negativeIntent.MatchString(answer) {
		result.ShouldContinue = false
		result.AlternativeAction = "retry_with_different_approach"
	}

	cycleID := ""
	if query.CycleID != nil {
		cycleID = *query.CycleID
	}
	g.bus.Publish(events.Event{
		Type:      events.QueryAnswered,
		ProjectID: query.ProjectID,
		CycleID:   cycleID,
		QueryID:   query.ID,
		Urgency:   query.Urgency,
		Message:   query.Title,
	})
	return result, nil
}

// Dismiss marks a PENDING query DISMISSED with an audit comment. Intended
// for ADVISORY queries; not enforced.
func (g *Gate) Dismiss(queryID string) (*models.Query, error) {
	query, err := g.get(queryID)
	if err != nil {
		return nil, err
	}
	if query.Status != models.QueryPending {
		return nil, fmt.Errorf("decision: query %s is %s, only PENDING queries can be dismissed", queryID, query.Status)
	}

	err = g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Query{}).Where("id = ?", queryID).
			Update("status", models.QueryDismissed).Error; err != nil {
			return fmt.Errorf("decision: dismiss query %s: %w", queryID, err)
		}
		comment := models.QueryComment{
			QueryID: queryID,
			Content: "Query dismissed",
			Author:  models.AuthorSystem,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("decision: record dismiss comment for %s: %w", queryID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	query.Status = models.QueryDismissed

	cycleID := ""
	if query.CycleID != nil {
		cycleID = *query.CycleID
	}
	g.bus.Publish(events.Event{
		Type:      events.QueryDismissed,
		ProjectID: query.ProjectID,
		CycleID:   cycleID,
		QueryID:   query.ID,
		Urgency:   query.Urgency,
		Message:   query.Title,
	})
	return query, nil
}

// HasBlockingQueries reports whether the cycle has any PENDING BLOCKING
// queries. This is the exact predicate the cycle state machine uses as its
// progression gate.
func (g *Gate) HasBlockingQueries(cycleID string) (bool, error) {
	var count int64
	err := g.db.Model(&models.Query{}).
		Where("cycle_id = ? AND status = ? AND urgency = ?",
			cycleID, models.QueryPending, models.UrgencyBlocking).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("decision: count blocking queries for %s: %w", cycleID, err)
	}
	return count > 0, nil
}

// ExpireOld bulk-transitions PENDING ADVISORY queries older than the cutoff
// to EXPIRED and returns how many were expired. BLOCKING queries are never
// auto-expired: a cycle may stay paused indefinitely until a human resolves
// it.
func (g *Gate) ExpireOld(daysOld int) (int64, error) {
	if daysOld < 0 {
		return 0, fmt.Errorf("decision: daysOld must not be negative")
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	result := g.db.Model(&models.Query{}).
		Where("status = ? AND urgency = ? AND created_at < ?",
			models.QueryPending, models.UrgencyAdvisory, cutoff).
		Update("status", models.QueryExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("decision: expire old queries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListFilters holds optional filters for listing queries.
type ListFilters struct {
	ProjectID string
	CycleID   string
	Status    string
	Urgency   string
}

// List returns queries matching the filters, newest first.
func (g *Gate) List(filters ListFilters) ([]models.Query, error) {
	q := g.db.Model(&models.Query{})
	if filters.ProjectID != "" {
		q = q.Where("project_id = ?", filters.ProjectID)
	}
	if filters.CycleID != "" {
		q = q.Where("cycle_id = ?", filters.CycleID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Urgency != "" {
		q = q.Where("urgency = ?", filters.Urgency)
	}

	var queries []models.Query
	if err := q.Order("created_at DESC").Find(&queries).Error; err != nil {
		return nil, fmt.Errorf("decision: list queries: %w", err)
	}
	return queries, nil
}

// Comments returns a query's audit trail, oldest first.
func (g *Gate) Comments(queryID string) ([]models.QueryComment, error) {
	var comments []models.QueryComment
	if err := g.db.Where("query_id = ?", queryID).
		Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("decision: comments for %s: %w", queryID, err)
	}
	return comments, nil
}

// get loads a query by ID.
func (g *Gate) get(queryID string) (*models.Query, error) {
	var query models.Query
	if err := g.db.Where("id = ?", queryID).First(&query).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, queryID)
		}
		return nil, fmt.Errorf("decision: get query %s: %w", queryID, err)
	}
	return &query, nil
}
