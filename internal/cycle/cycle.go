// Package cycle owns the cycle phase/status state machine and the
// orchestrator facade an external task layer drives it through.
package cycle

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/decision"
	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/gitops"
	"github.com/mwhitfield/redloop/internal/models"
	"github.com/mwhitfield/redloop/internal/snapshot"
)

// ErrNotFound is returned when a cycle ID does not exist.
var ErrNotFound = errors.New("cycle: not found")

// ErrCycleBusy is returned when an ExecutePhase call is already in flight
// for the cycle.
var ErrCycleBusy = errors.New("cycle: execute already in flight")

// Orchestrator drives cycles through RED → GREEN → REFACTOR → REVIEW. All
// collaborators are constructor-injected; there is no ambient shared state.
type Orchestrator struct {
	db       *gorm.DB
	gate     *decision.Gate
	branches gitops.BranchManager
	snaps    *snapshot.Store
	gen      Generator
	bus      *events.Bus
	leases   *leaseTable
}

// Opts holds the orchestrator's collaborators. DB and Branches are
// required; Gate defaults to one built on DB and Bus, Generator to the
// scaffold generator. Snapshots and Bus may be nil.
type Opts struct {
	DB        *gorm.DB
	Gate      *decision.Gate
	Branches  gitops.BranchManager
	Snapshots *snapshot.Store
	Generator Generator
	Bus       *events.Bus
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("cycle: db is required")
	}
	if opts.Branches == nil {
		return nil, fmt.Errorf("cycle: branch manager is required")
	}
	if opts.Gate == nil {
		opts.Gate = decision.NewGate(opts.DB, opts.Bus)
	}
	if opts.Generator == nil {
		opts.Generator = ScaffoldGenerator{}
	}
	return &Orchestrator{
		db:       opts.DB,
		gate:     opts.Gate,
		branches: opts.Branches,
		snaps:    opts.Snapshots,
		gen:      opts.Generator,
		bus:      opts.Bus,
		leases:   newLeaseTable(),
	}, nil
}

// FeatureRequest describes the unit of work a new cycle tracks.
type FeatureRequest struct {
	ProjectID          string
	Title              string
	Description        string
	AcceptanceCriteria []string
	Constraints        []string
}

// StartCycle creates a feature branch, initializes the workspace, and
// persists a new cycle at phase RED, status ACTIVE.
func (o *Orchestrator) StartCycle(req FeatureRequest) (*models.Cycle, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("cycle: title is required")
	}
	if len(req.AcceptanceCriteria) == 0 {
		return nil, fmt.Errorf("cycle: at least one acceptance criterion is required")
	}

	branch, err := o.branches.CreateFeatureBranch(req.Title)
	if err != nil {
		return nil, err
	}

	if o.snaps != nil {
		if err := o.snaps.Initialize(); err != nil {
			return nil, err
		}
	}

	id, err := models.NewID("cyc")
	if err != nil {
		return nil, err
	}

	cycle := models.Cycle{
		ID:            id,
		ProjectID:     req.ProjectID,
		Title:         req.Title,
		Description:   req.Description,
		Phase:         models.PhaseRed,
		Status:        models.StatusActive,
		CurrentBranch: branch,
	}
	if err := cycle.SetCriteria(req.AcceptanceCriteria); err != nil {
		return nil, err
	}
	if err := cycle.SetConstraints(req.Constraints); err != nil {
		return nil, err
	}

	if err := o.db.Create(&cycle).Error; err != nil {
		return nil, fmt.Errorf("cycle: create: %w", err)
	}

	o.bus.Publish(events.Event{
		Type:      events.CycleStarted,
		ProjectID: cycle.ProjectID,
		CycleID:   cycle.ID,
		Phase:     cycle.Phase,
		Message:   cycle.Title,
	})
	return &cycle, nil
}

// PauseCycle sets the cycle's status to PAUSED regardless of phase.
func (o *Orchestrator) PauseCycle(cycleID string) error {
	result := o.db.Model(&models.Cycle{}).Where("id = ?", cycleID).
		Update("status", models.StatusPaused)
	if result.Error != nil {
		return fmt.Errorf("cycle: pause %s: %w", cycleID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, cycleID)
	}

	o.bus.Publish(events.Event{Type: events.CyclePaused, CycleID: cycleID})
	return nil
}

// ResumeCycle switches back to the cycle's stored branch and sets its
// status to ACTIVE.
func (o *Orchestrator) ResumeCycle(cycleID string) error {
	cycle, err := o.loadCycle(cycleID)
	if err != nil {
		return err
	}
	if cycle.CurrentBranch == "" {
		return fmt.Errorf("cycle: %s has no recorded branch to resume on", cycleID)
	}

	if err := o.branches.SwitchBranch(cycle.CurrentBranch); err != nil {
		return err
	}

	if err := o.db.Model(&models.Cycle{}).Where("id = ?", cycleID).
		Update("status", models.StatusActive).Error; err != nil {
		return fmt.Errorf("cycle: resume %s: %w", cycleID, err)
	}

	o.bus.Publish(events.Event{
		Type:      events.CycleResumed,
		ProjectID: cycle.ProjectID,
		CycleID:   cycleID,
		Phase:     cycle.Phase,
	})
	return nil
}

// RecoverCycle is the documented recovery transition for failed cycles:
// FAILED → ACTIVE, phase untouched, so the failed phase re-runs on the next
// ExecutePhase.
func (o *Orchestrator) RecoverCycle(cycleID string) error {
	cycle, err := o.loadCycle(cycleID)
	if err != nil {
		return err
	}
	if cycle.Status != models.StatusFailed {
		return fmt.Errorf("cycle: %s is %s, only FAILED cycles can be recovered", cycleID, cycle.Status)
	}

	if err := o.db.Model(&models.Cycle{}).Where("id = ?", cycleID).
		Update("status", models.StatusActive).Error; err != nil {
		return fmt.Errorf("cycle: recover %s: %w", cycleID, err)
	}

	o.bus.Publish(events.Event{
		Type:      events.CycleResumed,
		ProjectID: cycle.ProjectID,
		CycleID:   cycleID,
		Phase:     cycle.Phase,
		Message:   "recovered from failure",
	})
	return nil
}

// AddQuery raises a query against the cycle via the decision gate. A
// BLOCKING query pauses the cycle as a side effect of creation.
func (o *Orchestrator) AddQuery(cycleID string, opts decision.CreateOpts) (*models.Query, error) {
	cycle, err := o.loadCycle(cycleID)
	if err != nil {
		return nil, err
	}
	opts.CycleID = cycleID
	if opts.ProjectID == "" {
		opts.ProjectID = cycle.ProjectID
	}
	return o.gate.Create(opts)
}

// StatusSummary is a point-in-time view of a cycle and its related rows.
type StatusSummary struct {
	Cycle          *models.Cycle `json:"cycle"`
	TestsCount     int           `json:"tests_count"`
	PassingTests   int           `json:"passing_tests"`
	FailingTests   int           `json:"failing_tests"`
	ArtifactsCount int           `json:"artifacts_count"`
	PendingQueries int           `json:"pending_queries"`
}

// Status returns the cycle with test/artifact/query counts.
func (o *Orchestrator) Status(cycleID string) (*StatusSummary, error) {
	cycle, err := o.loadCycle(cycleID)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{Cycle: cycle, TestsCount: len(cycle.Tests), ArtifactsCount: len(cycle.Artifacts)}
	for _, t := range cycle.Tests {
		switch t.Status {
		case models.TestPassing:
			summary.PassingTests++
		case models.TestFailing:
			summary.FailingTests++
		}
	}
	for _, q := range cycle.Queries {
		if q.Status == models.QueryPending {
			summary.PendingQueries++
		}
	}
	return summary, nil
}

// ListFilters holds optional filters for listing cycles.
type ListFilters struct {
	ProjectID string
	Status    string
	Phase     string
}

// List returns cycles matching the filters, oldest first.
func (o *Orchestrator) List(filters ListFilters) ([]models.Cycle, error) {
	q := o.db.Model(&models.Cycle{})
	if filters.ProjectID != "" {
		q = q.Where("project_id = ?", filters.ProjectID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Phase != "" {
		q = q.Where("phase = ?", filters.Phase)
	}

	var cycles []models.Cycle
	if err := q.Order("created_at ASC").Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("cycle: list: %w", err)
	}
	return cycles, nil
}

// loadCycle fetches a cycle with its tests, artifacts, and queries.
func (o *Orchestrator) loadCycle(cycleID string) (*models.Cycle, error) {
	var cycle models.Cycle
	err := o.db.Preload("Tests").Preload("Artifacts").Preload("Queries").
		Where("id = ?", cycleID).First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cycleID)
		}
		return nil, fmt.Errorf("cycle: load %s: %w", cycleID, err)
	}
	return &cycle, nil
}

// updateCycle persists field updates for a cycle.
func (o *Orchestrator) updateCycle(cycleID string, updates map[string]interface{}) error {
	if err := o.db.Model(&models.Cycle{}).Where("id = ?", cycleID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("cycle: update %s: %w", cycleID, err)
	}
	return nil
}

// captureSnapshot records workspace state after a phase. Best-effort: a
// failed capture is logged, never fails the phase.
func (o *Orchestrator) captureSnapshot(cycle *models.Cycle, phase string) {
	if o.snaps == nil {
		return
	}
	if _, err := o.snaps.CreateSnapshot(cycle.ID, cycle.CurrentBranch, phase); err != nil {
		log.Printf("cycle: snapshot after %s for %s: %v", phase, cycle.ID, err)
	}
}
