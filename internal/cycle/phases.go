package cycle

import (
	"fmt"
	"log"

	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/models"
)

// ExecutePhase runs the logic for the cycle's current phase and advances it.
// Soft states come back as data: a non-ACTIVE cycle or one gated by pending
// BLOCKING queries returns a tagged result with no mutation. Hard failures
// inside a phase body mark the cycle FAILED (best-effort) and propagate.
//
// At most one ExecutePhase per cycle may be in flight in this process;
// concurrent calls get ErrCycleBusy.
func (o *Orchestrator) ExecutePhase(cycleID string) (*PhaseResult, error) {
	if !o.leases.tryAcquire(cycleID) {
		return nil, fmt.Errorf("%w: %s", ErrCycleBusy, cycleID)
	}
	defer o.leases.release(cycleID)

	cycle, err := o.loadCycle(cycleID)
	if err != nil {
		return nil, err
	}

	if cycle.Status != models.StatusActive {
		return &PhaseResult{
			Outcome: OutcomeNotActive,
			CycleID: cycle.ID,
			Phase:   cycle.Phase,
			Status:  cycle.Status,
			Message: fmt.Sprintf("cycle %s is not active (status %s)", cycle.ID, cycle.Status),
		}, nil
	}

	blocked, err := o.gate.HasBlockingQueries(cycleID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &PhaseResult{
			Outcome:          OutcomeBlocked,
			CycleID:          cycle.ID,
			Phase:            cycle.Phase,
			Status:           cycle.Status,
			BlockedByQueries: true,
			Message:          fmt.Sprintf("cycle %s is blocked by queries", cycle.ID),
		}, nil
	}

	executed := cycle.Phase
	var result *PhaseResult
	switch cycle.Phase {
	case models.PhaseRed:
		result, err = o.executeRed(cycle)
	case models.PhaseGreen:
		result, err = o.executeGreen(cycle)
	case models.PhaseRefactor:
		result, err = o.executeRefactor(cycle)
	case models.PhaseReview:
		result, err = o.executeReview(cycle)
	default:
		return nil, fmt.Errorf("cycle: %s has unknown phase %q", cycle.ID, cycle.Phase)
	}
	if err != nil {
		o.markFailed(cycle)
		return nil, err
	}

	o.captureSnapshot(cycle, executed)

	eventType := events.CyclePhase
	if result.Complete {
		eventType = events.CycleCompleted
	}
	o.bus.Publish(events.Event{
		Type:      eventType,
		ProjectID: cycle.ProjectID,
		CycleID:   cycle.ID,
		Phase:     result.Phase,
		Message:   result.Message,
	})
	return result, nil
}

// executeRed creates one FAILING test per acceptance criterion that does
// not already have a test, then advances to GREEN. Re-running RED is safe:
// covered criteria are skipped.
func (o *Orchestrator) executeRed(cycle *models.Cycle) (*PhaseResult, error) {
	criteria, err := cycle.Criteria()
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(cycle.Tests))
	for _, t := range cycle.Tests {
		existing[t.Name] = true
	}

	var created []models.Test
	for _, criterion := range criteria {
		if existing[criterion] {
			continue
		}
		id, err := models.NewID("tst")
		if err != nil {
			return nil, err
		}
		test := models.Test{
			ID:      id,
			CycleID: cycle.ID,
			Name:    criterion,
			Status:  models.TestFailing,
		}
		if err := o.db.Create(&test).Error; err != nil {
			return nil, fmt.Errorf("cycle: create test for %s: %w", cycle.ID, err)
		}
		created = append(created, test)
	}

	if err := o.updateCycle(cycle.ID, map[string]interface{}{"phase": models.PhaseGreen}); err != nil {
		return nil, err
	}

	return &PhaseResult{
		Outcome:      OutcomeOK,
		CycleID:      cycle.ID,
		Phase:        models.PhaseGreen,
		Status:       cycle.Status,
		Message:      fmt.Sprintf("RED phase completed: %d failing tests created", len(created)),
		TestsCreated: created,
	}, nil
}

// executeGreen creates one CODE artifact per currently-FAILING test, then
// batch-updates those tests to PASSING and advances to REFACTOR. Already
// passing tests are untouched, so a re-run creates nothing twice.
func (o *Orchestrator) executeGreen(cycle *models.Cycle) (*PhaseResult, error) {
	var failing []models.Test
	for _, t := range cycle.Tests {
		if t.Status == models.TestFailing {
			failing = append(failing, t)
		}
	}

	var created []models.Artifact
	var passedIDs []string
	for _, test := range failing {
		generated, err := o.gen.Implement(cycle, test)
		if err != nil {
			return nil, fmt.Errorf("cycle: generate implementation for test %s: %w", test.ID, err)
		}

		id, err := models.NewID("art")
		if err != nil {
			return nil, err
		}
		artifact := models.Artifact{
			ID:      id,
			CycleID: cycle.ID,
			Type:    models.ArtifactCode,
			Content: generated.Content,
			Path:    generated.Path,
		}
		if err := o.db.Create(&artifact).Error; err != nil {
			return nil, fmt.Errorf("cycle: create artifact for %s: %w", cycle.ID, err)
		}
		created = append(created, artifact)
		passedIDs = append(passedIDs, test.ID)
	}

	if len(passedIDs) > 0 {
		if err := o.db.Model(&models.Test{}).Where("id IN ?", passedIDs).
			Update("status", models.TestPassing).Error; err != nil {
			return nil, fmt.Errorf("cycle: mark tests passing for %s: %w", cycle.ID, err)
		}
	}

	if err := o.updateCycle(cycle.ID, map[string]interface{}{"phase": models.PhaseRefactor}); err != nil {
		return nil, err
	}

	return &PhaseResult{
		Outcome:          OutcomeOK,
		CycleID:          cycle.ID,
		Phase:            models.PhaseRefactor,
		Status:           cycle.Status,
		Message:          fmt.Sprintf("GREEN phase completed: %d tests passing, %d artifacts created", len(passedIDs), len(created)),
		ArtifactsCreated: created,
	}, nil
}

// executeRefactor reads the cycle's CODE artifacts and creates one new
// artifact holding the refactored version. Originals are retained, never
// mutated. Safe to re-run after recovery: it works from the current
// artifact set.
func (o *Orchestrator) executeRefactor(cycle *models.Cycle) (*PhaseResult, error) {
	var code []models.Artifact
	for _, a := range cycle.Artifacts {
		if a.Type == models.ArtifactCode {
			code = append(code, a)
		}
	}

	generated, err := o.gen.Refactor(cycle, code)
	if err != nil {
		return nil, fmt.Errorf("cycle: generate refactoring for %s: %w", cycle.ID, err)
	}

	id, err := models.NewID("art")
	if err != nil {
		return nil, err
	}
	artifact := models.Artifact{
		ID:      id,
		CycleID: cycle.ID,
		Type:    models.ArtifactCode,
		Content: generated.Content,
		Path:    generated.Path,
	}
	if err := o.db.Create(&artifact).Error; err != nil {
		return nil, fmt.Errorf("cycle: create refactored artifact for %s: %w", cycle.ID, err)
	}

	if err := o.updateCycle(cycle.ID, map[string]interface{}{"phase": models.PhaseReview}); err != nil {
		return nil, err
	}

	return &PhaseResult{
		Outcome:          OutcomeOK,
		CycleID:          cycle.ID,
		Phase:            models.PhaseReview,
		Status:           cycle.Status,
		Message:          fmt.Sprintf("REFACTOR phase completed: refactored %d artifacts", len(code)),
		ArtifactsCreated: []models.Artifact{artifact},
	}, nil
}

// executeReview verifies the cycle produced tests and artifacts, commits
// the branch, and completes the cycle.
func (o *Orchestrator) executeReview(cycle *models.Cycle) (*PhaseResult, error) {
	if len(cycle.Tests) == 0 {
		return nil, fmt.Errorf("cycle: %s has no tests to review", cycle.ID)
	}
	if len(cycle.Artifacts) == 0 {
		return nil, fmt.Errorf("cycle: %s has no artifacts to review", cycle.ID)
	}

	if err := o.branches.CommitChanges(fmt.Sprintf("feat: %s", cycle.Title)); err != nil {
		return nil, err
	}

	if err := o.updateCycle(cycle.ID, map[string]interface{}{"status": models.StatusCompleted}); err != nil {
		return nil, err
	}

	return &PhaseResult{
		Outcome:  OutcomeOK,
		CycleID:  cycle.ID,
		Phase:    models.PhaseReview,
		Status:   models.StatusCompleted,
		Complete: true,
		Message:  "Cycle completed successfully",
	}, nil
}

// markFailed records a phase-execution failure on the cycle. Best-effort:
// the original error is what the caller sees.
func (o *Orchestrator) markFailed(cycle *models.Cycle) {
	if err := o.db.Model(&models.Cycle{}).Where("id = ?", cycle.ID).
		Update("status", models.StatusFailed).Error; err != nil {
		log.Printf("cycle: mark %s failed: %v", cycle.ID, err)
		return
	}
	o.bus.Publish(events.Event{
		Type:      events.CycleFailed,
		ProjectID: cycle.ProjectID,
		CycleID:   cycle.ID,
		Phase:     cycle.Phase,
	})
}
