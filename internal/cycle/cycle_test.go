package cycle

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mwhitfield/redloop/internal/decision"
	"github.com/mwhitfield/redloop/internal/gitops"
	"github.com/mwhitfield/redloop/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Cycle{},
		&models.Test{},
		&models.Artifact{},
		&models.Query{},
		&models.QueryComment{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

// fakeBranchManager records git operations instead of shelling out.
type fakeBranchManager struct {
	created  []string
	switched []string
	commits  []string
	failWith error
}

func (f *fakeBranchManager) CreateFeatureBranch(title string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	branch := gitops.BranchName(title)
	f.created = append(f.created, branch)
	return branch, nil
}

func (f *fakeBranchManager) SwitchBranch(branch string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.switched = append(f.switched, branch)
	return nil
}

func (f *fakeBranchManager) CommitChanges(message string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.commits = append(f.commits, message)
	return nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *gorm.DB, *fakeBranchManager) {
	t.Helper()
	db := openTestDB(t)
	branches := &fakeBranchManager{}
	orch, err := New(Opts{DB: db, Branches: branches})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch, db, branches
}

func startTestCycle(t *testing.T, orch *Orchestrator, criteria ...string) *models.Cycle {
	t.Helper()
	if len(criteria) == 0 {
		criteria = []string{"it works"}
	}
	cycle, err := orch.StartCycle(FeatureRequest{
		ProjectID:          "demo",
		Title:              "Add user login",
		Description:        "users can sign in",
		AcceptanceCriteria: criteria,
	})
	if err != nil {
		t.Fatalf("StartCycle: %v", err)
	}
	return cycle
}

func TestNew_RequiredCollaborators(t *testing.T) {
	if _, err := New(Opts{Branches: &fakeBranchManager{}}); err == nil {
		t.Error("expected error for missing DB")
	}
	if _, err := New(Opts{DB: openTestDB(t)}); err == nil {
		t.Error("expected error for missing branch manager")
	}
}

func TestStartCycle(t *testing.T) {
	orch, db, branches := newTestOrchestrator(t)

	cycle := startTestCycle(t, orch, "login works", "session persists")

	if cycle.Phase != models.PhaseRed {
		t.Errorf("Phase = %q, want RED", cycle.Phase)
	}
	if cycle.Status != models.StatusActive {
		t.Errorf("Status = %q, want ACTIVE", cycle.Status)
	}
	if cycle.CurrentBranch != "feature/add-user-login" {
		t.Errorf("CurrentBranch = %q", cycle.CurrentBranch)
	}
	if len(branches.created) != 1 {
		t.Errorf("branches created = %v, want 1", branches.created)
	}

	criteria, err := cycle.Criteria()
	if err != nil {
		t.Fatalf("Criteria: %v", err)
	}
	if len(criteria) != 2 {
		t.Errorf("criteria = %v, want 2", criteria)
	}

	var persisted models.Cycle
	if err := db.First(&persisted, "id = ?", cycle.ID).Error; err != nil {
		t.Fatalf("cycle not persisted: %v", err)
	}
}

func TestStartCycle_Validation(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)

	if _, err := orch.StartCycle(FeatureRequest{ProjectID: "demo", AcceptanceCriteria: []string{"x"}}); err == nil {
		t.Error("expected error for missing title")
	}
	if _, err := orch.StartCycle(FeatureRequest{ProjectID: "demo", Title: "t"}); err == nil {
		t.Error("expected error for missing acceptance criteria")
	}
}

func TestStartCycle_BranchFailure(t *testing.T) {
	db := openTestDB(t)
	branches := &fakeBranchManager{failWith: fmt.Errorf("gitops: boom")}
	orch, err := New(Opts{DB: db, Branches: branches})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := orch.StartCycle(FeatureRequest{
		ProjectID: "demo", Title: "t", AcceptanceCriteria: []string{"x"},
	}); err == nil {
		t.Error("expected branch failure to propagate")
	}

	var count int64
	db.Model(&models.Cycle{}).Count(&count)
	if count != 0 {
		t.Errorf("cycle persisted despite branch failure")
	}
}

func TestPauseResumeCycle(t *testing.T) {
	orch, db, branches := newTestOrchestrator(t)
	cycle := startTestCycle(t, orch)

	if err := orch.PauseCycle(cycle.ID); err != nil {
		t.Fatalf("PauseCycle: %v", err)
	}
	var got models.Cycle
	db.First(&got, "id = ?", cycle.ID)
	if got.Status != models.StatusPaused {
		t.Errorf("status after pause = %q, want PAUSED", got.Status)
	}
	// Pausing never touches the phase.
	if got.Phase != models.PhaseRed {
		t.Errorf("phase after pause = %q, want RED", got.Phase)
	}

	if err := orch.ResumeCycle(cycle.ID); err != nil {
		t.Fatalf("ResumeCycle: %v", err)
	}
	db.First(&got, "id = ?", cycle.ID)
	if got.Status != models.StatusActive {
		t.Errorf("status after resume = %q, want ACTIVE", got.Status)
	}
	if len(branches.switched) != 1 || branches.switched[0] != cycle.CurrentBranch {
		t.Errorf("resume switched to %v, want [%s]", branches.switched, cycle.CurrentBranch)
	}
}

func TestPauseCycle_NotFound(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	if err := orch.PauseCycle("cyc-ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResumeCycle_NoBranch(t *testing.T) {
	orch, db, _ := newTestOrchestrator(t)
	cycle := models.Cycle{ID: "cyc-nobrn", ProjectID: "demo", Title: "t",
		Phase: models.PhaseRed, Status: models.StatusPaused}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := orch.ResumeCycle(cycle.ID); err == nil {
		t.Error("expected error resuming a cycle with no recorded branch")
	}
}

func TestRecoverCycle(t *testing.T) {
	orch, db, _ := newTestOrchestrator(t)
	cycle := startTestCycle(t, orch)

	// Only FAILED cycles can be recovered.
	if err := orch.RecoverCycle(cycle.ID); err == nil {
		t.Error("expected error recovering an ACTIVE cycle")
	}

	db.Model(&models.Cycle{}).Where("id = ?", cycle.ID).
		Updates(map[string]interface{}{"status": models.StatusFailed, "phase": models.PhaseGreen})

	if err := orch.RecoverCycle(cycle.ID); err != nil {
		t.Fatalf("RecoverCycle: %v", err)
	}

	var got models.Cycle
	db.First(&got, "id = ?", cycle.ID)
	if got.Status != models.StatusActive {
		t.Errorf("status = %q, want ACTIVE", got.Status)
	}
	// Recovery keeps the phase so the failed phase re-runs.
	if got.Phase != models.PhaseGreen {
		t.Errorf("phase = %q, want GREEN", got.Phase)
	}
}

func TestAddQuery(t *testing.T) {
	orch, db, _ := newTestOrchestrator(t)
	cycle := startTestCycle(t, orch)

	q, err := orch.AddQuery(cycle.ID, decision.CreateOpts{
		Title:   "which hash algorithm",
		Urgency: models.UrgencyBlocking,
	})
	if err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	if q.CycleID == nil || *q.CycleID != cycle.ID {
		t.Errorf("query not attached to cycle: %v", q.CycleID)
	}
	if q.ProjectID != "demo" {
		t.Errorf("ProjectID = %q, want inherited demo", q.ProjectID)
	}

	var got models.Cycle
	db.First(&got, "id = ?", cycle.ID)
	if got.Status != models.StatusPaused {
		t.Errorf("cycle status = %q, want PAUSED after blocking query", got.Status)
	}
}

func TestAddQuery_CycleNotFound(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t)
	if _, err := orch.AddQuery("cyc-ghost", decision.CreateOpts{Title: "q"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStatus(t *testing.T) {
	orch, db, _ := newTestOrchestrator(t)
	cycle := startTestCycle(t, orch)

	seed := []interface{}{
		&models.Test{ID: "tst-00001", CycleID: cycle.ID, Name: "a", Status: models.TestPassing},
		&models.Test{ID: "tst-00002", CycleID: cycle.ID, Name: "b", Status: models.TestFailing},
		&models.Artifact{ID: "art-00001", CycleID: cycle.ID, Type: models.ArtifactCode},
		&models.Query{ID: "qry-00001", ProjectID: "demo", CycleID: &cycle.ID, Title: "p",
			Urgency: models.UrgencyAdvisory, Priority: models.PriorityMedium, Status: models.QueryPending},
		&models.Query{ID: "qry-00002", ProjectID: "demo", CycleID: &cycle.ID, Title: "d",
			Urgency: models.UrgencyAdvisory, Priority: models.PriorityMedium, Status: models.QueryDismissed},
	}
	for _, row := range seed {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}

	s, err := orch.Status(cycle.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if s.TestsCount != 2 || s.PassingTests != 1 || s.FailingTests != 1 {
		t.Errorf("test counts = %d/%d/%d, want 2/1/1", s.TestsCount, s.PassingTests, s.FailingTests)
	}
	if s.ArtifactsCount != 1 {
		t.Errorf("ArtifactsCount = %d, want 1", s.ArtifactsCount)
	}
	if s.PendingQueries != 1 {
		t.Errorf("PendingQueries = %d, want 1", s.PendingQueries)
	}
}

func TestList_Filters(t *testing.T) {
	orch, db, _ := newTestOrchestrator(t)
	a := startTestCycle(t, orch)
	startTestCycle(t, orch)

	db.Model(&models.Cycle{}).Where("id = ?", a.ID).
		Updates(map[string]interface{}{"status": models.StatusCompleted, "phase": models.PhaseReview})

	all, err := orch.List(ListFilters{ProjectID: "demo"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	completed, _ := orch.List(ListFilters{Status: models.StatusCompleted})
	if len(completed) != 1 || completed[0].ID != a.ID {
		t.Errorf("completed = %v, want [%s]", completed, a.ID)
	}

	red, _ := orch.List(ListFilters{Phase: models.PhaseRed})
	if len(red) != 1 {
		t.Errorf("red = %d, want 1", len(red))
	}
}
