package cycle

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/mwhitfield/redloop/internal/models"
)

// TestProperty_FullCycleAccounting verifies that for any number of distinct
// acceptance criteria, driving a cycle through all four phases completes it
// with one passing test per criterion and one artifact per test plus the
// refactor artifact.
func TestProperty_FullCycleAccounting(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db := openTestDB(t)
		branches := &fakeBranchManager{}
		orch, err := New(Opts{DB: db, Branches: branches})
		if err != nil {
			rt.Fatalf("New failed: %v", err)
		}

		n := rapid.IntRange(1, 10).Draw(rt, "num_criteria")
		criteria := make([]string, n)
		for i := range criteria {
			criteria[i] = fmt.Sprintf("criterion %d", i)
		}

		cycle, err := orch.StartCycle(FeatureRequest{
			ProjectID:          "demo",
			Title:              "property feature",
			AcceptanceCriteria: criteria,
		})
		if err != nil {
			rt.Fatalf("StartCycle failed: %v", err)
		}

		var last *PhaseResult
		for i := 0; i < 4; i++ {
			last, err = orch.ExecutePhase(cycle.ID)
			if err != nil {
				rt.Fatalf("ExecutePhase %d failed: %v", i, err)
			}
			if last.Outcome != OutcomeOK {
				rt.Fatalf("phase %d outcome = %q", i, last.Outcome)
			}
		}
		if !last.Complete {
			rt.Fatal("cycle not complete after four phases")
		}

		var passing, failing, artifacts int64
		db.Model(&models.Test{}).Where("cycle_id = ? AND status = ?", cycle.ID, models.TestPassing).Count(&passing)
		db.Model(&models.Test{}).Where("cycle_id = ? AND status = ?", cycle.ID, models.TestFailing).Count(&failing)
		db.Model(&models.Artifact{}).Where("cycle_id = ?", cycle.ID).Count(&artifacts)

		if passing != int64(n) {
			rt.Fatalf("passing tests = %d, want %d", passing, n)
		}
		if failing != 0 {
			rt.Fatalf("failing tests = %d, want 0", failing)
		}
		if artifacts != int64(n+1) {
			rt.Fatalf("artifacts = %d, want %d", artifacts, n+1)
		}

		var got models.Cycle
		db.First(&got, "id = ?", cycle.ID)
		if got.Status != models.StatusCompleted {
			rt.Fatalf("final status = %q", got.Status)
		}
	})
}
