package cycle

import "github.com/mwhitfield/redloop/internal/models"

// Outcome tags the soft result of a phase execution. Not-active and blocked
// cycles are expected, actionable states communicated as data, never as
// errors.
type Outcome string

// Phase execution outcomes.
const (
	OutcomeOK        Outcome = "ok"
	OutcomeNotActive Outcome = "not_active"
	OutcomeBlocked   Outcome = "blocked"
)

// PhaseResult is the structured result of one ExecutePhase call.
type PhaseResult struct {
	Outcome          Outcome           `json:"outcome"`
	CycleID          string            `json:"cycle_id"`
	Phase            string            `json:"phase"`
	Status           string            `json:"status"`
	Message          string            `json:"message"`
	Complete         bool              `json:"complete"`
	BlockedByQueries bool              `json:"blocked_by_queries"`
	TestsCreated     []models.Test     `json:"tests_created,omitempty"`
	ArtifactsCreated []models.Artifact `json:"artifacts_created,omitempty"`
}
