package cycle

import (
	"fmt"
	"strings"

	"github.com/mwhitfield/redloop/internal/gitops"
	"github.com/mwhitfield/redloop/internal/models"
)

// GeneratedArtifact is content produced by a Generator for a cycle.
type GeneratedArtifact struct {
	Content string
	Path    string
}

// Generator turns failing tests into implementations and existing code into
// refactored versions. Real code generation lives outside this module; the
// orchestrator only cares that something produces artifact content.
type Generator interface {
	// Implement produces the implementation artifact for one failing test.
	Implement(cycle *models.Cycle, test models.Test) (GeneratedArtifact, error)

	// Refactor produces a refactored version of the cycle's current code
	// artifacts. The originals are retained; the result becomes a new
	// artifact.
	Refactor(cycle *models.Cycle, artifacts []models.Artifact) (GeneratedArtifact, error)
}

// ScaffoldGenerator is the default Generator. It emits deterministic stub
// content so the state machine is fully exercisable without a code
// generation backend.
type ScaffoldGenerator struct{}

// Implement emits a stub implementation for the test.
func (ScaffoldGenerator) Implement(cycle *models.Cycle, test models.Test) (GeneratedArtifact, error) {
	slug := gitops.Slug(test.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "// Implementation for test: %s\n", test.Name)
	fmt.Fprintf(&b, "// Cycle: %s (%s)\n", cycle.ID, cycle.Title)
	b.WriteString("// TODO(generator): replace scaffold with generated implementation\n")
	return GeneratedArtifact{
		Content: b.String(),
		Path:    fmt.Sprintf("src/%s.impl", slug),
	}, nil
}

// Refactor emits a stub refactored version covering the given artifacts.
func (ScaffoldGenerator) Refactor(cycle *models.Cycle, artifacts []models.Artifact) (GeneratedArtifact, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// Refactored implementation for cycle %s (%s)\n", cycle.ID, cycle.Title)
	fmt.Fprintf(&b, "// Consolidates %d artifact(s):\n", len(artifacts))
	for _, a := range artifacts {
		fmt.Fprintf(&b, "//   - %s (%s)\n", a.ID, a.Path)
	}
	return GeneratedArtifact{
		Content: b.String(),
		Path:    fmt.Sprintf("src/%s_refactored.impl", gitops.Slug(cycle.Title)),
	}, nil
}
