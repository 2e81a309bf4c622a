// Package gitops manages feature branches for cycles by shelling out to git.
package gitops

import (
	"fmt"
	"os/exec"
	"strings"
)

// BranchManager creates, switches, and commits feature branches for cycles.
type BranchManager interface {
	// CreateFeatureBranch creates (or checks out) a branch derived from the
	// feature title and returns its name.
	CreateFeatureBranch(title string) (string, error)

	// SwitchBranch checks out an existing branch.
	SwitchBranch(branch string) error

	// CommitChanges stages and commits all outstanding changes on the
	// current branch.
	CommitChanges(message string) error
}

// Git is a BranchManager backed by the git CLI.
type Git struct {
	RepoDir string
}

// New creates a Git branch manager for the given repository directory.
func New(repoDir string) *Git {
	return &Git{RepoDir: repoDir}
}

// BranchName derives the feature branch name for a title.
func BranchName(title string) string {
	return "feature/" + Slug(title)
}

// Slug lowercases a title and reduces it to a branch-safe slug, capped at
// 48 characters.
func Slug(title string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 48 {
		slug = strings.Trim(slug[:48], "-")
	}
	if slug == "" {
		slug = "work"
	}
	return slug
}

// CreateFeatureBranch creates a new branch from main named after the title,
// or checks out the branch if it already exists.
func (g *Git) CreateFeatureBranch(title string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("gitops: feature title is required")
	}
	if g.RepoDir == "" {
		return "", fmt.Errorf("gitops: repo directory is required")
	}

	branch := BranchName(title)

	cmd := exec.Command("git", "checkout", "-b", branch, "main")
	cmd.Dir = g.RepoDir
	out, err := cmd.CombinedOutput()
	if err == nil {
		return branch, nil
	}

	// If the branch already exists, check it out instead.
	if strings.Contains(string(out), "already exists") {
		if err := g.SwitchBranch(branch); err != nil {
			return "", err
		}
		return branch, nil
	}

	return "", fmt.Errorf("gitops: create branch %q: %s", branch, strings.TrimSpace(string(out)))
}

// SwitchBranch checks out an existing branch.
func (g *Git) SwitchBranch(branch string) error {
	if branch == "" {
		return fmt.Errorf("gitops: branch name is required")
	}
	if g.RepoDir == "" {
		return fmt.Errorf("gitops: repo directory is required")
	}

	cmd := exec.Command("git", "checkout", branch)
	cmd.Dir = g.RepoDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("gitops: checkout %q: %s", branch, strings.TrimSpace(string(out)))
	}
	return nil
}

// CommitChanges stages everything and commits with the given message. A
// clean tree is not an error.
func (g *Git) CommitChanges(message string) error {
	if g.RepoDir == "" {
		return fmt.Errorf("gitops: repo directory is required")
	}
	if message == "" {
		message = "redloop: cycle changes"
	}

	add := exec.Command("git", "add", "-A")
	add.Dir = g.RepoDir
	if out, err := add.CombinedOutput(); err != nil {
		return fmt.Errorf("gitops: stage changes: %s", strings.TrimSpace(string(out)))
	}

	commit := exec.Command("git", "commit", "-m", message)
	commit.Dir = g.RepoDir
	out, err := commit.CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "nothing to commit") {
			return nil
		}
		return fmt.Errorf("gitops: commit: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
