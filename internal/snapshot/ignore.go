package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// redloopIgnorePatterns are the entries Redloop needs in a project's
// .gitignore so snapshot storage and the local database never get committed.
func redloopIgnorePatterns() []string {
	return []string{
		".redloop/",
	}
}

// EnsureIgnoreEntries appends any missing Redloop patterns to the project's
// .gitignore, creating the file if needed. Idempotent: existing entries are
// never duplicated.
func EnsureIgnoreEntries(root string) error {
	path := filepath.Join(root, ".gitignore")
	existing := readIgnoreEntries(path)

	var missing []string
	for _, p := range redloopIgnorePatterns() {
		if !existing[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("\n# Redloop\n")
	for _, p := range missing {
		b.WriteString(p + "\n")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("snapshot: open .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("snapshot: write .gitignore: %w", err)
	}
	return nil
}

// readIgnoreEntries reads an existing .gitignore and returns a set of
// trimmed, non-comment, non-empty lines.
func readIgnoreEntries(path string) map[string]bool {
	entries := map[string]bool{}
	f, err := os.Open(path)
	if err != nil {
		return entries
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries[line] = true
	}
	return entries
}
