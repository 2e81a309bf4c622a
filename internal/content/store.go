// Package content provides cached file reads, content hashing, and writes
// rooted at a project directory.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the read-cache capacity used when none is given.
const DefaultCacheSize = 256

// Store reads and writes file content relative to a project root. Reads go
// through a per-instance LRU cache keyed by relative path; the cache is
// never invalidated by external file changes, so callers that need to
// observe out-of-band writes must create a fresh Store or call Clear.
type Store struct {
	root  string
	cache *lru.Cache[string, string]
}

// New creates a Store rooted at dir with the given read-cache capacity.
func New(dir string, cacheSize int) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("content: root directory is required")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("content: create cache: %w", err)
	}
	return &Store{root: dir, cache: cache}, nil
}

// Root returns the project root this store is rooted at.
func (s *Store) Root() string {
	return s.root
}

// ReadFile returns the content of the file at the given relative path. The
// first read per path populates the cache; later reads return the cached
// value even if the file changed on disk.
func (s *Store) ReadFile(relPath string) (string, error) {
	if cached, ok := s.cache.Get(relPath); ok {
		return cached, nil
	}
	data, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		return "", fmt.Errorf("content: read %s: %w", relPath, err)
	}
	text := string(data)
	s.cache.Add(relPath, text)
	return text, nil
}

// WriteFile writes content to the given relative path, creating parent
// directories as needed, and refreshes the cache entry.
func (s *Store) WriteFile(relPath, content string) error {
	abs := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("content: mkdir for %s: %w", relPath, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return fmt.Errorf("content: write %s: %w", relPath, err)
	}
	s.cache.Add(relPath, content)
	return nil
}

// CopyFile copies the file at the given relative path to an absolute
// destination, creating parent directories as needed. The read goes through
// the cache.
func (s *Store) CopyFile(relPath, destPath string) error {
	text, err := s.ReadFile(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("content: mkdir for %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("content: copy %s to %s: %w", relPath, destPath, err)
	}
	return nil
}

// Clear drops all cached content.
func (s *Store) Clear() {
	s.cache.Purge()
}

// Hash returns the SHA-256 hex digest of content. It is a pure function of
// the content: identical input always yields the same digest.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
