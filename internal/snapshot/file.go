package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spigell/job-alert/internal/jobs"
)

// FileStore keeps the snapshot as a sorted JSON array of keys.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load returns an empty set when the file is missing or cannot be parsed.
func (s *FileStore) Load(_ context.Context) (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	data, err := os.ReadFile(s.path)
	if err != nil {
		return keys, nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return keys, nil
	}
	for _, item := range items {
		if item != "" {
			keys[item] = struct{}{}
		}
	}
	return keys, nil
}

// Save atomically replaces the file. A failed write keeps the previous content.
func (s *FileStore) Save(_ context.Context, keys map[string]struct{}) error {
	clean := make(map[string]struct{}, len(keys))
	for key := range keys {
		if key != "" {
			clean[key] = struct{}{}
		}
	}

	data, err := json.MarshalIndent(jobs.SortedKeys(clean), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
