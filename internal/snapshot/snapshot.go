// Package snapshot tracks the job keys seen by the previous run of a profile.
package snapshot

import (
	"context"

	"github.com/spigell/job-alert/internal/jobs"
)

// Store loads and fully replaces the key set of one user or profile.
type Store interface {
	Load(ctx context.Context) (map[string]struct{}, error)
	Save(ctx context.Context, keys map[string]struct{}) error
}

// Diff counts keys that appeared in current and keys that disappeared from previous.
func Diff(previous, current map[string]struct{}) (added, removed int) {
	for key := range current {
		if _, ok := previous[key]; !ok {
			added++
		}
	}
	for key := range previous {
		if _, ok := current[key]; !ok {
			removed++
		}
	}
	return added, removed
}

// NewSince keeps, in order, the jobs whose key is not in previous. Jobs without a key are always new.
func NewSince(list jobs.List, previous map[string]struct{}) jobs.List {
	if len(previous) == 0 {
		return list
	}
	fresh := make(jobs.List, 0, len(list))
	for _, job := range list {
		key := job.Key()
		if key != "" {
			if _, seen := previous[key]; seen {
				continue
			}
		}
		fresh = append(fresh, job)
	}
	return fresh
}
