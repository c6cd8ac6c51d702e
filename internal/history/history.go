// Package history tracks jobs already announced to a user so they can be carried over as still open.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spigell/job-alert/internal/jobs"
)

const (
	DefaultWindowDays = 14
	DefaultCap        = 10
)

// Store persists sent-job records for one user or profile.
type Store interface {
	// LoadSentKeys returns the keys seen within the last maxAgeDays days (at least one).
	LoadSentKeys(ctx context.Context, maxAgeDays int) (map[string]struct{}, error)
	// RecordSent upserts the jobs, keeping the first sent time and refreshing the last seen time.
	RecordSent(ctx context.Context, list jobs.List) (int, error)
}

// Record is a single sent job.
type Record struct {
	Key         string    `json:"job_key"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	FirstSentAt time.Time `json:"first_sent_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Cutoff returns the oldest last-seen time still inside the window.
func Cutoff(now time.Time, maxAgeDays int) time.Time {
	if maxAgeDays < 1 {
		maxAgeDays = 1
	}
	return now.Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
}

// Carryover returns, in pool order, up to limit jobs already sent and not excluded.
func Carryover(pool jobs.List, excluded, sent map[string]struct{}, limit int) jobs.List {
	if limit <= 0 || len(sent) == 0 {
		return nil
	}

	out := make(jobs.List, 0, limit)
	seen := make(map[string]struct{})
	for _, job := range pool {
		key := job.Key()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if _, ok := excluded[key]; ok {
			continue
		}
		if _, ok := sent[key]; !ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, job)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) LoadSentKeys(_ context.Context, maxAgeDays int) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := Cutoff(s.now(), maxAgeDays)
	keys := make(map[string]struct{})
	for key, record := range s.records {
		if !record.LastSeenAt.Before(cutoff) {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}

func (s *MemoryStore) RecordSent(_ context.Context, list jobs.List) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	written := 0
	for _, job := range list {
		key := job.Key()
		if key == "" {
			continue
		}
		record, ok := s.records[key]
		if !ok {
			record = Record{Key: key, FirstSentAt: now}
		}
		record.Source = job.Source
		record.URL = job.URL
		record.Title = job.Position
		record.Company = job.Company
		record.LastSeenAt = now
		s.records[key] = record
		written++
	}
	return written, nil
}

// Records returns a copy of the stored records ordered by key.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
