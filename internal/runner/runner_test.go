package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-alert/internal/ai"
	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/notify"
	"github.com/spigell/job-alert/internal/snapshot"
	"github.com/spigell/job-alert/internal/storage"
)

type memSnapshot struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (s *memSnapshot) Load(context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.keys))
	for k := range s.keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *memSnapshot) Save(_ context.Context, keys map[string]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
	return nil
}

type memStore struct {
	mu        sync.Mutex
	users     []storage.User
	prefs     map[int64]*storage.Preferences
	prefsErr  map[int64]error
	states    map[int64]*storage.State
	updates   []storage.StateUpdate
	runLogs   []storage.RunLog
	snapshots map[int64]*memSnapshot
	histories map[int64]*history.MemoryStore
}

func newMemStore(users ...storage.User) *memStore {
	return &memStore{
		users:     users,
		prefs:     map[int64]*storage.Preferences{},
		prefsErr:  map[int64]error{},
		states:    map[int64]*storage.State{},
		snapshots: map[int64]*memSnapshot{},
		histories: map[int64]*history.MemoryStore{},
	}
}

func (s *memStore) ListUsers(_ context.Context, activeOnly bool) ([]storage.User, error) {
	var out []storage.User
	for _, u := range s.users {
		if !activeOnly || u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) UserByName(_ context.Context, username string) (storage.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return storage.User{}, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

func (s *memStore) Preferences(_ context.Context, userID int64) (*storage.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs[userID], s.prefsErr[userID]
}

func (s *memStore) State(_ context.Context, userID int64) (*storage.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[userID], nil
}

func (s *memStore) UpsertState(_ context.Context, u storage.StateUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return nil
}

func (s *memStore) InsertRunLog(_ context.Context, l storage.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runLogs = append(s.runLogs, l)
	return nil
}

func (s *memStore) Snapshot(userID int64) snapshot.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshots[userID] == nil {
		s.snapshots[userID] = &memSnapshot{}
	}
	return s.snapshots[userID]
}

func (s *memStore) History(userID int64) history.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.histories[userID] == nil {
		s.histories[userID] = history.NewMemoryStore()
	}
	return s.histories[userID]
}

func (s *memStore) runLogFor(userID int64) (storage.RunLog, bool) {
	for _, l := range s.runLogs {
		if l.UserID == userID {
			return l, true
		}
	}
	return storage.RunLog{}, false
}

type countingFetcher struct {
	calls int32
}

func (f *countingFetcher) Fetch(context.Context, []string) (jobs.List, error) {
	atomic.AddInt32(&f.calls, 1)
	return jobs.List{
		{Position: "Backend Developer", Company: "Acme", URL: "https://acme.example/1"},
		{Position: "ICU Nurse", Company: "Clinic", URL: "https://clinic.example/1"},
	}, nil
}

// firstJob picks the first job of every batch.
type firstJob struct{}

func (firstJob) Shortlist(_ context.Context, _ ai.PromptInput, batch jobs.List) (string, jobs.List, error) {
	job := batch[0]
	return fmt.Sprintf("- %s — %s — %s", job.Position, job.Company, job.URL), batch, nil
}

type senders struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (s *senders) factory(to string) (notify.Sender, error) {
	if s.err != nil {
		return nil, s.err
	}
	return senderFunc(func(context.Context, notify.Message) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.to = append(s.to, to)
		return nil
	}), nil
}

type senderFunc func(context.Context, notify.Message) error

func (f senderFunc) Send(ctx context.Context, msg notify.Message) error { return f(ctx, msg) }

func newTestRunner(t *testing.T, cfg Config, store *memStore, fetcher *countingFetcher, s *senders) *Runner {
	t.Helper()
	cfg.ProfilesDir = t.TempDir()
	r, err := New(cfg, Deps{
		Store:       store,
		Fetcher:     fetcher,
		Shortlister: firstJob{},
		NewSender:   s.factory,
	})
	require.NoError(t, err)
	return r
}

func TestRunAllIsolatesFailures(t *testing.T) {
	store := newMemStore(
		storage.User{ID: 1, Username: "alice", EmailTo: "alice@example.com", Active: true},
		storage.User{ID: 2, Username: "bob", EmailTo: "bob@example.com", Active: true},
		storage.User{ID: 3, Username: "carol", EmailTo: "carol@example.com", Active: true},
	)
	store.prefs[2] = &storage.Preferences{UserID: 2, Keyword: "nurse"}
	store.prefsErr[3] = errors.New("db is down")

	fetcher := &countingFetcher{}
	s := &senders{}
	r := newTestRunner(t, Config{Concurrency: 3}, store, fetcher, s)

	report, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.True(t, report.Failed())
	assert.Equal(t, 2, report.Count(storage.StatusSuccess))
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls), "identical source sets are fetched once")

	assert.Equal(t, "alice", report.Results[0].User)
	assert.Equal(t, storage.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, 1, report.Results[0].Summary.NewMatches)
	assert.Equal(t, 1, report.Results[1].Summary.KeywordMatched)

	carol := report.Results[2]
	assert.Equal(t, storage.StatusError, carol.Status)
	assert.ErrorContains(t, carol.Err, "db is down")

	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, s.to)

	log, ok := store.runLogFor(3)
	require.True(t, ok)
	assert.Equal(t, storage.StatusError, log.Status)
	assert.Contains(t, log.Error, "db is down")

	log, ok = store.runLogFor(1)
	require.True(t, ok)
	require.NotNil(t, log.Emailed)
	assert.Equal(t, 1, *log.Emailed)
	assert.Equal(t, []string{"remoteok"}, log.Sources)

	for _, u := range store.updates {
		switch u.UserID {
		case 1:
			assert.True(t, u.EmailSent)
			assert.Equal(t, []string{"https://acme.example/1"}, u.Keys)
		case 3:
			assert.Nil(t, u.Keys, "failed runs keep the stored keys")
			assert.Equal(t, storage.StatusError, u.Status)
		}
	}
}

func TestRunAllSkipsByAlertFrequency(t *testing.T) {
	store := newMemStore(storage.User{ID: 1, Username: "dave", EmailTo: "dave@example.com", Active: true})
	store.prefs[1] = &storage.Preferences{UserID: 1, Overrides: storage.Overrides{
		Product: storage.ProductSignals{AlertFrequency: "weekly"},
	}}
	lastRun := time.Now().Add(-24 * time.Hour)
	store.states[1] = &storage.State{UserID: 1, LastRunAt: &lastRun}

	fetcher := &countingFetcher{}
	r := newTestRunner(t, Config{RunType: RunTypeScheduled}, store, fetcher, &senders{})

	report, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, storage.StatusSkipped, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Reason, "alert_frequency=weekly")
	assert.False(t, report.Failed())
	assert.Zero(t, atomic.LoadInt32(&fetcher.calls))

	log, ok := store.runLogFor(1)
	require.True(t, ok)
	assert.Equal(t, storage.StatusSkipped, log.Status)

	manual := newTestRunner(t, Config{RunType: RunTypeManual}, store, fetcher, &senders{})
	result, err := manual.RunOne(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusSuccess, result.Status)
}

func TestRunOne(t *testing.T) {
	store := newMemStore(storage.User{ID: 1, Username: "erin", EmailTo: "erin@example.com"})
	r := newTestRunner(t, Config{RunType: RunTypeManual}, store, &countingFetcher{}, &senders{})

	result, err := r.RunOne(context.Background(), "erin")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusSkipped, result.Status)
	assert.Equal(t, "inactive", result.Reason)

	_, err = r.RunOne(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunUserSenderFailure(t *testing.T) {
	store := newMemStore(storage.User{ID: 1, Username: "frank", EmailTo: "frank@example.com", Active: true})
	r := newTestRunner(t, Config{}, store, &countingFetcher{}, &senders{err: errors.New("smtp user and password are required")})

	report, err := r.RunAll(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.ErrorContains(t, report.Results[0].Err, "email sender")
}

func TestDryRunNeedsNoSender(t *testing.T) {
	store := newMemStore(storage.User{ID: 1, Username: "gina", Active: true})
	r, err := New(Config{DryRun: true, ProfilesDir: t.TempDir()}, Deps{
		Store:       store,
		Fetcher:     &countingFetcher{},
		Shortlister: firstJob{},
	})
	require.NoError(t, err)

	report, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, storage.StatusSuccess, report.Results[0].Status)
	assert.False(t, report.Results[0].Summary.EmailSent)
}

func TestMinInterval(t *testing.T) {
	tests := []struct {
		frequency string
		want      time.Duration
		ok        bool
	}{
		{"weekly", 7 * 24 * time.Hour, true},
		{" Daily ", 24 * time.Hour, true},
		{"high_priority_only", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.frequency, func(t *testing.T) {
			got, ok := MinInterval(tt.frequency)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type emptyFetcher struct{}

func (emptyFetcher) Fetch(context.Context, []string) (jobs.List, error) { return nil, nil }

func TestRunAllWithEmptyFetchSucceeds(t *testing.T) {
	store := newMemStore(storage.User{ID: 1, Username: "hank", EmailTo: "hank@example.com", Active: true})
	s := &senders{}
	r, err := New(Config{ProfilesDir: t.TempDir()}, Deps{
		Store:       store,
		Fetcher:     emptyFetcher{},
		Shortlister: firstJob{},
		NewSender:   s.factory,
	})
	require.NoError(t, err)

	report, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Failed())
	assert.Equal(t, storage.StatusSuccess, report.Results[0].Status)
	assert.Zero(t, report.Results[0].Summary.Fetched)
	assert.Empty(t, s.to)

	log, ok := store.runLogFor(1)
	require.True(t, ok)
	assert.Equal(t, storage.StatusSuccess, log.Status)
}

func TestRunUserWithoutRecipientFails(t *testing.T) {
	store := newMemStore(storage.User{ID: 1, Username: "ivan", Active: true})
	s := &senders{}
	r := newTestRunner(t, Config{}, store, &countingFetcher{}, s)

	report, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Failed())
	assert.ErrorContains(t, report.Results[0].Err, "email recipient is not configured")
	assert.Empty(t, s.to, "no sender is built for a user without email_to")
}
