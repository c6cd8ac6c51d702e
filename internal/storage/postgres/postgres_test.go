package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx := context.Background()
	s, err := New(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.InitSchema(ctx))
	return s
}

func newTestUser(t *testing.T, s *Store) storage.User {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), storage.User{
		Username: fmt.Sprintf("test-%d", time.Now().UnixNano()),
		EmailTo:  "user@example.com",
		Active:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(context.Background(), " ", nil)
	assert.EqualError(t, err, "database url is not configured")
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s)

	prefs, err := s.Preferences(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, prefs)

	limit := 30
	remote := false
	require.NoError(t, s.SetPreferences(ctx, storage.Preferences{
		UserID:        u.ID,
		Keyword:       "golang",
		LLMInputLimit: &limit,
		RemoteOnly:    &remote,
		Overrides: storage.Overrides{
			Product: storage.ProductSignals{AlertFrequency: "weekly"},
		},
	}))

	prefs, err = s.Preferences(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, "golang", prefs.Keyword)
	assert.Equal(t, 30, *prefs.LLMInputLimit)
	assert.Nil(t, prefs.MaxBullets)
	assert.False(t, *prefs.RemoteOnly)
	assert.Equal(t, "weekly", prefs.Overrides.Product.AlertFrequency)

	tooMany := 21
	assert.Error(t, s.SetPreferences(ctx, storage.Preferences{UserID: u.ID, MaxBullets: &tooMany}))
}

func TestStateKeepsKeysOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s)

	require.NoError(t, s.UpsertState(ctx, storage.StateUpdate{
		UserID: u.ID, Keys: []string{"a", "b"}, Status: storage.StatusSuccess, EmailSent: true,
	}))
	require.NoError(t, s.UpsertState(ctx, storage.StateUpdate{
		UserID: u.ID, Status: storage.StatusError, Error: "boom",
	}))

	st, err := s.State(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, []string{"a", "b"}, st.CurrentKeys)
	assert.Equal(t, storage.StatusError, st.LastStatus)
	assert.Equal(t, "boom", st.LastError)
	assert.NotNil(t, st.LastEmailSentAt)
	assert.NotNil(t, st.LastRunAt)
}

func TestSnapshotAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s)

	snap := s.Snapshot(u.ID)
	keys, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, snap.Save(ctx, map[string]struct{}{"https://x/1": {}, "https://x/2": {}}))
	keys, err = snap.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	hist := s.History(u.ID)
	n, err := hist.RecordSent(ctx, jobs.List{
		{Position: "Go Developer", URL: "https://x/1"},
		{Position: "Go Developer", URL: "https://x/1"},
		{Position: "Backend", Company: "Acme"},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sent, err := hist.LoadSentKeys(ctx, 14)
	require.NoError(t, err)
	assert.Contains(t, sent, "https://x/1")
	assert.Contains(t, sent, "Acme::Backend")
}

func TestRunLog(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s)
	fetched := 10
	require.NoError(t, s.InsertRunLog(context.Background(), storage.RunLog{
		UserID: u.ID, RunType: "manual", Status: storage.StatusSuccess, Fetched: &fetched, Sources: []string{"remoteok"},
	}))
}
