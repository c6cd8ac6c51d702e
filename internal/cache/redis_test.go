package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-alert/internal/jobs"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL is not set")
	}
	c, err := New(context.Background(), url, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestThroughFetchesOnce(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()
	key := "test:" + t.Name() + ":" + time.Now().Format(time.RFC3339Nano)

	calls := 0
	fetch := func(context.Context) (jobs.List, error) {
		calls++
		return jobs.List{{Position: "Go Developer", URL: "https://x/1"}}, nil
	}

	first, err := c.Through(ctx, key, fetch)
	require.NoError(t, err)
	second, err := c.Through(ctx, key, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].URL, second[0].URL)
}

func TestGetMiss(t *testing.T) {
	c := newTestRedis(t)
	var dest jobs.List
	err := c.Get(context.Background(), "test:missing:"+time.Now().Format(time.RFC3339Nano), &dest)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), "not-a-redis-url", 0, nil)
	assert.ErrorContains(t, err, "parse redis url")
}

type countingFetcher struct {
	calls int
}

func (f *countingFetcher) Fetch(_ context.Context, names []string) (jobs.List, error) {
	f.calls++
	return jobs.List{{Position: "Platform Engineer", URL: "https://x/" + names[0]}}, nil
}

func TestWrapSharesSourceSets(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()
	source := "test-" + time.Now().Format("150405.000000000")

	next := &countingFetcher{}
	fetcher := c.Wrap(next)

	_, err := fetcher.Fetch(ctx, []string{source, "remoteok"})
	require.NoError(t, err)
	list, err := fetcher.Fetch(ctx, []string{"REMOTEOK", source})
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	require.Len(t, list, 1)
}
