package history

import (
	"context"
	"testing"
	"time"

	"github.com/spigell/job-alert/internal/jobs"
)

func keys(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func TestCarryoverExcludesBatchAndNewMatches(t *testing.T) {
	pool := jobs.List{
		{URL: "https://x/1"},
		{URL: "https://x/2"},
		{URL: "https://x/3"},
		{URL: "https://x/3"},
		{URL: "https://x/4"},
	}
	sent := keys("https://x/1", "https://x/2", "https://x/3", "https://x/4")
	excluded := keys("https://x/2")

	got := Carryover(pool, excluded, sent, 10)
	if len(got) != 3 || got[0].URL != "https://x/1" || got[1].URL != "https://x/3" || got[2].URL != "https://x/4" {
		t.Fatalf("unexpected carryover %+v", got)
	}

	if capped := Carryover(pool, excluded, sent, 2); len(capped) != 2 {
		t.Fatalf("expected cap to apply, got %d", len(capped))
	}
	if none := Carryover(pool, nil, nil, 10); len(none) != 0 {
		t.Fatalf("expected no carryover without history")
	}
}

func TestCutoffClampsToOneDay(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	if got := Cutoff(now, 0); !got.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", got)
	}
	if got := Cutoff(now, 14); !got.Equal(now.AddDate(0, 0, -14)) {
		t.Fatalf("unexpected cutoff %v", got)
	}
}

func TestMemoryStoreUpsertKeepsFirstSent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	written, err := store.RecordSent(ctx, jobs.List{
		{URL: "https://x/1", Position: "Go Dev", Company: "Acme", Source: "lever:acme"},
		{},
	})
	if err != nil || written != 1 {
		t.Fatalf("expected one record, got %d %v", written, err)
	}

	later := start.Add(20 * 24 * time.Hour)
	store.now = func() time.Time { return later }

	sent, _ := store.LoadSentKeys(ctx, 14)
	if len(sent) != 0 {
		t.Fatalf("expected record to fall outside window, got %v", sent)
	}

	if _, err := store.RecordSent(ctx, jobs.List{{URL: "https://x/1", Position: "Go Developer"}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	records := store.Records()
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if !records[0].FirstSentAt.Equal(start) || !records[0].LastSeenAt.Equal(later) || records[0].Title != "Go Developer" {
		t.Fatalf("unexpected record %+v", records[0])
	}

	sent, _ = store.LoadSentKeys(ctx, 14)
	if _, ok := sent["https://x/1"]; !ok {
		t.Fatalf("expected refreshed record to be within window")
	}
}
