package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewValidates(t *testing.T) {
	noop := func(context.Context) error { return nil }

	if _, err := New(Config{IntervalHours: 0}, noop, nil); err == nil {
		t.Fatalf("expected an error for a zero interval")
	}
	if _, err := New(Config{IntervalHours: 6}, nil, nil); err == nil {
		t.Fatalf("expected an error for a missing job")
	}

	s, err := New(Config{IntervalHours: 6}, noop, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Spec() != "@every 6h" {
		t.Fatalf("unexpected spec %q", s.Spec())
	}

	s, err = New(Config{Spec: "0 7 * * *", IntervalHours: 6}, noop, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Spec() != "0 7 * * *" {
		t.Fatalf("explicit spec should win, got %q", s.Spec())
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, err := New(Config{Spec: "not a cron"}, func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected an error for an invalid spec")
	}
}

func TestRunOnStart(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	done := make(chan struct{}, 1)

	s, err := New(Config{IntervalHours: 24, RunOnStart: true}, func(context.Context) error {
		done <- struct{}{}
		return errors.New("boom")
	}, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run on start")
	}
	s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("scheduled run failed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the failure to be logged")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
