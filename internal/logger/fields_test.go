package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  user  ", Value: "  alice  "},
		StringField{Key: "blank", Value: "   "},
		StringField{Key: "   ", Value: "no key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "user" || fields[0].String != "alice" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}
	if len(StringFields()) != 0 {
		t.Fatalf("expected no fields")
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("source", "remoteok")).Info("fetched jobs")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["source"]; got != "remoteok" {
		t.Fatalf("expected source field, got %v", got)
	}

	fallback := WithFields(nil, zap.String("k", "v"))
	if fallback == nil {
		t.Fatalf("expected a no-op logger for nil input")
	}
	fallback.Info("does not panic")
}

func TestCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), " groq ", "llama-3.1-8b-instant").Info("model call")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "groq" || ctx[FieldModel] != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
	if len(CommonFields("", "")) != 0 {
		t.Fatalf("expected empty values to be dropped")
	}
}

func TestRunFields(t *testing.T) {
	fields := RunFields("alice", " ", "scheduled")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldUser || fields[0].String != "alice" {
		t.Fatalf("unexpected user field: %+v", fields[0])
	}
	if fields[1].Key != FieldRunType || fields[1].String != "scheduled" {
		t.Fatalf("unexpected run type field: %+v", fields[1])
	}
}
