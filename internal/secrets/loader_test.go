package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOrder(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	t.Setenv("JOB_ALERT_TEST_KEY", "from-env")

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{"file wins", Source{File: keyFile, Env: "JOB_ALERT_TEST_KEY", Value: "inline"}, "from-file"},
		{"env over inline", Source{Env: "JOB_ALERT_TEST_KEY", Value: "inline"}, "from-env"},
		{"inline", Source{Env: "JOB_ALERT_UNSET_KEY", Value: " inline "}, "inline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	if _, err := Load(Source{Name: "groq api key", File: empty}); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected an empty file error, got %v", err)
	}
	if _, err := Load(Source{Name: "groq api key", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected a read error")
	}
	_, err := Load(Source{Name: "groq api key", Env: "JOB_ALERT_UNSET_KEY"})
	if err == nil || !strings.Contains(err.Error(), "set JOB_ALERT_UNSET_KEY") {
		t.Fatalf("expected a hint about the env variable, got %v", err)
	}
}
