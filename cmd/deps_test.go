package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
)

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	got, err := resolveAPIKey(&LLMConfig{APIKey: "inline", APIKeyFile: keyFile})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("key file should win, got %q", got)
	}

	got, err = resolveAPIKey(&LLMConfig{APIKey: "inline"})
	if err != nil || got != "inline" {
		t.Fatalf("expected inline key, got %q (%v)", got, err)
	}

	_, err = resolveAPIKey(&LLMConfig{Provider: "gemini"})
	if err == nil || !strings.Contains(err.Error(), "gemini api key") {
		t.Fatalf("expected a gemini api key error, got %v", err)
	}
}

func TestValidateSettingsFromConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("EMAIL_PASS", "")

	config := &Config{
		LLM:  &LLMConfig{APIKey: "key"},
		SMTP: &SMTPConfig{},
	}
	if err := validateSettings(config, true, true); err != nil {
		t.Fatalf("dry run needs no mail settings: %v", err)
	}

	err := validateSettings(config, false, true)
	if err == nil || !strings.Contains(err.Error(), "smtp user and password are required") {
		t.Fatalf("expected smtp error, got %v", err)
	}

	config.SMTP = &SMTPConfig{User: "central@example.com", Password: "secret"}
	err = validateSettings(config, false, true)
	if err == nil || !strings.Contains(err.Error(), "email recipient is not configured") {
		t.Fatalf("expected the smtp user not to count as a recipient, got %v", err)
	}
	if err := validateSettings(config, false, false); err != nil {
		t.Fatalf("user runs take the recipient from the user record: %v", err)
	}

	config.SMTP.To = "me@example.com"
	if err := validateSettings(config, false, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProfileStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	snapshots, sent, closeStore, err := profileStores(&StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "alerts.db")}, "default", zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer closeStore()

	if err := snapshots.Save(ctx, map[string]struct{}{"https://a.example/1": {}}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	loaded, err := snapshots.Load(ctx)
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected one key, got %v (%v)", loaded, err)
	}
	if _, err := sent.RecordSent(ctx, jobs.List{{Position: "Go Developer", Company: "Acme", URL: "https://a.example/1"}}); err != nil {
		t.Fatalf("record sent: %v", err)
	}

	fileDir := filepath.Join(dir, "files")
	snapshots, _, _, err = profileStores(&StorageConfig{Driver: "file", Path: fileDir}, "nurse", zap.NewNop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	if err := snapshots.Save(ctx, map[string]struct{}{"k": {}}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fileDir, "nurse_snapshot.json")); err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}

	if _, _, _, err := profileStores(&StorageConfig{Driver: "mongo"}, "x", zap.NewNop()); err == nil {
		t.Fatalf("expected an error for an unknown driver")
	}
}

func TestSenderFactoryFallsBackToConfiguredRecipient(t *testing.T) {
	t.Setenv("EMAIL_PASS", "")

	factory := senderFactory(&SMTPConfig{User: "me@example.com", Password: "secret", To: "team@example.com"})
	if _, err := factory(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	factory = senderFactory(&SMTPConfig{})
	if _, err := factory("user@example.com"); err == nil {
		t.Fatalf("expected an error without smtp credentials")
	}

	factory = senderFactory(&SMTPConfig{User: "central@example.com", Password: "secret"})
	if _, err := factory(""); err == nil {
		t.Fatalf("expected an error instead of mailing the smtp account")
	}
}
