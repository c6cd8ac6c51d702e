package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spigell/job-alert/internal/ai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "secret", URL: srv.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGenerateContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "test-model" || req.Temperature != 0.1 || len(req.Messages) != 2 || req.Messages[1].Content != "prompt" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"NONE"}}]}`))
	})

	out, err := c.GenerateContent(context.Background(), "system", "prompt")
	if err != nil || out != "NONE" {
		t.Fatalf("unexpected result %q %v", out, err)
	}
}

func TestGenerateContentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		tooLarge  bool
		errSubstr string
	}{
		{name: "payload too large", status: http.StatusRequestEntityTooLarge, body: "too big", tooLarge: true},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", errSubstr: "status 502"},
		{name: "error field", status: http.StatusOK, body: `{"error":{"message":"model decommissioned"}}`, errSubstr: "model decommissioned"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, errSubstr: "unexpected groq response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GenerateContent(context.Background(), "", "prompt")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.tooLarge != errors.Is(err, ai.ErrPayloadTooLarge) {
				t.Fatalf("unexpected payload-too-large classification: %v", err)
			}
			if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
				t.Fatalf("expected %q in %v", tt.errSubstr, err)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
