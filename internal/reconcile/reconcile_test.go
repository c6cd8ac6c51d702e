package reconcile

import (
	"testing"

	"github.com/spigell/job-alert/internal/jobs"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		max    int
		expect string
	}{
		{
			name:   "none literal",
			input:  "  NONE \n",
			max:    8,
			expect: None,
		},
		{
			name:   "fenced block is dropped",
			input:  "```\n- Go Dev — Acme — https://a/1\n```\nNONE",
			max:    8,
			expect: None,
		},
		{
			name:   "no bullets means none",
			input:  "Here are some jobs I found for you.",
			max:    8,
			expect: None,
		},
		{
			name:   "bullets are normalized and entities unescaped",
			input:  "Intro\n• Go Dev — AT&amp;T — https://a/1\n*Rust Dev — Acme — https://a/2",
			max:    8,
			expect: "- Go Dev — AT&T — https://a/1\n- Rust Dev — Acme — https://a/2",
		},
		{
			name:   "dedupe by url with trailing punctuation",
			input:  "- A — X — https://a/1\n- A again — X — (https://a/1).\n- note\n- note",
			max:    8,
			expect: "- A — X — https://a/1\n- note",
		},
		{
			name:   "max bullets",
			input:  "- a https://a/1\n- b https://a/2\n- c https://a/3",
			max:    2,
			expect: "- a https://a/1\n- b https://a/2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clean(tt.input, tt.max); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestReconcileMatchesPoolByURL(t *testing.T) {
	pool := jobs.List{
		{Position: "Go Dev", Company: "Acme", URL: "https://a/1"},
		{Position: "Rust Dev", Company: "Acme", URL: "https://a/2"},
	}
	cleaned := "- Go Developer — ACME — https://a/1\n- Unknown — Foo — https://elsewhere/9\n- Go Dev again — Acme — https://a/1"

	res := Reconcile(cleaned, pool)
	if res.Fallback || res.Body != "" {
		t.Fatalf("did not expect fallback: %+v", res)
	}
	if len(res.Jobs) != 1 || res.Jobs[0] != pool[0] {
		t.Fatalf("expected the pool job to be returned once, got %+v", res.Jobs)
	}
}

func TestReconcileFallsBackToLineParsing(t *testing.T) {
	pool := jobs.List{{Position: "Go Dev", Company: "Acme", URL: "https://a/1"}}
	cleaned := "- Platform Engineer — Globex — https://globex.io/jobs/7\n- Data Engineer - Initech – https://initech.com/careers/3\n- garbage line"

	res := Reconcile(cleaned, pool)
	if !res.Fallback || res.Body != cleaned {
		t.Fatalf("expected verbatim fallback body, got %+v", res)
	}
	if len(res.Jobs) != 2 {
		t.Fatalf("expected 2 parsed jobs, got %+v", res.Jobs)
	}
	if res.Jobs[1].Position != "Data Engineer" || res.Jobs[1].Company != "Initech" || res.Jobs[1].URL != "https://initech.com/careers/3" {
		t.Fatalf("unexpected parsed job %+v", res.Jobs[1])
	}
}

func TestReconcileNoneAndUnparsable(t *testing.T) {
	pool := jobs.List{{URL: "https://a/1"}}
	if res := Reconcile(None, pool); len(res.Jobs) != 0 || res.Fallback {
		t.Fatalf("expected no jobs for NONE, got %+v", res)
	}
	res := Reconcile(Clean("- just words", 8), pool)
	if len(res.Jobs) != 0 {
		t.Fatalf("expected unparsable output to degrade to zero jobs, got %+v", res.Jobs)
	}
	if res.Count() != 1 || res.Body != "- just words" {
		t.Fatalf("expected the unparsable bullet to be kept verbatim, got %+v", res)
	}
}

func TestResultCount(t *testing.T) {
	pool := jobs.List{{Position: "Go Dev", Company: "Acme", URL: "https://a/1"}}
	if n := Reconcile("- Go Dev — Acme — https://a/1", pool).Count(); n != 1 {
		t.Fatalf("expected one matched job, got %d", n)
	}
	if n := Reconcile("- Go Dev at Globex\n- Rust Dev at Initech", pool).Count(); n != 2 {
		t.Fatalf("expected both fallback lines to count, got %d", n)
	}
	if n := Reconcile(None, pool).Count(); n != 0 {
		t.Fatalf("expected NONE to count zero, got %d", n)
	}
}
