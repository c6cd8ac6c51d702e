package matching

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spigell/job-alert/internal/jobs"
)

func TestChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyword string
		expect  []string
	}{
		{name: "single", keyword: " Developer ", expect: []string{"developer"}},
		{name: "comma separated", keyword: "Go, python ,go", expect: []string{"go", "python"}},
		{name: "only commas", keyword: ",", expect: []string{","}},
		{name: "blank", keyword: "   ", expect: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Chunks(tt.keyword); !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestAliases(t *testing.T) {
	got := Aliases("platform developer")
	expect := []string{
		"platform developer",
		"platform engineer",
		"software platform engineer",
		"platform software engineer",
	}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected %v, got %v", expect, got)
	}

	developer := Aliases("developer")
	if len(developer) != 1+len(developerAliases) {
		t.Fatalf("unexpected developer aliases %v", developer)
	}
}

func TestFallbackTokens(t *testing.T) {
	if got := FallbackTokens("golang"); got != nil {
		t.Fatalf("expected no fallback for a single token, got %v", got)
	}
	if got := FallbackTokens("go dev"); got != nil {
		t.Fatalf("expected no fallback for short tokens, got %v", got)
	}
	got := FallbackTokens("salesforce developer salesforce apex")
	expect := []string{"salesforce", "developer", "apex"}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected %v, got %v", expect, got)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyword string
		job     *jobs.Job
		expect  bool
	}{
		{
			name:    "developer matches software engineer",
			keyword: "developer",
			job:     &jobs.Job{Position: "Senior Software Engineer", Company: "Acme"},
			expect:  true,
		},
		{
			name:    "suffix alias",
			keyword: "platform developer",
			job:     &jobs.Job{Position: "Platform Engineer"},
			expect:  true,
		},
		{
			name:    "token fallback rescues malformed keyword",
			keyword: "salesforce developer salesforce apex",
			job:     &jobs.Job{Position: "Apex Developer", Tags: []string{"salesforce"}},
			expect:  true,
		},
		{
			name:    "token fallback needs every token",
			keyword: "salesforce developer salesforce apex",
			job:     &jobs.Job{Position: "Apex Developer"},
			expect:  false,
		},
		{
			name:    "single keyword is not broadened",
			keyword: "golang",
			job:     &jobs.Job{Position: "Rust Engineer", Description: "we use go"},
			expect:  false,
		},
		{
			name:    "comma keywords are or-ed",
			keyword: "rust, golang",
			job:     &jobs.Job{Position: "Backend", Category: "Golang"},
			expect:  true,
		},
		{
			name:    "description beyond prefix is ignored",
			keyword: "kotlin",
			job:     &jobs.Job{Position: "Engineer", Description: strings.Repeat("x", 800) + " kotlin"},
			expect:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Match(jobs.List{tt.job}, tt.keyword)
			if (len(got) == 1) != tt.expect {
				t.Fatalf("expected match=%v, got %d jobs", tt.expect, len(got))
			}
		})
	}
}

func TestMatchPreservesOrderAndBlankKeyword(t *testing.T) {
	list := jobs.List{
		{Position: "Go Engineer", URL: "https://x/1"},
		{Position: "Chef", URL: "https://x/2"},
		{Position: "Software Developer", URL: "https://x/3"},
	}

	got := Match(list, "developer")
	if len(got) != 2 || got[0].URL != "https://x/1" || got[1].URL != "https://x/3" {
		t.Fatalf("unexpected matches %+v", got)
	}

	if all := Match(list, "  "); len(all) != 3 {
		t.Fatalf("expected blank keyword to keep all jobs, got %d", len(all))
	}
}
