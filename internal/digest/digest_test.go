package digest

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/spigell/job-alert/internal/jobs"
)

func TestGroupDedupesAndKeepsFirstSeenOrder(t *testing.T) {
	list := jobs.List{
		{Company: "Globex", Position: "A", URL: "https://g/1"},
		{Company: "Acme", Position: "B", URL: "https://a/1"},
		{Company: "globex ", Position: "C", URL: "https://g/2"},
		{Company: "Globex", Position: "A", URL: "https://g/1"},
	}

	groups := Group(list)
	if len(groups) != 2 || groups[0].Company != "Globex" || groups[1].Company != "Acme" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if len(groups[0].Jobs) != 2 {
		t.Fatalf("expected duplicate key to be dropped, got %d", len(groups[0].Jobs))
	}
}

func TestLinesCollapseLargeCompanies(t *testing.T) {
	var list jobs.List
	titles := []string{"Go Dev", "Go Dev", "SRE", "Data Engineer", "Designer", "PM"}
	for i, title := range titles {
		list = append(list, &jobs.Job{Company: "Acme", Position: title, URL: fmt.Sprintf("https://boards.acme.io/jobs/%d", i)})
	}
	list = append(list, &jobs.Job{Company: "Initech", Position: "Backend", URL: "https://initech.com/1"})

	lines := Lines(list, 4)
	expect := []string{
		"- Acme — 6 openings (Go Dev, SRE, Data Engineer, +2 more) — https://boards.acme.io",
		"- Backend — Initech — https://initech.com/1",
	}
	if !reflect.DeepEqual(lines, expect) {
		t.Fatalf("expected %q, got %q", expect, lines)
	}
}

func TestLinesRoundTripBelowThreshold(t *testing.T) {
	list := jobs.List{
		{Company: "Acme", Position: "One", URL: "https://a/1"},
		{Company: "Acme", Position: "Two", URL: "https://a/2"},
		{Company: "Acme", Position: "Three", URL: "https://a/3"},
		{Company: "Acme", Position: "Four", URL: "https://a/4"},
	}

	var expect []string
	for _, job := range list {
		expect = append(expect, JobLine(job))
	}
	if got := Lines(list, 4); !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected lines to round trip, got %q", got)
	}
}

func TestCareersLinkFallsBackToRawURL(t *testing.T) {
	list := jobs.List{{URL: "not a url"}, {URL: "also-bad"}}
	if got := careersLink(list); got != "not a url" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestSubjectAndBody(t *testing.T) {
	if got := Subject("go developer", 0, 3); got != "Go Developer Jobs: 0 New + 3 Still Open" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := Subject("  ", 1, 0); got != "Job Alert: 1 New + 0 Still Open" {
		t.Fatalf("unexpected subject %q", got)
	}

	body := Body(Section(NewMatchesHeading, []string{"- a"}), "", Section(StillOpenHeading, []string{"- b", "- c"}))
	if body != "New matches:\n- a\n\nStill open:\n- b\n- c" {
		t.Fatalf("unexpected body %q", body)
	}
}
