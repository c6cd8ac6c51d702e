package filtering

import (
	"context"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/matching"
)

type keywordFilter struct {
	keyword  string
	disabled bool
	reason   string
}

// NewKeyword creates a filter that keeps only jobs matching the keyword or one of its aliases.
func NewKeyword(keyword string) Filter {
	return &keywordFilter{keyword: keyword}
}

func (f *keywordFilter) Name() string { return "keyword" }

func (f *keywordFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *keywordFilter) IsEnabled() bool { return !f.disabled }

func (f *keywordFilter) Validate() error { return nil }

func (f *keywordFilter) Apply(_ context.Context, list jobs.List) (jobs.List, Step, error) {
	m := matching.NewMatcher(f.keyword)
	if m.Empty() {
		return list, Step{Initial: list.Len(), Left: list.Len()}, nil
	}

	kept, step := keep(list, m.Matches)
	return kept, step, nil
}

func (f *keywordFilter) Status() Status {
	details := map[string]string{}
	if f.keyword != "" {
		details["keyword"] = f.keyword
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
