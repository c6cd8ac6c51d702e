package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/matching"
	"github.com/spigell/job-alert/internal/scoring"
)

const notSoftwareFocusedMsg = "profile is not software focused"

type IrrelevantTitlesConfig struct {
	Keyword     string
	TargetRoles []string
	Terms       scoring.Terms
}

type irrelevantTitlesFilter struct {
	terms    scoring.Terms
	software bool
	disabled bool
	reason   string
}

// NewIrrelevantTitles creates a filter that drops non-engineering titles for software-focused profiles.
// A title is dropped when it hits a hard-negative term and no positive software term.
func NewIrrelevantTitles(cfg IrrelevantTitlesConfig) Filter {
	return &irrelevantTitlesFilter{
		terms:    cfg.Terms,
		software: scoring.SoftwareFocused(cfg.Keyword, cfg.TargetRoles, cfg.Terms),
	}
}

func (f *irrelevantTitlesFilter) Name() string { return "irrelevant_titles" }

func (f *irrelevantTitlesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *irrelevantTitlesFilter) IsEnabled() bool { return !f.disabled }

func (f *irrelevantTitlesFilter) Validate() error { return nil }

func (f *irrelevantTitlesFilter) Apply(_ context.Context, list jobs.List) (jobs.List, Step, error) {
	if !f.software {
		return list, Step{Initial: list.Len(), Left: list.Len()}, nil
	}

	kept, step := keep(list, func(job *jobs.Job) bool {
		title := strings.ToLower(job.Position)
		return !matching.ContainsAny(title, f.terms.HardNegative) || matching.ContainsAny(title, f.terms.PositiveTitle)
	})
	return kept, step, nil
}

func (f *irrelevantTitlesFilter) Status() Status {
	reason := f.reason
	if reason == "" && !f.software {
		reason = notSoftwareFocusedMsg
	}
	return Status{
		Name:    f.Name(),
		Enabled: !f.disabled,
		Reason:  reason,
		Details: map[string]string{
			"software_focused": strconv.FormatBool(f.software),
			"terms_version":    f.terms.Version,
		},
	}
}

type negativeKeywordsFilter struct {
	keywords []string
	disabled bool
	reason   string
}

// NewNegativeKeywords creates a filter that drops jobs whose title or tags mention a negative keyword.
func NewNegativeKeywords(keywords []string) Filter {
	return &negativeKeywordsFilter{keywords: scoring.NormalizeTerms(keywords)}
}

func (f *negativeKeywordsFilter) Name() string { return "negative_keywords" }

func (f *negativeKeywordsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *negativeKeywordsFilter) IsEnabled() bool { return !f.disabled }

func (f *negativeKeywordsFilter) Validate() error { return nil }

func (f *negativeKeywordsFilter) Apply(_ context.Context, list jobs.List) (jobs.List, Step, error) {
	if len(f.keywords) == 0 {
		return list, Step{Initial: list.Len(), Left: list.Len()}, nil
	}

	kept, step := keep(list, func(job *jobs.Job) bool {
		if matching.ContainsAny(strings.ToLower(job.Position), f.keywords) {
			return false
		}
		for _, tag := range job.Tags {
			if matching.ContainsAny(strings.ToLower(tag), f.keywords) {
				return false
			}
		}
		return true
	})
	return kept, step, nil
}

func (f *negativeKeywordsFilter) Status() Status {
	details := map[string]string{}
	if len(f.keywords) > 0 {
		details["keywords"] = strings.Join(f.keywords, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
