package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
)

const unknownCompanyBucket = "\x00unknown"

type companyCapFilter struct {
	limit    int
	disabled bool
	reason   string
}

// NewCompanyCap creates a filter that keeps at most limit jobs per company. A limit of zero or less disables it.
func NewCompanyCap(limit int) Filter {
	return &companyCapFilter{limit: limit}
}

func (f *companyCapFilter) Name() string { return "company_cap" }

func (f *companyCapFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *companyCapFilter) IsEnabled() bool { return !f.disabled && f.limit > 0 }

func (f *companyCapFilter) Validate() error { return nil }

func (f *companyCapFilter) Apply(_ context.Context, list jobs.List) (jobs.List, Step, error) {
	kept := CapPerCompany(list, f.limit)
	return kept, Step{Initial: list.Len(), Dropped: list.Len() - kept.Len(), Left: kept.Len()}, nil
}

func (f *companyCapFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"max_per_company": strconv.Itoa(f.limit)},
	}
}

// CapPerCompany walks the list in order and keeps a job while its company has fewer than k kept jobs.
// Jobs without a company share one bucket.
func CapPerCompany(list jobs.List, k int) jobs.List {
	if k <= 0 {
		return list
	}

	counts := make(map[string]int)
	kept := make(jobs.List, 0, len(list))
	for _, job := range list {
		company := strings.ToLower(strings.TrimSpace(job.Company))
		if company == "" {
			company = unknownCompanyBucket
		}
		if counts[company] >= k {
			continue
		}
		counts[company]++
		kept = append(kept, job)
	}
	return kept
}
