package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/location"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Result is the outcome of fetching one source.
type Result struct {
	Source string
	Jobs   jobs.List
	Status Status
	Err    error
}

// FetchAll fetches the named sources in order. Unknown and unimplemented sources are skipped.
// A failing source never aborts the others. Returned jobs are validated and location-normalized.
func FetchAll(ctx context.Context, fc *FetchContext, names []string) []Result {
	names = NormalizeNames(names)
	results := make([]Result, 0, len(names))

	for _, name := range names {
		source, ok := Lookup(name)
		if !ok {
			fc.logger.Warn("unknown source", zap.String("source", name))
			results = append(results, Result{Source: name, Status: StatusSkipped})
			continue
		}

		fetched, err := source.Fetch(ctx, fc)
		result := Result{Source: name, Status: StatusOK, Err: err}
		switch {
		case errors.Is(err, ErrNotImplemented):
			fc.logger.Info("source not implemented", zap.String("source", name))
			result.Status = StatusSkipped
		case err != nil && len(fetched) == 0:
			fc.logger.Error("fetch failed", zap.String("source", name), zap.Error(err))
			result.Status = StatusError
		case err != nil:
			fc.logger.Warn("partial fetch", zap.String("source", name), zap.Error(err))
		}

		for _, job := range fetched {
			if !job.Validate() {
				continue
			}
			if job.Source == "" {
				job.Source = name
			}
			location.Normalize(job)
			result.Jobs = append(result.Jobs, job)
		}

		fc.logger.Info("source fetched",
			zap.String("source", name),
			zap.String("status", string(result.Status)),
			zap.Int("jobs", len(result.Jobs)),
		)
		results = append(results, result)
	}
	return results
}

// Jobs flattens the results keeping source order.
func Jobs(results []Result) jobs.List {
	list := jobs.List{}
	for _, r := range results {
		list = append(list, r.Jobs...)
	}
	return list
}

// Fetcher fetches the named sources with a fresh FetchContext per call.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch never fails on a single source. It returns an error only when every source failed.
func (f *Fetcher) Fetch(ctx context.Context, names []string) (jobs.List, error) {
	results := FetchAll(ctx, NewFetchContext(f.cfg, f.logger), names)

	var errs []error
	for _, r := range results {
		if r.Status != StatusError {
			return Jobs(results), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", r.Source, r.Err))
	}
	if len(errs) == 0 {
		return jobs.List{}, nil
	}
	return nil, errors.Join(errs...)
}

// SetKey identifies a source set regardless of order, case and duplicates.
func SetKey(names []string) string {
	normalized := NormalizeNames(names)
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}
