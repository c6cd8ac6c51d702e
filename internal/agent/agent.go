// Package agent runs the alert pipeline for one user or profile: fetch, filter, rank, dedupe,
// shortlist with the model, reconcile, carry over and notify.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/ai"
	"github.com/spigell/job-alert/internal/digest"
	"github.com/spigell/job-alert/internal/filtering"
	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/logger"
	"github.com/spigell/job-alert/internal/notify"
	"github.com/spigell/job-alert/internal/reconcile"
	"github.com/spigell/job-alert/internal/scoring"
	"github.com/spigell/job-alert/internal/snapshot"
	"github.com/spigell/job-alert/internal/utils"
)

// Fetcher loads raw jobs for a list of source names.
type Fetcher interface {
	Fetch(ctx context.Context, names []string) (jobs.List, error)
}

// Shortlister asks the model to pick jobs from a batch. It returns the raw text and the
// jobs that were actually sent, which may be fewer than the batch.
type Shortlister interface {
	Shortlist(ctx context.Context, in ai.PromptInput, batch jobs.List) (string, jobs.List, error)
}

// Deps are the collaborators of one run. Fetcher is optional when jobs are prefetched and
// Sender is optional for dry runs.
type Deps struct {
	Fetcher     Fetcher
	Shortlister Shortlister
	Sender      notify.Sender
	Snapshots   snapshot.Store
	History     history.Store
	Terms       *scoring.Terms
	Logger      *zap.Logger
}

// Summary holds the counters of a run. It is returned even when no email is sent.
type Summary struct {
	Fetched        int
	KeywordMatched int
	Candidates     int
	SentToModel    int
	NewMatches     int
	Carryover      int
	Emailed        int
	Added          int
	Removed        int
	EmailSent      bool
	SnapshotKeys   []string
	Subject        string
	Body           string
}

type Agent struct {
	deps   Deps
	terms  scoring.Terms
	logger *zap.Logger
}

func New(deps Deps) (*Agent, error) {
	if deps.Shortlister == nil {
		return nil, errors.New("shortlister is required")
	}
	if deps.Snapshots == nil {
		return nil, errors.New("snapshot store is required")
	}
	if deps.History == nil {
		return nil, errors.New("history store is required")
	}

	terms := scoring.DefaultTerms()
	if deps.Terms != nil {
		terms = terms.WithOverrides(*deps.Terms)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Agent{deps: deps, terms: terms, logger: log}, nil
}

// Run executes the pipeline once. Persistence and model errors fail the run; a failed run
// never overwrites the snapshot.
func (a *Agent) Run(ctx context.Context, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	log := logger.WithFields(a.logger, logger.RunFields(opts.User, opts.Profile, opts.RunType)...)

	var summary Summary

	list, err := a.resolveJobs(ctx, opts, log)
	if err != nil {
		return summary, err
	}
	summary.Fetched = len(list)

	chain := filtering.New([]filtering.Filter{
		filtering.NewKeyword(opts.Keyword),
		filtering.NewIrrelevantTitles(filtering.IrrelevantTitlesConfig{
			Keyword:     opts.Keyword,
			TargetRoles: opts.TargetRoles,
			Terms:       a.terms,
		}),
		filtering.NewNegativeKeywords(opts.NegativeKeywords),
	}, log)
	if len(opts.NegativeKeywords) == 0 {
		chain.DisableByName("negative_keywords", "no negative keywords in profile")
	}
	log.Debug("filter chain", zap.Any("filters", chain.Describe()))
	matched, err := chain.Run(ctx, list)
	if err != nil {
		return summary, fmt.Errorf("filtering: %w", err)
	}

	ranked := scoring.Rank(matched, opts.scoringProfile(), a.terms)
	summary.KeywordMatched = len(ranked)

	current := ranked.Keys()
	summary.SnapshotKeys = jobs.SortedKeys(current)

	previous, err := a.deps.Snapshots.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load snapshot: %w", err)
	}
	summary.Added, summary.Removed = snapshot.Diff(previous, current)
	log.Info("snapshot compared",
		zap.Int("keyword_matched", len(ranked)),
		zap.Int("previous", len(previous)),
		zap.Int("added", summary.Added),
		zap.Int("removed", summary.Removed),
	)

	candidates := ranked
	if opts.DedupeEnabled {
		candidates = snapshot.NewSince(ranked, previous)
	}
	summary.Candidates = len(candidates)

	batch, err := filtering.New([]filtering.Filter{filtering.NewCompanyCap(opts.MaxPerCompany)}, log).Run(ctx, candidates)
	if err != nil {
		return summary, fmt.Errorf("company cap: %w", err)
	}
	if len(batch) > opts.LLMInputLimit {
		batch = batch[:opts.LLMInputLimit]
	}

	var result reconcile.Result
	excluded := make(map[string]struct{})
	if len(batch) > 0 {
		raw, sent, err := a.deps.Shortlister.Shortlist(ctx, promptInput(opts), batch)
		if err != nil {
			return summary, fmt.Errorf("shortlist: %w", err)
		}
		summary.SentToModel = len(sent)
		for key := range sent.Keys() {
			excluded[key] = struct{}{}
		}

		cleaned := reconcile.Clean(raw, opts.MaxBullets)
		result = reconcile.Reconcile(cleaned, sent)
		if result.Fallback {
			log.Warn("model urls did not match any candidate, using raw bullets",
				zap.Int("parsed", len(result.Jobs)),
				zap.String("output_preview", utils.TruncateForLog(cleaned, 200)),
			)
		}
		for key := range result.Jobs.Keys() {
			excluded[key] = struct{}{}
		}
	} else {
		log.Info("no candidates for the model")
	}
	summary.NewMatches = result.Count()

	sentKeys, err := a.deps.History.LoadSentKeys(ctx, opts.CarryoverDays)
	if err != nil {
		return summary, fmt.Errorf("load sent history: %w", err)
	}
	carry := history.Carryover(ranked, excluded, sentKeys, opts.CarryoverCap)
	summary.Carryover = len(carry)

	if summary.NewMatches == 0 && summary.Carryover == 0 {
		log.Info("nothing to email")
		return summary, a.saveSnapshot(ctx, current)
	}

	newLines := digest.Lines(result.Jobs, opts.GroupThreshold)
	if result.Fallback {
		newLines = strings.Split(result.Body, "\n")
	}
	var sections []string
	if summary.NewMatches > 0 {
		sections = append(sections, digest.Section(digest.NewMatchesHeading, newLines))
	}
	if summary.Carryover > 0 {
		sections = append(sections, digest.Section(digest.StillOpenHeading, digest.Lines(carry, opts.GroupThreshold)))
	}
	summary.Subject = digest.Subject(opts.Keyword, summary.NewMatches, summary.Carryover)
	summary.Body = digest.Body(sections...)
	summary.Emailed = summary.NewMatches + summary.Carryover

	if opts.DryRun {
		log.Info("dry run, email not sent",
			zap.String("subject", summary.Subject),
			zap.String("body", summary.Body),
		)
		return summary, a.saveSnapshot(ctx, current)
	}

	if a.deps.Sender == nil {
		return summary, errors.New("email sender is not configured")
	}
	err = a.deps.Sender.Send(ctx, notify.Message{Subject: summary.Subject, Body: summary.Body})
	switch {
	case errors.Is(err, notify.ErrSkipped):
		log.Info("email skipped")
		summary.Emailed = 0
		return summary, a.saveSnapshot(ctx, current)
	case err != nil:
		return summary, fmt.Errorf("send email: %w", err)
	}
	summary.EmailSent = true
	log.Info("email sent",
		zap.String("subject", summary.Subject),
		zap.Int("new", summary.NewMatches),
		zap.Int("carryover", summary.Carryover),
	)

	recorded, err := a.deps.History.RecordSent(ctx, append(append(jobs.List{}, result.Jobs...), carry...))
	if err != nil {
		return summary, fmt.Errorf("record sent jobs: %w", err)
	}
	log.Debug("recorded sent jobs", zap.Int("count", recorded))

	return summary, a.saveSnapshot(ctx, current)
}

func (a *Agent) resolveJobs(ctx context.Context, opts Options, log *zap.Logger) (jobs.List, error) {
	if opts.UsePrefetched {
		log.Info("using prefetched jobs", zap.Int("count", len(opts.Prefetched)))
		return opts.Prefetched, nil
	}
	if a.deps.Fetcher == nil {
		return nil, errors.New("no fetcher configured and no prefetched jobs")
	}

	list, err := a.deps.Fetcher.Fetch(ctx, opts.Sources)
	if err != nil {
		log.Error("every source failed, continuing with no jobs", zap.Error(err))
		return jobs.List{}, nil
	}
	log.Info("fetched jobs", zap.Strings("sources", opts.Sources), zap.Int("count", len(list)))
	return list, nil
}

func (a *Agent) saveSnapshot(ctx context.Context, keys map[string]struct{}) error {
	if err := a.deps.Snapshots.Save(ctx, keys); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func promptInput(opts Options) ai.PromptInput {
	return ai.PromptInput{
		Keyword:          opts.Keyword,
		RemoteOnly:       opts.RemoteOnly,
		StrictSeniorOnly: opts.StrictSeniorOnly,
		ExperienceLevel:  opts.ExperienceLevel,
		TargetRoles:      opts.TargetRoles,
		TechStack:        opts.TechStack,
		AlertFrequency:   opts.AlertFrequency,
		PrimaryGoal:      opts.PrimaryGoal,
		MaxBullets:       opts.MaxBullets,
	}
}
