// Package runner runs the alert agent for every active user stored in the database.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/agent"
	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/logger"
	"github.com/spigell/job-alert/internal/notify"
	"github.com/spigell/job-alert/internal/profile"
	"github.com/spigell/job-alert/internal/scoring"
	"github.com/spigell/job-alert/internal/snapshot"
	"github.com/spigell/job-alert/internal/sources"
	"github.com/spigell/job-alert/internal/storage"
)

const (
	RunTypeManual    = "manual"
	RunTypeScheduled = "scheduled"
)

// Store is the multi-user persistence the runner needs.
type Store interface {
	ListUsers(ctx context.Context, activeOnly bool) ([]storage.User, error)
	UserByName(ctx context.Context, username string) (storage.User, error)
	Preferences(ctx context.Context, userID int64) (*storage.Preferences, error)
	State(ctx context.Context, userID int64) (*storage.State, error)
	UpsertState(ctx context.Context, u storage.StateUpdate) error
	InsertRunLog(ctx context.Context, l storage.RunLog) error
	Snapshot(userID int64) snapshot.Store
	History(userID int64) history.Store
}

// SenderFactory builds a sender delivering to the given recipient.
type SenderFactory func(to string) (notify.Sender, error)

// Config holds what every user run shares.
type Config struct {
	ProfilesDir string
	RunType     string
	DryRun      bool
	Concurrency int

	// Pipeline carries the pipeline tuning applied to every user.
	Pipeline agent.Options
}

type Deps struct {
	Store       Store
	Fetcher     agent.Fetcher
	Shortlister agent.Shortlister
	NewSender   SenderFactory
	Terms       *scoring.Terms
	Logger      *zap.Logger
}

// Result is the outcome of one user run.
type Result struct {
	User    string
	Status  string
	Err     error
	Reason  string
	Summary agent.Summary
}

// Report collects the results of every user, in user order.
type Report struct {
	Results []Result
}

// Failed reports whether any user run ended in an error.
func (r Report) Failed() bool {
	for _, result := range r.Results {
		if result.Status == storage.StatusError {
			return true
		}
	}
	return false
}

// Count returns how many results have the status.
func (r Report) Count(status string) int {
	n := 0
	for _, result := range r.Results {
		if result.Status == status {
			n++
		}
	}
	return n
}

type Runner struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, deps Deps) (*Runner, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if deps.Shortlister == nil {
		return nil, errors.New("shortlister is required")
	}
	if deps.NewSender == nil && !cfg.DryRun {
		return nil, errors.New("sender factory is required")
	}
	if cfg.RunType == "" {
		cfg.RunType = RunTypeScheduled
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, deps: deps, logger: log, now: time.Now}, nil
}

// RunAll runs every active user. A failing user never stops the others.
func (r *Runner) RunAll(ctx context.Context) (Report, error) {
	users, err := r.deps.Store.ListUsers(ctx, true)
	if err != nil {
		return Report{}, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		r.logger.Info("no active users found, nothing to run")
		return Report{}, nil
	}

	r.logger.Info("running agent for active users",
		zap.Int("users", len(users)),
		zap.Int("concurrency", r.cfg.Concurrency),
		zap.String("run_type", r.cfg.RunType),
	)

	shared := r.sharedFetch(ctx)
	results := make([]Result, len(users))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.Concurrency)
	for i, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, user storage.User) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.runUser(ctx, user, shared)
		}(i, user)
	}
	wg.Wait()

	report := Report{Results: results}
	r.logger.Info("finished user runs",
		zap.Int("success", report.Count(storage.StatusSuccess)),
		zap.Int("skipped", report.Count(storage.StatusSkipped)),
		zap.Int("error", report.Count(storage.StatusError)),
	)
	return report, nil
}

// RunOne runs a single user by name. Inactive users are skipped.
func (r *Runner) RunOne(ctx context.Context, username string) (Result, error) {
	user, err := r.deps.Store.UserByName(ctx, username)
	if err != nil {
		return Result{}, err
	}
	if !user.Active {
		r.logger.Info("user is inactive, skipping", zap.String("user", user.Username))
		return Result{User: user.Username, Status: storage.StatusSkipped, Reason: "inactive"}, nil
	}
	return r.runUser(ctx, user, r.sharedFetch(ctx)), nil
}

// sharedFetch fetches each distinct source set at most once per call site.
func (r *Runner) sharedFetch(ctx context.Context) *sources.Loader[string, jobs.List] {
	return sources.NewLoader(func(key string) (jobs.List, error) {
		list, err := r.deps.Fetcher.Fetch(ctx, strings.Split(key, ","))
		if err != nil {
			return nil, err
		}
		r.logger.Info("loaded shared source cache", zap.String("sources", key), zap.Int("jobs", len(list)))
		return list, nil
	})
}

func (r *Runner) runUser(ctx context.Context, user storage.User, shared *sources.Loader[string, jobs.List]) Result {
	log := logger.WithFields(r.logger, logger.RunFields(user.Username, "", r.cfg.RunType)...)
	result := Result{User: user.Username}

	opts, err := r.options(ctx, user)
	if err != nil {
		return r.fail(ctx, log, user, nil, result, err)
	}

	if skip, reason, err := r.shouldSkip(ctx, user, opts.AlertFrequency); err != nil {
		return r.fail(ctx, log, user, opts.Sources, result, err)
	} else if skip {
		log.Info("skipping scheduled run", zap.String("reason", reason))
		result.Status, result.Reason = storage.StatusSkipped, reason
		r.writeRunLog(ctx, log, storage.RunLog{
			UserID:  user.ID,
			RunType: r.cfg.RunType,
			Status:  storage.StatusSkipped,
			Sources: opts.Sources,
			Error:   reason,
		})
		return result
	}

	list, err := shared.Get(sources.SetKey(opts.Sources))
	if err != nil {
		log.Error("shared fetch failed, continuing with no jobs", zap.Error(err))
		list = jobs.List{}
	}
	opts.Prefetched = list
	opts.UsePrefetched = true

	deps := agent.Deps{
		Shortlister: r.deps.Shortlister,
		Snapshots:   r.deps.Store.Snapshot(user.ID),
		History:     r.deps.Store.History(user.ID),
		Terms:       r.deps.Terms,
		Logger:      r.logger,
	}
	if !opts.DryRun {
		if strings.TrimSpace(user.EmailTo) == "" {
			return r.fail(ctx, log, user, opts.Sources, result, errors.New("email recipient is not configured for the user"))
		}
		sender, err := r.deps.NewSender(user.EmailTo)
		if err != nil {
			return r.fail(ctx, log, user, opts.Sources, result, fmt.Errorf("email sender: %w", err))
		}
		deps.Sender = sender
	}

	a, err := agent.New(deps)
	if err != nil {
		return r.fail(ctx, log, user, opts.Sources, result, err)
	}
	summary, err := a.Run(ctx, opts)
	result.Summary = summary
	if err != nil {
		return r.fail(ctx, log, user, opts.Sources, result, err)
	}

	result.Status = storage.StatusSuccess
	r.writeRunLog(ctx, log, storage.RunLog{
		UserID:         user.ID,
		RunType:        r.cfg.RunType,
		Status:         storage.StatusSuccess,
		Fetched:        &summary.Fetched,
		KeywordMatched: &summary.KeywordMatched,
		Emailed:        &summary.Emailed,
		Sources:        opts.Sources,
	})
	r.writeState(ctx, log, storage.StateUpdate{
		UserID:    user.ID,
		Keys:      summary.SnapshotKeys,
		Status:    storage.StatusSuccess,
		EmailSent: summary.EmailSent,
	})
	log.Info("user run finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("keyword_matched", summary.KeywordMatched),
		zap.Int("emailed", summary.Emailed),
		zap.Bool("email_sent", summary.EmailSent),
	)
	return result
}

func (r *Runner) fail(ctx context.Context, log *zap.Logger, user storage.User, srcs []string, result Result, err error) Result {
	log.Error("user run failed", zap.Error(err))
	result.Status, result.Err = storage.StatusError, err
	r.writeRunLog(ctx, log, storage.RunLog{
		UserID:  user.ID,
		RunType: r.cfg.RunType,
		Status:  storage.StatusError,
		Sources: srcs,
		Error:   err.Error(),
	})
	r.writeState(ctx, log, storage.StateUpdate{
		UserID: user.ID,
		Status: storage.StatusError,
		Error:  err.Error(),
	})
	return result
}

func (r *Runner) writeRunLog(ctx context.Context, log *zap.Logger, l storage.RunLog) {
	if err := r.deps.Store.InsertRunLog(ctx, l); err != nil {
		log.Error("failed to write run log", zap.Error(err))
	}
}

func (r *Runner) writeState(ctx context.Context, log *zap.Logger, u storage.StateUpdate) {
	if err := r.deps.Store.UpsertState(ctx, u); err != nil {
		log.Error("failed to update user state", zap.Error(err))
	}
}

// options merges the profile file of the user with the stored preferences.
func (r *Runner) options(ctx context.Context, user storage.User) (agent.Options, error) {
	cfg, err := profile.Load(r.cfg.ProfilesDir, user.Username)
	if err != nil {
		return agent.Options{}, err
	}
	prefs, err := r.deps.Store.Preferences(ctx, user.ID)
	if err != nil {
		return agent.Options{}, fmt.Errorf("load preferences: %w", err)
	}
	cfg = profile.Merge(cfg, prefs)

	opts := agent.FromProfile(cfg)
	opts.User = user.Username
	opts.RunType = r.cfg.RunType
	opts.DryRun = r.cfg.DryRun
	opts.MaxPerCompany = r.cfg.Pipeline.MaxPerCompany
	opts.GroupThreshold = r.cfg.Pipeline.GroupThreshold
	opts.CarryoverDays = r.cfg.Pipeline.CarryoverDays
	opts.CarryoverCap = r.cfg.Pipeline.CarryoverCap
	return opts, nil
}

// shouldSkip applies the alert frequency to scheduled runs only.
func (r *Runner) shouldSkip(ctx context.Context, user storage.User, frequency string) (bool, string, error) {
	if r.cfg.RunType != RunTypeScheduled {
		return false, "", nil
	}
	interval, ok := MinInterval(frequency)
	if !ok {
		return false, "", nil
	}

	state, err := r.deps.Store.State(ctx, user.ID)
	if err != nil {
		return false, "", fmt.Errorf("load user state: %w", err)
	}
	if state == nil || state.LastRunAt == nil {
		return false, "", nil
	}

	next := state.LastRunAt.UTC().Add(interval)
	if r.now().UTC().Before(next) {
		return true, fmt.Sprintf("next due at %s (alert_frequency=%s)", next.Format(time.RFC3339), frequency), nil
	}
	return false, "", nil
}

// MinInterval maps an alert frequency to the minimum time between scheduled runs.
func MinInterval(frequency string) (time.Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "weekly":
		return 7 * 24 * time.Hour, true
	case "daily":
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}
