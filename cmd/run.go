package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/agent"
	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/logger"
	"github.com/spigell/job-alert/internal/notify"
	"github.com/spigell/job-alert/internal/profile"
	"github.com/spigell/job-alert/internal/runner"
	"github.com/spigell/job-alert/internal/snapshot"
	"github.com/spigell/job-alert/internal/sources"
	"github.com/spigell/job-alert/internal/storage/sqlite"
)

const (
	PromptSend            = "Send"
	PromptSkip            = "Skip"
	PromptShowMessage     = "Show message"
	PromptReportByCompany = "Report by companies"
	PromptJobsToFile      = "Dump fetched jobs to file"

	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the alert pipeline for a single profile",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("profile", "p", profile.DefaultName, "profile name, read from <profiles-dir>/<name>.yml")
	runCmd.Flags().StringP("keyword", "k", "", "override the profile keyword")
	runCmd.Flags().StringSliceP("sources", "s", nil, "override the profile sources")
	runCmd.Flags().Bool("dry-run", false, "log the email instead of sending it")
	runCmd.Flags().Bool("no-dedupe", false, "send every match, not only the ones new since the last run")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before sending")
}

func run(cmd *cobra.Command) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-alert", zap.String("version", version))

	flags := cmd.Flags()
	name, _ := flags.GetString("profile")
	dryRun, _ := flags.GetBool("dry-run")
	noDedupe, _ := flags.GetBool("no-dedupe")
	autoApprove, _ := flags.GetBool("yes")

	cfg, err := profile.Load(config.ProfilesDir, name)
	if err != nil {
		logger.Fatal("loading profile", zap.Error(err), zap.String("profile", name))
	}
	if keyword, _ := flags.GetString("keyword"); strings.TrimSpace(keyword) != "" {
		cfg.Keyword = keyword
	}
	if names, _ := flags.GetStringSlice("sources"); len(names) > 0 {
		cfg.Sources = sources.NormalizeNames(names)
	}

	if err := validateSettings(config, dryRun, true); err != nil {
		logger.Fatal("invalid settings", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(cfg, "", "  ")
	logger.Debug(fmt.Sprintf("starting with profile: \n %s", pretty))

	shortlister, err := newShortlister(ctx, config.LLM, logger)
	if err != nil {
		logger.Fatal("creating the llm client", zap.Error(err))
	}

	fetcher, closeFetcher := newFetcher(ctx, config, logger)
	defer closeFetcher()

	fetched, err := fetcher.Fetch(ctx, cfg.Sources)
	if err != nil {
		logger.Error("every source failed, continuing with no jobs", zap.Error(err))
		fetched = jobs.List{}
	}
	logger.Info("fetched jobs", zap.Strings("sources", cfg.Sources), zap.Int("count", fetched.Len()))

	snapshots, sent, closeStore, err := profileStores(config.Storage, cfg.Name, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer closeStore()

	var sender notify.Sender
	if !dryRun {
		sender, err = senderFactory(config.SMTP)("")
		if err != nil {
			logger.Fatal("creating the email sender", zap.Error(err))
		}
		if !autoApprove {
			sender = &confirmSender{next: sender, fetched: fetched, logger: logger}
		}
	}

	a, err := agent.New(agent.Deps{
		Shortlister: shortlister,
		Sender:      sender,
		Snapshots:   snapshots,
		History:     sent,
		Terms:       config.Scoring,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("creating the agent", zap.Error(err))
	}

	opts := agent.FromProfile(cfg)
	pipeline := pipelineOptions(config.Pipeline)
	opts.MaxPerCompany = pipeline.MaxPerCompany
	opts.GroupThreshold = pipeline.GroupThreshold
	opts.CarryoverDays = pipeline.CarryoverDays
	opts.CarryoverCap = pipeline.CarryoverCap
	opts.RunType = runner.RunTypeManual
	opts.DryRun = dryRun
	opts.DedupeEnabled = !noDedupe
	opts.Prefetched = fetched
	opts.UsePrefetched = true

	summary, err := a.Run(ctx, opts)
	if err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}

	logger.Info("run finished",
		zap.String("profile", cfg.Name),
		zap.Int("fetched", summary.Fetched),
		zap.Int("keyword_matched", summary.KeywordMatched),
		zap.Int("sent_to_model", summary.SentToModel),
		zap.Int("new_matches", summary.NewMatches),
		zap.Int("carryover", summary.Carryover),
		zap.Int("emailed", summary.Emailed),
		zap.Bool("email_sent", summary.EmailSent),
	)
}

// profileStores opens the snapshot and sent-history stores of a local profile run.
func profileStores(cfg *StorageConfig, name string, log *zap.Logger) (snapshot.Store, history.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", StorageDriverSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join("data", app+".db")
		}
		db, err := sqlite.Open(path, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return db.Snapshot(name), db.History(name), func() {
			if err := db.Close(); err != nil {
				log.Warn("closing sqlite store", zap.Error(err))
			}
		}, nil
	case StorageDriverFile:
		dir := cfg.Path
		if dir == "" || filepath.Ext(dir) != "" {
			dir = "data"
		}
		log.Warn("file storage keeps sent history in memory, carryover only works within one run")
		return snapshot.NewFileStore(filepath.Join(dir, name+"_snapshot.json")), history.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// confirmSender asks before delivering. Skipping returns notify.ErrSkipped.
type confirmSender struct {
	next    notify.Sender
	fetched jobs.List
	logger  *zap.Logger
}

func (s *confirmSender) Send(ctx context.Context, msg notify.Message) error {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Send %q?", msg.Subject),
		Items: []string{PromptSend, PromptSkip, PromptShowMessage, PromptReportByCompany, PromptJobsToFile},
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("confirmation prompt: %w", err)
		}

		switch action {
		case PromptSend:
			return s.next.Send(ctx, msg)
		case PromptSkip:
			s.logger.Info("exiting", zap.String("reason", "got skip from prompt"))
			return notify.ErrSkipped
		case PromptShowMessage:
			s.logger.Info(msg.Subject + "\n\n" + msg.Body)
		case PromptReportByCompany:
			pretty, _ := json.MarshalIndent(s.fetched.ReportByCompany(), "", "  ")
			s.logger.Info(string(pretty), zap.Int("jobs count", s.fetched.Len()))
		case PromptJobsToFile:
			filename, err := s.fetched.DumpToTmpFile()
			if err != nil {
				return fmt.Errorf("dump jobs to file: %w", err)
			}
			s.logger.Info("dumping fetched jobs to file", zap.String("filename", filename))
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}
