package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/logger"
	"github.com/spigell/job-alert/internal/runner"
	"github.com/spigell/job-alert/internal/storage"
	"github.com/spigell/job-alert/internal/storage/postgres"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage stored users and run the agent for them",
}

var usersRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent for every active user, or for one user with --user",
	Run: func(cmd *cobra.Command, _ []string) {
		usersRun(cmd)
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored users",
	Run: func(cmd *cobra.Command, _ []string) {
		usersList(cmd)
	},
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create or update a user and its preferences",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		usersAdd(cmd, args[0])
	},
}

var usersSetActiveCmd = &cobra.Command{
	Use:   "set-active <username> <true|false>",
	Short: "Activate or deactivate a user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		usersSetActive(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersRunCmd, usersListCmd, usersAddCmd, usersSetActiveCmd)

	usersRunCmd.Flags().StringP("user", "u", "", "run a single user by username")
	usersRunCmd.Flags().String("run-type", runner.RunTypeManual, "run type recorded in run logs: manual or scheduled")
	usersRunCmd.Flags().Bool("dry-run", false, "log the emails instead of sending them")
	usersRunCmd.Flags().Int("concurrency", 0, "number of users run in parallel (default from runner.concurrency)")

	usersListCmd.Flags().Bool("active", false, "list active users only")

	usersAddCmd.Flags().String("email", "", "recipient address")
	usersAddCmd.Flags().String("timezone", "", "IANA timezone of the user")
	usersAddCmd.Flags().Bool("inactive", false, "create the user as inactive")
	usersAddCmd.Flags().String("keyword", "", "keyword preference")
	usersAddCmd.Flags().Int("llm-input-limit", 0, "llm input limit preference (1-80)")
	usersAddCmd.Flags().Int("max-bullets", 0, "max bullets preference (1-20)")
	usersAddCmd.Flags().String("alert-frequency", "", "alert frequency: daily or weekly")
}

// commandContext returns the logger, config and postgres store shared by the users commands.
func commandContext(cmd *cobra.Command) (context.Context, *zap.Logger, *Config, *postgres.Store) {
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

	store, err := postgres.New(ctx, config.Storage.PostgresURL, logger)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err), zap.String("hint", "set DATABASE_URL or storage.postgres-url"))
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		logger.Fatal("initializing schema", zap.Error(err))
	}
	return ctx, logger, config, store
}

// newRunner wires the runner with the configured llm, sources and mail settings.
// The returned func releases the shared fetch cache.
func newRunner(ctx context.Context, config *Config, store runner.Store, runType string, dryRun bool, concurrency int, log *zap.Logger) (*runner.Runner, func(), error) {
	if err := validateSettings(config, dryRun, false); err != nil {
		return nil, nil, fmt.Errorf("invalid settings: %w", err)
	}

	shortlister, err := newShortlister(ctx, config.LLM, log)
	if err != nil {
		return nil, nil, fmt.Errorf("creating the llm client: %w", err)
	}

	if concurrency <= 0 {
		concurrency = config.Runner.Concurrency
	}

	fetcher, closeFetcher := newFetcher(ctx, config, log)
	r, err := runner.New(runner.Config{
		ProfilesDir: config.ProfilesDir,
		RunType:     runType,
		DryRun:      dryRun,
		Concurrency: concurrency,
		Pipeline:    pipelineOptions(config.Pipeline),
	}, runner.Deps{
		Store:       store,
		Fetcher:     fetcher,
		Shortlister: shortlister,
		NewSender:   senderFactory(config.SMTP),
		Terms:       config.Scoring,
		Logger:      log,
	})
	if err != nil {
		closeFetcher()
		return nil, nil, err
	}
	return r, closeFetcher, nil
}

func usersRun(cmd *cobra.Command) {
	ctx, logger, config, store := commandContext(cmd)
	defer store.Close()

	flags := cmd.Flags()
	username, _ := flags.GetString("user")
	runType, _ := flags.GetString("run-type")
	dryRun, _ := flags.GetBool("dry-run")
	concurrency, _ := flags.GetInt("concurrency")

	runType = strings.ToLower(strings.TrimSpace(runType))
	if runType != runner.RunTypeManual && runType != runner.RunTypeScheduled {
		logger.Fatal("invalid run type", zap.String("run_type", runType))
	}

	r, closeRunner, err := newRunner(ctx, config, store, runType, dryRun, concurrency, logger)
	if err != nil {
		logger.Fatal("creating the runner", zap.Error(err))
	}

	var report runner.Report
	if username != "" {
		result, err := r.RunOne(ctx, username)
		if err != nil {
			closeRunner()
			logger.Fatal("running user", zap.Error(err), zap.String("user", username))
		}
		report.Results = append(report.Results, result)
	} else {
		report, err = r.RunAll(ctx)
		if err != nil {
			closeRunner()
			logger.Fatal("running users", zap.Error(err))
		}
	}
	closeRunner()

	for _, result := range report.Results {
		fields := []zap.Field{
			zap.String("user", result.User),
			zap.String("status", result.Status),
			zap.Int("emailed", result.Summary.Emailed),
		}
		if result.Reason != "" {
			fields = append(fields, zap.String("reason", result.Reason))
		}
		if result.Err != nil {
			fields = append(fields, zap.Error(result.Err))
		}
		logger.Info("user result", fields...)
	}

	if report.Failed() {
		store.Close()
		os.Exit(1)
	}
}

func usersList(cmd *cobra.Command) {
	ctx, logger, _, store := commandContext(cmd)
	defer store.Close()

	activeOnly, _ := cmd.Flags().GetBool("active")
	users, err := store.ListUsers(ctx, activeOnly)
	if err != nil {
		logger.Fatal("listing users", zap.Error(err))
	}

	for _, u := range users {
		fmt.Printf("%d\t%s\t%s\tactive=%t\t%s\n", u.ID, u.Username, u.EmailTo, u.Active, u.Timezone)
	}
}

func usersAdd(cmd *cobra.Command, username string) {
	ctx, logger, _, store := commandContext(cmd)
	defer store.Close()

	flags := cmd.Flags()
	email, _ := flags.GetString("email")
	timezone, _ := flags.GetString("timezone")
	inactive, _ := flags.GetBool("inactive")

	if strings.TrimSpace(email) == "" {
		logger.Fatal("email is required", zap.String("hint", "pass --email"))
	}

	user, err := store.UpsertUser(ctx, storage.User{
		Username: username,
		EmailTo:  email,
		Active:   !inactive,
		Timezone: timezone,
	})
	if err != nil {
		logger.Fatal("saving user", zap.Error(err))
	}

	prefs := storage.Preferences{UserID: user.ID}
	prefs.Keyword, _ = flags.GetString("keyword")
	if flags.Changed("llm-input-limit") {
		v, _ := flags.GetInt("llm-input-limit")
		prefs.LLMInputLimit = &v
	}
	if flags.Changed("max-bullets") {
		v, _ := flags.GetInt("max-bullets")
		prefs.MaxBullets = &v
	}
	prefs.Overrides.Product.AlertFrequency, _ = flags.GetString("alert-frequency")

	if err := store.SetPreferences(ctx, prefs); err != nil {
		logger.Fatal("saving preferences", zap.Error(err))
	}

	logger.Info("user saved", zap.Int64("id", user.ID), zap.String("user", user.Username), zap.Bool("active", user.Active))
}

func usersSetActive(cmd *cobra.Command, username, value string) {
	ctx, logger, _, store := commandContext(cmd)
	defer store.Close()

	active, err := strconv.ParseBool(value)
	if err != nil {
		logger.Fatal("invalid active value", zap.String("value", value), zap.Error(err))
	}
	if err := store.SetActive(ctx, username, active); err != nil {
		logger.Fatal("updating user", zap.Error(err))
	}
	logger.Info("user updated", zap.String("user", username), zap.Bool("active", active))
}
