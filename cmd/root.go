package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-alert/internal/scoring"
)

const (
	app = "job-alert"
)

type Config struct {
	LLM         *LLMConfig      `mapstructure:"llm"`
	SMTP        *SMTPConfig     `mapstructure:"smtp"`
	Sources     *SourcesConfig  `mapstructure:"sources"`
	Pipeline    *PipelineConfig `mapstructure:"pipeline"`
	Storage     *StorageConfig  `mapstructure:"storage"`
	Runner      *RunnerConfig   `mapstructure:"runner"`
	Schedule    *ScheduleConfig `mapstructure:"schedule"`
	Scoring     *scoring.Terms  `mapstructure:"scoring"`
	ProfilesDir string          `mapstructure:"profiles-dir"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	APIURL       string        `mapstructure:"api-url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type SMTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	To           string `mapstructure:"to"`
}

type SourcesConfig struct {
	RemoteOKURL         string        `mapstructure:"remoteok-url"`
	RemotiveURL         string        `mapstructure:"remotive-url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	CompaniesFile       string        `mapstructure:"companies-file"`
	ValidationCacheFile string        `mapstructure:"validation-cache-file"`
}

type PipelineConfig struct {
	MaxPerCompany  int `mapstructure:"max-per-company"`
	GroupThreshold int `mapstructure:"group-threshold"`
	CarryoverDays  int `mapstructure:"carryover-days"`
	CarryoverCap   int `mapstructure:"carryover-cap"`
}

type StorageConfig struct {
	Driver      string        `mapstructure:"driver"`
	Path        string        `mapstructure:"path"`
	PostgresURL string        `mapstructure:"postgres-url"`
	RedisURL    string        `mapstructure:"redis-url"`
	CacheTTL    time.Duration `mapstructure:"cache-ttl"`
}

type RunnerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ScheduleConfig struct {
	EveryHours int    `mapstructure:"every-hours"`
	Cron       string `mapstructure:"cron"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-alert fetches job boards, shortlists matches with a language model and emails a digest",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"smtp.user":            "EMAIL_USER",
	"smtp.to":              "EMAIL_TO",
	"smtp.host":            "SMTP_HOST",
	"smtp.port":            "SMTP_PORT",
	"sources.remoteok-url": "REMOTEOK_API_URL",
	"storage.postgres-url": "DATABASE_URL",
	"storage.redis-url":    "REDIS_URL",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("llm.provider", "groq")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.path", "data/job-alert.db")
	viper.SetDefault("runner.concurrency", 1)
	viper.SetDefault("schedule.every-hours", 24)
	viper.SetDefault("profiles-dir", "config/profiles")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-alert.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("profiles-dir", "", "directory with profile yaml files")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("profiles-dir", rootCmd.PersistentFlags().Lookup("profiles-dir"))
}

func initConfig() {
	// .env is optional, real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	// Every setting has a default or an env binding, so the file itself is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.LLM == nil {
		config.LLM = &LLMConfig{}
	}
	if config.SMTP == nil {
		config.SMTP = &SMTPConfig{}
	}
	if config.Sources == nil {
		config.Sources = &SourcesConfig{}
	}
	if config.Pipeline == nil {
		config.Pipeline = &PipelineConfig{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.Runner == nil {
		config.Runner = &RunnerConfig{}
	}
	if config.Schedule == nil {
		config.Schedule = &ScheduleConfig{}
	}

	return config, nil
}
