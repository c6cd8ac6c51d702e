package agent

import (
	"errors"
	"strings"

	"github.com/spigell/job-alert/internal/digest"
	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/profile"
	"github.com/spigell/job-alert/internal/scoring"
)

const (
	DefaultMaxPerCompany = 3

	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Options configure a single run. They are built fresh for every user or profile.
type Options struct {
	Profile string
	User    string
	RunType string

	Keyword          string
	Sources          []string
	RemoteOnly       bool
	StrictSeniorOnly bool
	LLMInputLimit    int
	MaxBullets       int

	ExperienceLevel  string
	TargetRoles      []string
	TechStack        []string
	NegativeKeywords []string
	AlertFrequency   string
	PrimaryGoal      string

	DryRun        bool
	DedupeEnabled bool

	// MaxPerCompany of zero uses the default, a negative value disables the cap.
	MaxPerCompany  int
	GroupThreshold int
	CarryoverDays  int
	CarryoverCap   int

	// Prefetched replaces the source fetch when UsePrefetched is set. An empty list is a
	// fetch that found nothing.
	Prefetched    jobs.List
	UsePrefetched bool
}

// FromProfile converts a resolved profile into run options with dedupe enabled.
func FromProfile(cfg profile.Config) Options {
	return Options{
		Profile:          cfg.Name,
		Keyword:          cfg.Keyword,
		Sources:          cfg.Sources,
		RemoteOnly:       cfg.RemoteOnly,
		StrictSeniorOnly: cfg.StrictSeniorOnly,
		LLMInputLimit:    cfg.LLMInputLimit,
		MaxBullets:       cfg.MaxBullets,
		ExperienceLevel:  cfg.ExperienceLevel,
		TargetRoles:      cfg.TargetRoles,
		TechStack:        cfg.TechStack,
		NegativeKeywords: cfg.NegativeKeywords,
		AlertFrequency:   cfg.AlertFrequency,
		PrimaryGoal:      cfg.PrimaryGoal,
		DedupeEnabled:    true,
	}
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Keyword) == "" {
		o.Keyword = profile.DefaultKeyword
	}
	if o.LLMInputLimit <= 0 {
		o.LLMInputLimit = profile.DefaultLLMInputLimit
	}
	if o.MaxBullets <= 0 {
		o.MaxBullets = profile.DefaultMaxBullets
	}
	if o.MaxPerCompany == 0 {
		o.MaxPerCompany = DefaultMaxPerCompany
	}
	if o.GroupThreshold <= 0 {
		o.GroupThreshold = digest.DefaultGroupThreshold
	}
	if o.CarryoverDays <= 0 {
		o.CarryoverDays = history.DefaultWindowDays
	}
	if o.CarryoverCap <= 0 {
		o.CarryoverCap = history.DefaultCap
	}
	return o
}

func (o Options) scoringProfile() scoring.Profile {
	return scoring.Profile{
		Keyword:          o.Keyword,
		TargetRoles:      o.TargetRoles,
		TechStack:        o.TechStack,
		ExperienceLevel:  o.ExperienceLevel,
		NegativeKeywords: o.NegativeKeywords,
		StrictSeniorOnly: o.StrictSeniorOnly,
	}
}

// Settings are the credentials a run needs before anything is fetched.
type Settings struct {
	Provider     string
	APIKey       string
	SMTPUser     string
	SMTPPassword string
	Recipient    string
}

// ValidateSettings reports missing credentials. Mail settings are not required for dry runs and
// the recipient is only checked when requireRecipient is set.
func ValidateSettings(s Settings, dryRun, requireRecipient bool) error {
	var errs []error

	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	switch provider {
	case "", ProviderGroq, ProviderGemini:
	default:
		errs = append(errs, errors.New("unsupported llm provider: "+s.Provider))
	}
	if strings.TrimSpace(s.APIKey) == "" {
		if provider == "" {
			provider = ProviderGroq
		}
		errs = append(errs, errors.New(provider+" api key is not configured"))
	}

	if !dryRun {
		if strings.TrimSpace(s.SMTPUser) == "" || strings.TrimSpace(s.SMTPPassword) == "" {
			errs = append(errs, errors.New("smtp user and password are required"))
		}
		if requireRecipient && strings.TrimSpace(s.Recipient) == "" {
			errs = append(errs, errors.New("email recipient is not configured"))
		}
	}
	return errors.Join(errs...)
}
