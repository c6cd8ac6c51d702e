// Package profile loads the per-profile alert settings from config/profiles/<name>.yml.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/job-alert/internal/storage"
)

const (
	DefaultDir           = "config/profiles"
	DefaultName          = "default"
	DefaultKeyword       = "developer"
	DefaultLLMInputLimit = 15
	DefaultMaxBullets    = 8
)

var DefaultSources = []string{"remoteok"}

// Config is a resolved profile.
type Config struct {
	Name             string
	Keyword          string
	Sources          []string
	LLMInputLimit    int
	MaxBullets       int
	RemoteOnly       bool
	StrictSeniorOnly bool

	ExperienceLevel  string
	TargetRoles      []string
	TechStack        []string
	NegativeKeywords []string
	AlertFrequency   string
	PrimaryGoal      string
}

type file struct {
	Keyword *string  `yaml:"keyword"`
	Sources []string `yaml:"sources"`
	Limits  struct {
		LLMInputLimit *int `yaml:"llm_input_limit"`
		MaxBullets    *int `yaml:"max_bullets"`
		MaxEmailJobs  *int `yaml:"max_email_jobs"`
	} `yaml:"limits"`
	Filters struct {
		RemoteOnly       *bool `yaml:"remote_only"`
		StrictSeniorOnly *bool `yaml:"strict_senior_only"`
	} `yaml:"filters"`
	Profile struct {
		ExperienceLevel  string   `yaml:"experience_level"`
		TargetRoles      []string `yaml:"target_roles"`
		TechStackTags    []string `yaml:"tech_stack_tags"`
		NegativeKeywords []string `yaml:"negative_keywords"`
	} `yaml:"profile"`
	Product struct {
		AlertFrequency string `yaml:"alert_frequency"`
		PrimaryGoal    string `yaml:"primary_goal"`
	} `yaml:"product"`
}

// Defaults returns the settings used when the profile file is missing.
func Defaults(name string) Config {
	return Config{
		Name:             name,
		Keyword:          DefaultKeyword,
		Sources:          append([]string(nil), DefaultSources...),
		LLMInputLimit:    DefaultLLMInputLimit,
		MaxBullets:       DefaultMaxBullets,
		RemoteOnly:       true,
		StrictSeniorOnly: true,
	}
}

func Path(dir, name string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, name+".yml")
}

// Load reads the named profile. A missing file yields the defaults.
func Load(dir, name string) (Config, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	path := Path(dir, name)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(name), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading profile %s: %w", path, err)
	}

	cfg, err := Parse(name, data)
	if err != nil {
		return Config{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a profile document. The root must be a mapping.
func Parse(name string, data []byte) (Config, error) {
	cfg := Defaults(name)

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cfg, err
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return cfg, errors.New("profile config must be a mapping")
	}

	var f file
	if err := doc.Content[0].Decode(&f); err != nil {
		return cfg, err
	}

	if f.Keyword != nil && strings.TrimSpace(*f.Keyword) != "" {
		cfg.Keyword = strings.TrimSpace(*f.Keyword)
	}
	if sources := trimAll(f.Sources); len(sources) > 0 {
		cfg.Sources = sources
	}
	if f.Limits.LLMInputLimit != nil {
		cfg.LLMInputLimit = max(1, *f.Limits.LLMInputLimit)
	}
	switch {
	case f.Limits.MaxBullets != nil:
		cfg.MaxBullets = max(1, *f.Limits.MaxBullets)
	case f.Limits.MaxEmailJobs != nil:
		cfg.MaxBullets = max(1, *f.Limits.MaxEmailJobs)
	}
	if f.Filters.RemoteOnly != nil {
		cfg.RemoteOnly = *f.Filters.RemoteOnly
	}
	if f.Filters.StrictSeniorOnly != nil {
		cfg.StrictSeniorOnly = *f.Filters.StrictSeniorOnly
	}

	cfg.ExperienceLevel = strings.TrimSpace(f.Profile.ExperienceLevel)
	cfg.TargetRoles = trimAll(f.Profile.TargetRoles)
	cfg.TechStack = trimAll(f.Profile.TechStackTags)
	cfg.NegativeKeywords = trimAll(f.Profile.NegativeKeywords)
	cfg.AlertFrequency = strings.ToLower(strings.TrimSpace(f.Product.AlertFrequency))
	cfg.PrimaryGoal = strings.TrimSpace(f.Product.PrimaryGoal)
	return cfg, nil
}

// Merge applies stored user preferences over the profile. Set preferences win.
// Limits outside the stored bounds are ignored.
func Merge(cfg Config, prefs *storage.Preferences) Config {
	if prefs == nil {
		return cfg
	}
	if kw := strings.TrimSpace(prefs.Keyword); kw != "" {
		cfg.Keyword = kw
	}
	if v, ok := storage.Bounded(prefs.LLMInputLimit, storage.LLMInputLimitMin, storage.LLMInputLimitMax); ok {
		cfg.LLMInputLimit = v
	}
	if v, ok := storage.Bounded(prefs.MaxBullets, storage.MaxBulletsMin, storage.MaxBulletsMax); ok {
		cfg.MaxBullets = v
	}
	if prefs.RemoteOnly != nil {
		cfg.RemoteOnly = *prefs.RemoteOnly
	}
	if prefs.StrictSeniorOnly != nil {
		cfg.StrictSeniorOnly = *prefs.StrictSeniorOnly
	}

	p, product := prefs.Overrides.Profile, prefs.Overrides.Product
	if v := strings.TrimSpace(p.ExperienceLevel); v != "" {
		cfg.ExperienceLevel = v
	}
	if v := trimAll(p.TargetRoles); len(v) > 0 {
		cfg.TargetRoles = v
	}
	if v := trimAll(p.TechStackTags); len(v) > 0 {
		cfg.TechStack = v
	}
	if v := trimAll(p.NegativeKeywords); len(v) > 0 {
		cfg.NegativeKeywords = v
	}
	if v := strings.TrimSpace(product.AlertFrequency); v != "" {
		cfg.AlertFrequency = strings.ToLower(v)
	}
	if v := strings.TrimSpace(product.PrimaryGoal); v != "" {
		cfg.PrimaryGoal = v
	}
	return cfg
}

func trimAll(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
