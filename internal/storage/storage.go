// Package storage holds the records persisted for multi-user runs.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	LLMInputLimitMin = 1
	LLMInputLimitMax = 80
	MaxBulletsMin    = 1
	MaxBulletsMax    = 20
)

// run statuses written to run logs and user state
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

var ErrNotFound = errors.New("not found")

type User struct {
	ID       int64
	Username string
	EmailTo  string
	Active   bool
	Timezone string
}

// Preferences are the per-user settings stored next to the profile file. Nil fields are unset.
type Preferences struct {
	UserID           int64
	Keyword          string
	LLMInputLimit    *int
	MaxBullets       *int
	RemoteOnly       *bool
	StrictSeniorOnly *bool
	Overrides        Overrides
}

// Overrides is the JSON document of free-form profile signals.
type Overrides struct {
	Profile ProfileSignals `json:"profile,omitempty"`
	Product ProductSignals `json:"product,omitempty"`
}

type ProfileSignals struct {
	ExperienceLevel  string   `json:"experience_level,omitempty"`
	TargetRoles      []string `json:"target_roles,omitempty"`
	TechStackTags    []string `json:"tech_stack_tags,omitempty"`
	NegativeKeywords []string `json:"negative_keywords,omitempty"`
}

type ProductSignals struct {
	AlertFrequency string `json:"alert_frequency,omitempty"`
	PrimaryGoal    string `json:"primary_goal,omitempty"`
}

// Validate rejects limits outside the stored bounds.
func (p Preferences) Validate() error {
	if err := checkBounds("llm_input_limit", p.LLMInputLimit, LLMInputLimitMin, LLMInputLimitMax); err != nil {
		return err
	}
	return checkBounds("max_bullets", p.MaxBullets, MaxBulletsMin, MaxBulletsMax)
}

func checkBounds(field string, value *int, min, max int) error {
	if value == nil {
		return nil
	}
	if *value < min || *value > max {
		return fmt.Errorf("%s must be between %d and %d", field, min, max)
	}
	return nil
}

// Bounded returns the value when it is set and within bounds.
func Bounded(value *int, min, max int) (int, bool) {
	if value == nil || *value < min || *value > max {
		return 0, false
	}
	return *value, true
}

type State struct {
	UserID          int64
	CurrentKeys     []string
	LastRunAt       *time.Time
	LastEmailSentAt *time.Time
	LastStatus      string
	LastError       string
}

// StateUpdate is written after every user run. Nil Keys keep the stored keys.
type StateUpdate struct {
	UserID    int64
	Keys      []string
	Status    string
	Error     string
	EmailSent bool
}

type RunLog struct {
	UserID         int64
	RunType        string
	Status         string
	Fetched        *int
	KeywordMatched *int
	Emailed        *int
	Sources        []string
	Error          string
}

// NullString maps blank strings to nil.
func NullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
