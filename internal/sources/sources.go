// Package sources fetches job postings from the fixed registry of job boards and ATS APIs.
package sources

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
)

type AccessMode string

const (
	AccessOfficialAPI AccessMode = "official_api"
	AccessPublicHTML  AccessMode = "public_html"
	AccessEmail       AccessMode = "email"
	AccessCustom      AccessMode = "custom"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DefaultSource is used when a profile names no sources.
const DefaultSource = "remoteok"

// ErrNotImplemented is returned by registered sources that have no connector yet.
var ErrNotImplemented = errors.New("not implemented")

// Meta describes a registered source.
type Meta struct {
	Name                  string     `json:"name" yaml:"name"`
	AccessMode            AccessMode `json:"access_mode" yaml:"access_mode"`
	RiskLevel             RiskLevel  `json:"risk_level" yaml:"risk_level"`
	RequiresCompanyConfig bool       `json:"requires_company_config" yaml:"requires_company_config"`
	EnabledByDefault      bool       `json:"enabled_by_default" yaml:"enabled_by_default"`
}

// Source fetches raw jobs. Validation and location normalization happen in FetchAll.
type Source interface {
	Meta() Meta
	Fetch(ctx context.Context, fc *FetchContext) (jobs.List, error)
}

var registry = []Source{
	remoteOK{},
	remotive{},
	boards(Meta{Name: "greenhouse", AccessMode: AccessOfficialAPI, RiskLevel: RiskLow}, fetchGreenhouse),
	boards(Meta{Name: "lever", AccessMode: AccessOfficialAPI, RiskLevel: RiskLow}, fetchLever),
	boards(Meta{Name: "workday", AccessMode: AccessCustom, RiskLevel: RiskMedium}, nil),
	boards(Meta{Name: "ashby", AccessMode: AccessPublicHTML, RiskLevel: RiskMedium}, nil),
	boards(Meta{Name: "smartrecruiters", AccessMode: AccessOfficialAPI, RiskLevel: RiskLow}, fetchSmartRecruiters),
	boards(Meta{Name: "bamboohr", AccessMode: AccessPublicHTML, RiskLevel: RiskMedium}, nil),
	boards(Meta{Name: "jobvite", AccessMode: AccessPublicHTML, RiskLevel: RiskMedium}, nil),
	boards(Meta{Name: "icims", AccessMode: AccessPublicHTML, RiskLevel: RiskHigh}, nil),
	boards(Meta{Name: "personio", AccessMode: AccessPublicHTML, RiskLevel: RiskMedium}, nil),
	boards(Meta{Name: "recruitee", AccessMode: AccessPublicHTML, RiskLevel: RiskMedium}, fetchRecruitee),
	boards(Meta{Name: "custom_careers", AccessMode: AccessCustom, RiskLevel: RiskMedium}, nil),
}

// Registry returns the metadata of every registered source in registration order.
func Registry() []Meta {
	metas := make([]Meta, 0, len(registry))
	for _, source := range registry {
		metas = append(metas, source.Meta())
	}
	return metas
}

// Lookup finds a source by its case-insensitive name.
func Lookup(name string) (Source, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, source := range registry {
		if source.Meta().Name == name {
			return source, true
		}
	}
	return nil, false
}

// NormalizeNames lowercases, trims and deduplicates names. An empty result becomes the default source.
func NormalizeNames(names []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return []string{DefaultSource}
	}
	return out
}
