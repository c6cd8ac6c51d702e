package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	ModeRemote  = "remote"
	ModeHybrid  = "hybrid"
	ModeOnsite  = "onsite"
	ModeUnknown = "unknown"
)

// Job is a single posting as it flows through the pipeline.
// Only the Location* fields may change after the source boundary.
type Job struct {
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Source      string   `json:"source,omitempty"`

	LocationMode      string `json:"location_mode,omitempty"`
	LocationCountry   string `json:"location_country,omitempty"`
	LocationRegion    string `json:"location_region,omitempty"`
	LocationCity      string `json:"location_city,omitempty"`
	LocationCanonical string `json:"location_canonical,omitempty"`
}

// List is an ordered set of jobs.
type List []*Job

// Key returns the stable deduplication identity of the job: the URL when present,
// otherwise "company::title". A job without URL, company and title has no key.
func (j *Job) Key() string {
	if j == nil {
		return ""
	}
	if url := strings.TrimSpace(j.URL); url != "" {
		return url
	}
	title := strings.TrimSpace(j.Position)
	company := strings.TrimSpace(j.Company)
	if title == "" && company == "" {
		return ""
	}
	return company + "::" + title
}

// Validate trims the record in place and reports whether it is usable downstream.
func (j *Job) Validate() bool {
	if j == nil {
		return false
	}
	j.Position = strings.TrimSpace(j.Position)
	j.Company = strings.TrimSpace(j.Company)
	j.URL = strings.TrimSpace(j.URL)
	j.Location = strings.TrimSpace(j.Location)
	j.Category = strings.TrimSpace(j.Category)
	j.Source = strings.TrimSpace(j.Source)

	tags := make([]string, 0, len(j.Tags))
	seen := make(map[string]struct{}, len(j.Tags))
	for _, tag := range j.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	j.Tags = tags

	return j.Position != "" || j.URL != ""
}

func (l List) Len() int {
	return len(l)
}

// Keys returns the set of non-empty job keys.
func (l List) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(l))
	for _, job := range l {
		if key := job.Key(); key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys
}

// SortedKeys returns the keys of the set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Dedupe drops later jobs sharing a key with an earlier one. Keyless jobs are kept.
func (l List) Dedupe() List {
	out := make(List, 0, len(l))
	seen := make(map[string]struct{}, len(l))
	for _, job := range l {
		key := job.Key()
		if key != "" {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, job)
	}
	return out
}

// ReportByCompany groups short job descriptions by company name.
func (l List) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range l {
		company := job.Company
		if company == "" {
			company = "(unknown)"
		}
		report[company] = append(report[company], map[string]string{
			"position": job.Position,
			"url":      job.URL,
			"location": job.LocationCanonical,
			"source":   job.Source,
		})
	}
	return report
}

func (l List) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return "", fmt.Errorf("encode jobs: %w", err)
	}
	return file.Name(), nil
}
