package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// onboarding states of a company entry
const (
	stateActive    = "active"
	statePaused    = "paused"
	stateRejected  = "rejected"
	stateCandidate = "candidate"
)

var runtimeKeyFields = []string{
	"board_token", "company_slug", "slug", "subdomain", "source_key", "api_url",
	"json_url", "xml_url", "rss_url", "host", "listing_url", "careers_url", "company",
}

// Entry is one company board configured for an ATS source.
type Entry struct {
	Fields map[string]string
}

// Get returns the trimmed field value.
func (e Entry) Get(field string) string {
	return strings.TrimSpace(e.Fields[field])
}

// First returns the first non-empty field value.
func (e Entry) First(fields ...string) string {
	for _, field := range fields {
		if v := e.Get(field); v != "" {
			return v
		}
	}
	return ""
}

func (e Entry) Company() string {
	return e.First("company", "board_token", "company_slug", "slug")
}

func (e Entry) CompanyOr(fallback string) string {
	if company := e.Get("company"); company != "" {
		return company
	}
	return fallback
}

// RuntimeKey identifies the entry in the validation cache.
func (e Entry) RuntimeKey(source string) string {
	for _, field := range runtimeKeyFields {
		if v := e.Get(field); v != "" {
			return source + ":" + field + ":" + strings.ToLower(v)
		}
	}
	return source + ":company:unknown"
}

// Companies maps a source name to its enabled entries.
type Companies map[string][]Entry

// ValidationCache maps an entry runtime key to its recorded runtime state.
type ValidationCache map[string]string

// LoadCompanies reads the company board file. A missing file yields no entries. Entries marked
// inactive or having a paused or rejected onboarding state are dropped. Candidate entries are
// kept only when the validation cache at cachePath marks them active. No cache path disables
// that check.
func LoadCompanies(path, cachePath string) (Companies, error) {
	companies := Companies{}
	if path == "" {
		return companies, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return companies, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read company source config %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to read company source config %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return companies, nil
	}

	var raw map[string]any
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("company source config must be a mapping: %s", path)
	}
	if err := doc.Content[0].Decode(&raw); err != nil {
		return nil, fmt.Errorf("unable to decode company source config %s: %w", path, err)
	}

	var cache ValidationCache
	if cachePath != "" {
		cache = LoadValidationCache(cachePath)
	}

	for source, value := range raw {
		source = strings.ToLower(strings.TrimSpace(source))
		items, ok := value.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			entry, ok := toEntry(item)
			if !ok || !enabledByRuntime(source, entry, cache) {
				continue
			}
			companies[source] = append(companies[source], entry)
		}
	}
	return companies, nil
}

func toEntry(item any) (Entry, bool) {
	switch v := item.(type) {
	case string:
		return Entry{Fields: map[string]string{"slug": v}}, true
	case map[string]any:
		if active, ok := v["active"].(bool); ok && !active {
			return Entry{}, false
		}
		fields := make(map[string]string, len(v))
		for key, value := range v {
			if value == nil {
				continue
			}
			fields[key] = fmt.Sprint(value)
		}
		return Entry{Fields: fields}, true
	}
	return Entry{}, false
}

func enabledByRuntime(source string, entry Entry, cache ValidationCache) bool {
	switch strings.ToLower(entry.Get("onboarding_state")) {
	case "", stateActive:
		return true
	case statePaused, stateRejected:
		return false
	case stateCandidate:
		if cache == nil {
			return true
		}
		return cache[entry.RuntimeKey(source)] == stateActive
	default:
		return true
	}
}

type validationCacheFile struct {
	Entries map[string]struct {
		RuntimeState string `json:"runtime_state"`
	} `json:"entries"`
}

// LoadValidationCache reads the runtime validation cache. A missing or invalid file is an empty cache.
func LoadValidationCache(path string) ValidationCache {
	cache := ValidationCache{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cache
	}
	var file validationCacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cache
	}
	for key, entry := range file.Entries {
		cache[key] = strings.ToLower(strings.TrimSpace(entry.RuntimeState))
	}
	return cache
}
