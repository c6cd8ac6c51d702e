// Package location classifies raw job locations into a work mode and a
// best-effort country/region/city.
package location

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spigell/job-alert/internal/jobs"
)

const (
	descriptionPrefix = 1200
	maxRegionLength   = 24
	maxCountryLength  = 32
)

var (
	countryLike = regexp.MustCompile(`^[A-Za-z .()-]+$`)

	aliasPatterns = compileWordPatterns(func() []string {
		names := make([]string, 0, len(countryAliases))
		for _, entry := range countryAliases {
			names = append(names, entry.alias)
		}
		return names
	}())

	cityPatterns = compileWordPatterns(func() []string {
		names := make([]string, 0, len(cities))
		for _, entry := range cities {
			names = append(names, entry.city)
		}
		return names
	}())
)

// Result is the normalized view of a job location.
type Result struct {
	Mode      string
	Country   string
	Region    string
	City      string
	Canonical string
}

// NormalizeAll enriches every job in place.
func NormalizeAll(list jobs.List) jobs.List {
	for _, job := range list {
		Normalize(job)
	}
	return list
}

// Normalize fills the empty location fields of the job. Fields already set are kept.
func Normalize(job *jobs.Job) {
	if job == nil {
		return
	}
	res := Infer(job.Location, job.Position, job.Description)

	setIfEmpty(&job.LocationMode, res.Mode)
	setIfEmpty(&job.LocationCountry, res.Country)
	setIfEmpty(&job.LocationRegion, res.Region)
	setIfEmpty(&job.LocationCity, res.City)
	setIfEmpty(&job.LocationCanonical, res.Canonical)
}

// Infer computes the location result from raw texts.
func Infer(rawLocation, title, description string) Result {
	rawLocation = strings.TrimSpace(rawLocation)
	if r := []rune(description); len(r) > descriptionPrefix {
		description = string(r[:descriptionPrefix])
	}
	combined := fold(strings.Join([]string{rawLocation, title, description}, " "))

	mode := inferMode(combined)
	country, region, city := inferGeo(rawLocation, combined)

	parts := make([]string, 0, 3)
	for _, part := range []string{city, region, country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	canonical := strings.Join(parts, ", ")
	switch {
	case mode == jobs.ModeRemote && country != "":
		canonical = "Remote (" + country + ")"
	case mode == jobs.ModeRemote && canonical == "":
		canonical = "Remote"
	}
	if canonical == "" {
		canonical = rawLocation
	}

	return Result{
		Mode:      mode,
		Country:   country,
		Region:    region,
		City:      city,
		Canonical: canonical,
	}
}

func inferMode(text string) string {
	switch {
	case containsAny(text, hybridTokens):
		return jobs.ModeHybrid
	case containsAny(text, onsiteTokens):
		return jobs.ModeOnsite
	case containsAny(text, remoteTokens):
		return jobs.ModeRemote
	default:
		return jobs.ModeUnknown
	}
}

func inferGeo(rawLocation, combined string) (country, region, city string) {
	locationLower := fold(rawLocation)

	for i, pattern := range aliasPatterns {
		if pattern.MatchString(combined) {
			country = countryAliases[i].country
			break
		}
	}

	for i, pattern := range cityPatterns {
		if pattern.MatchString(locationLower) {
			entry := cities[i]
			city = titleCase(entry.city)
			if country == "" {
				country = entry.country
			}
			if region == "" {
				region = entry.region
			}
			break
		}
	}

	var parts []string
	for _, part := range strings.Split(rawLocation, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) > 0 && city == "" && len([]rune(parts[0])) > 1 && !looksRemoteOnly(parts[0]) {
		city = parts[0]
	}
	if len(parts) >= 2 && region == "" && len([]rune(parts[1])) <= maxRegionLength {
		if _, isCountry := lookupCountryAlias(strings.ToLower(parts[1])); !isCountry {
			region = parts[1]
		}
	}
	if len(parts) >= 2 && country == "" {
		last := parts[len(parts)-1]
		if alias, ok := lookupCountryAlias(strings.ToLower(last)); ok {
			country = alias
		} else {
			country = titleIfCountryLike(last)
		}
	}

	return country, region, city
}

func looksRemoteOnly(value string) bool {
	return containsAny(strings.ToLower(strings.TrimSpace(value)), remoteOnlyTokens)
}

func titleIfCountryLike(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxCountryLength || !countryLike.MatchString(value) {
		return ""
	}
	return titleCase(value)
}

func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}

// fold lowercases the text and strips diacritics so "Zürich" matches "zurich".
func fold(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(folded)
}

func containsAny(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func compileWordPatterns(names []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(names))
	for _, name := range names {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(name)+`\b`))
	}
	return patterns
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}
