// Package digest renders job lists into email sections.
package digest

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spigell/job-alert/internal/jobs"
)

const (
	DefaultGroupThreshold = 4
	maxGroupTitles        = 3

	NewMatchesHeading = "New matches"
	StillOpenHeading  = "Still open"
)

// CompanyGroup is the jobs of one company in first-seen order.
type CompanyGroup struct {
	Company string
	Jobs    jobs.List
}

// Group deduplicates the list by key and groups it by lowercased company, keeping first-seen order.
func Group(list jobs.List) []CompanyGroup {
	var groups []CompanyGroup
	index := make(map[string]int)
	for _, job := range list.Dedupe() {
		name := strings.ToLower(strings.TrimSpace(job.Company))
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, CompanyGroup{Company: strings.TrimSpace(job.Company)})
		}
		groups[i].Jobs = append(groups[i].Jobs, job)
	}
	return groups
}

// Lines renders one bullet per job, collapsing companies with more than threshold jobs into one line.
func Lines(list jobs.List, threshold int) []string {
	if threshold <= 0 {
		threshold = DefaultGroupThreshold
	}

	var lines []string
	for _, group := range Group(list) {
		if len(group.Jobs) > threshold {
			lines = append(lines, groupLine(group))
			continue
		}
		for _, job := range group.Jobs {
			lines = append(lines, JobLine(job))
		}
	}
	return lines
}

// JobLine renders "- Title — Company — URL".
func JobLine(job *jobs.Job) string {
	return fmt.Sprintf("- %s — %s — %s", job.Position, job.Company, job.URL)
}

func groupLine(group CompanyGroup) string {
	var titles []string
	seen := make(map[string]struct{})
	for _, job := range group.Jobs {
		title := strings.TrimSpace(job.Position)
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}

	shown := titles
	if len(shown) > maxGroupTitles {
		shown = shown[:maxGroupTitles]
	}
	summary := strings.Join(shown, ", ")
	if extra := len(titles) - len(shown); extra > 0 {
		summary += fmt.Sprintf(", +%d more", extra)
	}

	company := group.Company
	if company == "" {
		company = "(unknown)"
	}
	return fmt.Sprintf("- %s — %d openings (%s) — %s", company, len(group.Jobs), summary, careersLink(group.Jobs))
}

// careersLink prefers scheme://host of the first parseable job URL, else the first URL.
func careersLink(list jobs.List) string {
	for _, job := range list {
		u, err := url.Parse(strings.TrimSpace(job.URL))
		if err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	for _, job := range list {
		if job.URL != "" {
			return job.URL
		}
	}
	return ""
}

// Section renders the heading followed by its lines.
func Section(heading string, lines []string) string {
	return heading + ":\n" + strings.Join(lines, "\n")
}

// Subject is "{Keyword} Jobs: N New + M Still Open".
func Subject(keyword string, newCount, carryCount int) string {
	return fmt.Sprintf("%s %d New + %d Still Open", subjectPrefix(keyword), newCount, carryCount)
}

// Body joins non-empty sections with a blank line.
func Body(sections ...string) string {
	var parts []string
	for _, section := range sections {
		if strings.TrimSpace(section) != "" {
			parts = append(parts, section)
		}
	}
	return strings.Join(parts, "\n\n")
}

func subjectPrefix(keyword string) string {
	keyword = strings.Join(strings.Fields(keyword), " ")
	if keyword == "" {
		return "Job Alert:"
	}
	return cases.Title(language.English).String(keyword) + " Jobs:"
}
