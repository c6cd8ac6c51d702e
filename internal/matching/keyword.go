// Package matching expands user keywords into alias terms and matches jobs against them.
package matching

import (
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
)

const (
	descriptionPrefix = 800
	minTokenLength    = 3
	minFallbackTokens = 2
)

var developerAliases = []string{
	"engineer",
	"software engineer",
	"software developer",
	"sde",
	"backend engineer",
	"back-end engineer",
	"full stack engineer",
	"full-stack engineer",
}

// Chunks splits a comma-separated keyword into lowercase, deduplicated parts.
func Chunks(keyword string) []string {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	var chunks []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(needle, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		chunks = append(chunks, part)
	}
	if len(chunks) == 0 && needle != "" {
		return []string{needle}
	}
	return chunks
}

// Aliases returns every chunk plus the engineer/developer variants of it.
func Aliases(keyword string) []string {
	var aliases []string
	for _, chunk := range Chunks(keyword) {
		compact := strings.Join(strings.Fields(chunk), " ")
		aliases = append(aliases, compact)
		switch {
		case compact == "developer":
			aliases = append(aliases, developerAliases...)
		case strings.HasSuffix(compact, " developer"):
			prefix := strings.TrimSpace(strings.TrimSuffix(compact, " developer"))
			if prefix != "" {
				aliases = append(aliases,
					prefix+" engineer",
					"software "+prefix+" engineer",
					prefix+" software engineer",
				)
			}
		}
	}
	return unique(aliases)
}

// FallbackTokens returns the unique words of at least three characters across all
// chunks, or nil when fewer than two of them exist.
func FallbackTokens(keyword string) []string {
	var tokens []string
	for _, chunk := range Chunks(keyword) {
		for _, token := range strings.Fields(chunk) {
			if len([]rune(token)) < minTokenLength {
				continue
			}
			tokens = append(tokens, token)
		}
	}
	tokens = unique(tokens)
	if len(tokens) < minFallbackTokens {
		return nil
	}
	return tokens
}

// Haystack is the lowercase text a keyword is searched in.
func Haystack(job *jobs.Job) string {
	description := job.Description
	if r := []rune(description); len(r) > descriptionPrefix {
		description = string(r[:descriptionPrefix])
	}
	return strings.ToLower(strings.Join([]string{
		job.Position,
		description,
		job.Company,
		job.Location,
		strings.Join(job.Tags, " "),
		job.Category,
	}, "\n"))
}

// Matcher holds a pre-expanded keyword.
type Matcher struct {
	aliases  []string
	fallback []string
}

func NewMatcher(keyword string) *Matcher {
	return &Matcher{
		aliases:  Aliases(keyword),
		fallback: FallbackTokens(keyword),
	}
}

// Empty reports whether the keyword had no usable terms.
func (m *Matcher) Empty() bool {
	return len(m.aliases) == 0
}

func (m *Matcher) Matches(job *jobs.Job) bool {
	hay := Haystack(job)
	if ContainsAny(hay, m.aliases) {
		return true
	}
	return len(m.fallback) > 0 && ContainsAll(hay, m.fallback)
}

// Match keeps, in order, the jobs matching the keyword. A blank keyword keeps everything.
func Match(list jobs.List, keyword string) jobs.List {
	m := NewMatcher(keyword)
	if m.Empty() {
		return list
	}
	matched := make(jobs.List, 0, len(list))
	for _, job := range list {
		if m.Matches(job) {
			matched = append(matched, job)
		}
	}
	return matched
}

func ContainsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func ContainsAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

func unique(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
