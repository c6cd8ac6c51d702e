// Package scoring computes rule-based relevance scores for jobs and ranks them.
package scoring

import (
	"sort"
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/matching"
)

const (
	keywordTitleHit       = 8
	keywordTagHit         = 5
	keywordDescriptionHit = 3
	keywordCompanyHit     = 1

	developerTitleBonus = 5
	developerTagBonus   = 2
	javaTitleBonus      = 4
	javaTagBonus        = 2
	fallbackTitleBonus  = 4
	fallbackOtherBonus  = 2

	positiveTitleBonus = 3
	roleTitleBonus     = 7
	roleOtherBonus     = 2
	stackTitleBonus    = 5
	stackOtherBonus    = 2
	seniorBonus        = 3
	midBonus           = 2
	entryBonus         = 2
	entryOverreach     = 1

	softNegativePenalty    = 6
	internshipPenalty      = 12
	strictJuniorPenalty    = 10
	contractPenalty        = 2
	negativeKeywordPenalty = 8

	developerChunk = "developer"
	javaMarker     = "java"
	contractMarker = "contract"
	fullTimeMarker = "full-time"
)

// Profile carries the user signals the scorer reads.
type Profile struct {
	Keyword          string
	TargetRoles      []string
	TechStack        []string
	ExperienceLevel  string
	NegativeKeywords []string
	StrictSeniorOnly bool
}

// Scorer is a Profile bound to a term table with its normalized inputs precomputed.
type Scorer struct {
	terms    Terms
	strict   bool
	chunks   []string
	fallback []string
	roles    []string
	stack    []string
	negative []string
	level    string
	software bool
}

func NewScorer(profile Profile, terms Terms) *Scorer {
	roles := NormalizeTerms(profile.TargetRoles)
	return &Scorer{
		terms:    terms,
		strict:   profile.StrictSeniorOnly,
		chunks:   matching.Chunks(profile.Keyword),
		fallback: matching.FallbackTokens(profile.Keyword),
		roles:    roles,
		stack:    NormalizeTerms(profile.TechStack),
		negative: NormalizeTerms(profile.NegativeKeywords),
		level:    strings.ToLower(strings.TrimSpace(profile.ExperienceLevel)),
		software: SoftwareFocused(profile.Keyword, roles, terms),
	}
}

// Score is a pure function of the job and the profile.
func Score(job *jobs.Job, profile Profile, terms Terms) int {
	return NewScorer(profile, terms).Score(job)
}

func (s *Scorer) Score(job *jobs.Job) int {
	f := fieldsOf(job)

	score := s.keywordScore(f)
	if matching.ContainsAny(f.title, s.terms.PositiveTitle) {
		score += positiveTitleBonus
	}

	for _, role := range s.roles {
		switch {
		case strings.Contains(f.title, role):
			score += roleTitleBonus
		case strings.Contains(f.hay, role):
			score += roleOtherBonus
		}
	}

	for _, tag := range s.stack {
		switch {
		case strings.Contains(f.title, tag):
			score += stackTitleBonus
		case strings.Contains(f.hay, tag):
			score += stackOtherBonus
		}
	}

	score += s.experienceScore(f.title)
	score -= s.penalty(f)
	return score
}

func (s *Scorer) keywordScore(f fields) int {
	best := 0
	for _, chunk := range s.chunks {
		tier := 0
		switch {
		case strings.Contains(f.title, chunk):
			tier = keywordTitleHit
		case strings.Contains(f.tags, chunk):
			tier = keywordTagHit
		case strings.Contains(f.description, chunk):
			tier = keywordDescriptionHit
		case strings.Contains(f.company, chunk):
			tier = keywordCompanyHit
		}
		if tier > best {
			best = tier
		}
	}

	score := best
	if contains(s.chunks, developerChunk) {
		switch {
		case matching.ContainsAny(f.title, s.terms.DeveloperTitle):
			score += developerTitleBonus
		case matching.ContainsAny(f.tags, s.terms.DeveloperTags):
			score += developerTagBonus
		}
	}

	for _, chunk := range s.chunks {
		if !strings.Contains(chunk, javaMarker) {
			continue
		}
		switch {
		case strings.Contains(f.title, chunk):
			score += javaTitleBonus
		case strings.Contains(f.tags, chunk):
			score += javaTagBonus
		}
		break
	}

	if best == 0 && len(s.fallback) > 0 && matching.ContainsAll(f.hay, s.fallback) {
		if matching.ContainsAny(f.title, s.fallback) {
			score += fallbackTitleBonus
		} else {
			score += fallbackOtherBonus
		}
	}

	return score
}

func (s *Scorer) experienceScore(title string) int {
	switch s.level {
	case "senior", "staff":
		if matching.ContainsAny(title, s.terms.SeniorTitle) {
			return seniorBonus
		}
	case "mid":
		if matching.ContainsAny(title, s.terms.MidTitle) {
			return midBonus
		}
	case "entry":
		score := 0
		if matching.ContainsAny(title, s.terms.EntryTitle) {
			score += entryBonus
		}
		if matching.ContainsAny(title, s.terms.EntryOverreach) {
			score -= entryOverreach
		}
		return score
	}
	return 0
}

func (s *Scorer) penalty(f fields) int {
	penalty := 0
	if s.software && matching.ContainsAny(f.title, s.terms.SoftNegative) {
		penalty += softNegativePenalty
	}
	if matching.ContainsAny(f.title, s.terms.Internship) {
		penalty += internshipPenalty
	}
	if s.strict && matching.ContainsAny(f.title, s.terms.JuniorTitle) {
		penalty += strictJuniorPenalty
	}
	if strings.Contains(f.title, contractMarker) && !strings.Contains(f.description, fullTimeMarker) {
		penalty += contractPenalty
	}
	for _, term := range s.negative {
		if strings.Contains(f.description, term) || strings.Contains(f.tags, term) || strings.Contains(f.company, term) {
			penalty += negativeKeywordPenalty
			break
		}
	}
	return penalty
}

// Rank returns a copy of the list ordered by descending score. Equal scores keep input order.
func Rank(list jobs.List, profile Profile, terms Terms) jobs.List {
	scorer := NewScorer(profile, terms)

	type scored struct {
		job   *jobs.Job
		score int
	}
	items := make([]scored, 0, len(list))
	for _, job := range list {
		items = append(items, scored{job: job, score: scorer.Score(job)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	ranked := make(jobs.List, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, item.job)
	}
	return ranked
}

// SoftwareFocused reports whether the keyword or the target roles carry a software hint.
func SoftwareFocused(keyword string, targetRoles []string, terms Terms) bool {
	if matching.ContainsAny(strings.ToLower(keyword), terms.SoftwareHints) {
		return true
	}
	for _, role := range targetRoles {
		if matching.ContainsAny(strings.ToLower(role), terms.SoftwareHints) {
			return true
		}
	}
	return false
}

// NormalizeTerms lowercases, trims and deduplicates the terms, keeping order.
func NormalizeTerms(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
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

type fields struct {
	title       string
	description string
	tags        string
	company     string
	hay         string
}

func fieldsOf(job *jobs.Job) fields {
	f := fields{
		title:       strings.ToLower(job.Position),
		description: strings.ToLower(job.Description),
		tags:        strings.ToLower(strings.Join(job.Tags, " ")),
		company:     strings.ToLower(job.Company),
	}
	f.hay = strings.Join([]string{f.title, f.description, f.tags, f.company}, "\n")
	return f
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
