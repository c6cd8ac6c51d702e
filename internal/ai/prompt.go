package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
)

//go:embed prompt.md
var promptTemplate string

// SystemInstruction is sent alongside every prompt.
const SystemInstruction = "You select relevant job postings and answer only in the requested bullet format."

const (
	snippetLength  = 250
	maxPromptRoles = 8
	maxPromptTags  = 10
)

// PayloadItem is one job as shown to the model.
type PayloadItem struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Payload converts the first limit jobs into model input. A non-positive limit keeps all jobs.
func Payload(list jobs.List, limit int) []PayloadItem {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	items := make([]PayloadItem, 0, len(list))
	for _, job := range list {
		snippet := job.Description
		if r := []rune(snippet); len(r) > snippetLength {
			snippet = string(r[:snippetLength])
		}
		items = append(items, PayloadItem{
			Title:   job.Position,
			Company: job.Company,
			URL:     job.URL,
			Snippet: snippet,
		})
	}
	return items
}

// PromptInput carries the user signals rendered into the prompt.
type PromptInput struct {
	Keyword          string
	RemoteOnly       bool
	StrictSeniorOnly bool
	ExperienceLevel  string
	TargetRoles      []string
	TechStack        []string
	AlertFrequency   string
	PrimaryGoal      string
	MaxBullets       int
}

// BuildPrompt renders the prompt template for the given jobs.
func BuildPrompt(in PromptInput, items []PayloadItem) (string, error) {
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal jobs payload: %w", err)
	}

	remoteLine := "Prefer remote roles, but include strong hybrid roles if clearly relevant."
	if in.RemoteOnly {
		remoteLine = "Only REMOTE roles."
	}

	seniority := "- Include mid-to-senior roles.\n" +
		"- Accept titles like Engineer / Developer / Software Engineer / SDE / Backend / Full Stack.\n" +
		"- Reject internships, trainee roles, and clearly entry-level roles."
	coverage := "- Prefer returning as many relevant roles as possible up to the max bullets."
	if in.StrictSeniorOnly {
		seniority = "- Senior roles (6+ years): Senior / Lead / Staff / Principal / Architect.\n" +
			"- Reject internships, junior, entry-level."
		coverage = "- Prioritize precision over recall."
	}

	hints := []string{coverage}
	if hint := frequencyHint(in.AlertFrequency); hint != "" {
		hints = append(hints, hint)
	}
	if hint := goalHint(in.PrimaryGoal); hint != "" {
		hints = append(hints, hint)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{KEYWORD}}", in.Keyword)
	prompt = strings.ReplaceAll(prompt, "{{REMOTE_LINE}}", remoteLine)
	prompt = strings.ReplaceAll(prompt, "{{SENIORITY_BLOCK}}", seniority)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_BLOCK}}", profileBlock(in))
	prompt = strings.ReplaceAll(prompt, "{{MAX_BULLETS}}", strconv.Itoa(in.MaxBullets))
	prompt = strings.ReplaceAll(prompt, "{{HINTS}}", strings.Join(hints, "\n"))
	prompt = strings.ReplaceAll(prompt, "{{JOBS_JSON}}", string(payload))
	return strings.TrimSpace(prompt), nil
}

func profileBlock(in PromptInput) string {
	var lines []string
	if level := strings.TrimSpace(in.ExperienceLevel); level != "" {
		lines = append(lines, "- Experience level: "+level)
	}
	if roles := firstN(in.TargetRoles, maxPromptRoles); len(roles) > 0 {
		lines = append(lines, "- Target roles: "+strings.Join(roles, ", "))
	}
	if tags := firstN(in.TechStack, maxPromptTags); len(tags) > 0 {
		lines = append(lines, "- Tech stack signals: "+strings.Join(tags, ", "))
	}
	if freq := strings.TrimSpace(in.AlertFrequency); freq != "" {
		lines = append(lines, "- Alert frequency preference: "+freq)
	}
	if goal := strings.TrimSpace(in.PrimaryGoal); goal != "" {
		lines = append(lines, "- Primary goal: "+goal)
	}
	if len(lines) == 0 {
		return "- No extra profile signals provided."
	}
	return strings.Join(lines, "\n")
}

func frequencyHint(frequency string) string {
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "high_priority_only":
		return "- User wants fewer, higher-confidence matches."
	case "weekly":
		return "- User accepts broader coverage for weekly review."
	}
	return ""
}

func goalHint(goal string) string {
	switch strings.ToLower(strings.TrimSpace(goal)) {
	case "job_switch":
		return "- Prioritize directly applicable open roles."
	case "market_tracking":
		return "- Include strong market-signal roles even if slightly broader."
	case "interview_pipeline":
		return "- Prioritize roles with clear fit and likely interview relevance."
	}
	return ""
}

func firstN(items []string, n int) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out
}
