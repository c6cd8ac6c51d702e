// Package reconcile turns the model's bullet list back into known jobs.
package reconcile

import (
	"html"
	"regexp"
	"strings"

	"github.com/spigell/job-alert/internal/jobs"
)

// None is the literal the model returns when nothing matches.
const None = "NONE"

var (
	fencedBlock  = regexp.MustCompile("(?s)```.*?```")
	bulletPrefix = regexp.MustCompile(`^[\x{2022}*]\s*`)
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	bulletLine   = regexp.MustCompile(`^-\s*(.+?)\s+(?:—|–|-)\s+(.+?)\s+(?:—|–|-)\s+(https?://\S+)\s*$`)
)

// Clean normalizes raw model output into at most maxBullets bullet lines, or None.
func Clean(text string, maxBullets int) string {
	text = html.UnescapeString(text)
	text = fencedBlock.ReplaceAllString(text, "")
	if strings.TrimSpace(text) == None {
		return None
	}

	var lines []string
	seenURLs := make(map[string]struct{})
	seenLines := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		line = bulletPrefix.ReplaceAllString(line, "- ")

		if url := firstURL(line); url != "" {
			if _, ok := seenURLs[url]; ok {
				continue
			}
			seenURLs[url] = struct{}{}
		} else if _, ok := seenLines[line]; ok {
			continue
		}
		seenLines[line] = struct{}{}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return None
	}
	if maxBullets > 0 && len(lines) > maxBullets {
		lines = lines[:maxBullets]
	}
	return strings.Join(lines, "\n")
}

// Result is the reconciled model selection.
type Result struct {
	Jobs jobs.List
	// Body is the cleaned text, set only when no URL matched the pool.
	Body     string
	Fallback bool
}

// Count is the number of matches the digest lists: the bullet lines of a fallback body,
// otherwise the matched jobs.
func (r Result) Count() int {
	if !r.Fallback {
		return len(r.Jobs)
	}
	n := 0
	for _, line := range strings.Split(r.Body, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Reconcile matches the cleaned bullet lines against the pool by exact URL. When nothing
// matches, every line is parsed on its own and the text is kept verbatim.
func Reconcile(cleaned string, pool jobs.List) Result {
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || cleaned == None {
		return Result{}
	}

	byURL := make(map[string]*jobs.Job, len(pool))
	for _, job := range pool {
		url := strings.TrimSpace(job.URL)
		if url == "" {
			continue
		}
		if _, ok := byURL[url]; !ok {
			byURL[url] = job
		}
	}

	lines := strings.Split(cleaned, "\n")
	var matched jobs.List
	for _, line := range lines {
		for _, raw := range urlPattern.FindAllString(line, -1) {
			if job, ok := byURL[trimURL(raw)]; ok {
				matched = append(matched, job)
			}
		}
	}
	if len(matched) > 0 {
		return Result{Jobs: matched.Dedupe()}
	}

	var parsed jobs.List
	for _, line := range lines {
		if job := ParseLine(line); job != nil {
			parsed = append(parsed, job)
		}
	}
	return Result{Jobs: parsed.Dedupe(), Body: cleaned, Fallback: true}
}

// ParseLine reads a "- title — company — url" bullet. It returns nil for anything else.
func ParseLine(line string) *jobs.Job {
	m := bulletLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil
	}
	return &jobs.Job{
		Position: strings.TrimSpace(m[1]),
		Company:  strings.TrimSpace(m[2]),
		URL:      trimURL(m[3]),
	}
}

func firstURL(line string) string {
	return trimURL(urlPattern.FindString(line))
}

func trimURL(url string) string {
	return strings.TrimRight(url, ").,]")
}
