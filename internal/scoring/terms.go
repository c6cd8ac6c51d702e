package scoring

// TermsVersion identifies the default term tables. Bump it whenever a table changes.
const TermsVersion = "2025.1"

// Terms holds the term tables the scorer and the pre-filter read. All terms are lowercase
// and matched as substrings of lowercase text.
type Terms struct {
	Version string `mapstructure:"version"`

	PositiveTitle []string `mapstructure:"positive-title"`
	SoftwareHints []string `mapstructure:"software-hints"`
	HardNegative  []string `mapstructure:"hard-negative"`
	SoftNegative  []string `mapstructure:"soft-negative"`
	Internship    []string `mapstructure:"internship"`
	JuniorTitle   []string `mapstructure:"junior-title"`

	SeniorTitle    []string `mapstructure:"senior-title"`
	MidTitle       []string `mapstructure:"mid-title"`
	EntryTitle     []string `mapstructure:"entry-title"`
	EntryOverreach []string `mapstructure:"entry-overreach"`
	DeveloperTitle []string `mapstructure:"developer-title"`
	DeveloperTags  []string `mapstructure:"developer-tags"`
}

// DefaultTerms returns a fresh copy of the built-in tables.
func DefaultTerms() Terms {
	return Terms{
		Version: TermsVersion,
		PositiveTitle: []string{
			"engineer", "developer", "software", "backend", "frontend", "platform", "full stack", "sde",
		},
		SoftwareHints: []string{
			"software", "developer", "engineer", "backend", "back-end", "frontend", "front-end",
			"full stack", "full-stack", "fullstack", "devops", "sre", "platform", "sde", "programmer",
			"golang", "python", "java", "typescript", "mobile", "ios", "android",
		},
		HardNegative: []string{
			"recruiter", "recruiting", "talent acquisition", "sales", "account executive",
			"account manager", "business development", "customer support", "customer success",
			"support specialist", "marketing manager", "content writer", "copywriter", "social media",
		},
		SoftNegative: []string{
			"qa", "quality assurance", "technical writer", "project manager", "program manager",
			"scrum master", "product manager", "analyst",
		},
		Internship:     []string{"intern", "internship", "trainee", "apprentice"},
		JuniorTitle:    []string{"junior", "jr", "entry", "associate"},
		SeniorTitle:    []string{"senior", "staff", "principal", "lead", "architect"},
		MidTitle:       []string{"engineer", "developer", "sde"},
		EntryTitle:     []string{"junior", "associate", "entry"},
		EntryOverreach: []string{"senior", "staff", "principal"},
		DeveloperTitle: []string{"engineer", "software engineer", "sde"},
		DeveloperTags:  []string{"engineering", "developer"},
	}
}

// WithOverrides replaces every table that is set in override.
func (t Terms) WithOverrides(override Terms) Terms {
	pick := func(base, next []string) []string {
		if len(next) == 0 {
			return base
		}
		return NormalizeTerms(next)
	}

	out := t
	if override.Version != "" {
		out.Version = override.Version
	}
	out.PositiveTitle = pick(t.PositiveTitle, override.PositiveTitle)
	out.SoftwareHints = pick(t.SoftwareHints, override.SoftwareHints)
	out.HardNegative = pick(t.HardNegative, override.HardNegative)
	out.SoftNegative = pick(t.SoftNegative, override.SoftNegative)
	out.Internship = pick(t.Internship, override.Internship)
	out.JuniorTitle = pick(t.JuniorTitle, override.JuniorTitle)
	out.SeniorTitle = pick(t.SeniorTitle, override.SeniorTitle)
	out.MidTitle = pick(t.MidTitle, override.MidTitle)
	out.EntryTitle = pick(t.EntryTitle, override.EntryTitle)
	out.EntryOverreach = pick(t.EntryOverreach, override.EntryOverreach)
	out.DeveloperTitle = pick(t.DeveloperTitle, override.DeveloperTitle)
	out.DeveloperTags = pick(t.DeveloperTags, override.DeveloperTags)
	return out
}
