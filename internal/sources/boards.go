package sources

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
)

type boardFetcher func(ctx context.Context, fc *FetchContext, entry Entry) (jobs.List, error)

// companyBoards fetches every configured company entry of one ATS.
type companyBoards struct {
	meta  Meta
	fetch boardFetcher
}

func boards(meta Meta, fetch boardFetcher) Source {
	meta.RequiresCompanyConfig = true
	return companyBoards{meta: meta, fetch: fetch}
}

func (s companyBoards) Meta() Meta { return s.meta }

// Fetch keeps going when a single company fails. The joined company errors are returned
// together with whatever was fetched.
func (s companyBoards) Fetch(ctx context.Context, fc *FetchContext) (jobs.List, error) {
	if s.fetch == nil {
		return nil, ErrNotImplemented
	}

	entries, err := fc.Companies(s.meta.Name)
	if err != nil {
		return nil, err
	}

	var (
		list jobs.List
		errs []error
	)
	for _, entry := range entries {
		fetched, err := s.fetch(ctx, fc, entry)
		if err != nil {
			fc.logger.Warn("company board failed",
				zap.String("source", s.meta.Name),
				zap.String("company", entry.Company()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", entry.Company(), err))
			continue
		}
		list = append(list, fetched...)
	}

	return list, errors.Join(errs...)
}

type greenhouseResponse struct {
	Jobs []map[string]any `json:"jobs"`
}

type greenhouseItem struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Metadata []struct {
		Value any `json:"value"`
	} `json:"metadata"`
}

func fetchGreenhouse(ctx context.Context, fc *FetchContext, entry Entry) (jobs.List, error) {
	token := entry.First("board_token", "slug")
	if token == "" {
		return nil, nil
	}
	company := entry.CompanyOr(token)

	var payload greenhouseResponse
	endpoint := fmt.Sprintf(fc.Config.Endpoints.Greenhouse, url.PathEscape(token))
	if err := fc.client.getJSON(ctx, endpoint, url.Values{"content": {"true"}}, &payload); err != nil {
		return nil, err
	}
	if payload.Jobs == nil {
		return nil, errors.New("unexpected greenhouse payload: missing jobs list")
	}

	list := make(jobs.List, 0, len(payload.Jobs))
	for _, raw := range payload.Jobs {
		var item greenhouseItem
		if err := decode(raw, &item); err != nil {
			fc.logger.Debug("skipping greenhouse item", zap.Error(err))
			continue
		}
		var tags []string
		for _, m := range item.Metadata {
			tags = append(tags, metadataValues(m.Value)...)
		}
		list = append(list, &jobs.Job{
			Position:    item.Title,
			Company:     company,
			URL:         item.AbsoluteURL,
			Description: html.UnescapeString(item.Content),
			Location:    item.Location.Name,
			Tags:        tags,
			Source:      "greenhouse:" + token,
		})
	}
	return list, nil
}

func metadataValues(value any) []string {
	switch v := value.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, metadataValues(item)...)
		}
		return out
	case nil:
	default:
		return []string{fmt.Sprint(v)}
	}
	return nil
}

type leverItem struct {
	Text             string `json:"text"`
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	Description      string `json:"description"`
	DescriptionPlain string `json:"descriptionPlain"`
	Categories       struct {
		Team       string `json:"team"`
		Department string `json:"department"`
		Commitment string `json:"commitment"`
		Location   string `json:"location"`
	} `json:"categories"`
}

func fetchLever(ctx context.Context, fc *FetchContext, entry Entry) (jobs.List, error) {
	slug := entry.First("company_slug", "slug")
	if slug == "" {
		return nil, nil
	}
	company := entry.CompanyOr(slug)

	var payload []any
	endpoint := fmt.Sprintf(fc.Config.Endpoints.Lever, url.PathEscape(slug))
	if err := fc.client.getJSON(ctx, endpoint, url.Values{"mode": {"json"}}, &payload); err != nil {
		return nil, err
	}

	list := make(jobs.List, 0, len(payload))
	for _, raw := range payload {
		if _, ok := raw.(map[string]any); !ok {
			continue
		}
		var item leverItem
		if err := decode(raw, &item); err != nil {
			fc.logger.Debug("skipping lever item", zap.Error(err))
			continue
		}
		c := item.Categories
		list = append(list, &jobs.Job{
			Position:    item.Text,
			Company:     company,
			URL:         firstNonEmpty(item.HostedURL, item.ApplyURL),
			Description: firstNonEmpty(item.DescriptionPlain, item.Description),
			Location:    c.Location,
			Tags:        nonEmpty(c.Team, c.Department, c.Commitment, c.Location),
			Source:      "lever:" + slug,
		})
	}
	return list, nil
}

type smartRecruitersResponse struct {
	Content []map[string]any `json:"content"`
	Data    []map[string]any `json:"data"`
}

type smartRecruitersItem struct {
	Name     string `json:"name"`
	Ref      string `json:"ref"`
	ApplyURL string `json:"applyUrl"`
	URL      string `json:"url"`
	JobAd    any    `json:"jobAd"`
	Location struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
}

func fetchSmartRecruiters(ctx context.Context, fc *FetchContext, entry Entry) (jobs.List, error) {
	endpoint := entry.Get("api_url")
	if endpoint == "" {
		slug := entry.Get("slug")
		if slug == "" {
			return nil, nil
		}
		endpoint = fmt.Sprintf(fc.Config.Endpoints.SmartRecruiters, url.PathEscape(slug))
	}
	company := entry.CompanyOr(firstNonEmpty(entry.Get("slug"), "smartrecruiters"))

	var payload smartRecruitersResponse
	if err := fc.client.getJSON(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	postings := payload.Content
	if len(postings) == 0 {
		postings = payload.Data
	}

	list := make(jobs.List, 0, len(postings))
	for _, raw := range postings {
		var item smartRecruitersItem
		if err := decode(raw, &item); err != nil {
			fc.logger.Debug("skipping smartrecruiters item", zap.Error(err))
			continue
		}
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		description, _ := item.JobAd.(string)
		l := item.Location
		list = append(list, &jobs.Job{
			Position:    item.Name,
			Company:     company,
			URL:         firstNonEmpty(item.Ref, item.ApplyURL, item.URL),
			Description: description,
			Location:    strings.Join(nonEmpty(l.City, l.Region, l.Country), ", "),
			Source:      providerSource("smartrecruiters", company),
		})
	}
	return list, nil
}

type recruiteeResponse struct {
	Offers []map[string]any `json:"offers"`
	Data   []map[string]any `json:"data"`
}

type recruiteeItem struct {
	Title       string `json:"title"`
	CareersURL  string `json:"careers_url"`
	URL         string `json:"url"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Department  string `json:"department"`
}

func fetchRecruitee(ctx context.Context, fc *FetchContext, entry Entry) (jobs.List, error) {
	endpoint := entry.Get("api_url")
	if endpoint == "" {
		if base := entry.Get("base_url"); base != "" {
			endpoint = strings.TrimRight(base, "/") + "/api/offers/"
		} else if slug := entry.Get("slug"); slug != "" {
			endpoint = fmt.Sprintf(fc.Config.Endpoints.Recruitee, slug)
		} else {
			return nil, nil
		}
	}
	company := entry.CompanyOr(firstNonEmpty(entry.Get("slug"), "recruitee"))

	var payload recruiteeResponse
	if err := fc.client.getJSON(ctx, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	offers := payload.Offers
	if len(offers) == 0 {
		offers = payload.Data
	}

	list := make(jobs.List, 0, len(offers))
	for _, raw := range offers {
		var item recruiteeItem
		if err := decode(raw, &item); err != nil {
			fc.logger.Debug("skipping recruitee item", zap.Error(err))
			continue
		}
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		list = append(list, &jobs.Job{
			Position:    item.Title,
			Company:     company,
			URL:         firstNonEmpty(item.CareersURL, item.URL),
			Description: item.Description,
			Location:    item.Location,
			Tags:        nonEmpty(item.Department),
			Source:      providerSource("recruitee", company),
		})
	}
	return list, nil
}

func providerSource(provider, company string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(company)), " ", "-")
	return strings.ReplaceAll(provider, "_", "-") + ":" + slug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
