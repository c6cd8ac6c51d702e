package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
)

type remotive struct{}

type remotiveResponse struct {
	Jobs []map[string]any `json:"jobs"`
}

type remotiveItem struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Location    string `json:"candidate_required_location"`
	Category    string `json:"category"`
	JobType     string `json:"job_type"`
}

func (remotive) Meta() Meta {
	return Meta{Name: "remotive", AccessMode: AccessOfficialAPI, RiskLevel: RiskLow, EnabledByDefault: true}
}

func (s remotive) Fetch(ctx context.Context, fc *FetchContext) (jobs.List, error) {
	var payload remotiveResponse
	if err := fc.client.getJSON(ctx, fc.Config.RemotiveURL, nil, &payload); err != nil {
		return nil, fmt.Errorf("remotive: %w", err)
	}
	if payload.Jobs == nil {
		return nil, fmt.Errorf("remotive: missing jobs list")
	}

	list := make(jobs.List, 0, len(payload.Jobs))
	for _, raw := range payload.Jobs {
		var item remotiveItem
		if err := decode(raw, &item); err != nil {
			fc.logger.Debug("skipping remotive item", zap.Error(err))
			continue
		}
		var tags []string
		if item.JobType != "" {
			tags = append(tags, item.JobType)
		}
		list = append(list, &jobs.Job{
			Position:    item.Title,
			Company:     item.CompanyName,
			URL:         item.URL,
			Description: item.Description,
			Location:    item.Location,
			Category:    item.Category,
			Tags:        tags,
			Source:      s.Meta().Name,
		})
	}
	return list, nil
}
