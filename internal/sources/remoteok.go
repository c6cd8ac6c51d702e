package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
)

type remoteOK struct{}

type remoteOKItem struct {
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

func (remoteOK) Meta() Meta {
	return Meta{Name: "remoteok", AccessMode: AccessOfficialAPI, RiskLevel: RiskLow, EnabledByDefault: true}
}

// Fetch skips the leading legal notice element of the feed.
func (s remoteOK) Fetch(ctx context.Context, fc *FetchContext) (jobs.List, error) {
	var payload []any
	if err := fc.client.getJSON(ctx, fc.Config.RemoteOKURL, nil, &payload); err != nil {
		return nil, fmt.Errorf("remoteok: %w", err)
	}
	if len(payload) < 2 {
		return nil, nil
	}

	list := make(jobs.List, 0, len(payload)-1)
	for _, raw := range payload[1:] {
		if _, ok := raw.(map[string]any); !ok {
			continue
		}
		var item remoteOKItem
		if err := decode(raw, &item); err != nil {
			fc.logger.Debug("skipping remoteok item", zap.Error(err))
			continue
		}
		list = append(list, &jobs.Job{
			Position:    item.Position,
			Company:     item.Company,
			URL:         item.URL,
			Description: item.Description,
			Location:    item.Location,
			Tags:        item.Tags,
			Source:      s.Meta().Name,
		})
	}
	return list, nil
}
