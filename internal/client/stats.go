package client

import (
	"context"

	"camdash/pkg/models"
)

func (c *Client) GetStats(ctx context.Context) (models.Stats, error) {
	var respData models.StatsResponse

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/stats")
	if err := check("get stats", resp, err); err != nil {
		return models.Stats{}, err
	}

	return respData.Data, nil
}
