package client

import (
	"context"
	"strconv"

	"camdash/pkg/models"
)

// DefaultEventLimit matches the server's page size for the recent events list.
const DefaultEventLimit = 20

// GetEvents fetches the most recent events, newest first.
func (c *Client) GetEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	var respData models.EventListResponse
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&respData).
		Get("/api/events")
	if err := check("get events", resp, err); err != nil {
		return nil, err
	}

	if respData.Data == nil {
		return []models.Event{}, nil
	}
	return respData.Data, nil
}
