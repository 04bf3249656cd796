package client

import (
	"context"

	"camdash/pkg/models"
)

func (c *Client) GetCameras(ctx context.Context) ([]models.Camera, error) {
	var respData models.CameraListResponse

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get("/api/cameras")
	if err := check("get cameras", resp, err); err != nil {
		return nil, err
	}

	if respData.Data == nil {
		return []models.Camera{}, nil
	}
	return respData.Data, nil
}
