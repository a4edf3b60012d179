package funnerlife

import (
	"context"
	"fmt"
	"net/http"

	go_json "github.com/goccy/go-json"
)

type serviceListResponse struct {
	Status bool      `json:"status"`
	Data   []Service `json:"data"`
	Msg    string    `json:"msg"`
}

// ListServices returns the full provider catalog.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	status, body, err := c.post(ctx, "service", map[string]string{"api_key": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: status, Message: string(body)}
	}

	var resp serviceListResponse
	if err := go_json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding services: %w", err)
	}
	if !resp.Status {
		return nil, &APIError{StatusCode: status, Message: resp.Msg}
	}
	return resp.Data, nil
}
