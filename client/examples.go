package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"
)

// Example is one example requirement set offered by the service.
type Example struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`
}

// ListExamples returns the example requirement sets. Ids may be sent as
// numbers; they are returned as strings.
func (c *Client) ListExamples(ctx context.Context) ([]Example, error) {
	var raw []map[string]any
	if err := c.get(ctx, EndpointExamples, &raw); err != nil {
		return nil, err
	}

	var out []Example
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed example list: %w", ErrRemote, EndpointExamples, err)
	}
	for i, ex := range out {
		if ex.ID == "" {
			return nil, fmt.Errorf("%w: %s: example at index %d has no id", ErrRemote, EndpointExamples, i)
		}
	}
	if out == nil {
		out = []Example{}
	}
	return out, nil
}

// LoadExample returns the full requirements text of one example. A reply
// with success=false is a failure.
func (c *Client) LoadExample(ctx context.Context, id string) (string, error) {
	endpoint := EndpointExamples + "/" + url.PathEscape(id)

	var resp struct {
		Success bool   `json:"success"`
		Text    string `json:"text"`
		Error   string `json:"error"`
	}
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "example not available"
		}
		return "", fmt.Errorf("%w: %s: %s", ErrRemote, endpoint, msg)
	}
	return resp.Text, nil
}
