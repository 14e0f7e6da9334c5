package aiod

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sternrassler/aiod-client/pkg/client"
	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/Sternrassler/aiod-client/pkg/plan"
)

// Count returns the number of items of resourceType known to the catalogue.
// A per-platform breakdown ({"platform": n, ...}) is summed.
func (c *Client) Count(ctx context.Context, resourceType string) (int, error) {
	countURL, err := c.planner.CountURL(resourceType)
	if err != nil {
		return 0, err
	}

	resp, err := c.get(ctx, plan.RequestSpec{Method: http.MethodGet, URL: countURL, Header: http.Header{}})
	if err != nil {
		return 0, err
	}

	n, err := decodeCount(resp.Body)
	if err != nil {
		return 0, &client.TransportError{URL: countURL, ErrorClass: client.ErrorClassClient, Err: err}
	}
	return n, nil
}

func decodeCount(body []byte) (int, error) {
	var total int
	if err := json.Unmarshal(body, &total); err == nil {
		return total, nil
	}

	var perPlatform map[string]int
	if err := json.Unmarshal(body, &perPlatform); err != nil {
		return 0, fmt.Errorf("%w: count: %v", fetch.ErrMalformedPayload, err)
	}
	for _, n := range perPlatform {
		total += n
	}
	return total, nil
}
