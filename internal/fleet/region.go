package fleet

import (
	"context"
	"fmt"
	"strings"
)

// DetectRegion probes the candidate regions in fixed priority order with
// the user token and returns the caller's true API base. The first 2xx
// wins; a server-declared fleet_api_base_url in that response is preferred
// over the coarse regional constant. Exhaustion is reported as an error the
// caller may treat as non-fatal by substituting DefaultAudience.
func (c *Client) DetectRegion(ctx context.Context, accessToken string) (string, error) {
	var audiences []string
	for _, region := range regionOrder {
		audiences = append(audiences, region.Audience())
	}
	return c.detectRegion(ctx, audiences, accessToken)
}

func (c *Client) detectRegion(ctx context.Context, audiences []string, accessToken string) (string, error) {
	for _, audience := range audiences {
		data, err := c.api.GetJSON(ctx, audience+"/api/1/users/region", accessToken)
		if err != nil {
			continue
		}
		if response, ok := data["response"].(map[string]any); ok {
			if fleetUrl, ok := response["fleet_api_base_url"].(string); ok && strings.TrimSpace(fleetUrl) != "" {
				return strings.TrimRight(strings.TrimSpace(fleetUrl), "/"), nil
			}
		}
		return audience, nil
	}
	return "", fmt.Errorf("could not determine user region from /users/region")
}
