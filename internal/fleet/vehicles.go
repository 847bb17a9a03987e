package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoVehicles is returned when the vehicle list is present but empty.
var ErrNoVehicles = errors.New("no vehicles returned from /vehicles response")

// ErrMissingVehicleId is returned when the first vehicle lacks an id; kept
// distinct from ErrNoVehicles to aid diagnosis.
var ErrMissingVehicleId = errors.New("first vehicle entry missing id")

// FirstVehicle fetches the caller's vehicle list and returns the id of the
// first entry in response order.
func (c *Client) FirstVehicle(ctx context.Context, audience string, accessToken string) (string, error) {
	data, err := c.api.GetJSON(ctx, audience+"/api/1/vehicles", accessToken)
	if err != nil {
		return "", fmt.Errorf("vehicle lookup failed: %w", err)
	}
	response, ok := data["response"].([]any)
	if !ok || len(response) == 0 {
		return "", ErrNoVehicles
	}
	first, ok := response[0].(map[string]any)
	if !ok {
		return "", ErrMissingVehicleId
	}
	// ids are large integers; api decodes numbers as json.Number so they
	// survive unmangled
	switch id := first["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case json.Number:
		return id.String(), nil
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	}
	return "", ErrMissingVehicleId
}
