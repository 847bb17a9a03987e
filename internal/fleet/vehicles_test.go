package fleet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"davidallendj/fleetauth/internal/api"

	"github.com/stretchr/testify/require"
)

func vehiclesServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/vehicles", r.URL.Path)
		require.Equal(t, "Bearer user-tok", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestFirstVehicle(t *testing.T) {
	// large ids must survive decoding intact
	ts := vehiclesServer(t, 200, `{"response":[{"id":100021123456789012,"vin":"5YJ3..."},{"id":2}]}`)
	defer ts.Close()

	client := NewClient("", "cid", "csecret")
	id, err := client.FirstVehicle(context.Background(), ts.URL, "user-tok")
	require.NoError(t, err)
	require.Equal(t, "100021123456789012", id)
}

func TestFirstVehicleEmptyList(t *testing.T) {
	ts := vehiclesServer(t, 200, `{"response":[]}`)
	defer ts.Close()

	client := NewClient("", "cid", "csecret")
	_, err := client.FirstVehicle(context.Background(), ts.URL, "user-tok")
	require.ErrorIs(t, err, ErrNoVehicles)
}

func TestFirstVehicleMissingId(t *testing.T) {
	ts := vehiclesServer(t, 200, `{"response":[{"vin":"5YJ3..."}]}`)
	defer ts.Close()

	client := NewClient("", "cid", "csecret")
	_, err := client.FirstVehicle(context.Background(), ts.URL, "user-tok")
	require.ErrorIs(t, err, ErrMissingVehicleId)
}

func TestFirstVehicleNon2xx(t *testing.T) {
	ts := vehiclesServer(t, 412, `{"error":"account not registered"}`)
	defer ts.Close()

	client := NewClient("", "cid", "csecret")
	_, err := client.FirstVehicle(context.Background(), ts.URL, "user-tok")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 412, apiErr.Status)
	require.Equal(t, "account not registered", apiErr.Reason)
}
