package fleet

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildAuthorizationUrlRoundTrip(t *testing.T) {
	built := BuildAuthorizationUrl(
		"cid",
		"http://localhost:3000/callback",
		"openid offline_access vehicle_device_data",
		"state-abc_123",
	)

	parsed, err := url.Parse(built)
	require.NoError(t, err)
	require.Equal(t, "https", parsed.Scheme)
	require.Equal(t, DefaultAuthHost, parsed.Host)
	require.Equal(t, "/oauth2/v3/authorize", parsed.Path)

	query := parsed.Query()
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, "cid", query.Get("client_id"))
	require.Equal(t, "http://localhost:3000/callback", query.Get("redirect_uri"))
	require.Equal(t, "openid offline_access vehicle_device_data", query.Get("scope"))
	require.Equal(t, "state-abc_123", query.Get("state"))
}

func TestBuildAuthorizationUrlDeterministic(t *testing.T) {
	a := BuildAuthorizationUrl("cid", "http://localhost:3000/callback", "openid", "s")
	b := BuildAuthorizationUrl("cid", "http://localhost:3000/callback", "openid", "s")
	require.Equal(t, a, b)
}
