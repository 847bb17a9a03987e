package fleet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func regionServer(t *testing.T, status int, body string, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/1/users/region", r.URL.Path)
		if hits != nil {
			*hits++
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestDetectRegionPrefersDeclaredBaseUrl(t *testing.T) {
	first := regionServer(t, 404, `{"error":"not found"}`, nil)
	defer first.Close()
	second := regionServer(t, 200, `{"response":{"fleet_api_base_url":"https://x/"}}`, nil)
	defer second.Close()

	client := NewClient("", "cid", "csecret")
	audience, err := client.detectRegion(context.Background(), []string{first.URL, second.URL}, "user-tok")
	require.NoError(t, err)
	require.Equal(t, "https://x", audience)
}

func TestDetectRegionFirstSuccessWins(t *testing.T) {
	var secondHits int
	first := regionServer(t, 200, `{"response":{}}`, nil)
	defer first.Close()
	second := regionServer(t, 200, `{"response":{"fleet_api_base_url":"https://x"}}`, &secondHits)
	defer second.Close()

	client := NewClient("", "cid", "csecret")
	audience, err := client.detectRegion(context.Background(), []string{first.URL, second.URL}, "user-tok")
	require.NoError(t, err)
	// no declared base url in the winning response, so the probed audience
	// itself is returned; the second candidate is never probed
	require.Equal(t, first.URL, audience)
	require.Equal(t, 0, secondHits)
}

func TestDetectRegionExhaustionIsError(t *testing.T) {
	first := regionServer(t, 401, `{"error":"unauthorized"}`, nil)
	defer first.Close()
	second := regionServer(t, 404, `{}`, nil)
	defer second.Close()

	client := NewClient("", "cid", "csecret")
	_, err := client.detectRegion(context.Background(), []string{first.URL, second.URL}, "user-tok")
	require.ErrorContains(t, err, "could not determine user region")
}

func TestRegionOrderIsFixed(t *testing.T) {
	require.Equal(t, []Region{RegionEU, RegionNA}, RegionOrder())
	require.Equal(t, AudienceEU, RegionEU.Audience())
	require.Equal(t, AudienceNA, RegionNA.Audience())
	require.Equal(t, AudienceEU, DefaultAudience)
}

func TestNormalizeRegions(t *testing.T) {
	require.Equal(t, []Region{RegionEU, RegionNA}, NormalizeRegions("eu,na"))
	require.Equal(t, []Region{RegionNA, RegionEU}, NormalizeRegions(" NA , eu "))
	require.Equal(t, []Region{RegionEU}, NormalizeRegions("eu,eu,apac"))
	require.Nil(t, NormalizeRegions("mars"))
	require.Nil(t, NormalizeRegions(""))
}
