package fleet

import "net/url"

// BuildAuthorizationUrl produces the browser-facing authorization link.
// Pure and deterministic: decoding the result recovers the exact inputs.
func BuildAuthorizationUrl(clientId string, redirectUri string, scope string, state string) string {
	query := url.Values{
		"response_type": {"code"},
		"client_id":     {clientId},
		"redirect_uri":  {redirectUri},
		"scope":         {scope},
		"state":         {state},
	}
	return "https://" + DefaultAuthHost + "/oauth2/v3/authorize?" + query.Encode()
}
