package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"davidallendj/fleetauth/internal/api"
)

const (
	// DefaultTokenHost issues both partner and user tokens.
	DefaultTokenHost = "fleet-auth.prd.vn.cloud.tesla.com"
	// DefaultAuthHost hosts the browser-facing authorization endpoint.
	DefaultAuthHost = "auth.tesla.com"

	// KeyRelPath is where the vendor expects the partner's public key to be
	// hosted under the registered domain.
	KeyRelPath = ".well-known/appspecific/com.tesla.3p.public-key.pem"

	partnerScope = "openid vehicle_device_data"
)

// Client performs the partner/fleet API calls. It never retries; retry
// policy, if any, belongs to the caller.
type Client struct {
	TokenHost    string
	ClientId     string
	ClientSecret string

	api *api.Client
	key *http.Client
}

func NewClient(tokenHost string, clientId string, clientSecret string) *Client {
	if tokenHost == "" {
		tokenHost = DefaultTokenHost
	}
	return &Client{
		TokenHost:    tokenHost,
		ClientId:     clientId,
		ClientSecret: clientSecret,
		api:          api.NewClient(api.DefaultTimeout),
		key:          &http.Client{Timeout: api.KeyFetchTimeout},
	}
}

func (c *Client) tokenUrl() string {
	host := c.TokenHost
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host + "/oauth2/v3/token"
}

// HostedKeyUrl returns the HTTPS URL the public key must be reachable at
// for the given domain.
func HostedKeyUrl(domain string) string {
	return "https://" + domain + "/" + KeyRelPath
}

// BuildPartnerToken performs a client_credentials grant scoped to one
// audience. The returned credential is only valid against that audience.
func (c *Client) BuildPartnerToken(ctx context.Context, audience string) (string, error) {
	data, err := c.api.PostForm(ctx, c.tokenUrl(), url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientId},
		"client_secret": {c.ClientSecret},
		"scope":         {partnerScope},
		"audience":      {audience},
	})
	if err != nil {
		return "", fmt.Errorf("partner token request failed: %w", err)
	}
	token, _ := data["access_token"].(string)
	if token == "" {
		return "", fmt.Errorf("partner token response missing access_token")
	}
	return token, nil
}

// RegistrationOutcome is the terminal result of a registration attempt.
// Registered and AlreadyRegistered are observably equivalent successes.
type RegistrationOutcome string

const (
	Registered        RegistrationOutcome = "registered"
	AlreadyRegistered RegistrationOutcome = "already_registered"
)

// RegisterPartnerAccount registers the domain for one region. The first
// attempt sends only the domain; some API variants require the hosted-key
// URL explicitly, so a failed first attempt is retried once with it. Error
// text from both attempts is merged, preferring the second, and fed to the
// alreadyRegistered classifier.
func (c *Client) RegisterPartnerAccount(ctx context.Context, audience string, partnerToken string, domain string) (RegistrationOutcome, error) {
	endpoint := audience + "/api/1/partner_accounts"

	_, err := c.api.PostJSON(ctx, endpoint, partnerToken, map[string]any{"domain": domain})
	if err == nil {
		return Registered, nil
	}
	var firstErr *api.Error
	if !errors.As(err, &firstErr) {
		return "", fmt.Errorf("partner registration failed: %w", err)
	}

	_, err = c.api.PostJSON(ctx, endpoint, partnerToken, map[string]any{
		"domain":         domain,
		"public_key_url": HostedKeyUrl(domain),
	})
	if err == nil {
		return Registered, nil
	}
	var secondErr *api.Error
	if !errors.As(err, &secondErr) {
		return "", fmt.Errorf("partner registration failed: %w", err)
	}

	merged := secondErr.Reason
	if merged == "" {
		merged = firstErr.Reason
	}
	if alreadyRegistered(merged) {
		return AlreadyRegistered, nil
	}
	if merged == "" {
		return "", fmt.Errorf("partner registration failed: HTTP %d", secondErr.Status)
	}
	return "", fmt.Errorf("partner registration failed: HTTP %d: %s", secondErr.Status, merged)
}

// alreadyRegistered classifies the vendor's free-text error. The vendor
// reports repeat registrations only in prose, so this stays a substring
// heuristic; wording changes on their side will break it.
func alreadyRegistered(msg string) bool {
	low := strings.ToLower(msg)
	return strings.Contains(low, "already") && strings.Contains(low, "register")
}

// VerifyPublicKey asks the vendor whether it can see the hosted key for the
// domain. A 2xx is authoritative; the body is not inspected. Failure is
// reported through the diagnostic string and does not abort the flow.
func (c *Client) VerifyPublicKey(ctx context.Context, audience string, partnerToken string, domain string) (bool, string) {
	rawUrl := audience + "/api/1/partner_accounts/public_key?domain=" + url.QueryEscape(domain)
	_, err := c.api.GetJSON(ctx, rawUrl, partnerToken)
	if err == nil {
		return true, ""
	}
	return false, err.Error()
}

// CheckHostedKey fetches the hosted key URL directly and checks it serves a
// PEM public key. Bounded by the shorter key-fetch timeout since the target
// is the user's own host, not the vendor.
func (c *Client) CheckHostedKey(ctx context.Context, keyUrl string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyUrl, nil)
	if err != nil {
		return fmt.Errorf("failed to make request: %v", err)
	}
	req.Header.Set("Accept", "text/plain,*/*;q=0.8")
	res, err := c.key.Do(req)
	if err != nil {
		return fmt.Errorf("public key URL check failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("public key URL returned HTTP %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("failed to read public key body: %v", err)
	}
	if !strings.Contains(string(body), "BEGIN PUBLIC KEY") {
		return fmt.Errorf("public key URL is reachable but not a valid PEM public key")
	}
	return nil
}
