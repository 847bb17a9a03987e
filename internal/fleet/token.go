package fleet

import (
	"context"
	"fmt"
	"net/url"
)

// UserToken holds the result of the authorization-code exchange. It lives
// in memory for the duration of the run only.
type UserToken struct {
	AccessToken  string
	RefreshToken string
	Scope        string
}

// ExchangeCode converts a captured authorization code into a user token.
// The audience must be supplied even before the true region is known;
// DefaultAudience is an acceptable placeholder that the region detector
// corrects afterwards.
func (c *Client) ExchangeCode(ctx context.Context, code string, redirectUri string, audience string) (*UserToken, error) {
	data, err := c.api.PostForm(ctx, c.tokenUrl(), url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.ClientId},
		"client_secret": {c.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectUri},
		"audience":      {audience},
	})
	if err != nil {
		return nil, fmt.Errorf("user token exchange failed: %w", err)
	}
	accessToken, _ := data["access_token"].(string)
	if accessToken == "" {
		return nil, fmt.Errorf("token exchange response missing access_token")
	}
	refreshToken, _ := data["refresh_token"].(string)
	scope, _ := data["scope"].(string)
	return &UserToken{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Scope:        scope,
	}, nil
}
