// ABOUTME: OAuth authorization-code token exchange
// ABOUTME: Trades the browser-issued code for an opaque bearer token

package api

import (
	"context"
	"fmt"
	"net/url"
)

// AuthorizeURL builds the browser consent URL for the authorization-code
// grant. The caller is responsible for opening it in an external user
// agent; the flow resumes when the server redirects back.
func AuthorizeURL(domain, clientID, redirectURI, scopes string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scopes)
	return "https://" + domain + "/oauth/authorize?" + q.Encode()
}

// FetchOAuthToken exchanges an authorization code for an access token.
func (c *Client) FetchOAuthToken(ctx context.Context, clientID, clientSecret, redirectURI, code string) (*AccessToken, error) {
	req := struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		RedirectURI  string `json:"redirect_uri"`
		Code         string `json:"code"`
		GrantType    string `json:"grant_type"`
	}{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Code:         code,
		GrantType:    "authorization_code",
	}

	var token AccessToken
	if _, err := c.post(ctx, "/oauth/token", req, &token); err != nil {
		return nil, fmt.Errorf("fetching token: %w", err)
	}

	return &token, nil
}
