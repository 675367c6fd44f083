// ABOUTME: App registration against a user-chosen server domain
// ABOUTME: One registration per login attempt; credentials feed the OAuth exchange

package api

import (
	"context"
	"fmt"
)

// RegisterApp registers this client with the given server and returns the
// issued OAuth credentials. The call is unauthenticated and one-shot; a
// failed registration means the whole login flow restarts.
func (c *Client) RegisterApp(ctx context.Context, clientName, redirectURI, scopes, website string) (*AppCredentials, error) {
	req := struct {
		ClientName   string `json:"client_name"`
		RedirectURIs string `json:"redirect_uris"`
		Scopes       string `json:"scopes"`
		Website      string `json:"website,omitempty"`
	}{
		ClientName:   clientName,
		RedirectURIs: redirectURI,
		Scopes:       scopes,
		Website:      website,
	}

	var creds AppCredentials
	if _, err := c.post(ctx, "/api/v1/apps", req, &creds); err != nil {
		return nil, fmt.Errorf("registering app: %w", err)
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("registering app: server returned empty credentials")
	}

	c.logger.Debug("registered app", "client_id", creds.ClientID)
	return &creds, nil
}
