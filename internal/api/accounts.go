// ABOUTME: Account operations: verify credentials, profile lookup, search, follow
// ABOUTME: All calls require the client to carry a bearer token

package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// VerifyCredentials fetches the account that owns the active token. Used
// as the terminal step of the login flow and by the whoami command.
func (c *Client) VerifyCredentials(ctx context.Context) (*Account, error) {
	var acct Account
	if _, err := c.get(ctx, "/api/v1/accounts/verify_credentials", nil, &acct); err != nil {
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}
	return &acct, nil
}

// GetAccount fetches a single account's profile by id.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acct Account
	if _, err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(accountID), nil, &acct); err != nil {
		return nil, fmt.Errorf("fetching account %s: %w", accountID, err)
	}
	return &acct, nil
}

// SearchAccounts searches accounts by name or webfinger address.
func (c *Client) SearchAccounts(ctx context.Context, query string, limit int) ([]Account, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var accounts []Account
	if _, err := c.get(ctx, "/api/v1/accounts/search", q, &accounts); err != nil {
		return nil, fmt.Errorf("searching accounts: %w", err)
	}
	return accounts, nil
}

// Follow follows the given account and returns the resulting relationship.
func (c *Client) Follow(ctx context.Context, accountID string) (*Relationship, error) {
	var rel Relationship
	if _, err := c.post(ctx, "/api/v1/accounts/"+url.PathEscape(accountID)+"/follow", nil, &rel); err != nil {
		return nil, fmt.Errorf("following account %s: %w", accountID, err)
	}
	return &rel, nil
}
