// Package api implements the REST client for Mastodon-compatible servers.
//
// # Overview
//
// The api package is the only component that talks to the network. It covers
// the small slice of the Mastodon API that roost needs:
//
//   - App registration and the OAuth authorization-code token exchange
//   - Credential verification (fetching the authenticated account)
//   - The direct-message timeline with Link-header pagination
//   - Account search, follow, and profile lookup
//   - Posting and deleting direct statuses
//
// # Client
//
// A Client is bound to one server domain. Before login it carries no token;
// after login the bearer token is attached to every request:
//
//	c := api.New("example.social", api.WithToken(token))
//	acct, err := c.VerifyCredentials(ctx)
//
// All calls are one-shot request/response with no automatic retry. Requests
// pass through a rate limiter tuned to the Mastodon server default of 300
// requests per 5 minutes.
//
// # Errors
//
// Non-2xx responses are decoded into *APIError carrying the HTTP status and
// the server's error message, so callers can surface a human-readable
// failure without inspecting response bodies themselves.
package api
