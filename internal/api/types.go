// ABOUTME: Wire types for the Mastodon-compatible REST API
// ABOUTME: Accounts, mentions, statuses, app credentials, and OAuth tokens

package api

import "time"

// Account is a fediverse identity as returned by the server.
//
// Username carries the webfinger acct (user@otherserver for remote
// accounts), LocalUsername the bare name. The two are equal exactly when
// the account lives on the home server.
type Account struct {
	ID             string    `json:"id"`
	LocalUsername  string    `json:"username"`
	Username       string    `json:"acct"`
	DisplayName    string    `json:"display_name"`
	Note           string    `json:"note"`
	URL            string    `json:"url"`
	Avatar         string    `json:"avatar"`
	Header         string    `json:"header"`
	Locked         bool      `json:"locked"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	StatusesCount  int64     `json:"statuses_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsRemote reports whether the account is federated from another server.
func (a *Account) IsRemote() bool {
	return a.Username != a.LocalUsername
}

// Mention is a structured reference to a participant embedded in a status.
type Mention struct {
	ID            string `json:"id"`
	Username      string `json:"acct"`
	LocalUsername string `json:"username"`
	URL           string `json:"url"`
}

// Status is a post. Direct messages are plain statuses with
// visibility=direct and explicit mentions; the server has no native
// 1:1-conversation concept.
type Status struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Account     Account   `json:"account"`
	Content     string    `json:"content"`
	SpoilerText string    `json:"spoiler_text"`
	Visibility  string    `json:"visibility"`
	Sensitive   bool      `json:"sensitive"`
	Mentions    []Mention `json:"mentions"`
}

// Visibility values accepted by the statuses endpoint.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
	VisibilityDirect   = "direct"
)

// AppCredentials are issued once per (app, domain) pair by the apps
// endpoint and are only good for completing a single login flow.
type AppCredentials struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AccessToken is the result of the authorization-code exchange. The token
// is an opaque bearer string; it is never refreshed or re-derived.
type AccessToken struct {
	Token     string `json:"access_token"`
	TokenType string `json:"token_type"`
	Scope     string `json:"scope"`
	CreatedAt int64  `json:"created_at"`
}

// Relationship describes how the authenticated account relates to another.
type Relationship struct {
	ID         string `json:"id"`
	Following  bool   `json:"following"`
	FollowedBy bool   `json:"followed_by"`
	Requested  bool   `json:"requested"`
	Blocking   bool   `json:"blocking"`
	Muting     bool   `json:"muting"`
}

// PageLinks holds the prev/next cursors parsed from a Link response
// header. The chat engine manages its own cursor and does not consult
// these; they are surfaced for callers that want header-driven paging.
type PageLinks struct {
	Prev string
	Next string
}
