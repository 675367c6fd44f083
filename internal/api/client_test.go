// ABOUTME: Tests for the API client core and error decoding
// ABOUTME: Uses httptest servers standing in for a Mastodon-compatible backend

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a Client at a throwaway test server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("example.social", WithBaseURL(srv.URL))
}

func TestClient_BearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Account{ID: "1"})
	}))
	c.SetToken("secret-token")

	_, err := c.VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(AppCredentials{ClientID: "id", ClientSecret: "secret"})
	}))

	_, err := c.RegisterApp(context.Background(), "roost", "http://127.0.0.1/oauth/callback", "read write", "")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_DecodesServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "The access token is invalid"})
	}))

	_, err := c.VerifyCredentials(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "The access token is invalid", apiErr.Message)
}

func TestClient_ErrorDescriptionPreferred(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "The provided authorization grant is invalid",
		})
	}))

	_, err := c.FetchOAuthToken(context.Background(), "id", "secret", "uri", "code")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "The provided authorization grant is invalid", apiErr.Message)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))

	_, err := c.VerifyCredentials(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestRegisterApp_EmptyCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AppCredentials{})
	}))

	_, err := c.RegisterApp(context.Background(), "roost", "uri", "read", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty credentials")
}

func TestFetchOAuthToken_SendsAuthorizationCodeGrant(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(AccessToken{Token: "tok", TokenType: "Bearer"})
	}))

	token, err := c.FetchOAuthToken(context.Background(), "cid", "csecret", "http://127.0.0.1/oauth/callback", "ABC")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.Token)
	assert.Equal(t, "authorization_code", got["grant_type"])
	assert.Equal(t, "ABC", got["code"])
	assert.Equal(t, "cid", got["client_id"])
	assert.Equal(t, "csecret", got["client_secret"])
}

func TestAccount_IsRemote(t *testing.T) {
	local := Account{LocalUsername: "alice", Username: "alice"}
	remote := Account{LocalUsername: "bob", Username: "bob@other.server"}

	assert.False(t, local.IsRemote())
	assert.True(t, remote.IsRemote())
}
