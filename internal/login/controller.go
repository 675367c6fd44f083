// ABOUTME: Login flow controller: domain submission through account verification
// ABOUTME: A state machine that survives teardown via the checkpoint store

package login

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roostchat/roost/internal/api"
	"github.com/roostchat/roost/internal/store"
)

// Scopes requested during app registration and authorization.
const Scopes = "read write follow push"

// codeTTL bounds the replay guard; authorization codes are short-lived
// server-side anyway.
const codeTTL = 10 * time.Minute

// ErrFlowBusy means another operation on this controller is still in
// flight. The flow never has two network calls outstanding.
var ErrFlowBusy = errors.New("login flow operation already in progress")

// State enumerates the steps of the login flow.
type State int

const (
	StateIdle State = iota
	StateDomainSubmitted
	StateAppRegistered
	StateAwaitingRedirect
	StateCodeReceived
	StateTokenFetched
	StateAccountVerified
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDomainSubmitted:
		return "domain_submitted"
	case StateAppRegistered:
		return "app_registered"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateCodeReceived:
		return "code_received"
	case StateTokenFetched:
		return "token_fetched"
	case StateAccountVerified:
		return "account_verified"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// APIClient is the slice of the REST client the flow needs.
type APIClient interface {
	RegisterApp(ctx context.Context, clientName, redirectURI, scopes, website string) (*api.AppCredentials, error)
	FetchOAuthToken(ctx context.Context, clientID, clientSecret, redirectURI, code string) (*api.AccessToken, error)
	VerifyCredentials(ctx context.Context) (*api.Account, error)
	SetToken(token string)
}

// ClientFactory builds an API client for a server domain. Swapped out in
// tests for a fake.
type ClientFactory func(domain string) APIClient

// Options configure a Controller.
type Options struct {
	// ClientName is the application name sent during app registration.
	ClientName string
	// Website is the optional application website sent alongside.
	Website string
	// RedirectURI is where the consent screen sends the browser back.
	RedirectURI string
	// Factory builds API clients; defaults to the real client.
	Factory ClientFactory
	// Logger for flow events. Nil uses the default.
	Logger *slog.Logger
}

// Controller owns one login flow. All methods are safe for concurrent
// use; at most one network operation is in flight at any time.
type Controller struct {
	accounts    store.AccountStore
	checkpoints CheckpointStore
	factory     ClientFactory
	clientName  string
	website     string
	redirectURI string
	logger      *slog.Logger

	busy atomic.Bool
	seen *seenCodes

	mu      sync.Mutex
	state   State
	domain  string
	creds   *api.AppCredentials
	client  APIClient
	loading bool
	lastErr error
}

// NewController creates a flow controller. If a checkpoint from an
// earlier incarnation exists, its domain and credentials are adopted so
// HandleRedirect can finish a flow started before teardown.
func NewController(accounts store.AccountStore, checkpoints CheckpointStore, opts Options) *Controller {
	if opts.ClientName == "" {
		opts.ClientName = "roost"
	}
	if opts.Factory == nil {
		opts.Factory = func(domain string) APIClient { return api.New(domain) }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Controller{
		accounts:    accounts,
		checkpoints: checkpoints,
		factory:     opts.Factory,
		clientName:  opts.ClientName,
		website:     opts.Website,
		redirectURI: opts.RedirectURI,
		logger:      opts.Logger.With("component", "login"),
		seen:        newSeenCodes(codeTTL),
		state:       StateIdle,
	}

	c.restoreCheckpoint()
	return c
}

// restoreCheckpoint adopts persisted flow state when memory is empty.
func (c *Controller) restoreCheckpoint() {
	cp, err := c.checkpoints.Read()
	if err != nil {
		c.logger.Warn("reading login checkpoint failed", "error", err)
		return
	}
	if cp.Domain == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.domain != "" {
		return
	}

	c.domain = cp.Domain
	if cp.ClientID != "" {
		c.creds = &api.AppCredentials{ClientID: cp.ClientID, ClientSecret: cp.ClientSecret}
		c.state = StateAwaitingRedirect
	} else {
		c.state = StateDomainSubmitted
	}
	c.logger.Debug("restored login checkpoint", "domain", cp.Domain)
}

// SetRedirectURI changes the redirect target, typically once a callback
// server has bound its port. Must be called before Submit.
func (c *Controller) SetRedirectURI(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redirectURI = uri
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a network operation is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the most recent failed step, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// IsLoggedIn reports whether an active account already exists, letting
// callers short-circuit the whole flow.
func (c *Controller) IsLoggedIn(ctx context.Context) bool {
	_, err := c.accounts.GetActiveAccount(ctx)
	return err == nil
}

// Submit normalizes and validates the entered domain, registers the app
// with the server, and returns the authorization URL the caller must
// open in an external browser.
//
// Validation failure returns ErrInvalidDomain without any network call.
// Registration failure returns *AppRegistrationError and resets the flow
// to idle; the user resubmits to retry.
func (c *Controller) Submit(ctx context.Context, rawDomain string) (string, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return "", ErrFlowBusy
	}
	defer c.busy.Store(false)

	domain := NormalizeDomain(rawDomain)
	if !ValidateDomain(domain) {
		c.fail(ErrInvalidDomain)
		return "", ErrInvalidDomain
	}

	client := c.factory(domain)

	c.mu.Lock()
	c.state = StateDomainSubmitted
	c.domain = domain
	c.creds = nil
	c.client = client
	c.loading = true
	c.lastErr = nil
	redirectURI := c.redirectURI
	c.mu.Unlock()

	creds, err := client.RegisterApp(ctx, c.clientName, redirectURI, Scopes, c.website)
	if err != nil {
		regErr := &AppRegistrationError{Message: err.Error()}
		c.mu.Lock()
		c.state = StateIdle
		c.domain = ""
		c.loading = false
		c.lastErr = regErr
		c.mu.Unlock()
		return "", regErr
	}

	c.mu.Lock()
	c.creds = creds
	c.state = StateAwaitingRedirect
	c.loading = false
	c.mu.Unlock()

	// Persist immediately: the browser round-trip may outlive us.
	c.SaveCheckpoint()

	c.logger.Info("app registered, awaiting authorization", "domain", domain)
	return api.AuthorizeURL(domain, creds.ClientID, redirectURI, Scopes), nil
}

// SaveCheckpoint writes the in-flight flow state to the durable store.
// Also invoked by owners right before tearing the controller down.
func (c *Controller) SaveCheckpoint() {
	c.mu.Lock()
	cp := Checkpoint{Domain: c.domain}
	if c.creds != nil {
		cp.ClientID = c.creds.ClientID
		cp.ClientSecret = c.creds.ClientSecret
	}
	c.mu.Unlock()

	if cp.Domain == "" {
		return
	}
	if err := c.checkpoints.Save(cp); err != nil {
		c.logger.Warn("saving login checkpoint failed", "error", err)
	}
}

// HandleRedirect finishes the flow when the external user agent comes
// back. Unrelated URIs return ErrUnrelatedRedirect and change nothing;
// callers log and ignore it. On success the verified account is
// returned, already persisted as the active session.
func (c *Controller) HandleRedirect(ctx context.Context, callbackURI string) (*store.Account, error) {
	c.mu.Lock()
	redirectURI := c.redirectURI
	c.mu.Unlock()

	if redirectURI == "" || !strings.HasPrefix(callbackURI, redirectURI) {
		c.logger.Debug("ignoring unrelated redirect", "uri", callbackURI)
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		return nil, ErrUnrelatedRedirect
	}

	parsed, err := url.Parse(callbackURI)
	if err != nil {
		c.fail(ErrUnknownAuthorizationResponse)
		return nil, ErrUnknownAuthorizationResponse
	}

	query := parsed.Query()
	if reason := query.Get("error"); reason != "" {
		denied := &AuthorizationDeniedError{Reason: reason}
		c.fail(denied)
		return nil, denied
	}

	code := query.Get("code")
	if code == "" {
		c.fail(ErrUnknownAuthorizationResponse)
		return nil, ErrUnknownAuthorizationResponse
	}

	if c.seen.checkAndMark(code) {
		c.logger.Debug("ignoring replayed redirect", "uri", callbackURI)
		return nil, ErrRedirectReplayed
	}

	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrFlowBusy
	}
	defer c.busy.Store(false)

	return c.exchangeCode(ctx, code)
}

// exchangeCode runs the tail of the flow: token exchange, session
// persistence, and credential verification.
func (c *Controller) exchangeCode(ctx context.Context, code string) (*store.Account, error) {
	c.mu.Lock()
	// A recreated controller restored these from the checkpoint at
	// construction; both must be present to exchange.
	domain := c.domain
	creds := c.creds
	client := c.client
	redirectURI := c.redirectURI
	if domain == "" || creds == nil {
		c.mu.Unlock()
		exErr := &TokenExchangeError{Message: "login flow state lost; resubmit the domain"}
		c.fail(exErr)
		return nil, exErr
	}
	if client == nil {
		client = c.factory(domain)
		c.client = client
	}
	c.state = StateCodeReceived
	c.loading = true
	c.mu.Unlock()

	token, err := client.FetchOAuthToken(ctx, creds.ClientID, creds.ClientSecret, redirectURI, code)
	if err != nil {
		exErr := &TokenExchangeError{Message: err.Error()}
		c.fail(exErr)
		return nil, exErr
	}
	if token.Token == "" {
		exErr := &TokenExchangeError{Message: "server returned an empty token"}
		c.fail(exErr)
		return nil, exErr
	}

	c.mu.Lock()
	c.state = StateTokenFetched
	c.mu.Unlock()

	acct, err := c.accounts.AddAccount(ctx, token.Token, domain)
	if err != nil {
		exErr := &TokenExchangeError{Message: err.Error()}
		c.fail(exErr)
		return nil, exErr
	}

	client.SetToken(token.Token)

	profile, err := client.VerifyCredentials(ctx)
	if err != nil {
		verErr := &AccountVerificationError{Message: err.Error()}
		c.fail(verErr)
		return nil, verErr
	}

	acct.AccountID = profile.ID
	acct.Username = profile.Username
	acct.LocalUsername = profile.LocalUsername
	acct.DisplayName = profile.DisplayName
	acct.AvatarURL = profile.Avatar
	if err := c.accounts.UpdateActiveAccount(ctx, acct); err != nil {
		verErr := &AccountVerificationError{Message: err.Error()}
		c.fail(verErr)
		return nil, verErr
	}

	c.mu.Lock()
	c.state = StateAccountVerified
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()

	// The app credentials are spent once the exchange completes.
	if clearer, ok := c.checkpoints.(interface{ Clear() error }); ok {
		if err := clearer.Clear(); err != nil {
			c.logger.Warn("clearing login checkpoint failed", "error", err)
		}
	}

	c.logger.Info("login complete", "domain", domain, "username", profile.Username)
	return acct, nil
}

// fail records a terminal step error and resets the loading flag.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateError
	c.loading = false
	c.lastErr = err
}
