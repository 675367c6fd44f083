// ABOUTME: Error taxonomy for the login flow
// ABOUTME: Benign sentinels plus typed errors carrying server messages

package login

import (
	"errors"
	"fmt"
)

// ErrInvalidDomain means the submitted input did not normalize to a
// syntactically well-formed web domain. No network call was made.
var ErrInvalidDomain = errors.New("not a valid server domain")

// ErrUnrelatedRedirect means a redirect URI did not match the flow's
// redirect prefix. Benign: logged and otherwise ignored.
var ErrUnrelatedRedirect = errors.New("redirect does not match the expected prefix")

// ErrRedirectReplayed means a redirect carried an authorization code that
// was already exchanged. Benign: a browser refresh re-delivering the
// redirect must not trigger a second exchange.
var ErrRedirectReplayed = errors.New("authorization code already processed")

// ErrUnknownAuthorizationResponse means the redirect matched the prefix
// but carried neither a code nor an error parameter.
var ErrUnknownAuthorizationResponse = errors.New("authorization response carries neither code nor error")

// AppRegistrationError wraps a failed app registration. The flow returns
// to the idle state; the user must resubmit the domain.
type AppRegistrationError struct {
	Message string
}

func (e *AppRegistrationError) Error() string {
	return fmt.Sprintf("app registration failed: %s", e.Message)
}

// AuthorizationDeniedError means the consent screen redirected back with
// an error parameter (typically access_denied).
type AuthorizationDeniedError struct {
	Reason string
}

func (e *AuthorizationDeniedError) Error() string {
	return fmt.Sprintf("authorization denied: %s", e.Reason)
}

// TokenExchangeError wraps a failed or empty authorization-code exchange.
type TokenExchangeError struct {
	Message string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %s", e.Message)
}

// AccountVerificationError means the token was issued and stored but the
// credential verification call failed.
type AccountVerificationError struct {
	Message string
}

func (e *AccountVerificationError) Error() string {
	return fmt.Sprintf("account verification failed: %s", e.Message)
}
