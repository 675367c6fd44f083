// Package login drives the OAuth 2.0 authorization-code flow against a
// user-chosen server domain.
//
// # Overview
//
// The flow has to survive leaving the process: step three is a consent
// screen in an external browser, and the redirect back may arrive after
// the controller that started the flow is long gone. The Controller is
// therefore a small state machine whose in-flight state (domain plus app
// credentials) is checkpointed to a durable file and restored on
// construction.
//
//	IDLE → DOMAIN_SUBMITTED → APP_REGISTERED → AWAITING_REDIRECT
//	     → CODE_RECEIVED → TOKEN_FETCHED → ACCOUNT_VERIFIED
//
// ERROR is reachable from every step. Every network call is one-shot; a
// failure resets the loading flag and leaves the flow re-triggerable by
// resubmitting the domain.
//
// # Redirects
//
// HandleRedirect accepts any URI string. URIs that do not start with the
// flow's redirect prefix are ignored (ErrUnrelatedRedirect, logged only),
// since unrelated app-launch URIs are expected. A redirect delivered
// twice for the same authorization code is also ignored, so a browser
// refresh cannot trigger a second token exchange.
//
// The CallbackServer is the standard feeder: it binds a loopback port,
// receives the browser redirect, and hands the URI to the controller.
package login
