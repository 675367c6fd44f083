// ABOUTME: Loopback HTTP server receiving the OAuth authorization redirect
// ABOUTME: Binds an ephemeral 127.0.0.1 port and forwards the full URI

package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// CallbackPath is the path the authorization server redirects back to.
const CallbackPath = "/oauth/callback"

// CallbackServer listens on a loopback port for the browser redirect
// that carries the authorization code. One redirect is expected per
// login attempt; later deliveries of the same code are still forwarded
// so the controller's replay guard can log them.
type CallbackServer struct {
	listener  net.Listener
	server    *http.Server
	redirects chan string
	logger    *slog.Logger
}

// NewCallbackServer binds 127.0.0.1 on the given port; port 0 picks an
// ephemeral one. The server does not accept requests until Serve runs.
func NewCallbackServer(port int, logger *slog.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding callback listener: %w", err)
	}

	s := &CallbackServer{
		listener:  listener,
		redirects: make(chan string, 4),
		logger:    logger.With("component", "callback"),
	}

	router := mux.NewRouter()
	router.HandleFunc(CallbackPath, s.handleCallback).Methods(http.MethodGet)

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// RedirectURI returns the URI to register with the authorization server,
// including the bound port.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", s.listener.Addr().String(), CallbackPath)
}

// Redirects yields the full redirect URIs as the browser delivers them.
func (s *CallbackServer) Redirects() <-chan string {
	return s.redirects
}

// Serve blocks handling requests until Shutdown is called.
func (s *CallbackServer) Serve() error {
	s.logger.Debug("callback server listening", "addr", s.listener.Addr().String())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	uri := s.RedirectURI()
	if raw := r.URL.RawQuery; raw != "" {
		uri += "?" + raw
	}

	select {
	case s.redirects <- uri:
	default:
		s.logger.Warn("dropping redirect, channel full")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html><html><body><p>Authorization received. You can return to the terminal.</p></body></html>`)
}
