package fleetauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Capture-phase errors, checked in this order after the wait completes.
var (
	ErrProvider      = errors.New("provider returned an error from callback")
	ErrAuthTimeout   = errors.New("timed out waiting for callback code")
	ErrStateMismatch = errors.New("state mismatch; aborting for safety")
	ErrCancelled     = errors.New("cancelled by user")
)

// CallbackResult holds whatever the browser redirect delivered. It is
// written exactly once per attempt; later requests to the callback path are
// answered but never mutate it.
type CallbackResult struct {
	Code  string
	State string
	Error string
}

// CallbackServer is the short-lived loopback listener that receives the
// authorization redirect. Its lifecycle is LISTENING -> RECEIVED -> CLOSED,
// with timeout and cancellation as alternate exits out of LISTENING.
type CallbackServer struct {
	AttemptId string

	host  string
	port  string
	path  string
	state string

	server   *http.Server
	listener net.Listener
	result   chan CallbackResult
	once     sync.Once
}

// NewCallbackServer validates the redirect target and generates the state
// nonce for this attempt. The redirect must be a plain http URL with an
// explicit port and path; anything else is a configuration error raised
// before binding, since a locally-terminated TLS endpoint cannot be
// provisioned on the fly.
func NewCallbackServer(redirectUri string) (*CallbackServer, error) {
	parsed, err := url.Parse(redirectUri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redirect URI: %v", err)
	}
	if parsed.Scheme != "http" || parsed.Hostname() == "" || parsed.Port() == "" || parsed.Path == "" || parsed.Path == "/" {
		return nil, fmt.Errorf("redirect URI must be http://localhost:3000/callback style for local capture, got %q", redirectUri)
	}
	if !isLoopback(parsed.Hostname()) {
		return nil, fmt.Errorf("redirect URI host %q is not a loopback address", parsed.Hostname())
	}

	state, err := newStateNonce()
	if err != nil {
		return nil, err
	}
	return &CallbackServer{
		AttemptId: uuid.NewString(),
		host:      parsed.Hostname(),
		port:      parsed.Port(),
		path:      parsed.Path,
		state:     state,
		result:    make(chan CallbackResult, 1),
	}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// newStateNonce returns a fresh URL-safe nonce with 24 bytes of entropy.
func newStateNonce() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// State exposes the per-attempt nonce for the authorization URL builder.
func (s *CallbackServer) State() string {
	return s.state
}

func (s *CallbackServer) Addr() string {
	return net.JoinHostPort(s.host, s.port)
}

// Path returns the sole path the listener answers on.
func (s *CallbackServer) Path() string {
	return s.path
}

// Start binds the listener and begins serving on its own goroutine. Bind
// failures are returned synchronously.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("cannot bind callback server on %s: %w", s.Addr(), err)
	}
	s.listener = ln

	r := chi.NewRouter()
	r.Use(middleware.RedirectSlashes)
	r.Get(s.path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		// single assignment; repeat requests are answered but ignored
		s.once.Do(func() {
			s.result <- CallbackResult{
				Code:  query.Get("code"),
				State: query.Get("state"),
				Error: query.Get("error"),
			}
		})

		var page []byte
		var err error
		if reason := query.Get("error"); reason != "" {
			page, err = renderErrorPage(reason)
		} else {
			page, err = renderReceivedPage()
		}
		if err != nil {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "callback received")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(page)
	})

	s.server = &http.Server{Handler: r}
	go s.server.Serve(ln)
	return nil
}

// Wait blocks until the first callback arrives, the deadline elapses, or
// the context is cancelled, whichever comes first.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (CallbackResult, error) {
	select {
	case res := <-s.result:
		return res, nil
	case <-time.After(timeout):
		return CallbackResult{}, ErrAuthTimeout
	case <-ctx.Done():
		return CallbackResult{}, ErrCancelled
	}
}

// Close releases the socket and serving goroutine. Safe on every exit path.
func (s *CallbackServer) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return s.server.Close()
	}
	return nil
}

// Validate applies the mandatory post-capture checks in order: provider
// error, missing code, then the state equality check that must precede any
// use of the code.
func (s *CallbackServer) Validate(res CallbackResult) error {
	if res.Error != "" {
		return fmt.Errorf("%w: %s", ErrProvider, res.Error)
	}
	if res.Code == "" {
		return ErrAuthTimeout
	}
	if res.State != s.state {
		return ErrStateMismatch
	}
	return nil
}
