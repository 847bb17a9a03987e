package fleetauth

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freeRedirectUri(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return fmt.Sprintf("http://127.0.0.1:%d/callback", port)
}

func TestNewCallbackServerRejectsBadRedirects(t *testing.T) {
	bad := []string{
		"https://127.0.0.1:3000/callback", // tls cannot be terminated locally
		"http://127.0.0.1/callback",       // no explicit port
		"http://127.0.0.1:3000",           // no path
		"http://127.0.0.1:3000/",          // root path
		"http://example.com:3000/callback", // not loopback
		"://not-a-url",
	}
	for _, uri := range bad {
		_, err := NewCallbackServer(uri)
		require.Error(t, err, uri)
	}

	server, err := NewCallbackServer("http://localhost:3000/callback")
	require.NoError(t, err)
	require.Equal(t, "/callback", server.Path())
}

func TestStateNonceFreshAndUrlSafe(t *testing.T) {
	a, err := NewCallbackServer("http://localhost:3000/callback")
	require.NoError(t, err)
	b, err := NewCallbackServer("http://localhost:3000/callback")
	require.NoError(t, err)

	require.NotEqual(t, a.State(), b.State())

	raw, err := base64.RawURLEncoding.DecodeString(a.State())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 16)
}

func TestOffPathRequestsReturn404AndLeaveResultUnset(t *testing.T) {
	server, err := NewCallbackServer(freeRedirectUri(t))
	require.NoError(t, err)
	require.NoError(t, server.Start())
	defer server.Close()

	res, err := http.Get("http://" + server.Addr() + "/definitely-not-callback")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	_, err = server.Wait(context.Background(), 100*time.Millisecond)
	require.ErrorIs(t, err, ErrAuthTimeout)
}

func TestFirstCallbackWriteWins(t *testing.T) {
	server, err := NewCallbackServer(freeRedirectUri(t))
	require.NoError(t, err)
	require.NoError(t, server.Start())
	defer server.Close()

	callback := "http://" + server.Addr() + server.Path()
	first, err := http.Get(callback + "?code=first&state=" + server.State())
	require.NoError(t, err)
	body, err := io.ReadAll(first.Body)
	first.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, first.StatusCode)
	require.Contains(t, first.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), "close this tab")

	// a second hit must not mutate the captured result
	second, err := http.Get(callback + "?code=attacker&state=forged")
	require.NoError(t, err)
	second.Body.Close()
	require.Equal(t, http.StatusOK, second.StatusCode)

	result, err := server.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, "first", result.Code)
	require.Equal(t, server.State(), result.State)
	require.NoError(t, server.Validate(result))
}

func TestWaitTimeoutThenSocketReleased(t *testing.T) {
	redirectUri := freeRedirectUri(t)
	server, err := NewCallbackServer(redirectUri)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	_, err = server.Wait(context.Background(), 50*time.Millisecond)
	require.ErrorIs(t, err, ErrAuthTimeout)
	require.NoError(t, server.Close())

	// no lingering bound port afterwards
	ln, err := net.Listen("tcp", server.Addr())
	require.NoError(t, err)
	ln.Close()
}

func TestWaitCancelled(t *testing.T) {
	server, err := NewCallbackServer(freeRedirectUri(t))
	require.NoError(t, err)
	require.NoError(t, server.Start())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = server.Wait(ctx, time.Minute)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestValidateOrdering(t *testing.T) {
	server, err := NewCallbackServer("http://localhost:3000/callback")
	require.NoError(t, err)

	// provider error outranks everything
	err = server.Validate(CallbackResult{Code: "code", State: "wrong", Error: "access_denied"})
	require.ErrorIs(t, err, ErrProvider)

	// then missing code
	err = server.Validate(CallbackResult{State: server.State()})
	require.ErrorIs(t, err, ErrAuthTimeout)

	// then the state check, which must precede any use of the code
	err = server.Validate(CallbackResult{Code: "code", State: "not-the-nonce"})
	require.ErrorIs(t, err, ErrStateMismatch)

	require.NoError(t, server.Validate(CallbackResult{Code: "code", State: server.State()}))
}

func TestErrorCallbackRendersErrorPage(t *testing.T) {
	server, err := NewCallbackServer(freeRedirectUri(t))
	require.NoError(t, err)
	require.NoError(t, server.Start())
	defer server.Close()

	res, err := http.Get("http://" + server.Addr() + server.Path() + "?error=access_denied")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "access_denied")

	result, err := server.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	require.ErrorIs(t, server.Validate(result), ErrProvider)
}
