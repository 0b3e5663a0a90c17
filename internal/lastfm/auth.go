package lastfm

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

const (
	// AuthCallbackAddr is where the local authorization callback listens.
	AuthCallbackAddr = "127.0.0.1:9847"

	// AuthTimeout bounds how long Link waits for the user.
	AuthTimeout = 5 * time.Minute
)

// ErrAuthDenied is returned when the callback arrives without a token.
var ErrAuthDenied = errors.New("authorization denied")

// AuthServer handles the authorization callback.
type AuthServer struct {
	server    *http.Server
	listener  net.Listener
	tokenChan chan string
	done      chan struct{}
}

// StartAuthServer starts a local HTTP server on addr to receive the callback.
func StartAuthServer(addr string) (*AuthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	as := &AuthServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener:  listener,
		tokenChan: make(chan string, 1),
		done:      make(chan struct{}),
	}

	mux.HandleFunc("/callback", as.callback)

	go func() {
		_ = as.server.Serve(listener)
		close(as.done)
	}()

	return as, nil
}

func (as *AuthServer) callback(w http.ResponseWriter, r *http.Request) {
	// Last.fm redirects here after the user authorizes, with the token in the query.
	token := r.URL.Query().Get("token")

	title, body := "Authorization Successful!", "You can close this window and return to Riptide."
	if token == "" {
		title, body = "Authorization Failed", "No token received. Please try again."
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Riptide - Last.fm Authorization</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(title), html.EscapeString(body))

	// First callback wins
	select {
	case as.tokenChan <- token:
	default:
	}
}

// CallbackURL is the URL Last.fm should redirect to.
func (as *AuthServer) CallbackURL() string {
	return "http://" + as.listener.Addr().String() + "/callback"
}

// WaitForToken blocks until the callback fires or ctx ends.
func (as *AuthServer) WaitForToken(ctx context.Context) (string, error) {
	select {
	case token := <-as.tokenChan:
		if token == "" {
			return "", ErrAuthDenied
		}
		return token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown stops the auth server.
func (as *AuthServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = as.server.Shutdown(ctx)
	<-as.done
}

// Authorizer is the part of Client used by the link flow.
type Authorizer interface {
	GetToken() (string, error)
	GetAuthURL(token, callback string) string
	GetSession(token string) (username, sessionKey string, err error)
}

// Link runs the desktop authorization flow: it asks for a token, shows the
// authorization page through open, waits for the callback on addr, then
// exchanges the token for a session.
func Link(ctx context.Context, c Authorizer, addr string, open func(url string) error) (username, sessionKey string, err error) {
	token, err := c.GetToken()
	if err != nil {
		return "", "", err
	}

	as, err := StartAuthServer(addr)
	if err != nil {
		return "", "", err
	}
	defer as.Shutdown()

	if err := open(c.GetAuthURL(token, as.CallbackURL())); err != nil {
		return "", "", fmt.Errorf("open authorization page: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()
	authorized, err := as.WaitForToken(ctx)
	if err != nil {
		return "", "", fmt.Errorf("wait for authorization: %w", err)
	}

	return c.GetSession(authorized)
}

// OpenBrowser opens the given URL in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
