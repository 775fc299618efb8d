package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// InstalledFlow runs the installed-app authorization code flow with a loopback
// redirect: it prints the consent URL, waits for the browser to be redirected
// to a local listener, and exchanges the code (PKCE protected).
type InstalledFlow struct {
	Config     *oauth2.Config
	Prompt     io.Writer // defaults to os.Stdout
	ListenAddr string    // defaults to 127.0.0.1:0
}

type callbackResult struct {
	code string
	err  error
}

// Token obtains a new token. It blocks until the redirect arrives or ctx ends.
func (f *InstalledFlow) Token(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, errors.New("installed flow: nil oauth config")
	}
	addr := f.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("installed flow: listen: %w", err)
	}

	cfg := *f.Config
	cfg.RedirectURL = "http://" + ln.Addr().String()
	state := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := readCallback(r, state)
			if res.err != nil {
				http.Error(w, "authorization failed", http.StatusBadRequest)
			} else {
				_, _ = w.Write([]byte("Authorization complete. You can close this window."))
			}
			select {
			case results <- res:
			default:
			}
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("oauth callback server error", slog.Any("err", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	prompt := f.Prompt
	if prompt == nil {
		prompt = os.Stdout
	}
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	_, _ = fmt.Fprintf(prompt, "Please direct your browser to %s and follow the instructions displayed there.\n", authURL)

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}
	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("installed flow: exchange code: %w", err)
	}
	return tok, nil
}

func readCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: fmt.Errorf("installed flow: authorization denied: %s", e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: errors.New("installed flow: state mismatch")}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("installed flow: missing code")}
	}
	return callbackResult{code: code}
}
