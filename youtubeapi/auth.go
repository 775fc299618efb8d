package youtubeapi

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/onnwee/ytmod/config"
	"github.com/onnwee/ytmod/oauth"
	"github.com/onnwee/ytmod/telemetry"
)

// TokenFlow obtains a brand new token when none is cached.
type TokenFlow func(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error)

// Authenticator turns the installed-app secrets and the token cache into an
// authorized HTTP client.
type Authenticator struct {
	oauth  *oauth2.Config
	store  oauth.TokenStore
	scopes []string
	flow   TokenFlow
}

// NewAuthenticator reads cfg.SecretsFile. A missing file or malformed secret is a startup error.
func NewAuthenticator(cfg *config.Config, store oauth.TokenStore) (*Authenticator, error) {
	data, err := os.ReadFile(cfg.SecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.SecretsFile, err)
	}
	scopes := cfg.Scopes()
	oc, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse application secret: %w", err)
	}
	return &Authenticator{oauth: oc, store: store, scopes: scopes, flow: installedFlow}, nil
}

func installedFlow(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error) {
	return (&oauth.InstalledFlow{Config: oc}).Token(ctx)
}

// HTTPClient returns a client that authorizes each request, running the
// consent flow on first use. ctx must outlive the client: it carries token
// refreshes.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := a.store.Get(a.scopes)
	if err != nil {
		return nil, fmt.Errorf("load cached token: %w", err)
	}
	if tok == nil {
		tok, err = a.flow(ctx, a.oauth)
		if err != nil {
			return nil, fmt.Errorf("authorize: %w", err)
		}
		if err := a.store.Put(a.scopes, tok); err != nil {
			return nil, fmt.Errorf("store token: %w", err)
		}
	}
	base := telemetry.HTTPClient(nil, 0)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := oauth.PersistingTokenSource(a.oauth.TokenSource(ctx, tok), a.store, a.scopes, tok)
	return &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base.Transport}}, nil
}

// Client returns the chat provider for the authorized account.
func (a *Authenticator) Client(ctx context.Context) (*Client, error) {
	hc, err := a.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewClientWithHTTP(ctx, hc)
}
