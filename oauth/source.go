package oauth

import (
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

type persistingSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	store  TokenStore
	scopes []string
	last   string
}

// PersistingTokenSource wraps src and writes every newly minted token to store,
// so refreshed tokens survive restarts. initial is the token src started from.
func PersistingTokenSource(src oauth2.TokenSource, store TokenStore, scopes []string, initial *oauth2.Token) oauth2.TokenSource {
	ps := &persistingSource{src: src, store: store, scopes: scopes}
	if initial != nil {
		ps.last = initial.AccessToken
	}
	return ps
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.store.Put(p.scopes, tok); err != nil {
			slog.Warn("token persist failed", slog.String("component", "oauth"), slog.Any("err", err))
		} else {
			slog.Info("token refreshed", slog.String("component", "oauth"))
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
