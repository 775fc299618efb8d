// Package oauth caches OAuth tokens on local disk and runs the installed-app
// authorization flow when no usable token is cached. Tokens are keyed by the
// requested scope set, so a change of scopes triggers a fresh consent.
package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"

	"github.com/onnwee/ytmod/crypto"
)

// TokenStore loads and saves the token for a scope set. Get returns (nil, nil)
// when nothing is stored.
type TokenStore interface {
	Get(scopes []string) (*oauth2.Token, error)
	Put(scopes []string, tok *oauth2.Token) error
}

// FileTokenStore keeps one JSON file per scope set under Dir. When Sealer is
// set, files are encrypted.
type FileTokenStore struct {
	AppName string
	Dir     string
	Sealer  *crypto.Sealer
}

// NewFileTokenStore creates dir (0700) if absent.
func NewFileTokenStore(appName, dir string, sealer *crypto.Sealer) (*FileTokenStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create tokens directory: %w", err)
	}
	return &FileTokenStore{AppName: appName, Dir: dir, Sealer: sealer}, nil
}

// ScopeKey returns the stable key for a scope list (FNV-64a, order sensitive).
func ScopeKey(scopes []string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(scopes, "\n")))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Path returns the file holding the token for scopes.
func (s *FileTokenStore) Path(scopes []string) string {
	return filepath.Join(s.Dir, s.fileName(scopes))
}

func (s *FileTokenStore) fileName(scopes []string) string {
	return fmt.Sprintf("%s-token-%s.json", s.AppName, ScopeKey(scopes))
}

// Get reads the token for scopes.
func (s *FileTokenStore) Get(scopes []string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path(scopes))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if s.Sealer != nil && !looksLikeJSON(data) {
		data, err = s.Sealer.Open(strings.TrimSpace(string(data)), s.fileName(scopes))
		if err != nil {
			return nil, fmt.Errorf("open sealed token: %w", err)
		}
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	slog.Debug("read cached token", slog.String("component", "oauth_store"), slog.Any("scopes", scopes))
	return &tok, nil
}

// Put writes the token for scopes, replacing any previous file atomically.
func (s *FileTokenStore) Put(scopes []string, tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("nil token")
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if s.Sealer != nil {
		sealed, err := s.Sealer.Seal(data, s.fileName(scopes))
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		data = []byte(sealed)
	}
	tmp, err := os.CreateTemp(s.Dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(scopes)); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	slog.Debug("stored token", slog.String("component", "oauth_store"), slog.Any("scopes", scopes))
	return nil
}

func looksLikeJSON(b []byte) bool {
	t := strings.TrimSpace(string(b))
	return strings.HasPrefix(t, "{")
}
