package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// OAuthConfig builds the OAuth2 client configuration for the Drive API. Only
// the drive.file scope is requested: the service sees the files it created
// and nothing else.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		RedirectURL: redirectURI,
		Scopes:      []string{"https://www.googleapis.com/auth/drive.file"},
	}
}

// persistedToken is the on-disk shape of the token file.
type persistedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// TokenStore holds the OAuth token pair for the Drive client and persists it
// to a local JSON file. All writes go through a single mutex so a refresh in
// one request cannot interleave with a save in another.
type TokenStore struct {
	path string

	mu   sync.Mutex
	last *oauth2.Token
}

// NewTokenStore creates a TokenStore persisting to path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads a previously persisted token pair. It returns os.ErrNotExist
// (wrapped) when no token file has been minted yet.
func (ts *TokenStore) Load() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	data, err := os.ReadFile(ts.path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var pt persistedToken
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", ts.path, err)
	}
	tok := &oauth2.Token{
		AccessToken:  pt.AccessToken,
		RefreshToken: pt.RefreshToken,
		TokenType:    pt.TokenType,
		Expiry:       pt.Expiry,
	}
	ts.last = tok
	return tok, nil
}

// Save persists a token pair. Refresh tokens are often issued only on the
// first exchange, so a save that omits one keeps the previously-known value.
func (ts *TokenStore) Save(tok *oauth2.Token) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if tok.RefreshToken == "" && ts.last != nil {
		tok.RefreshToken = ts.last.RefreshToken
	}

	pt := persistedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	data, err := json.MarshalIndent(pt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(ts.path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	ts.last = tok
	return nil
}

// persistingTokenSource wraps an oauth2.TokenSource and writes every rotated
// token pair through the TokenStore before handing it to the caller.
type persistingTokenSource struct {
	src   oauth2.TokenSource
	store *TokenStore

	mu         sync.Mutex
	lastAccess string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	rotated := tok.AccessToken != p.lastAccess
	p.lastAccess = tok.AccessToken
	p.mu.Unlock()

	if rotated {
		if err := p.store.Save(tok); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}
	return tok, nil
}

// NewHTTPClient returns an *http.Client that authenticates against the Drive
// API with the stored token pair, refreshing and re-persisting it as needed.
func NewHTTPClient(ctx context.Context, cfg *oauth2.Config, store *TokenStore) (*http.Client, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load drive token: %w", err)
	}
	src := &persistingTokenSource{
		src:        cfg.TokenSource(ctx, tok),
		store:      store,
		lastAccess: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}
