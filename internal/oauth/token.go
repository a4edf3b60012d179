package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
)

const (
	loadTimeout    = 5 * time.Second
	refreshTimeout = 10 * time.Second
)

type TokenChecker interface {
	HasToken(ctx context.Context) (bool, error)
}

var (
	_ TokenChecker       = (*StoreTokenSource)(nil)
	_ oauth2.TokenSource = (*StoreTokenSource)(nil)
)

// StoreTokenSource serves the single stored credential for a provider and
// refreshes it through the oauth2 token endpoint once it expires. Refreshes
// are serialized within the process; across processes the last UpsertToken
// wins.
type StoreTokenSource struct {
	config     *oauth2.Config
	store      storage.TokenStore
	provider   string
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

type TokenSourceOption func(*StoreTokenSource)

// WithHTTPClient sets the client used for refresh requests.
func WithHTTPClient(c *http.Client) TokenSourceOption {
	return func(s *StoreTokenSource) { s.httpClient = c }
}

func WithProvider(provider string) TokenSourceOption {
	return func(s *StoreTokenSource) { s.provider = provider }
}

func NewStoreTokenSource(config *oauth2.Config, store storage.TokenStore, opts ...TokenSourceOption) *StoreTokenSource {
	s := &StoreTokenSource{
		config:   config,
		store:    store,
		provider: storage.ProviderSalla,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StoreTokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext is Token bound to ctx for the store lookup and the refresh.
func (s *StoreTokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.token.Valid() {
		return s.token, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	stored, err := s.store.GetToken(loadCtx, s.provider)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	token := storedToOAuth2(stored)
	if token.Valid() {
		s.token = token
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, ErrTokenExpired
	}

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	if s.httpClient != nil {
		refreshCtx = context.WithValue(refreshCtx, oauth2.HTTPClient, s.httpClient)
	}

	newToken, err := s.config.TokenSource(refreshCtx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := s.save(refreshCtx, newToken); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	s.token = newToken
	return newToken, nil
}

// Save stores a token received out of band, such as from the authorize
// webhook, and makes it the cached credential.
func (s *StoreTokenSource) Save(ctx context.Context, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, token); err != nil {
		return err
	}
	s.token = token
	return nil
}

func (s *StoreTokenSource) HasToken(ctx context.Context) (bool, error) {
	_, err := s.store.GetToken(ctx, s.provider)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *StoreTokenSource) save(ctx context.Context, token *oauth2.Token) error {
	return s.store.UpsertToken(ctx, storage.Token{
		Provider:     s.provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	})
}

func storedToOAuth2(t storage.Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}
