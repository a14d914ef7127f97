// Package auth obtains Spotify app tokens with the client-credentials grant.
// No user login is involved, so only catalog endpoints (search, audio
// features) are reachable.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when the client id or secret is empty.
var ErrMissingCredentials = errors.New("missing Spotify client credentials (SPOTIFY_ID, SPOTIFY_SECRET)")

// Config configures an AppAuthenticator.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string      // defaults to Spotify's token endpoint
	Cache        *TokenCache // optional
	Logger       *slog.Logger
}

// AppAuthenticator hands out HTTP clients authorized as the application.
type AppAuthenticator struct {
	cc     *clientcredentials.Config
	cache  *TokenCache
	logger *slog.Logger
}

// New validates cfg and creates an authenticator.
func New(cfg Config) (*AppAuthenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &AppAuthenticator{
		cc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
		cache:  cfg.Cache,
		logger: cfg.Logger,
	}, nil
}

// TokenSource returns a reusing token source seeded from the cache. Fresh
// tokens are written back to the cache.
func (a *AppAuthenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	var initial *oauth2.Token
	if a.cache != nil {
		tok, err := a.cache.Load(a.cc.ClientID)
		switch {
		case err != nil:
			a.logger.Warn("ignoring unreadable token cache", "path", a.cache.Path(), "error", err)
		case tok != nil && tok.Valid():
			initial = tok
		}
	}
	return oauth2.ReuseTokenSource(initial, &cachingSource{
		src:      a.cc.TokenSource(ctx),
		clientID: a.cc.ClientID,
		cache:    a.cache,
		logger:   a.logger,
	})
}

// HTTPClient returns an HTTP client that adds the app token to requests.
func (a *AppAuthenticator) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, a.TokenSource(ctx))
}

// Client returns a Spotify API client authorized as the application.
func (a *AppAuthenticator) Client(ctx context.Context, opts ...spotify.ClientOption) *spotify.Client {
	opts = append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)
	return spotify.New(a.HTTPClient(ctx), opts...)
}

type cachingSource struct {
	src      oauth2.TokenSource
	clientID string
	cache    *TokenCache
	logger   *slog.Logger
}

func (s *cachingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Save(s.clientID, tok); err != nil {
			s.logger.Warn("failed to cache Spotify token", "error", err)
		}
	}
	return tok, nil
}
