package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

const (
	configDirName = "moodmix"
	tokenFileName = "spotify-app-token.json"
)

// TokenCache stores the app access token on disk so CLI runs can share it
// until it expires. Entries are tagged with the client id that fetched them.
type TokenCache struct {
	path string
}

type cachedToken struct {
	ClientID string        `json:"client_id"`
	Token    *oauth2.Token `json:"token"`
}

// DefaultTokenCache uses ~/.config/moodmix/spotify-app-token.json.
func DefaultTokenCache() (*TokenCache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}
	return &TokenCache{path: filepath.Join(configDir, configDirName, tokenFileName)}, nil
}

// NewTokenCache creates a TokenCache at path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

func (c *TokenCache) Path() string {
	return c.path
}

// Load returns the token cached for clientID, or nil, nil when none is
// stored or it belongs to another client.
func (c *TokenCache) Load(clientID string) (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var entry cachedToken
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	if entry.ClientID != clientID {
		return nil, nil
	}
	return entry.Token, nil
}

// Save writes clientID's token with owner-only permissions.
func (c *TokenCache) Save(clientID string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("cannot save nil token")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.Marshal(cachedToken{ClientID: clientID, Token: token})
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}
