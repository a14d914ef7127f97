// Package lastfm looks up Last.fm tags to fill in missing track genres.
package lastfm

import (
	"errors"
	"strings"
)

// ErrMissingAPIKey is returned when no Last.fm API key is configured.
var ErrMissingAPIKey = errors.New("missing Last.fm API key (LASTFM_API_KEY)")

// Config holds Last.fm API configuration.
type Config struct {
	APIKey string
}

// NewConfig validates apiKey, usually taken from config.ProvidersConfig.
func NewConfig(apiKey string) (*Config, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Config{APIKey: apiKey}, nil
}
