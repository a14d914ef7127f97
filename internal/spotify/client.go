// Package spotify looks up catalog tracks and their audio features on the
// Spotify Web API.
package spotify

import (
	"log/slog"

	"github.com/zmb3/spotify/v2"
)

// maxTracksPerRequest is Spotify's batch limit for audio features.
const maxTracksPerRequest = 100

// Client wraps an app-authorized Spotify API client.
type Client struct {
	api    *spotify.Client
	logger *slog.Logger
}

// New creates a client around api, which should already carry credentials
// (see auth.AppAuthenticator).
func New(api *spotify.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger}
}
