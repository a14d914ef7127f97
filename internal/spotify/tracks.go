package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// ErrTrackNotFound is returned when a search yields no tracks.
var ErrTrackNotFound = errors.New("track not found on Spotify")

// FindTrack searches for a track by title and artist and returns its ID.
// A result whose artist matches exactly is preferred over the top hit.
func (c *Client) FindTrack(ctx context.Context, title, artist string) (spotify.ID, error) {
	res, err := c.api.Search(ctx, searchQuery(title, artist), spotify.SearchTypeTrack, spotify.Limit(5))
	if err != nil {
		return "", fmt.Errorf("searching %q by %q: %w", title, artist, err)
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return "", fmt.Errorf("%w: %q by %q", ErrTrackNotFound, title, artist)
	}

	for _, t := range res.Tracks.Tracks {
		if hasArtist(t, artist) {
			return t.ID, nil
		}
	}
	return res.Tracks.Tracks[0].ID, nil
}

func searchQuery(title, artist string) string {
	clean := strings.NewReplacer(`"`, "").Replace
	return fmt.Sprintf(`track:"%s" artist:"%s"`, clean(title), clean(artist))
}

func hasArtist(t spotify.FullTrack, artist string) bool {
	for _, a := range t.Artists {
		if strings.EqualFold(a.Name, artist) {
			return true
		}
	}
	return false
}
