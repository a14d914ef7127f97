package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/moodmix/internal/catalog"
)

// Features are the audio attributes the retriever scores on.
type Features struct {
	Tempo   float64
	Energy  float64
	Valence float64
}

// FetchAudioFeatures retrieves features for ids, batching 100 per request.
// Tracks Spotify has no features for are absent from the result.
func (c *Client) FetchAudioFeatures(ctx context.Context, ids []spotify.ID) (map[spotify.ID]Features, error) {
	out := make(map[spotify.ID]Features, len(ids))

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))

		features, err := c.api.GetAudioFeatures(ctx, ids[i:end]...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, err)
		}
		for _, f := range features {
			if f == nil {
				continue
			}
			out[f.ID] = featuresFrom(f)
		}
		c.logger.Debug("fetched audio features", "from", i+1, "to", end, "total", len(ids))
	}

	return out, nil
}

func featuresFrom(f *spotify.AudioFeatures) Features {
	return Features{
		Tempo:   float64(f.Tempo),
		Energy:  float64(f.Energy),
		Valence: float64(f.Valence),
	}
}

// ApplyMissing copies f into t wherever t has no value. It reports whether
// anything changed. A non-positive tempo is treated as unknown.
func (f Features) ApplyMissing(t *catalog.Track) bool {
	changed := false
	if t.Tempo == nil && f.Tempo > 0 {
		t.Tempo = catalog.Float(f.Tempo)
		changed = true
	}
	if t.Energy == nil {
		t.Energy = catalog.Float(f.Energy)
		changed = true
	}
	if t.Valence == nil {
		t.Valence = catalog.Float(f.Valence)
		changed = true
	}
	return changed
}
