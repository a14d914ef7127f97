// Package catalog holds the read-only set of candidate tracks that playlists
// are drawn from.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

//go:embed catalog.json
var defaultCatalog []byte

// ErrInvalidTrack is returned when a catalog entry fails validation.
var ErrInvalidTrack = errors.New("invalid track")

// Track is a catalog entry with optional audio attributes.
// A nil attribute means the value is unknown, not zero.
type Track struct {
	Title   string   `json:"title"`
	Artist  string   `json:"artist"`
	Tempo   *float64 `json:"tempo,omitempty"`   // BPM
	Energy  *float64 `json:"energy,omitempty"`  // [0, 1]
	Valence *float64 `json:"valence,omitempty"` // [0, 1]
	Genre   *string  `json:"genre,omitempty"`
}

// Key returns a storage key built from artist and title.
func (t Track) Key() string {
	return keyPart(t.Artist) + ":" + keyPart(t.Title)
}

// HasFeatures reports whether tempo, energy and valence are all known.
func (t Track) HasFeatures() bool {
	return t.Tempo != nil && t.Energy != nil && t.Valence != nil
}

// Validate checks the track's invariants.
func (t Track) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidTrack)
	}
	if t.Tempo != nil && *t.Tempo <= 0 {
		return fmt.Errorf("%w: %q tempo %v is not positive", ErrInvalidTrack, t.Title, *t.Tempo)
	}
	if t.Energy != nil && (*t.Energy < 0 || *t.Energy > 1) {
		return fmt.Errorf("%w: %q energy %v outside [0,1]", ErrInvalidTrack, t.Title, *t.Energy)
	}
	if t.Valence != nil && (*t.Valence < 0 || *t.Valence > 1) {
		return fmt.Errorf("%w: %q valence %v outside [0,1]", ErrInvalidTrack, t.Title, *t.Valence)
	}
	return nil
}

// Catalog is an immutable snapshot of tracks. It is safe for concurrent use.
type Catalog struct {
	tracks []Track
}

// New validates tracks and returns a catalog holding a copy of them.
func New(tracks []Track) (*Catalog, error) {
	for i, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
	}
	return &Catalog{tracks: cloneTracks(tracks)}, nil
}

// Tracks returns a copy of the catalog's tracks in catalog order.
func (c *Catalog) Tracks() []Track {
	return cloneTracks(c.tracks)
}

// Len returns the number of tracks.
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// Default returns the curated built-in catalog.
func Default() *Catalog {
	tracks, err := Parse(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
	}
	c, err := New(tracks)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a JSON array of tracks.
func Parse(r io.Reader) ([]Track, error) {
	var tracks []Track
	if err := json.NewDecoder(r).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return tracks, nil
}

// LoadFile reads and validates a JSON catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	tracks, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return New(tracks)
}

// Float returns a pointer to v, for building tracks in code.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }

func keyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}

// cloneTracks deep-copies tracks so callers never share attribute pointers
// with the catalog.
func cloneTracks(tracks []Track) []Track {
	out := slices.Clone(tracks)
	for i := range out {
		out[i].Tempo = cloneFloat(out[i].Tempo)
		out[i].Energy = cloneFloat(out[i].Energy)
		out[i].Valence = cloneFloat(out[i].Valence)
		if out[i].Genre != nil {
			g := *out[i].Genre
			out[i].Genre = &g
		}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
