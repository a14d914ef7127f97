// Package retrieval ranks catalog tracks against a target policy.
//
// Scoring is a Euclidean distance over three axes: tempo (scaled by
// TempoScale), energy and valence. A track attribute that is unknown
// contributes nothing on its axis: it is replaced with the policy's own
// value rather than zero or a catalog mean. Tracks whose genre is one of the
// policy's genres get their distance multiplied by GenreBonus.
package retrieval

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/policy"
)

const (
	// TempoScale brings BPM onto a scale comparable with energy and valence.
	TempoScale = 200.0

	// GenreBonus multiplies the distance of a genre-matching track.
	GenreBonus = 0.8
)

// ScoredTrack is a catalog track ranked against a policy.
type ScoredTrack struct {
	ID       string        `json:"id"`
	Track    catalog.Track `json:"track"`
	Distance float64       `json:"distance"` // [0, 1], lower is better
}

// Retrieve scores every track against p and returns the best k, ordered by
// ascending distance. Equal distances keep catalog order. k <= 0 or an empty
// catalog yields an empty result.
//
// IDs are "real-<rank>-<slug>" where rank is the 0-based position in the
// returned list.
func Retrieve(p policy.Policy, tracks []catalog.Track, k int) []ScoredTrack {
	if k <= 0 || len(tracks) == 0 {
		return []ScoredTrack{}
	}

	scored := make([]ScoredTrack, len(tracks))
	for i, t := range tracks {
		scored[i] = ScoredTrack{Track: t, Distance: Distance(p, t)}
	}

	slices.SortStableFunc(scored, func(a, b ScoredTrack) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].ID = fmt.Sprintf("real-%d-%s", i, Slug(scored[i].Track.Title))
	}
	return scored
}

// Distance returns the clamped similarity distance between p and t.
// Missing attributes take the policy's value; a non-positive tempo counts
// as missing.
func Distance(p policy.Policy, t catalog.Track) float64 {
	tempo := t.Tempo
	if tempo != nil && *tempo <= 0 {
		tempo = nil
	}
	dTempo := p.Tempo/TempoScale - valueOr(tempo, p.Tempo)/TempoScale
	dEnergy := p.Energy - valueOr(t.Energy, p.Energy)
	dValence := p.Valence - valueOr(t.Valence, p.Valence)

	dist := math.Sqrt(dTempo*dTempo + dEnergy*dEnergy + dValence*dValence)

	if t.Genre != nil && p.HasGenre(*t.Genre) {
		dist *= GenreBonus
	}

	return math.Max(0, math.Min(1, dist))
}

// Slug lower-cases title and replaces each run of whitespace with a hyphen.
func Slug(title string) string {
	var sb strings.Builder
	inSpace := false
	for _, r := range title {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
