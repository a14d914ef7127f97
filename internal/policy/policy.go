// Package policy maps a free-text emotion label to a target musical profile.
package policy

import (
	"fmt"
	"math"
	"strings"
)

// Mode nudges the generated policy. The zero value means no mode was given.
type Mode string

const (
	ModeNone    Mode = ""
	ModeReflect Mode = "reflect"
	ModeWork    Mode = "work"
)

// ParseMode parses a caller-supplied mode. Matching is case-insensitive and
// ignores surrounding whitespace; the empty string maps to ModeNone.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNone:
		return ModeNone, true
	case ModeReflect:
		return ModeReflect, true
	case ModeWork:
		return ModeWork, true
	default:
		return ModeNone, false
	}
}

// Policy is the target musical profile derived from a mood.
type Policy struct {
	Tempo   float64  `json:"tempo"`   // BPM, always positive
	Energy  float64  `json:"energy"`  // [0, 1]
	Valence float64  `json:"valence"` // [0, 1]
	Genres  []string `json:"genres"`  // preference order
}

// bucket is one keyword set and the profile it resolves to.
type bucket struct {
	keywords []string
	tempo    float64
	energy   float64
	valence  float64
	genres   []string
}

// buckets are scanned in order and the first match wins. An emotion such as
// "happy but stressed" resolves to the happy profile.
var buckets = []bucket{
	{keywords: []string{"happy", "joy", "excited"}, tempo: 130, energy: 0.8, valence: 0.9, genres: []string{"pop", "dance"}},
	{keywords: []string{"sad", "down", "blue"}, tempo: 70, energy: 0.25, valence: 0.2, genres: []string{"ambient", "singer-songwriter"}},
	{keywords: []string{"calm", "relaxed", "peace"}, tempo: 80, energy: 0.3, valence: 0.6, genres: []string{"chill", "ambient"}},
	{keywords: []string{"angry", "frustrat", "stressed"}, tempo: 150, energy: 0.9, valence: 0.3, genres: []string{"rock", "electronic"}},
	{keywords: []string{"focused", "work", "productive"}, tempo: 110, energy: 0.6, valence: 0.6, genres: []string{"electronic", "instrumental"}},
}

// neutral is used when no bucket matches.
var neutral = bucket{tempo: 100, energy: 0.5, valence: 0.5, genres: []string{"indie"}}

const (
	workTempoFactor = 1.05
	workEnergyBoost = 0.05
)

// Map converts an emotion label and mode into a Policy.
// It is total: empty or unrecognized emotions yield the neutral profile.
func Map(emotion string, mode Mode) Policy {
	e := strings.ToLower(emotion)
	if e == "" {
		e = "neutral"
	}

	b := match(e)
	p := Policy{
		Tempo:   b.tempo,
		Energy:  b.energy,
		Valence: b.valence,
		Genres:  append([]string(nil), b.genres...),
	}

	if mode == ModeWork {
		p.Tempo = math.Round(p.Tempo * workTempoFactor)
		p.Energy = math.Min(1, p.Energy+workEnergyBoost)
	}

	p.Energy = clamp01(p.Energy)
	p.Valence = clamp01(p.Valence)
	return p
}

// match returns the first bucket with a keyword contained in e.
func match(e string) bucket {
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(e, kw) {
				return b
			}
		}
	}
	return neutral
}

// KnownGenres returns every genre any profile prefers, in first-seen order.
func KnownGenres() []string {
	seen := make(map[string]bool)
	var out []string
	all := make([]bucket, 0, len(buckets)+1)
	all = append(append(all, buckets...), neutral)
	for _, b := range all {
		for _, g := range b.genres {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// HasGenre reports whether genre is one of the policy's preferred genres.
func (p Policy) HasGenre(genre string) bool {
	for _, g := range p.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Summary returns short display labels for the policy:
// tempo, energy and positivity percentages followed by the genres.
func (p Policy) Summary() []string {
	chips := []string{
		fmt.Sprintf("%.0f BPM", p.Tempo),
		fmt.Sprintf("Energy %.0f%%", math.Round(p.Energy*100)),
		fmt.Sprintf("Positivity %.0f%%", math.Round(p.Valence*100)),
	}
	return append(chips, p.Genres...)
}

// Blend averages the numeric targets of ps and takes the union of their
// genres in first-seen order. Blending nothing yields the neutral profile.
func Blend(ps ...Policy) Policy {
	if len(ps) == 0 {
		return Map("", ModeNone)
	}

	var out Policy
	seen := make(map[string]bool)
	for _, p := range ps {
		out.Tempo += p.Tempo
		out.Energy += p.Energy
		out.Valence += p.Valence
		for _, g := range p.Genres {
			if !seen[g] {
				seen[g] = true
				out.Genres = append(out.Genres, g)
			}
		}
	}

	n := float64(len(ps))
	out.Tempo = math.Round(out.Tempo / n)
	out.Energy = clamp01(out.Energy / n)
	out.Valence = clamp01(out.Valence / n)
	if out.Genres == nil {
		out.Genres = []string{}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
