// Package playlist turns an emotion into a ranked playlist drawn from the
// catalog.
package playlist

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/clustering"
	"github.com/justestif/moodmix/internal/policy"
	"github.com/justestif/moodmix/internal/retrieval"
)

// DefaultSize is the playlist length used when the caller does not ask for one.
const DefaultSize = 10

// Request describes a playlist to generate.
type Request struct {
	Emotion string
	Mode    policy.Mode
	K       int
}

// Result is a generated playlist.
type Result struct {
	Emotion  string                  `json:"emotion"`
	Mode     policy.Mode             `json:"mode,omitempty"`
	Title    string                  `json:"title"`
	Subtitle string                  `json:"subtitle"`
	Policy   policy.Policy           `json:"policy"`
	Summary  []string                `json:"summary"`
	Mood     clustering.MoodCategory `json:"mood"`
	Items    []retrieval.ScoredTrack `json:"items"`
}

// Service generates playlists from a fixed catalog.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	catalog *catalog.Catalog
}

// NewService creates a playlist service over cat.
func NewService(cat *catalog.Catalog) *Service {
	return &Service{catalog: cat}
}

// Catalog returns the catalog the service draws from.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Generate maps the request's emotion to a policy and retrieves the K
// closest catalog tracks. K <= 0 yields an empty playlist.
func (s *Service) Generate(req Request) Result {
	p := policy.Map(req.Emotion, req.Mode)
	items := retrieval.Retrieve(p, s.catalog.Tracks(), req.K)

	return Result{
		Emotion:  req.Emotion,
		Mode:     req.Mode,
		Title:    title(req.Emotion),
		Subtitle: subtitle(req.Mode),
		Policy:   p,
		Summary:  p.Summary(),
		Mood:     clustering.CategoryFor(p.Energy, p.Valence, p.Tempo),
		Items:    items,
	}
}

func title(emotion string) string {
	e := strings.TrimSpace(emotion)
	if e == "" {
		return "Playlist"
	}
	r, size := utf8.DecodeRuneInString(e)
	return string(unicode.ToUpper(r)) + e[size:] + " Playlist"
}

func subtitle(mode policy.Mode) string {
	if mode == policy.ModeWork {
		return "Working with your mood"
	}
	return "Reflecting your mood"
}
