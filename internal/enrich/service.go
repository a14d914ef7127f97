// Package enrich fills missing catalog attributes from Last.fm and Spotify.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/policy"
	"github.com/justestif/moodmix/internal/spotify"
)

// DefaultConcurrency is the number of tracks looked up in parallel.
const DefaultConcurrency = 5

// GenreSource resolves a track's genre from a fixed vocabulary.
type GenreSource interface {
	TopGenre(ctx context.Context, artist, track string, vocabulary []string) (string, error)
}

// FeatureSource resolves audio features.
type FeatureSource interface {
	FindTrack(ctx context.Context, title, artist string) (spotifyapi.ID, error)
	FetchAudioFeatures(ctx context.Context, ids []spotifyapi.ID) (map[spotifyapi.ID]spotify.Features, error)
}

// TrackError records a failed lookup for one track.
type TrackError struct {
	Key string
	Op  string // "genre", "find" or "features"
	Err error
}

func (e TrackError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

// Report summarizes an enrichment run.
type Report struct {
	Tracks         []catalog.Track
	GenresFilled   int
	FeaturesFilled int
	Errors         []TrackError
}

// Service enriches tracks. Either source may be nil.
type Service struct {
	genres      GenreSource
	features    FeatureSource
	vocabulary  []string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of concurrent lookups.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithGenres enables genre lookups.
func WithGenres(src GenreSource) Option {
	return func(s *Service) { s.genres = src }
}

// WithFeatures enables audio feature lookups.
func WithFeatures(src FeatureSource) Option {
	return func(s *Service) { s.features = src }
}

// WithVocabulary overrides the genres a lookup may assign.
func WithVocabulary(genres []string) Option {
	return func(s *Service) { s.vocabulary = genres }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates an enrichment service.
func NewService(opts ...Option) *Service {
	s := &Service{
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether any source is configured.
func (s *Service) Enabled() bool {
	return s.genres != nil || s.features != nil
}

// Enrich returns copies of tracks with missing genre and audio features
// filled in. Present values are never overwritten. Lookup failures are
// collected in the report; only context cancellation fails the run.
func (s *Service) Enrich(ctx context.Context, tracks []catalog.Track) (*Report, error) {
	out := make([]catalog.Track, len(tracks))
	copy(out, tracks)
	report := &Report{Tracks: out}
	if len(out) == 0 || !s.Enabled() {
		return report, nil
	}

	vocabulary := s.vocabulary
	if vocabulary == nil {
		vocabulary = vocabularyFor(out)
	}

	type workItem struct {
		index int
		track catalog.Track
	}
	workCh := make(chan workItem, len(out))
	for i, t := range out {
		workCh <- workItem{index: i, track: t}
	}
	close(workCh)

	var (
		mu  sync.Mutex
		ids = make(map[int]spotifyapi.ID)
		wg  sync.WaitGroup
	)
	fail := func(key, op string, err error) {
		mu.Lock()
		report.Errors = append(report.Errors, TrackError{Key: key, Op: op, Err: err})
		mu.Unlock()
	}

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				if ctx.Err() != nil {
					continue
				}
				t := work.track

				if s.genres != nil && t.Genre == nil {
					g, err := s.genres.TopGenre(ctx, t.Artist, t.Title, vocabulary)
					switch {
					case err != nil:
						fail(t.Key(), "genre", err)
					case g != "":
						mu.Lock()
						out[work.index].Genre = catalog.String(g)
						report.GenresFilled++
						mu.Unlock()
					}
				}

				if s.features != nil && !t.HasFeatures() {
					id, err := s.features.FindTrack(ctx, t.Title, t.Artist)
					if err != nil {
						fail(t.Key(), "find", err)
						continue
					}
					mu.Lock()
					ids[work.index] = id
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if len(ids) > 0 {
		s.applyFeatures(ctx, report, ids)
	}

	s.logger.Info("catalog enrichment finished",
		"tracks", len(out),
		"genres_filled", report.GenresFilled,
		"features_filled", report.FeaturesFilled,
		"errors", len(report.Errors),
	)
	return report, ctx.Err()
}

func (s *Service) applyFeatures(ctx context.Context, report *Report, ids map[int]spotifyapi.ID) {
	list := make([]spotifyapi.ID, 0, len(ids))
	for _, id := range ids {
		list = append(list, id)
	}

	features, err := s.features.FetchAudioFeatures(ctx, list)
	if err != nil {
		for i := range ids {
			report.Errors = append(report.Errors, TrackError{Key: report.Tracks[i].Key(), Op: "features", Err: err})
		}
		return
	}

	for i, id := range ids {
		f, ok := features[id]
		if !ok {
			continue
		}
		if f.ApplyMissing(&report.Tracks[i]) {
			report.FeaturesFilled++
		}
	}
}

// vocabularyFor is the policy genres plus every genre already in tracks.
func vocabularyFor(tracks []catalog.Track) []string {
	vocab := policy.KnownGenres()
	seen := make(map[string]bool, len(vocab))
	for _, g := range vocab {
		seen[g] = true
	}
	for _, t := range tracks {
		if t.Genre != nil && !seen[*t.Genre] {
			seen[*t.Genre] = true
			vocab = append(vocab, *t.Genre)
		}
	}
	return vocab
}
