// Package sync seeds the persistent catalog from a base track list,
// enriching it on the way in.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/enrich"
)

var (
	// ErrSyncTooRecent is returned when sync is attempted within the cooldown period.
	ErrSyncTooRecent = errors.New("catalog sync attempted too recently")

	// ErrEmptyCatalog is returned by Load when nothing has been synced yet.
	ErrEmptyCatalog = errors.New("stored catalog is empty")
)

// DefaultSyncCooldown is the minimum time between unforced syncs.
const DefaultSyncCooldown = 24 * time.Hour

// CatalogStore persists catalog tracks and the time of the last sync.
type CatalogStore interface {
	ListTracks(ctx context.Context) ([]catalog.Track, error)
	// ReplaceTracks makes tracks, in order, the entire stored catalog.
	ReplaceTracks(ctx context.Context, tracks []catalog.Track) error
	// LastCatalogSync returns nil when the catalog was never synced.
	LastCatalogSync(ctx context.Context) (*time.Time, error)
	MarkCatalogSynced(ctx context.Context, at time.Time) error
}

// Enricher fills missing track attributes.
type Enricher interface {
	Enabled() bool
	Enrich(ctx context.Context, tracks []catalog.Track) (*enrich.Report, error)
}

// Service syncs the catalog into a store.
type Service struct {
	store        CatalogStore
	enricher     Enricher
	syncCooldown time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSyncCooldown sets the minimum time between syncs.
func WithSyncCooldown(d time.Duration) Option {
	return func(s *Service) { s.syncCooldown = d }
}

// WithEnricher enriches tracks before they are stored.
func WithEnricher(e Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a sync service.
func New(store CatalogStore, opts ...Option) *Service {
	s := &Service{
		store:        store,
		syncCooldown: DefaultSyncCooldown,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result describes a finished sync.
type Result struct {
	TracksCount    int       `json:"tracks_count"`
	GenresFilled   int       `json:"genres_filled"`
	FeaturesFilled int       `json:"features_filled"`
	Errors         int       `json:"errors"`
	SyncedAt       time.Time `json:"synced_at"`
}

// CanSync reports whether the cooldown has elapsed, and if not, when it will.
func (s *Service) CanSync(ctx context.Context) (bool, time.Time, error) {
	last, err := s.store.LastCatalogSync(ctx)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("getting last sync: %w", err)
	}
	if last == nil {
		return true, time.Time{}, nil
	}

	next := last.Add(s.syncCooldown)
	if s.now().Before(next) {
		return false, next, nil
	}
	return true, time.Time{}, nil
}

// SyncCatalog enriches base and replaces the stored catalog with it.
// Returns ErrSyncTooRecent within the cooldown unless force is set.
func (s *Service) SyncCatalog(ctx context.Context, base []catalog.Track, force bool) (*Result, error) {
	if !force {
		ok, next, err := s.CanSync(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: next sync available at %s", ErrSyncTooRecent, next.Format(time.RFC3339))
		}
	}

	result := &Result{}
	tracks := base
	if s.enricher != nil && s.enricher.Enabled() {
		report, err := s.enricher.Enrich(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("enriching catalog: %w", err)
		}
		tracks = report.Tracks
		result.GenresFilled = report.GenresFilled
		result.FeaturesFilled = report.FeaturesFilled
		result.Errors = len(report.Errors)
		for _, e := range report.Errors {
			s.logger.Warn("track enrichment failed", "track", e.Key, "op", e.Op, "error", e.Err)
		}
	}

	if _, err := catalog.New(tracks); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	if err := s.store.ReplaceTracks(ctx, tracks); err != nil {
		return nil, fmt.Errorf("storing tracks: %w", err)
	}

	syncTime := s.now().UTC()
	if err := s.store.MarkCatalogSynced(ctx, syncTime); err != nil {
		return nil, fmt.Errorf("updating last sync: %w", err)
	}

	result.TracksCount = len(tracks)
	result.SyncedAt = syncTime
	s.logger.Info("catalog synced", "tracks", result.TracksCount, "genres_filled", result.GenresFilled, "features_filled", result.FeaturesFilled)
	return result, nil
}

// Load returns the stored catalog.
func (s *Service) Load(ctx context.Context) (*catalog.Catalog, error) {
	tracks, err := s.store.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrEmptyCatalog
	}
	return catalog.New(tracks)
}
