package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/moodmix/internal/catalog"
)

const catalogSyncName = "catalog"

// MetaRepository records sync bookkeeping.
type MetaRepository struct {
	pool *pgxpool.Pool
}

// LastCatalogSync returns when the catalog was last synced, or nil if never.
func (r *MetaRepository) LastCatalogSync(ctx context.Context) (*time.Time, error) {
	var at time.Time
	err := r.pool.QueryRow(ctx, `SELECT synced_at FROM sync_state WHERE name = $1`, catalogSyncName).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last sync: %w", err)
	}
	return &at, nil
}

// MarkCatalogSynced records a completed catalog sync.
func (r *MetaRepository) MarkCatalogSynced(ctx context.Context, at time.Time) error {
	query := `
		INSERT INTO sync_state (name, synced_at) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET synced_at = EXCLUDED.synced_at
	`
	if _, err := r.pool.Exec(ctx, query, catalogSyncName, at); err != nil {
		return fmt.Errorf("updating last sync: %w", err)
	}
	return nil
}

// CatalogStore satisfies the sync package's store over PostgreSQL.
type CatalogStore struct {
	tracks *TrackRepository
	meta   *MetaRepository
}

func (s *CatalogStore) ListTracks(ctx context.Context) ([]catalog.Track, error) {
	return s.tracks.List(ctx)
}

func (s *CatalogStore) ReplaceTracks(ctx context.Context, tracks []catalog.Track) error {
	return s.tracks.ReplaceAll(ctx, tracks)
}

func (s *CatalogStore) LastCatalogSync(ctx context.Context) (*time.Time, error) {
	return s.meta.LastCatalogSync(ctx)
}

func (s *CatalogStore) MarkCatalogSynced(ctx context.Context, at time.Time) error {
	return s.meta.MarkCatalogSynced(ctx, at)
}
