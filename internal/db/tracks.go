package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/moodmix/internal/catalog"
)

// TrackRepository handles catalog track operations.
type TrackRepository struct {
	pool *pgxpool.Pool
}

// List returns all tracks in catalog order.
func (r *TrackRepository) List(ctx context.Context) ([]catalog.Track, error) {
	query := `
		SELECT title, artist, tempo, energy, valence, genre
		FROM tracks
		ORDER BY position, key
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}
	defer rows.Close()

	var tracks []catalog.Track
	for rows.Next() {
		var t catalog.Track
		if err := rows.Scan(&t.Title, &t.Artist, &t.Tempo, &t.Energy, &t.Valence, &t.Genre); err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// ReplaceAll makes tracks the whole stored catalog in one transaction.
// Rows whose key is absent from tracks are deleted; the rest are upserted
// with their index in tracks as position.
func (r *TrackRepository) ReplaceAll(ctx context.Context, tracks []catalog.Track) error {
	c := columnsOf(tracks)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM tracks WHERE key <> ALL($1::text[])`, c.keys); err != nil {
			return fmt.Errorf("deleting stale tracks: %w", err)
		}
		if len(c.keys) == 0 {
			return nil
		}

		upsert := `
			INSERT INTO tracks (key, title, artist, tempo, energy, valence, genre, position, updated_at)
			SELECT k, ti, ar, te, en, va, ge, po, $9
			FROM unnest($1::text[], $2::text[], $3::text[], $4::float8[], $5::float8[], $6::float8[], $7::text[], $8::int[])
				AS u(k, ti, ar, te, en, va, ge, po)
			ON CONFLICT (key) DO UPDATE SET
				title = EXCLUDED.title,
				artist = EXCLUDED.artist,
				tempo = EXCLUDED.tempo,
				energy = EXCLUDED.energy,
				valence = EXCLUDED.valence,
				genre = EXCLUDED.genre,
				position = EXCLUDED.position,
				updated_at = EXCLUDED.updated_at
		`
		_, err := tx.Exec(ctx, upsert,
			c.keys, c.titles, c.artists, c.tempos, c.energies, c.valences, c.genres, c.positions,
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("batch upserting tracks: %w", err)
		}
		return nil
	})
}

type trackColumns struct {
	keys      []string
	titles    []string
	artists   []string
	tempos    []*float64
	energies  []*float64
	valences  []*float64
	genres    []*string
	positions []int32
}

// columnsOf splits tracks into parallel arrays for unnest. Later duplicates
// of a key win, since a single INSERT cannot touch the same row twice.
func columnsOf(tracks []catalog.Track) trackColumns {
	last := make(map[string]int, len(tracks))
	for i, t := range tracks {
		last[t.Key()] = i
	}

	c := trackColumns{keys: []string{}}
	for i, t := range tracks {
		key := t.Key()
		if last[key] != i {
			continue
		}
		c.keys = append(c.keys, key)
		c.titles = append(c.titles, t.Title)
		c.artists = append(c.artists, t.Artist)
		c.tempos = append(c.tempos, t.Tempo)
		c.energies = append(c.energies, t.Energy)
		c.valences = append(c.valences, t.Valence)
		c.genres = append(c.genres, t.Genre)
		c.positions = append(c.positions, int32(i))
	}
	return c
}
