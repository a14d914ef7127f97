// Package sqlite stores the catalog, history and consent in a single SQLite
// file for local use.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/justestif/moodmix/internal/catalog"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/policy"
)

const catalogSyncName = "catalog"

// Store implements the history, consent and catalog stores over SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// database/sql pools connections; sqlite allows one writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite db: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS tracks (
		key TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		tempo REAL,
		energy REAL,
		valence REAL,
		genre TEXT,
		position INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		device_id TEXT NOT NULL,
		source TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		clip_uri TEXT NOT NULL DEFAULT '',
		emotion TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS history_device_idx ON history (device_id, seq);

	CREATE TABLE IF NOT EXISTS consent (
		device_id TEXT PRIMARY KEY,
		voice INTEGER NOT NULL DEFAULT 0,
		text INTEGER NOT NULL DEFAULT 0,
		history INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_state (
		name TEXT PRIMARY KEY,
		synced_at DATETIME NOT NULL
	);
	`)
	return err
}

// ListTracks returns all tracks in catalog order.
func (s *Store) ListTracks(ctx context.Context) ([]catalog.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, artist, tempo, energy, valence, genre
		FROM tracks
		ORDER BY position, key
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}
	defer rows.Close()

	var tracks []catalog.Track
	for rows.Next() {
		var t catalog.Track
		var tempo, energy, valence sql.NullFloat64
		var genre sql.NullString
		if err := rows.Scan(&t.Title, &t.Artist, &tempo, &energy, &valence, &genre); err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		t.Tempo = floatPtr(tempo)
		t.Energy = floatPtr(energy)
		t.Valence = floatPtr(valence)
		if genre.Valid {
			t.Genre = catalog.String(genre.String)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracks: %w", err)
	}
	return tracks, nil
}

// ReplaceTracks swaps the stored catalog for tracks in one transaction.
// Repeated keys keep the later track.
func (s *Store) ReplaceTracks(ctx context.Context, tracks []catalog.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return fmt.Errorf("clearing tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (key, title, artist, tempo, energy, valence, genre, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			tempo = excluded.tempo,
			energy = excluded.energy,
			valence = excluded.valence,
			genre = excluded.genre,
			position = excluded.position,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, t := range tracks {
		if _, err := stmt.ExecContext(ctx, t.Key(), t.Title, t.Artist, t.Tempo, t.Energy, t.Valence, t.Genre, i, now); err != nil {
			return fmt.Errorf("upserting track %q: %w", t.Key(), err)
		}
	}
	return tx.Commit()
}

// LastCatalogSync returns when the catalog was last synced, or nil if never.
func (s *Store) LastCatalogSync(ctx context.Context) (*time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx, `SELECT synced_at FROM sync_state WHERE name = ?`, catalogSyncName).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last sync: %w", err)
	}
	return &at, nil
}

// MarkCatalogSynced records a completed catalog sync.
func (s *Store) MarkCatalogSynced(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (name, synced_at) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET synced_at = excluded.synced_at
	`, catalogSyncName, at.UTC())
	if err != nil {
		return fmt.Errorf("updating last sync: %w", err)
	}
	return nil
}

// Append records item and drops the device's entries beyond history.MaxItems.
func (s *Store) Append(ctx context.Context, deviceID string, item history.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (id, device_id, source, mode, text, clip_uri, emotion, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, deviceID, string(item.Source), string(item.Mode), item.Text, item.ClipURI,
		item.Emotion, item.Confidence, item.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting history item: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE device_id = ? AND seq NOT IN (
			SELECT seq FROM history WHERE device_id = ? ORDER BY seq DESC LIMIT ?
		)
	`, deviceID, deviceID, history.MaxItems)
	if err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}
	return tx.Commit()
}

// List returns the device's history, newest first.
func (s *Store) List(ctx context.Context, deviceID string) ([]history.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, mode, text, clip_uri, emotion, confidence, created_at
		FROM history
		WHERE device_id = ?
		ORDER BY seq DESC
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	items := []history.Item{}
	for rows.Next() {
		var item history.Item
		var src, mode string
		if err := rows.Scan(&item.ID, &src, &mode, &item.Text, &item.ClipURI, &item.Emotion, &item.Confidence, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history item: %w", err)
		}
		item.Source = consent.Source(src)
		item.Mode = policy.Mode(mode)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return items, nil
}

// Clear deletes all of the device's history.
func (s *Store) Clear(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Load returns the device's consent, or nil when none was recorded.
func (s *Store) Load(ctx context.Context, deviceID string) (*consent.Consent, error) {
	var c consent.Consent
	err := s.db.QueryRowContext(ctx,
		`SELECT voice, text, history, updated_at FROM consent WHERE device_id = ?`, deviceID,
	).Scan(&c.Voice, &c.Text, &c.History, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying consent: %w", err)
	}
	return &c, nil
}

// Save creates or replaces the device's consent.
func (s *Store) Save(ctx context.Context, deviceID string, c consent.Consent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consent (device_id, voice, text, history, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			voice = excluded.voice,
			text = excluded.text,
			history = excluded.history,
			updated_at = excluded.updated_at
	`, deviceID, c.Voice, c.Text, c.History, c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving consent: %w", err)
	}
	return nil
}

// Delete removes the device's consent.
func (s *Store) Delete(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM consent WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("deleting consent: %w", err)
	}
	return nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return catalog.Float(v.Float64)
}
