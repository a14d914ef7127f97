package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/moodmix/internal/history"
)

// HistoryRepository stores per-device analysis history.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// Append records item and drops the device's entries beyond history.MaxItems.
func (r *HistoryRepository) Append(ctx context.Context, deviceID string, item history.Item) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO history (id, device_id, source, mode, text, clip_uri, emotion, confidence, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := tx.Exec(ctx, insert,
			item.ID,
			deviceID,
			string(item.Source),
			string(item.Mode),
			item.Text,
			item.ClipURI,
			item.Emotion,
			item.Confidence,
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting history item: %w", err)
		}

		trim := `
			DELETE FROM history
			WHERE device_id = $1 AND seq NOT IN (
				SELECT seq FROM history WHERE device_id = $1 ORDER BY seq DESC LIMIT $2
			)
		`
		if _, err := tx.Exec(ctx, trim, deviceID, history.MaxItems); err != nil {
			return fmt.Errorf("trimming history: %w", err)
		}
		return nil
	})
}

// List returns the device's history, newest first.
func (r *HistoryRepository) List(ctx context.Context, deviceID string) ([]history.Item, error) {
	query := `
		SELECT id, source, mode, text, clip_uri, emotion, confidence, created_at
		FROM history
		WHERE device_id = $1
		ORDER BY seq DESC
	`
	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	items := []history.Item{}
	for rows.Next() {
		var item history.Item
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.Mode,
			&item.Text,
			&item.ClipURI,
			&item.Emotion,
			&item.Confidence,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning history item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Clear deletes all of the device's history.
func (r *HistoryRepository) Clear(ctx context.Context, deviceID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM history WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
