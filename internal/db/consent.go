package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/moodmix/internal/consent"
)

// ConsentRepository stores per-device consent.
type ConsentRepository struct {
	pool *pgxpool.Pool
}

// Load returns the device's consent, or nil when none was recorded.
func (r *ConsentRepository) Load(ctx context.Context, deviceID string) (*consent.Consent, error) {
	query := `SELECT voice, text, history, updated_at FROM consent WHERE device_id = $1`

	var c consent.Consent
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(&c.Voice, &c.Text, &c.History, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying consent: %w", err)
	}
	return &c, nil
}

// Save creates or replaces the device's consent.
func (r *ConsentRepository) Save(ctx context.Context, deviceID string, c consent.Consent) error {
	query := `
		INSERT INTO consent (device_id, voice, text, history, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO UPDATE SET
			voice = EXCLUDED.voice,
			text = EXCLUDED.text,
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.pool.Exec(ctx, query, deviceID, c.Voice, c.Text, c.History, c.UpdatedAt); err != nil {
		return fmt.Errorf("saving consent: %w", err)
	}
	return nil
}

// Delete removes the device's consent.
func (r *ConsentRepository) Delete(ctx context.Context, deviceID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM consent WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("deleting consent: %w", err)
	}
	return nil
}
